package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
)

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike so the login form cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionInvalid     = errors.New("session is invalid")
	ErrSessionExpired     = errors.New("session has expired")
)

// SessionClaims is the payload of the signed session cookie. The signature
// stops tampered cookies before any database lookup; the session row is still
// the authority on revocation and expiry.
type SessionClaims struct {
	SessionToken string    `json:"session_token"`
	UserID       uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// AccountService defines registration, login, and session handling
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (cookieValue string, user *domain.User, err error)
	EndSession(ctx context.Context, cookieValue string) error
	UserBySession(ctx context.Context, cookieValue string) (*domain.User, error)
}

type accountService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	secret      string
	sessionTTL  time.Duration
}

// NewAccountService creates a new instance of AccountService
func NewAccountService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	secret string,
	sessionTTL time.Duration,
) AccountService {
	return &accountService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		secret:      secret,
		sessionTTL:  sessionTTL,
	}
}

// Register creates a new account with a hashed password. Registration does
// not establish a session; the user logs in separately.
func (s *accountService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && err != repository.ErrUserNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies credentials and establishes a session, returning the
// signed cookie value to set on the response.
func (s *accountService) Authenticate(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(s.sessionTTL),
		CreatedAt: time.Now(),
		Revoked:   false,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	cookieValue, err := s.signSession(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}

	return cookieValue, user, nil
}

// EndSession revokes the session referenced by the cookie. Unknown or garbled
// cookies are treated as already logged out.
func (s *accountService) EndSession(ctx context.Context, cookieValue string) error {
	claims, err := s.parseSession(cookieValue)
	if err != nil {
		return nil
	}

	if err := s.sessionRepo.Revoke(ctx, claims.SessionToken); err != nil {
		if err == repository.ErrSessionNotFound {
			return nil
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// UserBySession resolves a cookie value to its user. It fails if the
// signature is invalid, the session row is missing or revoked, or it has
// expired.
func (s *accountService) UserBySession(ctx context.Context, cookieValue string) (*domain.User, error) {
	claims, err := s.parseSession(cookieValue)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	session, err := s.sessionRepo.FindByToken(ctx, claims.SessionToken)
	if err != nil {
		if err == repository.ErrSessionNotFound || err == repository.ErrSessionRevoked {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session user: %w", err)
	}

	return user, nil
}

func (s *accountService) signSession(session *domain.Session) (string, error) {
	claims := &SessionClaims{
		SessionToken: session.Token,
		UserID:       session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *accountService) parseSession(cookieValue string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(cookieValue, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}
