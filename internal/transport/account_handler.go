package transport

import (
	"net/http"

	"bazaar/internal/forms"
	"bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"
	"bazaar/internal/view"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccountHandler serves registration, login, and logout
type AccountHandler struct {
	accounts service.AccountService
	renderer *view.Renderer
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts service.AccountService, renderer *view.Renderer, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		renderer: renderer,
		logger:   logger,
	}
}

// RegisterRoutes registers the account routes. Credential submissions go
// through the rate limiter; logout accepts GET as well as POST, matching the
// original navigation links.
func (h *AccountHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Get("/signup/", h.SignupPage)
	r.With(rateLimit).Post("/signup/", h.Signup)
	r.Get("/login/", h.LoginPage)
	r.With(rateLimit).Post("/login/", h.Login)
	r.Get("/logout/", h.Logout)
	r.Post("/logout/", h.Logout)
}

// SignupPage renders an empty registration form
func (h *AccountHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusOK, "signup.html", view.Data{
		"User":   user,
		"Title":  "Sign up",
		"Form":   forms.SignupForm{},
		"Errors": forms.FieldErrors{},
	})
}

// Signup handles a registration submission. Success redirects to the login
// page; registration never establishes a session by itself.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form, errs := forms.ParseSignup(r.PostForm)
	if !errs.Valid() {
		h.renderSignup(w, r, form, errs)
		return
	}

	user, err := h.accounts.Register(r.Context(), form.Username, form.Email, form.Password1)
	if err != nil {
		if err == repository.ErrUserAlreadyExists {
			errs["username"] = "This username is taken"
			h.renderSignup(w, r, form, errs)
			return
		}
		h.logger.Error("Registration failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

// LoginPage renders an empty login form
func (h *AccountHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusOK, "login.html", view.Data{
		"User":   user,
		"Title":  "Log in",
		"Form":   forms.LoginForm{},
		"Errors": forms.FieldErrors{},
	})
}

// Login handles an authentication submission. Bad credentials redisplay the
// form with one generic message; unknown user and wrong password look the
// same from the outside.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form, errs := forms.ParseLogin(r.PostForm)
	if !errs.Valid() {
		h.renderLogin(w, r, form, errs)
		return
	}

	cookieValue, user, err := h.accounts.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			h.logger.Debug("Login failed", zap.String("username", form.Username))
			errs["form"] = "Please enter a correct username and password"
			h.renderLogin(w, r, form, errs)
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout revokes the session unconditionally and clears the cookie
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		if err := h.accounts.EndSession(r.Context(), cookie.Value); err != nil {
			h.logger.Error("Logout failed", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

func (h *AccountHandler) renderSignup(w http.ResponseWriter, r *http.Request, form forms.SignupForm, errs forms.FieldErrors) {
	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusUnprocessableEntity, "signup.html", view.Data{
		"User":   user,
		"Title":  "Sign up",
		"Form":   form,
		"Errors": errs,
	})
}

func (h *AccountHandler) renderLogin(w http.ResponseWriter, r *http.Request, form forms.LoginForm, errs forms.FieldErrors) {
	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusUnprocessableEntity, "login.html", view.Data{
		"User":   user,
		"Title":  "Log in",
		"Form":   form,
		"Errors": errs,
	})
}
