package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"
	"bazaar/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *mockSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, exists := m.sessions[token]
	if !exists {
		return nil, repository.ErrSessionNotFound
	}
	if session.Revoked {
		return nil, repository.ErrSessionRevoked
	}
	return session, nil
}

func (m *mockSessionRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, exists := m.sessions[token]
	if !exists {
		return repository.ErrSessionNotFound
	}
	session.Revoked = true
	return nil
}

type mockCategoryRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) FindOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.OwnerID != ownerID {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockProductRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.products {
		if p.OwnerID == ownerID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockProductRepository) FindByCategoryExcluding(ctx context.Context, categoryID, excludeID uuid.UUID) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID && p.ID != excludeID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockProductRepository) SearchUnsold(ctx context.Context, query string) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []*domain.Product
	for _, p := range m.products {
		if p.IsSold {
			continue
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockProductRepository) UpdateOwned(ctx context.Context, product *domain.Product, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.products[product.ID]
	if !exists || existing.OwnerID != ownerID {
		return repository.ErrProductNotFound
	}
	copied := *product
	copied.OwnerID = existing.OwnerID
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.products[id]
	if !exists || existing.OwnerID != ownerID {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

type testApp struct {
	router     chi.Router
	categories *mockCategoryRepository
	products   *mockProductRepository
	accounts   service.AccountService
}

// newTestApp wires the full routing stack against in-memory repositories,
// mirroring the production server setup minus Redis rate limiting.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := zap.NewNop()

	userRepo := newMockUserRepository()
	sessionRepo := newMockSessionRepository()
	categoryRepo := newMockCategoryRepository()
	productRepo := newMockProductRepository()

	accounts := service.NewAccountService(userRepo, sessionRepo, "test-secret", 24*time.Hour)
	catalog := service.NewCatalogService(productRepo, categoryRepo)
	listings := service.NewListingService(productRepo, categoryRepo)

	renderer, err := view.New(logger)
	if err != nil {
		t.Fatalf("could not build renderer: %v", err)
	}

	noRateLimit := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Use(middleware.CurrentUser(accounts, logger))

	NewCatalogHandler(catalog, renderer, logger).RegisterRoutes(r)
	NewAccountHandler(accounts, renderer, logger).RegisterRoutes(r, noRateLimit)
	NewListingHandler(listings, catalog, renderer, logger).RegisterRoutes(r, middleware.RequireUser(logger))

	return &testApp{
		router:     r,
		categories: categoryRepo,
		products:   productRepo,
		accounts:   accounts,
	}
}

func (app *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func (app *testApp) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func seedTestCategory(t *testing.T, app *testApp, name string) *domain.Category {
	t.Helper()
	category := &domain.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	if err := app.categories.Create(context.Background(), category); err != nil {
		t.Fatalf("could not seed category: %v", err)
	}
	return category
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/dashboard/", "/add-item/"} {
		w := app.get(path, nil)
		if w.Code != http.StatusSeeOther {
			t.Errorf("GET %s anonymous: want 303, got %d", path, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/login/" {
			t.Errorf("GET %s anonymous: want redirect to /login/, got %q", path, loc)
		}
	}
}

func TestSignupLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)

	signup := url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password1": {"correct horse battery"},
		"password2": {"correct horse battery"},
	}
	w := app.postForm("/signup/", signup, nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login/" {
		t.Fatalf("signup: want 303 to /login/, got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	// A second registration with the same username redisplays the form.
	w = app.postForm("/signup/", signup, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup: want 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "This username is taken") {
		t.Error("duplicate signup response missing the taken-username message")
	}

	// Wrong password shows one generic message.
	w = app.postForm("/login/", url.Values{
		"username": {"alice"},
		"password": {"wrong password!"},
	}, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad login: want 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please enter a correct username and password") {
		t.Error("bad login response missing the generic failure message")
	}

	w = app.postForm("/login/", url.Values{
		"username": {"alice"},
		"password": {"correct horse battery"},
	}, nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("login: want 303 to /, got %d -> %q", w.Code, w.Header().Get("Location"))
	}
	cookie := sessionCookie(t, w)

	// The session cookie unlocks the dashboard.
	w = app.get("/dashboard/", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard with session: want 200, got %d", w.Code)
	}

	// Logout revokes the session; the old cookie no longer works.
	w = app.get("/logout/", cookie)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login/" {
		t.Fatalf("logout: want 303 to /login/, got %d -> %q", w.Code, w.Header().Get("Location"))
	}

	w = app.get("/dashboard/", cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("dashboard after logout: want 303, got %d", w.Code)
	}
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	category := seedTestCategory(t, app, "Electronics")

	register := func(name string) *http.Cookie {
		w := app.postForm("/signup/", url.Values{
			"username":  {name},
			"email":     {name + "@example.com"},
			"password1": {"a long password"},
			"password2": {"a long password"},
		}, nil)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("signup %s: got %d", name, w.Code)
		}
		w = app.postForm("/login/", url.Values{
			"username": {name},
			"password": {"a long password"},
		}, nil)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("login %s: got %d", name, w.Code)
		}
		return sessionCookie(t, w)
	}

	alice := register("alice")
	bob := register("bob")

	item := url.Values{
		"category":    {category.ID.String()},
		"name":        {"Mechanical Keyboard"},
		"description": {"Clicky and loud"},
		"price":       {"79.99"},
		"stock":       {"2"},
	}
	w := app.postForm("/add-item/", item, alice)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("add item: want 303, got %d, body: %s", w.Code, w.Body.String())
	}

	products, err := app.products.List(context.Background())
	if err != nil || len(products) != 1 {
		t.Fatalf("want exactly one product after add, got %d (err %v)", len(products), err)
	}
	productID := products[0].ID

	// Alice sees her listing on the dashboard; Bob does not.
	if body := app.get("/dashboard/", alice).Body.String(); !strings.Contains(body, "Mechanical Keyboard") {
		t.Error("owner's dashboard missing the new listing")
	}
	if body := app.get("/dashboard/", bob).Body.String(); strings.Contains(body, "Mechanical Keyboard") {
		t.Error("another user's dashboard shows a foreign listing")
	}

	// Bob cannot edit or delete Alice's listing.
	editPath := "/update-product/" + productID.String() + "/"
	if w := app.get(editPath, bob); w.Code != http.StatusNotFound {
		t.Errorf("edit page for non-owner: want 404, got %d", w.Code)
	}
	item.Set("price", "1.00")
	if w := app.postForm(editPath, item, bob); w.Code != http.StatusNotFound {
		t.Errorf("edit for non-owner: want 404, got %d", w.Code)
	}
	deletePath := "/delete/" + productID.String() + "/"
	if w := app.postForm(deletePath, url.Values{}, bob); w.Code != http.StatusNotFound {
		t.Errorf("delete for non-owner: want 404, got %d", w.Code)
	}

	// A garbled id behaves exactly like a missing row.
	if w := app.get("/update-product/not-a-uuid/", alice); w.Code != http.StatusNotFound {
		t.Errorf("malformed id: want 404, got %d", w.Code)
	}

	// The owner edits, then deletes.
	item.Set("price", "59.99")
	item.Set("is_sold", "on")
	if w := app.postForm(editPath, item, alice); w.Code != http.StatusSeeOther {
		t.Fatalf("edit for owner: want 303, got %d, body: %s", w.Code, w.Body.String())
	}
	updated, err := app.products.FindByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("lookup after edit: %v", err)
	}
	if updated.Price != 59.99 || !updated.IsSold {
		t.Fatalf("edit not applied: %+v", updated)
	}

	if w := app.postForm(deletePath, url.Values{}, alice); w.Code != http.StatusSeeOther {
		t.Fatalf("delete for owner: want 303, got %d", w.Code)
	}
	if _, err := app.products.FindByID(context.Background(), productID); err != repository.ErrProductNotFound {
		t.Fatalf("product still present after delete: %v", err)
	}
}

func TestSearchPageFiltersSoldItems(t *testing.T) {
	app := newTestApp(t)
	category := seedTestCategory(t, app, "Books")
	ownerID := uuid.New()

	for _, p := range []*domain.Product{
		{ID: uuid.New(), CategoryID: category.ID, OwnerID: ownerID, Name: "Go in Practice", Description: "well thumbed"},
		{ID: uuid.New(), CategoryID: category.ID, OwnerID: ownerID, Name: "Gone With the Wind", Description: "classic", IsSold: true},
	} {
		if err := app.products.Create(context.Background(), p); err != nil {
			t.Fatalf("could not seed product: %v", err)
		}
	}

	w := app.get("/search/?query=go", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: want 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Go in Practice") {
		t.Error("search results missing a matching unsold product")
	}
	if strings.Contains(body, "Gone With the Wind") {
		t.Error("search results include a sold product")
	}
}

func TestProperty_InvalidSignupNeverCreatesASession(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid registration redisplays the form without a cookie", prop.ForAll(
		func(invalidCase int) bool {
			app := newTestApp(t)

			form := url.Values{
				"username":  {"someone"},
				"email":     {"someone@example.com"},
				"password1": {"long enough pass"},
				"password2": {"long enough pass"},
			}

			switch invalidCase % 4 {
			case 0:
				form.Set("username", "ab") // below minimum length
			case 1:
				form.Set("email", "not-an-email")
			case 2:
				form.Set("password1", "short")
				form.Set("password2", "short")
			case 3:
				form.Set("password2", "different password")
			}

			w := app.postForm("/signup/", form, nil)
			if w.Code != http.StatusUnprocessableEntity {
				t.Logf("FAIL: expected 422, got %d", w.Code)
				return false
			}
			for _, c := range w.Result().Cookies() {
				if c.Name == middleware.SessionCookie {
					t.Logf("FAIL: invalid signup set a session cookie")
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
