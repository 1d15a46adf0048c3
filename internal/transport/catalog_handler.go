package transport

import (
	"net/http"

	"bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"
	"bazaar/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogHandler serves the public browse pages: home, detail, search
type CatalogHandler struct {
	catalog  service.CatalogService
	renderer *view.Renderer
	logger   *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, renderer *view.Renderer, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		renderer: renderer,
		logger:   logger,
	}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/detail/{id}/", h.Detail)
	r.Get("/search/", h.Search)
}

// Home lists every product
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}

	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusOK, "home.html", view.Data{
		"User":     user,
		"Products": products,
	})
}

// Detail shows a single product with its related items
func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "listing not found")
		return
	}

	product, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "listing not found")
			return
		}
		h.logger.Error("Failed to load product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load listing")
		return
	}

	related, err := h.catalog.RelatedTo(r.Context(), product)
	if err != nil {
		h.logger.Error("Failed to load related products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load listing")
		return
	}

	user, _ := middleware.GetUser(r.Context())
	isOwner := user != nil && user.ID == product.OwnerID

	h.renderer.Render(w, http.StatusOK, "detail.html", view.Data{
		"User":    user,
		"Title":   product.Name,
		"Product": product,
		"Related": related,
		"IsOwner": isOwner,
	})
}

// Search lists unsold products matching the query parameter
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	products, err := h.catalog.SearchUnsold(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to search products", zap.Error(err), zap.String("query", query))
		middleware.RespondWithError(w, http.StatusInternalServerError, "search failed")
		return
	}

	user, _ := middleware.GetUser(r.Context())
	h.renderer.Render(w, http.StatusOK, "search.html", view.Data{
		"User":     user,
		"Title":    "Search",
		"Query":    query,
		"Products": products,
	})
}
