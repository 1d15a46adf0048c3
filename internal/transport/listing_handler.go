package transport

import (
	"net/http"

	"bazaar/internal/domain"
	"bazaar/internal/forms"
	"bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"
	"bazaar/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingHandler serves the owner-scoped listing management pages. Every
// route it registers sits behind the RequireUser gate.
type ListingHandler struct {
	listings service.ListingService
	catalog  service.CatalogService
	renderer *view.Renderer
	logger   *zap.Logger
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(listings service.ListingService, catalog service.CatalogService, renderer *view.Renderer, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		catalog:  catalog,
		renderer: renderer,
		logger:   logger,
	}
}

// RegisterRoutes registers the protected listing routes
func (h *ListingHandler) RegisterRoutes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/add-item/", h.AddItemPage)
		r.Post("/add-item/", h.AddItem)
		r.Get("/update-product/{id}/", h.EditPage)
		r.Post("/update-product/{id}/", h.Edit)
		r.Get("/delete/{id}/", h.DeletePage)
		r.Post("/delete/{id}/", h.Delete)
		r.Get("/dashboard/", h.Dashboard)
	})
}

// AddItemPage renders an empty listing form
func (h *ListingHandler) AddItemPage(w http.ResponseWriter, r *http.Request) {
	h.renderItemForm(w, r, http.StatusOK, "Add New Item", forms.ItemForm{}, forms.FieldErrors{})
}

// AddItem creates a listing owned by the authenticated user
func (h *ListingHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form, errs := forms.ParseItem(r.PostForm)
	if !errs.Valid() {
		h.renderItemForm(w, r, http.StatusUnprocessableEntity, "Add New Item", form, errs)
		return
	}

	product, err := h.listings.Create(r.Context(), user.ID, form.Input())
	if err != nil {
		if err == service.ErrInvalidCategory {
			errs["category"] = "Choose a valid category"
			h.renderItemForm(w, r, http.StatusUnprocessableEntity, "Add New Item", form, errs)
			return
		}
		h.logger.Error("Failed to create listing", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create listing")
		return
	}

	h.logger.Info("Listing created",
		zap.String("product_id", product.ID.String()),
		zap.String("owner_id", user.ID.String()),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// EditPage renders the edit form prefilled with the owner's listing
func (h *ListingHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.listings.GetForEdit(r.Context(), user.ID, id)
	if err != nil {
		h.respondListingError(w, err, "failed to load listing")
		return
	}

	h.renderItemForm(w, r, http.StatusOK, "Edit Product", itemFormFrom(product), forms.FieldErrors{})
}

// Edit applies a listing update for its owner
func (h *ListingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form, errs := forms.ParseItem(r.PostForm)
	if !errs.Valid() {
		h.renderItemForm(w, r, http.StatusUnprocessableEntity, "Edit Product", form, errs)
		return
	}

	if _, err := h.listings.Update(r.Context(), user.ID, id, form.Input()); err != nil {
		if err == service.ErrInvalidCategory {
			errs["category"] = "Choose a valid category"
			h.renderItemForm(w, r, http.StatusUnprocessableEntity, "Edit Product", form, errs)
			return
		}
		h.respondListingError(w, err, "failed to update listing")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeletePage renders the delete confirmation for the owner's listing
func (h *ListingHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.listings.GetForEdit(r.Context(), user.ID, id)
	if err != nil {
		h.respondListingError(w, err, "failed to load listing")
		return
	}

	h.renderer.Render(w, http.StatusOK, "delete.html", view.Data{
		"User":    user,
		"Title":   "Delete " + product.Name,
		"Product": product,
	})
}

// Delete removes the owner's listing after confirmation
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.listings.Delete(r.Context(), user.ID, id); err != nil {
		h.respondListingError(w, err, "failed to delete listing")
		return
	}

	h.logger.Info("Listing deleted",
		zap.String("product_id", id.String()),
		zap.String("owner_id", user.ID.String()),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard lists the authenticated user's own listings
func (h *ListingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	products, err := h.listings.ListOwnedBy(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to load dashboard", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	h.renderer.Render(w, http.StatusOK, "dashboard.html", view.Data{
		"User":     user,
		"Title":    "Dashboard",
		"Products": products,
	})
}

func (h *ListingHandler) renderItemForm(w http.ResponseWriter, r *http.Request, status int, title string, form forms.ItemForm, errs forms.FieldErrors) {
	user, _ := middleware.GetUser(r.Context())

	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.Error("Failed to load categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load form")
		return
	}

	h.renderer.Render(w, status, "item_form.html", view.Data{
		"User":       user,
		"Title":      title,
		"Form":       form,
		"Errors":     errs,
		"Categories": categories,
	})
}

// productID parses the route's id parameter; a malformed id is a 404, same
// as a missing row.
func (h *ListingHandler) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "listing not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ListingHandler) respondListingError(w http.ResponseWriter, err error, message string) {
	if err == repository.ErrProductNotFound {
		middleware.RespondWithError(w, http.StatusNotFound, "listing not found")
		return
	}
	h.logger.Error(message, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, message)
}

func itemFormFrom(product *domain.Product) forms.ItemForm {
	return forms.ItemForm{
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		IsSold:      product.IsSold,
		ImageURL:    product.ImageURL,
	}
}
