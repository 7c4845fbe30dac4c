package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/api"
)

// Handler serves the read-only catalog reference data buyers need to fill
// in a lead submission.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		slog.Error("listing categories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, categories)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid category id"))
		return
	}

	if _, err := h.repo.GetCategory(r.Context(), categoryID); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			api.HandleError(w, api.NewNotFoundError("category not found"))
			return
		}
		slog.Error("getting category", "category_id", categoryID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	products, err := h.repo.ListProducts(r.Context(), categoryID)
	if err != nil {
		slog.Error("listing products", "category_id", categoryID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, products)
}
