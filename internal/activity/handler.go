package activity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/api"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByLead returns a lead's event trail for the admin console.
func (h *Handler) ListByLead(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid lead id"))
		return
	}

	events, err := h.repo.ListByLead(r.Context(), leadID)
	if err != nil {
		slog.Error("listing lead events", "lead_id", leadID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, events)
}
