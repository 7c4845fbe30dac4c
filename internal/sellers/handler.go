package sellers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/api"
	"github.com/fenestra-platform/fenestra/internal/auth"
	"github.com/fenestra-platform/fenestra/internal/quota"
)

type Handler struct {
	svc      *Service
	ledger   *quota.Ledger
	validate *validator.Validate
}

func NewHandler(svc *Service, ledger *quota.Ledger) *Handler {
	return &Handler{
		svc:      svc,
		ledger:   ledger,
		validate: validator.New(),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	seller, err := h.svc.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrPhoneAlreadyExists) {
			api.HandleError(w, api.NewConflictError("phone number already registered"))
			return
		}
		slog.Error("registering seller", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, seller)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid seller id"))
		return
	}

	seller, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSellerNotFound) {
			api.HandleError(w, api.NewNotFoundError("seller not found"))
			return
		}
		slog.Error("getting seller", "seller_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, seller)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := DefaultListParams()
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError(err.Error()))
			return
		}
		params.Status = string(status)
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if size, err := strconv.Atoi(ps); err == nil && size > 0 && size <= 100 {
			params.PageSize = size
		}
	}

	list, total, err := h.svc.List(r.Context(), params)
	if err != nil {
		slog.Error("listing sellers", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, list, total, params.Page, params.PageSize)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) error {
		return h.svc.Approve(r.Context(), id)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	h.transition(w, r, func(id uuid.UUID) error {
		return h.svc.Reject(r.Context(), id, req.Reason)
	})
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) error {
		return h.svc.SetActive(r.Context(), id, false)
	})
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID) error {
		return h.svc.SetActive(r.Context(), id, true)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid seller id"))
		return
	}
	if err := apply(id); err != nil {
		if errors.Is(err, ErrSellerNotFound) {
			api.HandleError(w, api.NewNotFoundError("seller not found"))
			return
		}
		slog.Error("updating seller", "seller_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "seller updated")
}

// Quota returns the authenticated seller's remaining allowance, applying a
// due monthly reset before reading.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	sellerID, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.ledger.Status(r.Context(), sellerID, time.Now())
	if err != nil {
		if errors.Is(err, quota.ErrSellerNotFound) {
			api.HandleError(w, api.NewNotFoundError("seller not found"))
			return
		}
		slog.Error("reading seller quota", "seller_id", sellerID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
