package leads

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
	"github.com/fenestra-platform/fenestra/internal/brand"
	"github.com/fenestra-platform/fenestra/internal/catalog"
	"github.com/fenestra-platform/fenestra/internal/quota"
)

type Handler struct {
	svc       *Service
	allocator *Allocator
	validate  *validator.Validate
}

func NewHandler(svc *Service, allocator *Allocator) *Handler {
	return &Handler{
		svc:       svc,
		allocator: allocator,
		validate:  validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	buyerID, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	lead, err := h.svc.Create(r.Context(), buyerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrCategoryNotFound):
			api.HandleError(w, api.NewNotFoundError("category not found"))
		case errors.Is(err, catalog.ErrProductNotFound):
			api.HandleError(w, api.NewBadRequestError("unknown product for category"))
		case errors.Is(err, ErrNonPositiveArea):
			api.HandleError(w, api.NewValidationError("total sqft must be positive"))
		default:
			slog.Error("creating lead", "buyer_id", buyerID, "error", err)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSON(w, http.StatusCreated, lead)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := DefaultListParams()
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		// Read-side filter: legacy aliases are accepted and normalized, the
		// same mapping the storage boundary applies.
		status := NormalizeStatus(s)
		params.Status = &status
	}
	for name, dst := range map[string]**uuid.UUID{
		"buyer_id":    &params.BuyerID,
		"category_id": &params.CategoryID,
		"seller_id":   &params.SellerID,
	} {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				api.HandleError(w, api.NewBadRequestError("invalid "+name))
				return
			}
			*dst = &id
		}
	}
	if q.Get("offerable") == "true" {
		params.OfferableOnly = true
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if size, err := strconv.Atoi(ps); err == nil && size > 0 && size <= 100 {
			params.PageSize = size
		}
	}

	list, total, err := h.svc.List(r.Context(), params)
	if err != nil {
		slog.Error("listing leads", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, list, total, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid lead id"))
		return
	}

	lead, err := h.svc.GetWithPurchases(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			api.HandleError(w, api.NewNotFoundError("lead not found"))
			return
		}
		slog.Error("getting lead", "lead_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, lead)
}

// GetVisibility annotates a single lead with the offerability predicate.
func (h *Handler) GetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid lead id"))
		return
	}

	lead, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			api.HandleError(w, api.NewNotFoundError("lead not found"))
			return
		}
		slog.Error("getting lead visibility", "lead_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, Visibility(lead, time.Now()))
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
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

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	req.SellerID = sellerID
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.allocator.Purchase(r.Context(), &req)
	if err != nil {
		h.handlePurchaseError(w, &req, err)
		return
	}

	api.JSON(w, http.StatusOK, result)
}

func (h *Handler) handlePurchaseError(w http.ResponseWriter, req *PurchaseRequest, err error) {
	switch {
	case errors.Is(err, ErrLeadNotFound):
		api.HandleError(w, api.NewNotFoundError("lead not found"))
	case errors.Is(err, ErrSellerNotFound):
		api.HandleError(w, api.NewNotFoundError("seller not found"))
	case errors.Is(err, ErrLeadNotOpen):
		api.HandleError(w, api.NewConflictError("lead is closed or cancelled"))
	case errors.Is(err, ErrSellerNotEligible):
		api.HandleError(w, api.NewConflictError("seller is not approved and active"))
	case errors.Is(err, ErrInsufficientSlots):
		api.HandleError(w, api.NewConflictError("not enough available slots"))
	case errors.Is(err, ErrDuplicatePurchase):
		api.HandleError(w, api.NewConflictError("lead already purchased by this seller"))
	case errors.Is(err, ErrFreeQuotaTooLarge):
		api.HandleError(w, api.NewValidationError("free sqft exceeds the purchased area"))
	case errors.Is(err, quota.ErrQuotaExceeded):
		api.HandleError(w, api.NewConflictError("insufficient free quota"))
	case errors.Is(err, quota.ErrAlreadyUsedForLead):
		api.HandleError(w, api.NewConflictError("free quota already used for this lead"))
	case errors.Is(err, brand.ErrLimitReached):
		api.HandleError(w, api.NewConflictError(err.Error()))
	case errors.Is(err, ErrConcurrencyConflict):
		api.HandleError(w, api.NewConflictError("lead slots changed concurrently, retry"))
	default:
		slog.Error("purchasing lead slots",
			"lead_id", req.LeadID, "seller_id", req.SellerID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// Preview exposes the pricing calculator without creating anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	totalSqft, err := strconv.ParseFloat(r.URL.Query().Get("total_sqft"), 64)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("total_sqft must be a number"))
		return
	}

	pricing, err := h.svc.Preview(totalSqft)
	if err != nil {
		if errors.Is(err, ErrNonPositiveArea) {
			api.HandleError(w, api.NewValidationError("total sqft must be positive"))
			return
		}
		slog.Error("previewing pricing", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, pricing)
}

type statusOverrideRequest struct {
	Status string `json:"status" validate:"required"`
}

// OverrideStatus lets an admin move a lead anywhere in the state machine.
// Unlike reads, unknown values are rejected rather than defaulted.
func (h *Handler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid lead id"))
		return
	}

	var req statusOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		api.HandleError(w, api.NewValidationError("unknown lead status "+strconv.Quote(req.Status)))
		return
	}

	lead, err := h.svc.OverrideStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			api.HandleError(w, api.NewNotFoundError("lead not found"))
			return
		}
		slog.Error("overriding lead status", "lead_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, lead)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid lead id"))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			api.HandleError(w, api.NewNotFoundError("lead not found"))
			return
		}
		slog.Error("deleting lead", "lead_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "lead deleted")
}
