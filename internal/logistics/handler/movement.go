package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/service"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// MovementHandler handles movement workflow endpoints
type MovementHandler struct {
	service *service.MovementService
	logger  *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(svc *service.MovementService, log *logger.Logger) *MovementHandler {
	return &MovementHandler{
		service: svc,
		logger:  log,
	}
}

// MovementLineRequest is one requested line
type MovementLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// CreateMovementRequest is the payload for requesting a movement. Omitting
// from_location_id requests a supplier receipt.
type CreateMovementRequest struct {
	FromLocationID *string               `json:"from_location_id" validate:"omitempty,uuid"`
	ToLocationID   string                `json:"to_location_id" validate:"required,uuid"`
	Observation    *string               `json:"observation"`
	Items          []MovementLineRequest `json:"items" validate:"required,dive"`
}

// Create requests a new movement
func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lines := make([]service.MovementLineInput, len(req.Items))
	for i, l := range req.Items {
		lines[i] = service.MovementLineInput{ItemID: l.ItemID, Quantity: l.Quantity}
	}

	m, err := h.service.CreateMovement(r.Context(), service.CreateMovementInput{
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Observation:    req.Observation,
		Items:          lines,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, m)
}

// Get gets a movement with its lines
func (h *MovementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}

// List lists movements with pagination, optionally filtered by status
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	movements, total, err := h.service.ListMovements(r.Context(), page, perPage, r.URL.Query().Get("status"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, movements, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages(total, perPage),
	})
}

// Approve approves a pending movement and applies it to the ledger
func (h *MovementHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.service.ApproveMovement(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}

// Reject rejects a pending movement
func (h *MovementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.service.RejectMovement(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}

// LostLineRequest is one reported loss line
type LostLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// ReportLossRequest is the payload for reporting the transit outcome of an
// approved movement. An empty items list confirms full receipt.
type ReportLossRequest struct {
	Observation *string           `json:"observation"`
	Items       []LostLineRequest `json:"items" validate:"dive"`
}

// ReportLoss records the transit outcome of an approved movement
func (h *MovementHandler) ReportLoss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReportLossRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lost := make([]domain.LostItem, len(req.Items))
	for i, l := range req.Items {
		lost[i] = domain.LostItem{ItemID: l.ItemID, Quantity: l.Quantity}
	}

	m, err := h.service.ReportLoss(r.Context(), id, req.Observation, lost)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, m)
}
