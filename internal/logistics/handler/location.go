package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/service"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// LocationHandler handles stock location endpoints
type LocationHandler struct {
	service *service.LocationService
	logger  *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc *service.LocationService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  log,
	}
}

// CreateLocationRequest is the payload for registering a location
type CreateLocationRequest struct {
	Name           string  `json:"name"`
	Type           string  `json:"type" validate:"required,oneof=company patient vehicle"`
	Address        *string `json:"address"`
	LinkedEntityID *string `json:"linked_entity_id"`
}

// Create registers a new stock location
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	loc, err := h.service.CreateLocation(r.Context(), service.CreateLocationInput{
		Name:           req.Name,
		Type:           domain.LocationType(req.Type),
		Address:        req.Address,
		LinkedEntityID: req.LinkedEntityID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, loc)
}

// Get gets a location by ID
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	loc, err := h.service.GetLocation(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loc)
}

// List lists locations, optionally filtered by type
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, locations)
}

// Delete removes a location that holds no stock
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RemoveLocation(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
