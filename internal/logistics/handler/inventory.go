package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careflow/careflow-backend/internal/logistics/service"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// InventoryHandler handles the read-side inventory endpoints
type InventoryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.InventoryService, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  log,
	}
}

// Balance returns per-item balances. With a location_id query parameter
// the result narrows to the holdings of that single location.
func (h *InventoryHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if locationID := r.URL.Query().Get("location_id"); locationID != "" {
		loc, holdings, err := h.service.LocationInventory(r.Context(), locationID)
		if err != nil {
			httputil.Error(w, err)
			return
		}

		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"location": loc,
			"items":    holdings,
		})
		return
	}

	balances, err := h.service.Overview(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, balances)
}

// ItemBalance returns one item's agency-wide position
func (h *InventoryHandler) ItemBalance(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	balance, err := h.service.ItemBalance(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, balance)
}

// LocationInventory returns the items held at one location
func (h *InventoryHandler) LocationInventory(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "id")

	loc, holdings, err := h.service.LocationInventory(r.Context(), locationID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"location": loc,
		"items":    holdings,
	})
}
