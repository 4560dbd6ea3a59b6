package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/service"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// ItemHandler handles catalog endpoints
type ItemHandler struct {
	service *service.ItemService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.ItemService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

// ItemRequest is the payload for creating or updating a catalog item
type ItemRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required,oneof=medication supply equipment"`
	Unit     string `json:"unit" validate:"required"`
	MinStock int    `json:"min_stock" validate:"gte=0"`
}

// Create creates a new catalog item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item := &domain.Item{
		Name:     req.Name,
		Category: domain.ItemCategory(req.Category),
		Unit:     req.Unit,
		MinStock: req.MinStock,
	}
	if err := h.service.CreateItem(r.Context(), item); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Get gets an item by ID
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// List lists catalog items with pagination
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	items, total, err := h.service.ListItems(r.Context(), page, perPage, r.URL.Query().Get("category"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages(total, perPage),
	})
}

// Update updates a catalog item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item := &domain.Item{
		ID:       id,
		Name:     req.Name,
		Category: domain.ItemCategory(req.Category),
		Unit:     req.Unit,
		MinStock: req.MinStock,
	}
	if err := h.service.UpdateItem(r.Context(), item); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return page, perPage
}

func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
