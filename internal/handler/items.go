package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/busycorner/panel/internal/menu"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ItemHandler handles menu item CRUD (manager only) and the public
// customer-facing menu read.
type ItemHandler struct {
	menu *menu.Service
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(m *menu.Service) *ItemHandler {
	return &ItemHandler{menu: m}
}

// RegisterManagerRoutes registers the manager-owned item endpoints.
func (h *ItemHandler) RegisterManagerRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// RegisterPublicRoutes registers the customer-facing menu read.
func (h *ItemHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
}

// --- Request / Response types ---

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Available   *bool  `json:"available"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Available   bool   `json:"available"`
}

type menuItemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Active      bool   `json:"active"`
}

// --- Handlers ---

// List returns the manager's item feed.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.menu.List(r.Context())

	resp := make([]itemResponse, len(items))
	for i, item := range items {
		resp[i] = toItemResponse(item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp, "count": len(resp)})
}

// Menu returns the customer-facing mirror. No authentication required.
func (h *ItemHandler) Menu(w http.ResponseWriter, r *http.Request) {
	mirror := h.menu.Menu(r.Context())

	resp := make([]menuItemResponse, len(mirror))
	for i, item := range mirror {
		resp[i] = menuItemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.StringFixed(2),
			Category:    item.Category,
			Active:      item.Active,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp, "count": len(resp)})
}

// Create handles POST /items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	item, ok := decodeItem(w, r)
	if !ok {
		return
	}

	created, err := h.menu.Create(r.Context(), item)
	if err != nil {
		writeMenuError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(created))
}

// Update handles PUT /items/{id}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	item, ok := decodeItem(w, r)
	if !ok {
		return
	}

	updated, err := h.menu.Update(r.Context(), id, item)
	if err != nil {
		writeMenuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(updated))
}

// Delete handles DELETE /items/{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	if err := h.menu.Delete(r.Context(), id); err != nil {
		writeMenuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// --- Helpers ---

func decodeItem(w http.ResponseWriter, r *http.Request) (menu.Item, bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return menu.Item{}, false
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return menu.Item{}, false
	}

	// New items default to available unless the flag is sent.
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	return menu.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Category:    req.Category,
		Available:   available,
	}, true
}

func writeMenuError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, menu.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	case errors.Is(err, menu.ErrNameRequired), errors.Is(err, menu.ErrInvalidPrice):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: menu item mutation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toItemResponse(item menu.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price.StringFixed(2),
		Category:    item.Category,
		Available:   item.Available,
	}
}
