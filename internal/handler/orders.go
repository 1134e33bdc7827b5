package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/order"
	"github.com/busycorner/panel/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// OrderWriter defines the mutating order operations the handler needs.
// Satisfied by *order.Service; narrow interface for testability.
type OrderWriter interface {
	SetStatus(ctx context.Context, id int64, status, pin string) error
	CreateCashSale(ctx context.Context, lines []order.CashLine, amountReceived decimal.Decimal) (order.Order, error)
}

// OrderReader defines the registry read surface the handler needs.
// Satisfied by *order.Registry.
type OrderReader interface {
	Get(id int64) (order.Order, bool)
	ByStatus(status string) []order.Order
	Search(term, status string) []order.Order
	ByDateRange(start, end time.Time) []order.Order
}

// OrderHandler handles order endpoints for both roles. Reads are open to
// admin and manager; mutations are registered for the manager only.
type OrderHandler struct {
	writer OrderWriter
	reader OrderReader
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(writer OrderWriter, reader OrderReader) *OrderHandler {
	return &OrderHandler{writer: writer, reader: reader}
}

// RegisterRoutes registers read endpoints (admin and manager).
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/statement", h.Statement)
	r.Get("/{id}", h.Get)
}

// RegisterManagerRoutes registers mutating endpoints (manager only).
func (h *OrderHandler) RegisterManagerRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/cash", h.CreateCashSale)
}

// --- Request / Response types ---

type orderItemResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type orderResponse struct {
	ID             int64               `json:"id"`
	OrderID        string              `json:"order_id"`
	Timestamp      time.Time           `json:"timestamp"`
	Items          []orderItemResponse `json:"items"`
	Total          string              `json:"total"`
	Status         string              `json:"status"`
	Type           string              `json:"type"`
	AmountReceived *string             `json:"amount_received,omitempty"`
	Change         *string             `json:"change,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Count  int             `json:"count"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Pin    string `json:"pin"`
}

type cashLineRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type cashSaleRequest struct {
	Items          []cashLineRequest `json:"items"`
	AmountReceived string            `json:"amount_received"`
}

type statementRowResponse struct {
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Total     string    `json:"total"`
	Profit    string    `json:"profit"`
}

type statementResponse struct {
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	Orders    []statementRowResponse `json:"orders"`
	Count     int                    `json:"count"`
	Revenue   string                 `json:"revenue"`
	Profit    string                 `json:"profit"`
}

// --- Handlers ---

// List returns orders filtered by status, optionally narrowed by a
// case-insensitive search against display order codes.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = enum.OrderStatusPending
	}
	if enum.StatusRank(status) < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	var orders []order.Order
	if term := r.URL.Query().Get("search"); term != "" {
		orders = h.reader.Search(term, status)
	} else {
		orders = h.reader.ByStatus(status)
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Count: len(resp)})
}

// Get returns a single order by identity.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	o, ok := h.reader.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateStatus handles PATCH /orders/{id}/status. Completing a card order
// requires the order's 6-digit PIN in the request body.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	if err := h.writer.SetStatus(r.Context(), id, req.Status, req.Pin); err != nil {
		switch {
		case errors.Is(err, order.ErrUnknownOrder):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, order.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, order.ErrPINLength), errors.Is(err, order.ErrPINMismatch):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, order.ErrStatusRegression), errors.Is(err, order.ErrCompletedImmutable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	o, _ := h.reader.Get(id)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CreateCashSale handles POST /orders/cash.
func (h *OrderHandler) CreateCashSale(w http.ResponseWriter, r *http.Request) {
	var req cashSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amountReceived, err := decimal.NewFromString(req.AmountReceived)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_received"})
		return
	}

	lines := make([]order.CashLine, len(req.Items))
	for i, line := range req.Items {
		lines[i] = order.CashLine{ItemID: line.ItemID, Quantity: line.Quantity}
	}

	o, err := h.writer.CreateCashSale(r.Context(), lines, amountReceived)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCashOrder),
			errors.Is(err, order.ErrInvalidQuantity),
			errors.Is(err, order.ErrItemUnavailable),
			errors.Is(err, order.ErrInsufficientPayment):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create cash sale: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// Statement returns completed orders in a date range with per-order
// profit, for the spreadsheet export collaborator.
func (h *OrderHandler) Statement(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseStatementRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	orders := h.reader.ByDateRange(start, end)

	rows := make([]statementRowResponse, len(orders))
	revenue := decimal.Zero
	profit := decimal.Zero
	for i, o := range orders {
		p := stats.Profit(o.Total)
		rows[i] = statementRowResponse{
			OrderID:   o.OrderID,
			Timestamp: o.Timestamp,
			Type:      o.Origin,
			Total:     o.Total.StringFixed(2),
			Profit:    p.StringFixed(2),
		}
		revenue = revenue.Add(o.Total)
		profit = profit.Add(p)
	}

	writeJSON(w, http.StatusOK, statementResponse{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		Orders:    rows,
		Count:     len(rows),
		Revenue:   revenue.StringFixed(2),
		Profit:    profit.StringFixed(2),
	})
}

// --- Helpers ---

// parseStatementRange parses start_date and end_date query params
// (YYYY-MM-DD). The end date is inclusive through end of day. Defaults to
// the current month.
func parseStatementRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	now := time.Now()

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		end = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}
	return start, end, nil
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price.StringFixed(2),
			Quantity: item.Quantity,
		}
	}

	resp := orderResponse{
		ID:        o.ID,
		OrderID:   o.OrderID,
		Timestamp: o.Timestamp,
		Items:     items,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status,
		Type:      o.Origin,
	}
	if o.Origin == enum.OriginCash {
		received := o.AmountReceived.StringFixed(2)
		change := o.Change.StringFixed(2)
		resp.AmountReceived = &received
		resp.Change = &change
	}
	return resp
}
