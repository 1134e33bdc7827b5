package handler

import (
	"net/http"
	"time"

	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/stats"
	"github.com/go-chi/chi/v5"
)

// StatsHandler serves the aggregated dashboards for both roles.
type StatsHandler struct {
	agg    *stats.Aggregator
	reader OrderReader
	now    func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(agg *stats.Aggregator, reader OrderReader) *StatsHandler {
	return &StatsHandler{agg: agg, reader: reader, now: time.Now}
}

// RegisterManagerRoutes registers the manager dashboard endpoint.
func (h *StatsHandler) RegisterManagerRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
}

// RegisterAdminRoutes registers the admin overview endpoint.
func (h *StatsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/yearly", h.Yearly)
}

// --- Response types ---

type windowResponse struct {
	Orders  int    `json:"orders"`
	Revenue string `json:"revenue"`
	Profit  string `json:"profit"`
}

type dashboardResponse struct {
	Today   windowResponse `json:"today"`
	Week    windowResponse `json:"week"`
	Month   windowResponse `json:"month"`
	Year    windowResponse `json:"year"`
	Pending int            `json:"pending_orders"`
	Ready   int            `json:"ready_orders"`
}

type yearlyResponse struct {
	Year    int            `json:"year"`
	Summary windowResponse `json:"summary"`
}

// --- Handlers ---

// Dashboard returns all four aggregation windows plus live queue depths.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	windows := h.agg.Dashboard(r.Context())

	writeJSON(w, http.StatusOK, dashboardResponse{
		Today:   toWindowResponse(windows.Today),
		Week:    toWindowResponse(windows.Week),
		Month:   toWindowResponse(windows.Month),
		Year:    toWindowResponse(windows.Year),
		Pending: len(h.reader.ByStatus(enum.OrderStatusPending)),
		Ready:   len(h.reader.ByStatus(enum.OrderStatusReady)),
	})
}

// Yearly returns the current-year summary for the admin overview.
func (h *StatsHandler) Yearly(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	window := h.agg.Yearly(r.Context(), year)

	writeJSON(w, http.StatusOK, yearlyResponse{
		Year:    year,
		Summary: toWindowResponse(window),
	})
}

// --- Helpers ---

func toWindowResponse(w stats.Window) windowResponse {
	return windowResponse{
		Orders:  w.Orders,
		Revenue: w.Revenue.StringFixed(2),
		Profit:  w.Profit.StringFixed(2),
	}
}
