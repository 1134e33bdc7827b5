package router

import (
	"log"
	"net/http"

	"github.com/busycorner/panel/internal/config"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/handler"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/busycorner/panel/internal/menu"
	"github.com/busycorner/panel/internal/order"
	"github.com/busycorner/panel/internal/stats"
	"github.com/busycorner/panel/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	mw "github.com/busycorner/panel/internal/middleware"
)

// Deps carries the wired services the router needs.
type Deps struct {
	Config   *config.Config
	Store    kvstore.Store
	Orders   *order.Service
	Menu     *menu.Service
	Stats    *stats.Aggregator
	Notifier handler.Notifier
	Hub      *ws.Hub
	Auth     *handler.AuthHandler
}

// New creates a Chi router with all panel routes wired up. Reads are
// shared between roles where both dashboards need them; mutations are
// role-gated.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // dev server
			"https://busycorner.co.za",
			"https://panel.busycorner.co.za",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	d.Auth.RegisterRoutes(r)

	// Customer-facing menu read (public)
	itemHandler := handler.NewItemHandler(d.Menu)
	itemHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Config.JWTSecret, w, r)
	})

	orderHandler := handler.NewOrderHandler(d.Orders, d.Orders.Registry())
	statsHandler := handler.NewStatsHandler(d.Stats, d.Orders.Registry())

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(d.Config.JWTSecret))

		// Profile (both roles)
		d.Auth.RegisterProfileRoutes(r)

		// Orders: reads for both roles, mutations for the manager
		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleManager))
				orderHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleManager))
				orderHandler.RegisterManagerRoutes(r)
			})
		})

		// Stats: manager dashboard, admin yearly overview
		r.Route("/stats", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleManager))
				statsHandler.RegisterManagerRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				statsHandler.RegisterAdminRoutes(r)
			})
		})

		// Manager-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleManager))
			r.Route("/items", itemHandler.RegisterManagerRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))

			messageHandler := handler.NewMessageHandler(d.Store, d.Notifier)
			r.Route("/messages", messageHandler.RegisterAdminRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
