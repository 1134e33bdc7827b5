package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/config"
	"github.com/busycorner/panel/internal/handler"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/busycorner/panel/internal/menu"
	"github.com/busycorner/panel/internal/order"
	"github.com/busycorner/panel/internal/router"
	"github.com/busycorner/panel/internal/stats"
	"github.com/busycorner/panel/internal/ws"
)

// reloadDelay coalesces bursts of order updates into a single registry
// reload.
const reloadDelay = 100 * time.Millisecond

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := kvstore.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer store.Close()

	events := bus.New()

	registry := order.NewRegistry()
	menuService := menu.NewService(store, events)
	orderService := order.NewService(store, registry, menuService, events)
	aggregator := stats.NewAggregator(store, registry)

	authHandler := handler.NewAuthHandler(store, cfg.JWTSecret)
	authHandler.SeedDefaults(ctx)

	// Prime the registry from the durable feeds, then keep it fresh:
	// every orders signal re-derives the working set after a quiet period.
	orderService.Reload(ctx)
	unsubReload := bus.SubscribeDebounced(events, bus.OrdersUpdated, reloadDelay, func() {
		orderService.Reload(context.Background())
	})
	defer unsubReload()

	hub := ws.NewHub()
	go hub.Run()
	teardown := hub.Bind(events)
	defer teardown()

	r := router.New(router.Deps{
		Config:   cfg,
		Store:    store,
		Orders:   orderService,
		Menu:     menuService,
		Stats:    aggregator,
		Notifier: events,
		Hub:      hub,
		Auth:     authHandler,
	})

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
