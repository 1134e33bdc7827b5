package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyCashOrder      = errors.New("cash order has no items")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrItemUnavailable     = errors.New("item not found or unavailable")
	ErrInsufficientPayment = errors.New("amount received is less than total")
)

// Notifier raises a broadcast signal after a store write completes.
// Satisfied by *bus.Bus.
type Notifier interface {
	Publish(ev bus.Event)
}

// ItemSource resolves sellable menu items for cash sales. Satisfied by the
// menu service; narrow interface for testability.
type ItemSource interface {
	SellableItem(ctx context.Context, id int64) (name string, price decimal.Decimal, ok bool, err error)
}

// CashLine is one requested line of a cash sale.
type CashLine struct {
	ItemID   int64
	Quantity int
}

// Service coordinates the registry with the durable feeds and the
// notification bus. The registry is the authority for current status; the
// origin-specific feeds are synced as a side effect of every mutation.
type Service struct {
	store    kvstore.Store
	registry *Registry
	items    ItemSource
	notify   Notifier
	now      func() time.Time
	randInt  func(n int) int
}

// NewService creates the order service around an existing registry.
func NewService(store kvstore.Store, registry *Registry, items ItemSource, notify Notifier) *Service {
	return &Service{
		store:    store,
		registry: registry,
		items:    items,
		notify:   notify,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

// Registry exposes the owned registry for read paths.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Reload re-derives the working set from both feeds: read, normalize,
// sort newest-first, init (dedup). Store failures degrade to empty feeds.
func (s *Service) Reload(ctx context.Context) {
	now := s.now()

	card := s.readFeed(ctx, kvstore.KeyOrders)
	cash := s.readFeed(ctx, kvstore.KeyCashOrders)

	orders := make([]Order, 0, len(card)+len(cash))
	for _, raw := range card {
		orders = append(orders, Normalize(raw, enum.OriginCard, now))
	}
	for _, raw := range cash {
		orders = append(orders, Normalize(raw, enum.OriginCash, now))
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.After(orders[j].Timestamp)
	})

	s.registry.Init(orders)
}

// SetStatus applies a status transition, mirrors it into the owning feed,
// and raises the orders signal. Completing a card order requires the
// matching PIN; cash orders complete without one.
func (s *Service) SetStatus(ctx context.Context, id int64, status, pin string) error {
	o, ok := s.registry.Get(id)
	if !ok {
		return ErrUnknownOrder
	}

	if status == enum.OrderStatusCompleted && o.Origin == enum.OriginCard {
		if err := VerifyPIN(o, pin); err != nil {
			return err
		}
	}

	if err := s.registry.UpdateStatus(id, status); err != nil {
		return err
	}

	s.mirrorStatus(ctx, o.Origin, id, status)
	s.notify.Publish(bus.OrdersUpdated)
	return nil
}

// CreateCashSale builds a cash order from menu item lines, persists it at
// the front of the cash feed, registers it, and raises the orders signal.
// The order starts pending like any other.
func (s *Service) CreateCashSale(ctx context.Context, lines []CashLine, amountReceived decimal.Decimal) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCashOrder
	}

	// Merge duplicate item lines, preserving first-seen position.
	merged := make([]CashLine, 0, len(lines))
	byItem := make(map[int64]int)
	for i, line := range lines {
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		if at, seen := byItem[line.ItemID]; seen {
			merged[at].Quantity += line.Quantity
			continue
		}
		byItem[line.ItemID] = len(merged)
		merged = append(merged, line)
	}

	total := decimal.Zero
	items := make([]Item, 0, len(merged))
	for i, line := range merged {
		name, price, ok, err := s.items.SellableItem(ctx, line.ItemID)
		if err != nil {
			return Order{}, fmt.Errorf("line[%d]: resolve item: %w", i, err)
		}
		if !ok {
			return Order{}, fmt.Errorf("line[%d]: %w", i, ErrItemUnavailable)
		}
		items = append(items, Item{
			ID:       line.ItemID,
			Name:     name,
			Price:    price,
			Quantity: line.Quantity,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if amountReceived.LessThan(total) {
		return Order{}, ErrInsufficientPayment
	}

	now := s.now()
	o := Order{
		ID:             now.UnixMilli(),
		OrderID:        s.cashDisplayID(now),
		Timestamp:      now,
		Items:          items,
		Total:          total,
		UserEmail:      defaultCashEmail,
		PIN:            nil,
		Status:         enum.OrderStatusPending,
		Origin:         enum.OriginCash,
		AmountReceived: amountReceived,
		Change:         amountReceived.Sub(total),
	}

	feed := s.readFeed(ctx, kvstore.KeyCashOrders)
	feed = append([]Raw{rawFromOrder(o)}, feed...)
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyCashOrders, feed); err != nil {
		log.Printf("ERROR: write cash feed: %v", err)
	}

	s.registry.Add(o)
	s.notify.Publish(bus.OrdersUpdated)
	return o, nil
}

// cashDisplayID builds the human-facing cash order code:
// CASH + yyyymmdd + "-" + four random digits.
func (s *Service) cashDisplayID(now time.Time) string {
	return fmt.Sprintf("CASH%s-%04d", now.Format("20060102"), 1000+s.randInt(9000))
}

// readFeed loads one raw feed, degrading to empty on any store failure.
func (s *Service) readFeed(ctx context.Context, key string) []Raw {
	var feed []Raw
	if err := kvstore.GetJSON(ctx, s.store, key, &feed); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("ERROR: read %s feed: %v", key, err)
		}
		return nil
	}
	return feed
}

// mirrorStatus rewrites the owning feed so the persisted record matches
// the registry's status. Feed write failures are logged, not propagated;
// the registry stays authoritative either way.
func (s *Service) mirrorStatus(ctx context.Context, origin string, id int64, status string) {
	key := kvstore.KeyOrders
	if origin == enum.OriginCash {
		key = kvstore.KeyCashOrders
	}

	feed := s.readFeed(ctx, key)
	found := false
	for i := range feed {
		if feed[i].ID == id {
			feed[i].Status = status
			found = true
			break
		}
	}
	if !found {
		log.Printf("ERROR: order %d missing from %s feed, status not mirrored", id, key)
		return
	}
	if err := kvstore.SetJSON(ctx, s.store, key, feed); err != nil {
		log.Printf("ERROR: mirror status to %s: %v", key, err)
	}
}

// rawFromOrder converts a canonical order back to its feed representation.
func rawFromOrder(o Order) Raw {
	raw := Raw{
		ID:             o.ID,
		OrderID:        o.OrderID,
		Timestamp:      o.Timestamp.UTC().Format(time.RFC3339Nano),
		Items:          o.Items,
		Total:          o.Total,
		UserEmail:      o.UserEmail,
		PIN:            o.PIN,
		Status:         o.Status,
		AmountReceived: o.AmountReceived,
		Change:         o.Change,
	}
	if o.Origin == enum.OriginCash {
		raw.PaymentMethod = "cash"
	}
	return raw
}
