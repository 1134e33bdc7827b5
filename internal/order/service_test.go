package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockItemSource implements ItemSource with configurable behavior.
type mockItemSource struct {
	sellableItemFn func(ctx context.Context, id int64) (string, decimal.Decimal, bool, error)
}

func (m *mockItemSource) SellableItem(ctx context.Context, id int64) (string, decimal.Decimal, bool, error) {
	return m.sellableItemFn(ctx, id)
}

// mockNotifier records published events.
type mockNotifier struct {
	events []bus.Event
}

func (m *mockNotifier) Publish(ev bus.Event) {
	m.events = append(m.events, ev)
}

func fixedMenu(prices map[int64]decimal.Decimal) *mockItemSource {
	return &mockItemSource{
		sellableItemFn: func(_ context.Context, id int64) (string, decimal.Decimal, bool, error) {
			price, ok := prices[id]
			if !ok {
				return "", decimal.Zero, false, nil
			}
			return "Item", price, true, nil
		},
	}
}

func newTestService(store kvstore.Store, items ItemSource) (*Service, *mockNotifier) {
	notify := &mockNotifier{}
	svc := NewService(store, NewRegistry(), items, notify)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	svc.randInt = func(int) int { return 234 }
	return svc, notify
}

// --- Tests ---

func TestReload(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	card := []Raw{
		{ID: 1, OrderID: "ORD1", Timestamp: "2025-06-15T10:00:00Z", Status: "pending"},
		{ID: 1, OrderID: "ORD1-DUP", Timestamp: "2025-06-15T10:00:00Z", Status: "ready"},
	}
	cash := []Raw{
		{ID: 2, OrderID: "CASH2", Timestamp: "2025-06-15T11:00:00Z", Status: "completed", PaymentMethod: "cash"},
	}
	if err := kvstore.SetJSON(ctx, store, kvstore.KeyOrders, card); err != nil {
		t.Fatal(err)
	}
	if err := kvstore.SetJSON(ctx, store, kvstore.KeyCashOrders, cash); err != nil {
		t.Fatal(err)
	}

	svc, _ := newTestService(store, fixedMenu(nil))
	svc.Reload(ctx)

	reg := svc.Registry()
	if reg.Len() != 2 {
		t.Fatalf("expected 2 orders after dedup, got %d", reg.Len())
	}

	// Newest first: the cash order at 11:00 sorts before the card order.
	pending := reg.ByStatus(enum.OrderStatusPending)
	if len(pending) != 1 || pending[0].ID != 1 {
		t.Errorf("expected order 1 pending, got %v", pending)
	}
	if got, _ := reg.Get(2); got.Origin != enum.OriginCash {
		t.Errorf("expected cash origin, got %q", got.Origin)
	}
}

func TestReloadDegradesOnStoreFailure(t *testing.T) {
	store := kvstore.NewMemory()
	store.FailWith = errors.New("connection refused")

	svc, _ := newTestService(store, fixedMenu(nil))
	svc.Reload(context.Background())

	if !svc.Registry().Initialized() {
		t.Error("expected registry initialized even when feeds are unreadable")
	}
	if svc.Registry().Len() != 0 {
		t.Errorf("expected empty working set, got %d", svc.Registry().Len())
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	pin := "123456"

	setup := func(t *testing.T) (*Service, *mockNotifier, *kvstore.Memory) {
		t.Helper()
		store := kvstore.NewMemory()
		card := []Raw{
			{ID: 1, OrderID: "ORD1", Timestamp: "2025-06-15T10:00:00Z", Status: "ready", PIN: &pin},
		}
		if err := kvstore.SetJSON(ctx, store, kvstore.KeyOrders, card); err != nil {
			t.Fatal(err)
		}
		svc, notify := newTestService(store, fixedMenu(nil))
		svc.Reload(ctx)
		notify.events = nil
		return svc, notify, store
	}

	t.Run("completing a card order requires the PIN", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.SetStatus(ctx, 1, enum.OrderStatusCompleted, "654321"); !errors.Is(err, ErrPINMismatch) {
			t.Fatalf("expected ErrPINMismatch, got %v", err)
		}
		if got, _ := svc.Registry().Get(1); got.Status != enum.OrderStatusReady {
			t.Errorf("failed completion must not change status, got %q", got.Status)
		}
	})

	t.Run("short PIN is a length error", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.SetStatus(ctx, 1, enum.OrderStatusCompleted, "123"); !errors.Is(err, ErrPINLength) {
			t.Fatalf("expected ErrPINLength, got %v", err)
		}
	})

	t.Run("correct PIN completes and mirrors the feed", func(t *testing.T) {
		svc, notify, store := setup(t)
		if err := svc.SetStatus(ctx, 1, enum.OrderStatusCompleted, "123456"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got, _ := svc.Registry().Get(1); got.Status != enum.OrderStatusCompleted {
			t.Errorf("expected completed, got %q", got.Status)
		}
		if len(notify.events) != 1 || notify.events[0] != bus.OrdersUpdated {
			t.Errorf("expected one orders signal, got %v", notify.events)
		}

		raw, err := store.Get(ctx, kvstore.KeyOrders)
		if err != nil {
			t.Fatal(err)
		}
		var feed []Raw
		if err := json.Unmarshal([]byte(raw), &feed); err != nil {
			t.Fatal(err)
		}
		if feed[0].Status != enum.OrderStatusCompleted {
			t.Errorf("expected feed status mirrored, got %q", feed[0].Status)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.SetStatus(ctx, 99, enum.OrderStatusReady, ""); !errors.Is(err, ErrUnknownOrder) {
			t.Errorf("expected ErrUnknownOrder, got %v", err)
		}
	})
}

func TestCreateCashSale(t *testing.T) {
	ctx := context.Background()
	prices := map[int64]decimal.Decimal{
		10: decimal.RequireFromString("20.00"),
		11: decimal.RequireFromString("15.50"),
	}

	t.Run("happy path", func(t *testing.T) {
		store := kvstore.NewMemory()
		svc, notify := newTestService(store, fixedMenu(prices))
		svc.Registry().Init(nil)

		o, err := svc.CreateCashSale(ctx, []CashLine{
			{ItemID: 10, Quantity: 2},
			{ItemID: 11, Quantity: 1},
		}, decimal.RequireFromString("60.00"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !o.Total.Equal(decimal.RequireFromString("55.50")) {
			t.Errorf("expected total 55.50, got %s", o.Total)
		}
		if !o.Change.Equal(decimal.RequireFromString("4.50")) {
			t.Errorf("expected change 4.50, got %s", o.Change)
		}
		if o.Status != enum.OrderStatusPending {
			t.Errorf("expected pending, got %q", o.Status)
		}
		if o.Origin != enum.OriginCash {
			t.Errorf("expected cash origin, got %q", o.Origin)
		}
		if o.OrderID != "CASH20250615-1234" {
			t.Errorf("unexpected order code %q", o.OrderID)
		}
		if o.PIN != nil {
			t.Error("cash orders must not carry a PIN")
		}
		if len(notify.events) != 1 || notify.events[0] != bus.OrdersUpdated {
			t.Errorf("expected one orders signal, got %v", notify.events)
		}
		if _, ok := svc.Registry().Get(o.ID); !ok {
			t.Error("expected order registered")
		}

		// Persisted at the front of the cash feed.
		var feed []Raw
		if err := kvstore.GetJSON(ctx, store, kvstore.KeyCashOrders, &feed); err != nil {
			t.Fatal(err)
		}
		if len(feed) != 1 || feed[0].ID != o.ID || feed[0].PaymentMethod != "cash" {
			t.Errorf("unexpected cash feed %+v", feed)
		}
	})

	t.Run("duplicate lines merge", func(t *testing.T) {
		svc, _ := newTestService(kvstore.NewMemory(), fixedMenu(prices))
		svc.Registry().Init(nil)

		o, err := svc.CreateCashSale(ctx, []CashLine{
			{ItemID: 10, Quantity: 1},
			{ItemID: 10, Quantity: 2},
		}, decimal.RequireFromString("60.00"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(o.Items) != 1 || o.Items[0].Quantity != 3 {
			t.Errorf("expected one merged line of quantity 3, got %+v", o.Items)
		}
	})

	tests := []struct {
		name     string
		lines    []CashLine
		received string
		wantErr  error
	}{
		{"no items", nil, "10.00", ErrEmptyCashOrder},
		{"zero quantity", []CashLine{{ItemID: 10, Quantity: 0}}, "10.00", ErrInvalidQuantity},
		{"negative quantity", []CashLine{{ItemID: 10, Quantity: -1}}, "10.00", ErrInvalidQuantity},
		{"unknown item", []CashLine{{ItemID: 99, Quantity: 1}}, "10.00", ErrItemUnavailable},
		{"underpayment", []CashLine{{ItemID: 10, Quantity: 1}}, "19.99", ErrInsufficientPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, notify := newTestService(kvstore.NewMemory(), fixedMenu(prices))
			svc.Registry().Init(nil)

			_, err := svc.CreateCashSale(ctx, tt.lines, decimal.RequireFromString(tt.received))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(notify.events) != 0 {
				t.Errorf("failed sale must not signal, got %v", notify.events)
			}
			if svc.Registry().Len() != 0 {
				t.Errorf("failed sale must not register, got %d orders", svc.Registry().Len())
			}
		})
	}

	t.Run("exact payment gives zero change", func(t *testing.T) {
		svc, _ := newTestService(kvstore.NewMemory(), fixedMenu(prices))
		svc.Registry().Init(nil)

		o, err := svc.CreateCashSale(ctx, []CashLine{{ItemID: 10, Quantity: 1}}, decimal.RequireFromString("20.00"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !o.Change.IsZero() {
			t.Errorf("expected zero change, got %s", o.Change)
		}
	})
}
