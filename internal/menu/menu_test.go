package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/shopspring/decimal"
)

// mockNotifier records published events.
type mockNotifier struct {
	events []bus.Event
}

func (m *mockNotifier) Publish(ev bus.Event) {
	m.events = append(m.events, ev)
}

func newTestService() (*Service, *kvstore.Memory, *mockNotifier) {
	store := kvstore.NewMemory()
	notify := &mockNotifier{}
	svc := NewService(store, notify)

	id := int64(1000)
	svc.now = func() time.Time {
		id++
		return time.UnixMilli(id)
	}
	return svc, store, notify
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates at the front and mirrors", func(t *testing.T) {
		svc, store, notify := newTestService()

		first, err := svc.Create(ctx, Item{Name: "Kota", Price: decimal.NewFromInt(35), Available: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.Create(ctx, Item{Name: "Chips", Price: decimal.NewFromInt(20), Available: false})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		items := svc.List(ctx)
		if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
			t.Errorf("expected newest first, got %+v", items)
		}

		var mirror []MirrorItem
		if err := kvstore.GetJSON(ctx, store, kvstore.KeyMenuItems, &mirror); err != nil {
			t.Fatal(err)
		}
		if len(mirror) != 2 {
			t.Fatalf("expected mirror synced, got %d items", len(mirror))
		}
		if mirror[0].Active || !mirror[1].Active {
			t.Errorf("expected availability mapped to active, got %+v", mirror)
		}

		if len(notify.events) != 2 || notify.events[0] != bus.MenuUpdated {
			t.Errorf("expected menu signals, got %v", notify.events)
		}
	})

	t.Run("category defaults to meals", func(t *testing.T) {
		svc, _, _ := newTestService()
		item, err := svc.Create(ctx, Item{Name: "Kota", Price: decimal.NewFromInt(35)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Category != enum.CategoryMeals {
			t.Errorf("expected meals category, got %q", item.Category)
		}
	})

	t.Run("drinks carry no description", func(t *testing.T) {
		svc, _, _ := newTestService()
		item, err := svc.Create(ctx, Item{
			Name:        "Cola",
			Description: "ice cold",
			Price:       decimal.NewFromInt(15),
			Category:    enum.CategoryDrinks,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Description != "" {
			t.Errorf("expected description cleared for drinks, got %q", item.Description)
		}
	})

	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{"missing name", Item{Price: decimal.NewFromInt(10)}, ErrNameRequired},
		{"zero price", Item{Name: "Kota"}, ErrInvalidPrice},
		{"negative price", Item{Name: "Kota", Price: decimal.NewFromInt(-5)}, ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, notify := newTestService()
			if _, err := svc.Create(ctx, tt.item); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(notify.events) != 0 {
				t.Errorf("rejected create must not signal, got %v", notify.events)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	created, err := svc.Create(ctx, Item{Name: "Kota", Price: decimal.NewFromInt(35), Available: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, Item{Name: "Kota Special", Price: decimal.NewFromInt(45), Available: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("update must keep identity, got %d", updated.ID)
	}
	if updated.Name != "Kota Special" {
		t.Errorf("expected renamed item, got %q", updated.Name)
	}

	var mirror []MirrorItem
	if err := kvstore.GetJSON(ctx, store, kvstore.KeyMenuItems, &mirror); err != nil {
		t.Fatal(err)
	}
	if len(mirror) != 1 || mirror[0].Name != "Kota Special" || mirror[0].Active {
		t.Errorf("expected mirror rewritten, got %+v", mirror)
	}

	if _, err := svc.Update(ctx, 999, Item{Name: "Ghost", Price: decimal.NewFromInt(1)}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	created, err := svc.Create(ctx, Item{Name: "Kota", Price: decimal.NewFromInt(35), Available: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := svc.List(ctx); len(got) != 0 {
		t.Errorf("expected empty list, got %+v", got)
	}

	var mirror []MirrorItem
	if err := kvstore.GetJSON(ctx, store, kvstore.KeyMenuItems, &mirror); err != nil {
		t.Fatal(err)
	}
	if len(mirror) != 0 {
		t.Errorf("expected empty mirror, got %+v", mirror)
	}

	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestSellableItem(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	available, err := svc.Create(ctx, Item{Name: "Kota", Price: decimal.NewFromInt(35), Available: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hidden, err := svc.Create(ctx, Item{Name: "Chips", Price: decimal.NewFromInt(20), Available: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, price, ok, err := svc.SellableItem(ctx, available.ID)
	if err != nil || !ok {
		t.Fatalf("expected available item resolved, got ok=%v err=%v", ok, err)
	}
	if name != "Kota" || !price.Equal(decimal.NewFromInt(35)) {
		t.Errorf("unexpected resolution %q %s", name, price)
	}

	if _, _, ok, _ := svc.SellableItem(ctx, hidden.ID); ok {
		t.Error("unavailable item must not resolve")
	}
	if _, _, ok, _ := svc.SellableItem(ctx, 999); ok {
		t.Error("unknown item must not resolve")
	}
}
