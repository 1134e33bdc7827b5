package order

import (
	"testing"
	"time"

	"github.com/busycorner/panel/internal/enum"
	"github.com/shopspring/decimal"
)

func TestNormalizeDefaults(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("empty card record gets every default", func(t *testing.T) {
		o := Normalize(Raw{}, enum.OriginCard, now)

		if o.ID != now.UnixMilli() {
			t.Errorf("expected id %d, got %d", now.UnixMilli(), o.ID)
		}
		if o.OrderID == "" {
			t.Error("expected synthesized order code")
		}
		if !o.Timestamp.Equal(now) {
			t.Errorf("expected timestamp %v, got %v", now, o.Timestamp)
		}
		if o.Items == nil || len(o.Items) != 0 {
			t.Errorf("expected empty items slice, got %v", o.Items)
		}
		if o.Status != enum.OrderStatusPending {
			t.Errorf("expected pending status, got %q", o.Status)
		}
		if o.UserEmail != "unknown@email.com" {
			t.Errorf("expected card sentinel email, got %q", o.UserEmail)
		}
		if o.PIN == nil || *o.PIN != "000000" {
			t.Errorf("expected default card PIN, got %v", o.PIN)
		}
	})

	t.Run("empty cash record gets cash defaults", func(t *testing.T) {
		o := Normalize(Raw{}, enum.OriginCash, now)

		if o.UserEmail != "cash@payment.com" {
			t.Errorf("expected cash sentinel email, got %q", o.UserEmail)
		}
		if o.PIN != nil {
			t.Errorf("cash orders must not carry a PIN, got %q", *o.PIN)
		}
	})

	t.Run("present fields pass through", func(t *testing.T) {
		pin := "123456"
		raw := Raw{
			ID:        42,
			OrderID:   "ORD00000042",
			Timestamp: "2025-06-14T09:30:00Z",
			Items:     []Item{{ID: 1, Name: "Kota", Price: decimal.NewFromInt(35), Quantity: 2}},
			Total:     decimal.NewFromInt(70),
			UserEmail: "thabo@example.com",
			PIN:       &pin,
			Status:    "Ready",
		}

		o := Normalize(raw, enum.OriginCard, now)

		if o.ID != 42 {
			t.Errorf("expected id 42, got %d", o.ID)
		}
		if o.OrderID != "ORD00000042" {
			t.Errorf("expected order code preserved, got %q", o.OrderID)
		}
		want := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)
		if !o.Timestamp.Equal(want) {
			t.Errorf("expected timestamp %v, got %v", want, o.Timestamp)
		}
		if o.Status != "ready" {
			t.Errorf("expected lower-cased status, got %q", o.Status)
		}
		if o.PIN == nil || *o.PIN != "123456" {
			t.Errorf("expected PIN preserved, got %v", o.PIN)
		}
		if o.UserEmail != "thabo@example.com" {
			t.Errorf("expected email preserved, got %q", o.UserEmail)
		}
	})

	t.Run("unparseable timestamp falls back to now", func(t *testing.T) {
		o := Normalize(Raw{ID: 7, Timestamp: "yesterday-ish"}, enum.OriginCard, now)
		if !o.Timestamp.Equal(now) {
			t.Errorf("expected fallback timestamp %v, got %v", now, o.Timestamp)
		}
	})

	t.Run("status is case normalized", func(t *testing.T) {
		o := Normalize(Raw{ID: 7, Status: "COMPLETED"}, enum.OriginCard, now)
		if o.Status != enum.OrderStatusCompleted {
			t.Errorf("expected completed, got %q", o.Status)
		}
	})
}

func TestDisplayID(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		id     int64
		want   string
	}{
		{"card short id", enum.OriginCard, 42, "ORD42"},
		{"card long id keeps last 8 digits", enum.OriginCard, 1718451234567, "ORD51234567"},
		{"cash prefix", enum.OriginCash, 1718451234567, "CASH51234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayID(tt.origin, tt.id); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
