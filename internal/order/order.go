// Package order holds the canonical order model, the normalizer that maps
// the raw card and cash feeds onto it, and the registry that owns the
// working set.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/busycorner/panel/internal/enum"
	"github.com/shopspring/decimal"
)

// Sentinel contact addresses filled in when a feed record carries none.
const (
	defaultCardEmail = "unknown@email.com"
	defaultCashEmail = "cash@payment.com"
)

// defaultCardPIN stands in for card orders persisted without a PIN.
const defaultCardPIN = "000000"

// Item is a single line of an order. Immutable after order creation.
type Item struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is the canonical post-normalization record. Status is the only
// field that may change after creation.
type Order struct {
	ID             int64           `json:"id"`
	OrderID        string          `json:"orderId"`
	Timestamp      time.Time       `json:"timestamp"`
	Items          []Item          `json:"items"`
	Total          decimal.Decimal `json:"total"`
	UserEmail      string          `json:"userEmail"`
	PIN            *string         `json:"pin"`
	Status         string          `json:"status"`
	Origin         string          `json:"type"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	Change         decimal.Decimal `json:"change"`
}

// Raw is a loosely-typed feed record as persisted in the store. Any field
// may be absent; Normalize fills every gap with a defined default.
type Raw struct {
	ID             int64           `json:"id"`
	OrderID        string          `json:"orderId"`
	Timestamp      string          `json:"timestamp"`
	Items          []Item          `json:"items"`
	Total          decimal.Decimal `json:"total"`
	UserEmail      string          `json:"userEmail"`
	PIN            *string         `json:"pin,omitempty"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod,omitempty"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	Change         decimal.Decimal `json:"change"`
}

// Normalize maps a raw feed record onto a canonical Order. It is total:
// malformed or absent fields degrade to defaults, never to an error.
//
//   - id       → now in unix milliseconds when absent
//   - orderId  → origin prefix + last 8 digits of id when absent
//   - timestamp → now when absent or unparseable
//   - items    → empty sequence
//   - total    → 0
//   - userEmail → fixed sentinel address per origin
//   - status   → "pending", always lower-cased
//   - pin      → nil for cash orders, "000000" for card orders when absent
func Normalize(raw Raw, origin string, now time.Time) Order {
	o := Order{
		ID:        raw.ID,
		OrderID:   raw.OrderID,
		Items:     raw.Items,
		Total:     raw.Total,
		UserEmail: raw.UserEmail,
		Status:    strings.ToLower(raw.Status),
		Origin:    origin,
	}

	if o.ID == 0 {
		o.ID = now.UnixMilli()
	}
	if o.OrderID == "" {
		o.OrderID = DisplayID(origin, o.ID)
	}
	if ts, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
		o.Timestamp = ts
	} else {
		o.Timestamp = now
	}
	if o.Items == nil {
		o.Items = []Item{}
	}
	if o.Status == "" {
		o.Status = enum.OrderStatusPending
	}

	switch origin {
	case enum.OriginCash:
		o.PIN = nil
		if o.UserEmail == "" {
			o.UserEmail = defaultCashEmail
		}
		o.AmountReceived = raw.AmountReceived
		o.Change = raw.Change
	default:
		pin := defaultCardPIN
		if raw.PIN != nil && *raw.PIN != "" {
			pin = *raw.PIN
		}
		o.PIN = &pin
		if o.UserEmail == "" {
			o.UserEmail = defaultCardEmail
		}
	}

	return o
}

// DisplayID synthesizes the human-facing order code from an origin and a
// numeric identity: "ORD" or "CASH" plus the last 8 digits of the id.
func DisplayID(origin string, id int64) string {
	prefix := "ORD"
	if origin == enum.OriginCash {
		prefix = "CASH"
	}
	s := fmt.Sprintf("%d", id)
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return prefix + s
}
