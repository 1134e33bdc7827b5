// Package kvstore is the durable key/value collaborator shared by every
// panel view. Values are JSON-encoded strings; the store is fallible and
// callers are expected to degrade to empty data rather than propagate
// failures. Writes are whole-value: concurrent writers race and the last
// write wins.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys owned by the panel.
const (
	KeyOrders          = "orders"          // card feed, raw order records
	KeyCashOrders      = "cashOrders"      // cash feed, raw order records
	KeyManagerItems    = "managerItems"    // manager-owned menu source of truth
	KeyMenuItems       = "menuItems"       // derived customer-facing mirror
	KeyManagerStats    = "managerStats"    // persisted stats windows
	KeyContactMessages = "contactMessages" // customer messages, read-mostly
	KeyAdminProfile    = "adminData"
	KeyManagerProfile  = "managerData"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a string key/value store with whole-value reads and writes.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// GetJSON reads key and unmarshals it into v. Returns ErrNotFound for
// absent keys; a corrupt value surfaces as a wrapped unmarshal error.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and writes it under key, replacing any previous value.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
