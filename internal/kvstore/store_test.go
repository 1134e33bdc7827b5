package kvstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Errorf("expected v, got %q (%v)", got, err)
	}

	if err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailWith = errors.New("connection refused")

	if _, err := m.Get(ctx, "k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected injected failure, got %v", err)
	}
	if err := m.Set(ctx, "k", "v"); err == nil {
		t.Error("expected injected failure on set")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := SetJSON(ctx, m, "rec", record{Name: "kota", Count: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got record
	if err := GetJSON(ctx, m, "rec", &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "kota" || got.Count != 3 {
		t.Errorf("unexpected decode %+v", got)
	}

	var missing record
	if err := GetJSON(ctx, m, "missing", &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Malformed payloads surface as decode errors, not ErrNotFound.
	if err := m.Set(ctx, "junk", "{not json"); err != nil {
		t.Fatal(err)
	}
	var junk record
	if err := GetJSON(ctx, m, "junk", &junk); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}
