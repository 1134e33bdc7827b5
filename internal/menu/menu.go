// Package menu manages the manager-owned menu items and mirrors them into
// the customer-facing representation on every mutation. The manager feed
// is the source of truth; the mirror is overwritten wholesale, one way.
package menu

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/shopspring/decimal"
)

// Errors returned by the menu service.
var (
	ErrItemNotFound = errors.New("item not found")
	ErrNameRequired = errors.New("name is required")
	ErrInvalidPrice = errors.New("price must be greater than zero")
)

// Item is a manager-owned menu entry.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
}

// MirrorItem is the customer-facing shape; availability is exposed as
// "active" there.
type MirrorItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Active      bool            `json:"active"`
}

// Notifier raises a broadcast signal after a store write completes.
// Satisfied by *bus.Bus.
type Notifier interface {
	Publish(ev bus.Event)
}

// Service owns menu item mutations. The manager role is the sole writer.
type Service struct {
	store  kvstore.Store
	notify Notifier
	now    func() time.Time
}

// NewService creates the menu service.
func NewService(store kvstore.Store, notify Notifier) *Service {
	return &Service{store: store, notify: notify, now: time.Now}
}

// List returns all manager items, degrading to empty on store failure.
func (s *Service) List(ctx context.Context) []Item {
	return s.load(ctx)
}

// Menu returns the customer-facing mirror.
func (s *Service) Menu(ctx context.Context) []MirrorItem {
	var mirror []MirrorItem
	if err := kvstore.GetJSON(ctx, s.store, kvstore.KeyMenuItems, &mirror); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("ERROR: read menu mirror: %v", err)
		}
		return nil
	}
	return mirror
}

// Create adds a new item at the front of the list and syncs the mirror.
func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := validate(&item); err != nil {
		return Item{}, err
	}

	item.ID = s.now().UnixMilli()
	items := append([]Item{item}, s.load(ctx)...)
	if err := s.save(ctx, items); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Update replaces an existing item's fields, keeping its identity.
func (s *Service) Update(ctx context.Context, id int64, item Item) (Item, error) {
	if err := validate(&item); err != nil {
		return Item{}, err
	}

	items := s.load(ctx)
	for i := range items {
		if items[i].ID == id {
			item.ID = id
			items[i] = item
			if err := s.save(ctx, items); err != nil {
				return Item{}, err
			}
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

// Delete removes an item and syncs the mirror.
func (s *Service) Delete(ctx context.Context, id int64) error {
	items := s.load(ctx)
	for i := range items {
		if items[i].ID == id {
			items = append(items[:i], items[i+1:]...)
			return s.save(ctx, items)
		}
	}
	return ErrItemNotFound
}

// SellableItem resolves an available item for the cash sale flow.
func (s *Service) SellableItem(ctx context.Context, id int64) (string, decimal.Decimal, bool, error) {
	for _, item := range s.load(ctx) {
		if item.ID == id && item.Available {
			return item.Name, item.Price, true, nil
		}
	}
	return "", decimal.Zero, false, nil
}

func validate(item *Item) error {
	if item.Name == "" {
		return ErrNameRequired
	}
	if !item.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if item.Category == "" {
		item.Category = enum.CategoryMeals
	}
	// Drinks carry no description.
	if item.Category == enum.CategoryDrinks {
		item.Description = ""
	}
	return nil
}

func (s *Service) load(ctx context.Context) []Item {
	var items []Item
	if err := kvstore.GetJSON(ctx, s.store, kvstore.KeyManagerItems, &items); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("ERROR: read manager items: %v", err)
		}
		return nil
	}
	return items
}

// save persists the manager feed, rewrites the customer mirror wholesale,
// and raises the menu signal.
func (s *Service) save(ctx context.Context, items []Item) error {
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyManagerItems, items); err != nil {
		return err
	}

	mirror := make([]MirrorItem, len(items))
	for i, item := range items {
		mirror[i] = MirrorItem{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Category:    item.Category,
			Active:      item.Available,
		}
	}
	if err := kvstore.SetJSON(ctx, s.store, kvstore.KeyMenuItems, mirror); err != nil {
		log.Printf("ERROR: write menu mirror: %v", err)
	}

	s.notify.Publish(bus.MenuUpdated)
	return nil
}
