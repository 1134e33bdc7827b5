package order

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/busycorner/panel/internal/enum"
)

// statusCacheTTL bounds how long a ByStatus result is served without
// refiltering; bursts of view re-renders hit the cache instead of the slice.
const statusCacheTTL = 5 * time.Second

// Errors returned by the registry.
var (
	ErrUnknownOrder       = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrStatusRegression   = errors.New("cannot move an order back to an earlier status")
	ErrCompletedImmutable = errors.New("completed orders cannot be modified")
)

// statusCache is one cached ByStatus result.
type statusCache struct {
	status string
	orders []Order
	at     time.Time
}

// Registry is the deduplicated, indexed working set of orders and the sole
// authority for current status. Construct with NewRegistry and populate via
// Init; feeds in the store are synced as a side effect of mutation, never
// the reverse.
type Registry struct {
	mu          sync.RWMutex
	orders      []*Order
	index       map[int64]*Order
	cache       *statusCache
	now         func() time.Time
	initialized bool
}

// NewRegistry creates an empty registry using the wall clock.
func NewRegistry() *Registry {
	return newRegistryAt(time.Now)
}

func newRegistryAt(now func() time.Time) *Registry {
	return &Registry{
		index: make(map[int64]*Order),
		now:   now,
	}
}

// Init replaces the working set. Orders are deduplicated by id, first
// occurrence wins; later duplicates are silently dropped. Any cached
// per-status view is cleared.
func (r *Registry) Init(orders []Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = r.orders[:0]
	r.index = make(map[int64]*Order, len(orders))
	r.cache = nil

	for i := range orders {
		o := orders[i]
		if o.ID == 0 {
			continue
		}
		if _, seen := r.index[o.ID]; seen {
			continue
		}
		r.orders = append(r.orders, &o)
		r.index[o.ID] = &o
	}
	r.initialized = true
}

// Initialized reports whether Init has run at least once.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Len returns the number of orders in the working set.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// Get looks up an order by identity.
func (r *Registry) Get(id int64) (Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.index[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// ByStatus returns all orders with the given status, newest first. Results
// are cached per status for a short freshness window; any mutation
// invalidates the cache immediately.
func (r *Registry) ByStatus(status string) []Order {
	r.mu.RLock()
	if c := r.cache; c != nil && c.status == status && r.now().Sub(c.at) < statusCacheTTL {
		out := append([]Order(nil), c.orders...)
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	orders := r.filterLocked(func(o *Order) bool { return o.Status == status })
	r.cache = &statusCache{status: status, orders: orders, at: r.now()}
	return append([]Order(nil), orders...)
}

// Completed returns all completed orders. Read-mostly path, no caching.
func (r *Registry) Completed() []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(o *Order) bool { return o.Status == enum.OrderStatusCompleted })
}

// ByDateRange returns completed orders whose timestamp falls in
// [start, end] inclusive.
func (r *Registry) ByDateRange(start, end time.Time) []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(o *Order) bool {
		if o.Status != enum.OrderStatusCompleted {
			return false
		}
		return !o.Timestamp.Before(start) && !o.Timestamp.After(end)
	})
}

// Search matches the term case-insensitively against display order codes,
// optionally pre-filtered by status (empty status matches all).
func (r *Registry) Search(term, status string) []Order {
	needle := strings.ToLower(term)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(o *Order) bool {
		if status != "" && o.Status != status {
			return false
		}
		return strings.Contains(strings.ToLower(o.OrderID), needle)
	})
}

// UpdateStatus applies a monotonic status transition: the requested status
// must rank at or above the current one, and completed orders are
// immutable. On failure nothing changes.
func (r *Registry) UpdateStatus(id int64, status string) error {
	newRank := enum.StatusRank(status)
	if newRank < 0 {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.index[id]
	if !ok {
		return ErrUnknownOrder
	}
	if o.Status == enum.OrderStatusCompleted {
		return ErrCompletedImmutable
	}
	if newRank < enum.StatusRank(o.Status) {
		return ErrStatusRegression
	}

	o.Status = status
	r.cache = nil
	return nil
}

// Add inserts a new order at the front of iteration order (newest-first
// convention). A duplicate id is an idempotent no-op.
func (r *Registry) Add(o Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[o.ID]; exists {
		return
	}
	stored := o
	r.orders = append([]*Order{&stored}, r.orders...)
	r.index[stored.ID] = &stored
	r.cache = nil
}

// filterLocked copies every order matching keep, preserving iteration
// order. Callers hold at least a read lock.
func (r *Registry) filterLocked(keep func(*Order) bool) []Order {
	var out []Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	return out
}
