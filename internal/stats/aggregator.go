// Package stats computes time-windowed order counts, revenue and profit
// over the registry's completed orders, with period-rollover detection so
// stale persisted figures never leak into a new day, week, month or year.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/busycorner/panel/internal/kvstore"
	"github.com/busycorner/panel/internal/order"
	"github.com/shopspring/decimal"
)

// cacheTTL bounds how long a computed result is served without
// recomputation. The rollover check always runs first; the cache can
// never mask a period change.
const cacheTTL = 60 * time.Second

var profitRate = decimal.NewFromFloat(0.05)

// Profit derives profit as exactly 5% of revenue, rounded to two decimal
// places half away from zero (199.99 revenue → 10.00 profit).
func Profit(revenue decimal.Decimal) decimal.Decimal {
	return revenue.Mul(profitRate).Round(2)
}

// Window is one aggregated period.
type Window struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// Windows is the full dashboard aggregation.
type Windows struct {
	Today Window `json:"today"`
	Week  Window `json:"week"`
	Month Window `json:"month"`
	Year  Window `json:"year"`
}

// OrderSource is the registry surface the aggregator reads. Narrow
// interface for testability.
type OrderSource interface {
	Completed() []order.Order
	ByDateRange(start, end time.Time) []order.Order
}

// snapshot is the persisted stats blob. Each window carries enough
// identity to detect rollover into a new period.
type snapshot struct {
	Today   todayWindow   `json:"today"`
	Weekly  weeklyWindow  `json:"weekly"`
	Monthly monthlyWindow `json:"monthly"`
	Yearly  yearlyWindow  `json:"yearly"`
}

type todayWindow struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type weeklyWindow struct {
	Week    int             `json:"week"`
	Year    int             `json:"year"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type monthlyWindow struct {
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type yearlyWindow struct {
	Year    int             `json:"year"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type cacheEntry struct {
	at   time.Time
	data any
}

// Aggregator owns the persisted stats snapshot and a short-lived result
// cache. Construct once per process with NewAggregator.
type Aggregator struct {
	store  kvstore.Store
	orders OrderSource
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewAggregator creates an aggregator over the given order source.
func NewAggregator(store kvstore.Store, orders OrderSource) *Aggregator {
	return &Aggregator{
		store:  store,
		orders: orders,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Dashboard computes all four windows over completed orders. Rollover is
// checked before the cache so a new period always starts from zero.
func (a *Aggregator) Dashboard(ctx context.Context) Windows {
	now := a.now()
	snap, rolled := a.checkRollover(ctx, now)

	const key = "dashboard"
	a.mu.Lock()
	if e, ok := a.cache[key]; ok && !rolled && now.Sub(e.at) < cacheTTL {
		w := e.data.(Windows)
		a.mu.Unlock()
		return w
	}
	a.mu.Unlock()

	completed := a.orders.Completed()

	dayStart := startOfDay(now)
	weekStart, weekEnd := weekRange(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	w := Windows{
		Today: windowOver(completed, func(t time.Time) bool {
			return !t.Before(dayStart) && t.Before(dayStart.AddDate(0, 0, 1))
		}),
		Week: windowOver(completed, func(t time.Time) bool {
			return !t.Before(weekStart) && !t.After(weekEnd)
		}),
		Month: windowOver(completed, func(t time.Time) bool {
			return !t.Before(monthStart) && t.Before(monthStart.AddDate(0, 1, 0))
		}),
		Year: windowOver(completed, func(t time.Time) bool {
			return !t.Before(yearStart) && t.Before(yearStart.AddDate(1, 0, 0))
		}),
	}

	// Persist the accumulated counters under the current identities.
	snap.Today.Orders, snap.Today.Revenue = w.Today.Orders, w.Today.Revenue
	snap.Weekly.Orders, snap.Weekly.Revenue = w.Week.Orders, w.Week.Revenue
	snap.Monthly.Orders, snap.Monthly.Revenue = w.Month.Orders, w.Month.Revenue
	snap.Yearly.Orders, snap.Yearly.Revenue = w.Year.Orders, w.Year.Revenue
	if err := kvstore.SetJSON(ctx, a.store, kvstore.KeyManagerStats, snap); err != nil {
		log.Printf("ERROR: persist stats snapshot: %v", err)
	}

	a.mu.Lock()
	a.cache[key] = cacheEntry{at: now, data: w}
	a.mu.Unlock()
	return w
}

// Yearly computes a single year's window over completed orders. Used by
// the admin dashboard, which only shows the current year.
func (a *Aggregator) Yearly(ctx context.Context, year int) Window {
	now := a.now()
	_, rolled := a.checkRollover(ctx, now)

	key := fmt.Sprintf("yearly_%d", year)
	a.mu.Lock()
	if e, ok := a.cache[key]; ok && !rolled && now.Sub(e.at) < cacheTTL {
		w := e.data.(Window)
		a.mu.Unlock()
		return w
	}
	a.mu.Unlock()

	w := windowOver(a.orders.Completed(), func(t time.Time) bool {
		return t.Year() == year
	})

	a.mu.Lock()
	a.cache[key] = cacheEntry{at: now, data: w}
	a.mu.Unlock()
	return w
}

// Statement returns completed orders in [start, end] inclusive, for the
// export layer.
func (a *Aggregator) Statement(start, end time.Time) []order.Order {
	return a.orders.ByDateRange(start, end)
}

// checkRollover loads the persisted snapshot, resets any window whose
// stored identity no longer matches the current period, and reports
// whether a reset happened. A reset also drops the result cache.
func (a *Aggregator) checkRollover(ctx context.Context, now time.Time) (snapshot, bool) {
	snap := a.loadSnapshot(ctx, now)

	date := now.Format("2006-01-02")
	isoYear, isoWeek := now.ISOWeek()
	rolled := false

	if snap.Today.Date != date {
		snap.Today = todayWindow{Date: date}
		rolled = true
	}
	if snap.Weekly.Week != isoWeek || snap.Weekly.Year != isoYear {
		snap.Weekly = weeklyWindow{Week: isoWeek, Year: isoYear}
		rolled = true
	}
	if snap.Monthly.Month != int(now.Month()) || snap.Monthly.Year != now.Year() {
		snap.Monthly = monthlyWindow{Month: int(now.Month()), Year: now.Year()}
		rolled = true
	}
	if snap.Yearly.Year != now.Year() {
		snap.Yearly = yearlyWindow{Year: now.Year()}
		rolled = true
	}

	if rolled {
		a.mu.Lock()
		a.cache = make(map[string]cacheEntry)
		a.mu.Unlock()
		if err := kvstore.SetJSON(ctx, a.store, kvstore.KeyManagerStats, snap); err != nil {
			log.Printf("ERROR: persist stats snapshot: %v", err)
		}
	}
	return snap, rolled
}

// loadSnapshot reads the persisted blob, falling back to a zeroed
// snapshot with current identities when absent or unreadable.
func (a *Aggregator) loadSnapshot(ctx context.Context, now time.Time) snapshot {
	var snap snapshot
	err := kvstore.GetJSON(ctx, a.store, kvstore.KeyManagerStats, &snap)
	if err == nil {
		return snap
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		log.Printf("ERROR: read stats snapshot: %v", err)
	}

	isoYear, isoWeek := now.ISOWeek()
	return snapshot{
		Today:   todayWindow{Date: now.Format("2006-01-02")},
		Weekly:  weeklyWindow{Week: isoWeek, Year: isoYear},
		Monthly: monthlyWindow{Month: int(now.Month()), Year: now.Year()},
		Yearly:  yearlyWindow{Year: now.Year()},
	}
}

// windowOver folds completed orders whose timestamp satisfies keep.
func windowOver(orders []order.Order, keep func(time.Time) bool) Window {
	w := Window{Revenue: decimal.Zero}
	for _, o := range orders {
		if !keep(o.Timestamp) {
			continue
		}
		w.Orders++
		w.Revenue = w.Revenue.Add(o.Total)
	}
	w.Profit = Profit(w.Revenue)
	return w
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekRange returns the Monday 00:00:00.000 start and Sunday 23:59:59.999
// end of the ISO week containing t.
func weekRange(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week it ends
	}
	start := startOfDay(t).AddDate(0, 0, -(weekday - 1))
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}
