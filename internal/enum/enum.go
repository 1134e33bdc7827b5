package enum

// ── Order state machine (strictly linear, no regression) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
)

// ── Payment origin ──

const (
	OriginCard = "card"
	OriginCash = "cash"
)

// ── Panel roles ──

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
)

// ── Menu categories (configurable labels, no store constraint) ──

const (
	CategoryMeals  = "meals"
	CategoryDrinks = "drinks"
	CategorySides  = "sides"
)

// StatusRank returns the position of a status in the linear
// pending → ready → completed progression, or -1 for unknown values.
func StatusRank(status string) int {
	switch status {
	case OrderStatusPending:
		return 0
	case OrderStatusReady:
		return 1
	case OrderStatusCompleted:
		return 2
	}
	return -1
}
