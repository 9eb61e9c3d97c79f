package product

import "time"

// State is the persisted lifecycle state of a product. Display statuses such
// as "vencido" are derived from State plus ExpiresAt, never stored.
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
)

// DefaultUsageDurationDays applies when a product carries no explicit
// publication duration.
const DefaultUsageDurationDays = 30

// Product is a listing owned by a provider. StockCount and StockList are
// denormalized from the product's stock items and maintained by the stock
// synchronization service.
type Product struct {
	ID                string
	OwnerID           string
	Name              string
	State             State
	ExpiresAt         *time.Time
	UsageDurationDays int
	Renewable         bool
	StockCount        int
	StockList         []string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Duration returns the publication duration in days, applying the default
// when the field is unset.
func (p Product) Duration() int {
	if p.UsageDurationDays <= 0 {
		return DefaultUsageDurationDays
	}
	return p.UsageDurationDays
}

// ItemState is the sale state of an individual stock item.
type ItemState string

const (
	ItemAvailable ItemState = "available"
	ItemSold      ItemState = "sold"
)

// StockItem is one sellable credential unit belonging to a product. The
// credential fields are opaque to the engine.
type StockItem struct {
	ID        string
	ProductID string
	State     ItemState
	Published bool
	Username  string
	Secret    string
	Profile   string
	PIN       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
