package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is a versioned system configuration record. The current publication
// fee is the one on the record with the latest UpdatedAt.
type Config struct {
	ID             string
	PublicationFee decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
