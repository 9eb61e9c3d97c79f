package product

import (
	"fmt"
	"math"
	"time"
)

// StatusCode is a derived, human-facing lifecycle status.
type StatusCode string

const (
	StatusDraft    StatusCode = "draft"
	StatusNoExpiry StatusCode = "sin_expirar"
	StatusActive   StatusCode = "vigente"
	StatusExpiring StatusCode = "por_vencer"
	StatusExpired  StatusCode = "vencido"
)

// expiringWindowDays is the remaining-days threshold at or under which a
// published product is flagged as about to expire.
const expiringWindowDays = 7

// Status is the derived lifecycle status of a product at a point in time.
// Exactly one of DaysRemaining/DaysOverdue is meaningful depending on Code.
type Status struct {
	Code          StatusCode `json:"code"`
	DaysRemaining int        `json:"days_remaining,omitempty"`
	DaysOverdue   int        `json:"days_overdue,omitempty"`
	Label         string     `json:"label"`
}

// ComputeStatus derives the display status from the persisted state and
// expiration timestamp. It is pure: no clock access, no store access.
func ComputeStatus(state State, expiresAt *time.Time, now time.Time) Status {
	if state == StateDraft {
		return Status{Code: StatusDraft, Label: "Borrador"}
	}
	if expiresAt == nil {
		return Status{Code: StatusNoExpiry, Label: "Sin expirar"}
	}

	days := int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		overdue := -days
		return Status{
			Code:        StatusExpired,
			DaysOverdue: overdue,
			Label:       fmt.Sprintf("Vencido (%s)", pluralDays(overdue)),
		}
	case days <= expiringWindowDays:
		return Status{
			Code:          StatusExpiring,
			DaysRemaining: days,
			Label:         expiringLabel(days),
		}
	default:
		return Status{Code: StatusActive, DaysRemaining: days, Label: "Vigente"}
	}
}

// Lifecycle reports the derived status of the product itself.
func (p Product) Lifecycle(now time.Time) Status {
	return ComputeStatus(p.State, p.ExpiresAt, now)
}

func expiringLabel(days int) string {
	if days == 0 {
		return "Por vencer (hoy)"
	}
	return fmt.Sprintf("Por vencer (%s)", pluralDays(days))
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 día"
	}
	return fmt.Sprintf("%d días", n)
}
