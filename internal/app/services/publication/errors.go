package publication

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precondition failures. These occur strictly before any mutation.
var (
	// ErrForbidden reports a caller that does not own the product.
	ErrForbidden = errors.New("caller does not own this product")
	// ErrInvalidState reports a transition the product's state does not allow.
	ErrInvalidState = errors.New("product state does not allow this operation")
)

// ConfigurationError reports missing system configuration: no commission
// record, or no administrator user/wallet to credit.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InsufficientFundsError reports a provider balance below the commission.
// It carries both amounts so the caller can present the exact shortfall.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s", e.Required, e.Available)
}

// TransferFailureError reports a failed credit leg. Compensated tells whether
// the provider debit was rolled back; when true the wallets are consistent
// and the operation may be retried.
type TransferFailureError struct {
	Reference   string
	Compensated bool
	Err         error
}

func (e *TransferFailureError) Error() string {
	return fmt.Sprintf("transfer %s failed (compensated=%t): %v", e.Reference, e.Compensated, e.Err)
}

func (e *TransferFailureError) Unwrap() error { return e.Err }

// CompensationFailedError is fatal: the credit leg failed and the
// compensating re-credit of the provider also failed. The transfer is marked
// for manual reconciliation and must never be retried automatically.
type CompensationFailedError struct {
	Reference       string
	CreditErr       error
	CompensationErr error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("transfer %s requires manual reconciliation: credit failed (%v) and compensation failed (%v)",
		e.Reference, e.CreditErr, e.CompensationErr)
}

// StateUpdateFailedError is fatal: funds moved but the product write failed.
// The transfer is marked for manual reconciliation; retrying with the same
// reference completes the product update without charging again.
type StateUpdateFailedError struct {
	Reference string
	Err       error
}

func (e *StateUpdateFailedError) Error() string {
	return fmt.Sprintf("transfer %s succeeded but product update failed: %v", e.Reference, e.Err)
}

func (e *StateUpdateFailedError) Unwrap() error { return e.Err }

// IsFatal reports whether the error demands operator reconciliation rather
// than a retry.
func IsFatal(err error) bool {
	var comp *CompensationFailedError
	var state *StateUpdateFailedError
	return errors.As(err, &comp) || errors.As(err, &state)
}
