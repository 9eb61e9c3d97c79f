package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the balance of a single owner (provider or administrator).
// The engine never persists a negative balance.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransferKind identifies the operation that triggered a commission transfer.
type TransferKind string

const (
	TransferPublish TransferKind = "publish"
	TransferRenew   TransferKind = "renew"
)

// TransferStatus tracks a transfer through its lifecycle.
type TransferStatus string

const (
	// TransferPending marks a transfer whose debit leg has been recorded but
	// not yet completed.
	TransferPending TransferStatus = "pending"
	// TransferCompleted marks a fully applied transfer.
	TransferCompleted TransferStatus = "completed"
	// TransferCompensated marks a transfer whose debit was rolled back after
	// the credit leg failed.
	TransferCompensated TransferStatus = "compensated"
	// TransferReconcileRequired marks a transfer left in an inconsistent
	// state that an operator must resolve by hand.
	TransferReconcileRequired TransferStatus = "reconcile_required"
)

// Transfer is an append-only record of a commission transfer attempt.
// Reference doubles as the idempotency key: a completed transfer with the
// same reference means a retried publish/renew must not charge again.
type Transfer struct {
	ID            string
	Reference     string
	ProductID     string
	Kind          TransferKind
	FromWalletID  string
	ToWalletID    string
	Amount        decimal.Decimal
	Status        TransferStatus
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
