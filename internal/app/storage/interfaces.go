package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/revendify/backoffice/internal/app/domain/commission"
	"github.com/revendify/backoffice/internal/app/domain/product"
	"github.com/revendify/backoffice/internal/app/domain/user"
	"github.com/revendify/backoffice/internal/app/domain/wallet"
)

// Sentinel errors shared by every store implementation. Callers match them
// with errors.Is regardless of the backing engine.
var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientBalance reports a conditional debit whose guard
	// (balance + delta >= 0) did not hold.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrVersionConflict reports an optimistic-concurrency write that lost
	// the race against a concurrent update.
	ErrVersionConflict = errors.New("version conflict")
)

// UserStore resolves marketplace users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	// FirstAdministrator returns the earliest-created administrator user,
	// or ErrNotFound when none exists.
	FirstAdministrator(ctx context.Context) (user.User, error)
}

// WalletStore persists wallets and their transfer log.
type WalletStore interface {
	CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	GetWallet(ctx context.Context, id string) (wallet.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
	// AdjustBalance applies balance += delta atomically. A negative delta
	// fails with ErrInsufficientBalance when the result would be negative;
	// the wallet is left untouched in that case.
	AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (wallet.Wallet, error)

	CreateTransfer(ctx context.Context, t wallet.Transfer) (wallet.Transfer, error)
	UpdateTransfer(ctx context.Context, t wallet.Transfer) (wallet.Transfer, error)
	GetTransferByReference(ctx context.Context, reference string) (wallet.Transfer, error)
	// ListTransfers returns the transfers touching the wallet. The wallet id
	// is required; an empty id matches nothing.
	ListTransfers(ctx context.Context, walletID string) ([]wallet.Transfer, error)
}

// CommissionStore persists commission configuration records.
type CommissionStore interface {
	CreateCommissionConfig(ctx context.Context, cfg commission.Config) (commission.Config, error)
	// CurrentCommissionConfig returns the record with the latest UpdatedAt,
	// or ErrNotFound when no configuration exists.
	CurrentCommissionConfig(ctx context.Context) (commission.Config, error)
}

// ProductStore persists products.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	ListProducts(ctx context.Context, ownerID string) ([]product.Product, error)
	ListOwners(ctx context.Context) ([]string, error)
	// UpdateProduct writes the product guarded by its Version field and
	// fails with ErrVersionConflict when the stored version moved on.
	// The returned product carries the incremented version.
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
}

// StockItemStore persists stock items. Item CRUD is driven by an external
// collaborator; the engine reads them to repair denormalized counters.
type StockItemStore interface {
	CreateStockItem(ctx context.Context, item product.StockItem) (product.StockItem, error)
	GetStockItem(ctx context.Context, id string) (product.StockItem, error)
	DeleteStockItem(ctx context.Context, id string) error
	ListStockItems(ctx context.Context, productID string) ([]product.StockItem, error)
	CountStockItems(ctx context.Context, productID string) (int, error)
}
