// Package wallet implements the wallet ledger service.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/pkg/logger"
)

// Service exposes balance reads and atomic balance adjustments. All balance
// mutations go through the store's conditional adjust so a concurrent debit
// can never drive a wallet negative.
type Service struct {
	store storage.WalletStore
	log   *logger.Logger
}

// New constructs a wallet ledger service.
func New(store storage.WalletStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wallet")
	}
	return &Service{store: store, log: log}
}

// Balance returns the wallet of the given owner.
func (s *Service) Balance(ctx context.Context, ownerID string) (domain.Wallet, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Wallet{}, fmt.Errorf("owner_id is required")
	}
	return s.store.GetWalletByOwner(ctx, ownerID)
}

// Adjust applies a signed delta to the wallet balance. A debit that would
// leave the balance negative fails with storage.ErrInsufficientBalance.
func (s *Service) Adjust(ctx context.Context, walletID string, delta decimal.Decimal) (domain.Wallet, error) {
	w, err := s.store.AdjustBalance(ctx, walletID, delta)
	if err != nil {
		return domain.Wallet{}, err
	}
	s.log.WithField("wallet_id", walletID).
		WithField("delta", delta.String()).
		WithField("balance", w.Balance.String()).
		Debug("wallet balance adjusted")
	return w, nil
}

// Deposit credits an owner's wallet, creating the wallet on first use.
func (s *Service) Deposit(ctx context.Context, ownerID string, amount decimal.Decimal) (domain.Wallet, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Wallet{}, fmt.Errorf("owner_id is required")
	}
	if !amount.IsPositive() {
		return domain.Wallet{}, fmt.Errorf("deposit amount must be positive")
	}

	w, err := s.store.GetWalletByOwner(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		w, err = s.store.CreateWallet(ctx, domain.Wallet{OwnerID: ownerID, Balance: decimal.Zero})
	}
	if err != nil {
		return domain.Wallet{}, err
	}

	updated, err := s.store.AdjustBalance(ctx, w.ID, amount)
	if err != nil {
		return domain.Wallet{}, err
	}
	s.log.WithField("owner_id", ownerID).
		WithField("amount", amount.String()).
		Info("wallet deposit applied")
	return updated, nil
}

// Transfers lists the transfer log touching a wallet.
func (s *Service) Transfers(ctx context.Context, walletID string) ([]domain.Transfer, error) {
	if strings.TrimSpace(walletID) == "" {
		return nil, fmt.Errorf("wallet_id is required")
	}
	return s.store.ListTransfers(ctx, walletID)
}

// RecordTransfer appends a pending transfer-intent record. The reference is
// the idempotency key for the transfer attempt.
func (s *Service) RecordTransfer(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	if t.Status == "" {
		t.Status = domain.TransferPending
	}
	return s.store.CreateTransfer(ctx, t)
}

// MarkTransfer moves a transfer record to a new status.
func (s *Service) MarkTransfer(ctx context.Context, t domain.Transfer, status domain.TransferStatus, reason string) (domain.Transfer, error) {
	t.Status = status
	t.FailureReason = reason
	return s.store.UpdateTransfer(ctx, t)
}

// FindTransferByReference looks up a transfer by its idempotency reference.
func (s *Service) FindTransferByReference(ctx context.Context, reference string) (domain.Transfer, error) {
	return s.store.GetTransferByReference(ctx, reference)
}
