// Package publication orchestrates the paid product lifecycle transitions:
// publish (draft to published) and renew (published, extended). Both move the
// commission from the provider's wallet to the first administrator's wallet.
package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revendify/backoffice/internal/app/domain/product"
	walletdom "github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/metrics"
	commissionsvc "github.com/revendify/backoffice/internal/app/services/commission"
	walletsvc "github.com/revendify/backoffice/internal/app/services/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/pkg/logger"
)

// BalanceCheck is the result of a pre-flight funds verification.
type BalanceCheck struct {
	Sufficient         bool            `json:"sufficient"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	RequiredCommission decimal.Decimal `json:"required_commission"`
	// FallbackFee flags that the commission shown is the UI preview fallback
	// because no configuration exists. Publishing would still fail.
	FallbackFee bool `json:"fallback_fee,omitempty"`
}

// Service coordinates the wallet ledger, commission resolver and product
// state for publish and renew.
type Service struct {
	products   storage.ProductStore
	users      storage.UserStore
	wallets    *walletsvc.Service
	commission *commissionsvc.Service
	log        *logger.Logger
	now        func() time.Time
}

// New constructs the publication orchestrator.
func New(products storage.ProductStore, users storage.UserStore, wallets *walletsvc.Service, commission *commissionsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("publication")
	}
	return &Service{
		products:   products,
		users:      users,
		wallets:    wallets,
		commission: commission,
		log:        log,
		now:        time.Now,
	}
}

// CreateDraft registers a new product in draft state at no cost.
func (s *Service) CreateDraft(ctx context.Context, ownerID, name string, durationDays int, renewable bool) (product.Product, error) {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" {
		return product.Product{}, fmt.Errorf("owner_id is required")
	}
	if name == "" {
		return product.Product{}, fmt.Errorf("name is required")
	}
	if durationDays < 0 {
		return product.Product{}, fmt.Errorf("usage_duration_days cannot be negative")
	}
	if durationDays == 0 {
		durationDays = product.DefaultUsageDurationDays
	}

	p, err := s.products.CreateProduct(ctx, product.Product{
		OwnerID:           ownerID,
		Name:              name,
		State:             product.StateDraft,
		UsageDurationDays: durationDays,
		Renewable:         renewable,
	})
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", p.ID).WithField("owner_id", ownerID).Info("draft product created")
	return p, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID string) (product.Product, error) {
	return s.products.GetProduct(ctx, productID)
}

// List returns the products of an owner, or all products when ownerID is
// empty.
func (s *Service) List(ctx context.Context, ownerID string) ([]product.Product, error) {
	return s.products.ListProducts(ctx, ownerID)
}

// Publish moves a draft product to published, charging the commission from
// the provider's wallet to the administrator's wallet. The expiration is set
// to now plus the product's usage duration.
func (s *Service) Publish(ctx context.Context, productID, providerID string) (product.Product, error) {
	p, err := s.loadOwned(ctx, productID, providerID)
	if err != nil {
		return product.Product{}, err
	}
	if p.State != product.StateDraft {
		return product.Product{}, fmt.Errorf("publish requires a draft product, got %s: %w", p.State, ErrInvalidState)
	}
	return s.execute(ctx, p, walletdom.TransferPublish)
}

// Renew extends a published product's expiration by its usage duration,
// charging the commission again. The extension always starts from the stored
// expiration, so renewing an already expired product produces a catch-up
// renewal rather than a fresh window.
func (s *Service) Renew(ctx context.Context, productID, providerID string) (product.Product, error) {
	p, err := s.loadOwned(ctx, productID, providerID)
	if err != nil {
		return product.Product{}, err
	}
	if p.State != product.StatePublished {
		return product.Product{}, fmt.Errorf("renew requires a published product, got %s: %w", p.State, ErrInvalidState)
	}
	return s.execute(ctx, p, walletdom.TransferRenew)
}

// VerifyBalance reports whether the provider can afford the current
// commission. Read-only; intended for UI pre-flight checks.
func (s *Service) VerifyBalance(ctx context.Context, providerID string) (BalanceCheck, error) {
	fee, fallback := s.commission.Preview(ctx)
	w, err := s.wallets.Balance(ctx, providerID)
	if err != nil {
		return BalanceCheck{}, err
	}
	return BalanceCheck{
		Sufficient:         w.Balance.GreaterThanOrEqual(fee) && !fallback,
		CurrentBalance:     w.Balance,
		RequiredCommission: fee,
		FallbackFee:        fallback,
	}, nil
}

func (s *Service) loadOwned(ctx context.Context, productID, providerID string) (product.Product, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return product.Product{}, err
	}
	if p.OwnerID != strings.TrimSpace(providerID) {
		return product.Product{}, fmt.Errorf("product %s: %w", productID, ErrForbidden)
	}
	return p, nil
}

// execute runs the shared charge-then-update sequence for publish and renew.
func (s *Service) execute(ctx context.Context, p product.Product, kind walletdom.TransferKind) (product.Product, error) {
	outcome := func(result string) { metrics.ObservePublication(string(kind), result) }

	fee, err := s.commission.Current(ctx)
	if err != nil {
		outcome("configuration_error")
		if errors.Is(err, commissionsvc.ErrNoConfiguration) {
			return product.Product{}, &ConfigurationError{Reason: "no commission configuration", Err: err}
		}
		return product.Product{}, fmt.Errorf("resolve commission: %w", err)
	}

	providerWallet, err := s.wallets.Balance(ctx, p.OwnerID)
	if err != nil {
		outcome("wallet_error")
		return product.Product{}, err
	}

	// The reference keys the transfer to the lifecycle step it pays for and
	// stays stable across retries, so a partial failure can be resumed.
	reference := transferReference(p, kind)

	transfer, charged, err := s.resolveTransfer(ctx, reference)
	if err != nil {
		outcome("transfer_blocked")
		return product.Product{}, err
	}

	if !charged {
		// The balance guard applies to fresh charges only; a retry whose
		// funds already moved proceeds on the drained balance.
		if providerWallet.Balance.LessThan(fee) {
			outcome("insufficient_funds")
			return product.Product{}, &InsufficientFundsError{Required: fee, Available: providerWallet.Balance}
		}

		admin, err := s.users.FirstAdministrator(ctx)
		if err != nil {
			outcome("configuration_error")
			return product.Product{}, &ConfigurationError{Reason: "no administrator user", Err: err}
		}
		adminWallet, err := s.wallets.Balance(ctx, admin.ID)
		if err != nil {
			outcome("configuration_error")
			return product.Product{}, &ConfigurationError{Reason: "administrator has no wallet", Err: err}
		}

		if transfer.ID == "" {
			transfer, err = s.wallets.RecordTransfer(ctx, walletdom.Transfer{
				Reference:    reference,
				ProductID:    p.ID,
				Kind:         kind,
				FromWalletID: providerWallet.ID,
				ToWalletID:   adminWallet.ID,
				Amount:       fee,
				Status:       walletdom.TransferPending,
			})
			if err != nil {
				outcome("transfer_blocked")
				return product.Product{}, fmt.Errorf("record transfer intent: %w", err)
			}
		} else {
			// A compensated record from an earlier attempt is reopened.
			transfer, err = s.wallets.MarkTransfer(ctx, transfer, walletdom.TransferPending, "")
			if err != nil {
				outcome("transfer_blocked")
				return product.Product{}, fmt.Errorf("reset compensated transfer: %w", err)
			}
		}

		if err := s.moveFunds(ctx, &transfer, providerWallet, adminWallet, fee); err != nil {
			outcome("transfer_failed")
			return product.Product{}, err
		}
	}

	updated, err := s.applyTransition(ctx, p, kind)
	if err != nil {
		outcome("state_update_failed")
		metrics.ObserveReconciliationRequired()
		if _, markErr := s.wallets.MarkTransfer(ctx, transfer, walletdom.TransferReconcileRequired, "state_update_failed: "+err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("reference", reference).Error("failed to flag transfer for reconciliation")
		}
		s.log.WithField("reference", reference).
			WithField("product_id", p.ID).
			WithError(err).
			Error("funds moved but product update failed; manual reconciliation required")
		return product.Product{}, &StateUpdateFailedError{Reference: reference, Err: err}
	}

	if _, err := s.wallets.MarkTransfer(ctx, transfer, walletdom.TransferCompleted, ""); err != nil {
		// Funds and product are consistent; only the ledger record is stale.
		s.log.WithError(err).WithField("reference", reference).Warn("failed to mark transfer completed")
	}

	outcome("completed")
	feeFloat, _ := fee.Float64()
	metrics.ObserveCommission(feeFloat)
	s.log.WithField("product_id", p.ID).
		WithField("kind", string(kind)).
		WithField("commission", fee.String()).
		WithField("expires_at", updated.ExpiresAt).
		Info("product transition completed")
	return updated, nil
}

// transferReference derives the idempotency key for a lifecycle charge. A
// product is published at most once, so the product id alone keys the publish
// charge. Each renewal is keyed by the expiry it extends, which only moves
// when the renewal itself succeeds. Neither key involves the product version:
// a concurrent stock write must not turn a retry into a second charge.
func transferReference(p product.Product, kind walletdom.TransferKind) string {
	if kind == walletdom.TransferRenew {
		var base int64
		if p.ExpiresAt != nil {
			base = p.ExpiresAt.Unix()
		}
		return fmt.Sprintf("renew:%s:%d", p.ID, base)
	}
	return fmt.Sprintf("publish:%s", p.ID)
}

// resolveTransfer classifies any prior attempt recorded under the reference.
// The returned bool reports whether the funds already moved in a previous
// attempt (retry after a failed product update). A zero-ID transfer with
// charged false means no usable record exists yet.
func (s *Service) resolveTransfer(ctx context.Context, reference string) (walletdom.Transfer, bool, error) {
	existing, err := s.wallets.FindTransferByReference(ctx, reference)
	switch {
	case err == nil:
		switch existing.Status {
		case walletdom.TransferCompleted:
			return existing, true, nil
		case walletdom.TransferCompensated:
			// Wallets were restored; the attempt may run again.
			return existing, false, nil
		case walletdom.TransferReconcileRequired:
			if strings.HasPrefix(existing.FailureReason, "state_update_failed") {
				// Funds moved; only the product write is missing.
				return existing, true, nil
			}
			return walletdom.Transfer{}, false, &TransferFailureError{
				Reference:   reference,
				Compensated: false,
				Err:         fmt.Errorf("transfer awaits manual reconciliation: %s", existing.FailureReason),
			}
		default: // pending: a concurrent or crashed attempt
			return walletdom.Transfer{}, false, &TransferFailureError{
				Reference:   reference,
				Compensated: false,
				Err:         fmt.Errorf("transfer attempt already in progress"),
			}
		}
	case errors.Is(err, storage.ErrNotFound):
		return walletdom.Transfer{}, false, nil
	default:
		return walletdom.Transfer{}, false, fmt.Errorf("lookup transfer intent: %w", err)
	}
}

// moveFunds runs the debit and credit legs, compensating the debit when the
// credit fails.
func (s *Service) moveFunds(ctx context.Context, transfer *walletdom.Transfer, from, to walletdom.Wallet, fee decimal.Decimal) error {
	if _, err := s.wallets.Adjust(ctx, from.ID, fee.Neg()); err != nil {
		if _, markErr := s.wallets.MarkTransfer(ctx, *transfer, walletdom.TransferCompensated, "debit rejected: "+err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("reference", transfer.Reference).Warn("failed to close rejected transfer")
		}
		if errors.Is(err, storage.ErrInsufficientBalance) {
			// A concurrent debit won the race between the pre-check and here.
			available := from.Balance
			if latest, readErr := s.wallets.Balance(ctx, from.OwnerID); readErr == nil {
				available = latest.Balance
			}
			return &InsufficientFundsError{Required: fee, Available: available}
		}
		return fmt.Errorf("debit provider wallet: %w", err)
	}

	if _, err := s.wallets.Adjust(ctx, to.ID, fee); err != nil {
		if _, compErr := s.wallets.Adjust(ctx, from.ID, fee); compErr != nil {
			metrics.ObserveReconciliationRequired()
			if _, markErr := s.wallets.MarkTransfer(ctx, *transfer, walletdom.TransferReconcileRequired, "compensation_failed: "+compErr.Error()); markErr != nil {
				s.log.WithError(markErr).WithField("reference", transfer.Reference).Error("failed to flag transfer for reconciliation")
			}
			s.log.WithField("reference", transfer.Reference).
				WithError(compErr).
				Error("credit and compensation both failed; manual reconciliation required")
			return &CompensationFailedError{Reference: transfer.Reference, CreditErr: err, CompensationErr: compErr}
		}
		if _, markErr := s.wallets.MarkTransfer(ctx, *transfer, walletdom.TransferCompensated, "credit failed: "+err.Error()); markErr != nil {
			s.log.WithError(markErr).WithField("reference", transfer.Reference).Warn("failed to mark transfer compensated")
		}
		return &TransferFailureError{Reference: transfer.Reference, Compensated: true, Err: err}
	}

	return nil
}

// maxVersionRetries bounds the post-charge product write when concurrent
// stock mutations bump the version.
const maxVersionRetries = 3

// applyTransition persists the post-charge product mutation, re-reading and
// retrying when a concurrent writer bumped the version.
func (s *Service) applyTransition(ctx context.Context, p product.Product, kind walletdom.TransferKind) (product.Product, error) {
	for attempt := 0; ; attempt++ {
		switch kind {
		case walletdom.TransferPublish:
			expires := s.now().AddDate(0, 0, p.Duration())
			p.State = product.StatePublished
			p.ExpiresAt = &expires
		case walletdom.TransferRenew:
			base := s.now()
			if p.ExpiresAt != nil {
				base = *p.ExpiresAt
			}
			expires := base.AddDate(0, 0, p.Duration())
			p.ExpiresAt = &expires
		}

		updated, err := s.products.UpdateProduct(ctx, p)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) || attempt+1 >= maxVersionRetries {
			return product.Product{}, err
		}
		p, err = s.products.GetProduct(ctx, p.ID)
		if err != nil {
			return product.Product{}, err
		}
	}
}
