// Package commission resolves the current publication commission from system
// configuration.
package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/revendify/backoffice/internal/app/domain/commission"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/pkg/logger"
)

// ErrNoConfiguration reports that no commission configuration record exists.
// Callers must not substitute a default when authorizing a real transfer.
var ErrNoConfiguration = errors.New("no commission configuration")

// previewFallbackFee is shown as a last-resort UI preview when no
// configuration exists. It never authorizes a transfer.
var previewFallbackFee = decimal.RequireFromString("1.00")

// Service resolves and maintains the publication commission.
type Service struct {
	store storage.CommissionStore
	log   *logger.Logger
}

// New constructs a commission policy resolver.
func New(store storage.CommissionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("commission")
	}
	return &Service{store: store, log: log}
}

// Current returns the publication fee from the latest configuration record.
func (s *Service) Current(ctx context.Context) (decimal.Decimal, error) {
	cfg, err := s.store.CurrentCommissionConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, ErrNoConfiguration
	}
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.PublicationFee, nil
}

// Preview returns the current fee for display purposes, falling back to a
// constant when no configuration exists. The bool reports whether the value
// is the fallback.
func (s *Service) Preview(ctx context.Context) (decimal.Decimal, bool) {
	fee, err := s.Current(ctx)
	if err != nil {
		return previewFallbackFee, true
	}
	return fee, false
}

// Set records a new publication fee by inserting a fresh configuration
// record; the latest UpdatedAt wins on resolution.
func (s *Service) Set(ctx context.Context, fee decimal.Decimal) (domain.Config, error) {
	if fee.IsNegative() {
		return domain.Config{}, fmt.Errorf("publication fee cannot be negative")
	}
	cfg, err := s.store.CreateCommissionConfig(ctx, domain.Config{PublicationFee: fee})
	if err != nil {
		return domain.Config{}, err
	}
	s.log.WithField("publication_fee", fee.String()).Info("commission configuration updated")
	return cfg, nil
}
