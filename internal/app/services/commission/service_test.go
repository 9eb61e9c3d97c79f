package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revendify/backoffice/internal/app/storage/memory"
)

func TestCurrent_NoConfiguration(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Current(context.Background()); !errors.Is(err, ErrNoConfiguration) {
		t.Fatalf("got %v", err)
	}
}

func TestPreview_FallbackWhenUnconfigured(t *testing.T) {
	svc := New(memory.New(), nil)

	fee, fallback := svc.Preview(context.Background())
	if !fallback {
		t.Fatalf("expected fallback flag")
	}
	if !fee.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("fallback fee: got %s", fee)
	}
}

func TestSet_LatestConfigurationWins(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	if _, err := svc.Set(ctx, decimal.RequireFromString("1.35")); err != nil {
		t.Fatalf("set: %v", err)
	}
	// The resolver picks the record with the latest UpdatedAt.
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.Set(ctx, decimal.RequireFromString("2.00")); err != nil {
		t.Fatalf("set: %v", err)
	}

	fee, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !fee.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("fee: got %s", fee)
	}

	fee, fallback := svc.Preview(ctx)
	if fallback {
		t.Fatalf("unexpected fallback with configuration present")
	}
	if !fee.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("preview fee: got %s", fee)
	}
}

func TestSet_RejectsNegativeFee(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Set(context.Background(), decimal.RequireFromString("-0.01")); err == nil {
		t.Fatalf("expected error for negative fee")
	}

	// Zero is a valid free-publication policy.
	if _, err := svc.Set(context.Background(), decimal.Zero); err != nil {
		t.Fatalf("zero fee: %v", err)
	}
}
