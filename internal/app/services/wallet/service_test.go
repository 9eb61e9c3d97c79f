package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/internal/app/storage/memory"
)

func TestDeposit_CreatesWalletOnFirstUse(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	w, err := svc.Deposit(ctx, "prov-1", decimal.RequireFromString("25.00"))
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("balance: got %s", w.Balance)
	}

	w, err = svc.Deposit(ctx, "prov-1", decimal.RequireFromString("5.50"))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("30.50")) {
		t.Fatalf("balance: got %s", w.Balance)
	}
}

func TestDeposit_Validation(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	if _, err := svc.Deposit(ctx, "", decimal.RequireFromString("1.00")); err == nil {
		t.Fatalf("expected error for missing owner")
	}
	if _, err := svc.Deposit(ctx, "prov-1", decimal.Zero); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := svc.Deposit(ctx, "prov-1", decimal.RequireFromString("-3.00")); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestBalance_UnknownOwner(t *testing.T) {
	svc := New(memory.New(), nil)
	if _, err := svc.Balance(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestAdjust_RejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, nil)

	w, err := store.CreateWallet(ctx, domain.Wallet{OwnerID: "prov-1", Balance: decimal.RequireFromString("10.00")})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := svc.Adjust(ctx, w.ID, decimal.RequireFromString("-10.01")); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v", err)
	}

	// Draining to exactly zero is allowed.
	updated, err := svc.Adjust(ctx, w.ID, decimal.RequireFromString("-10.00"))
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if !updated.Balance.IsZero() {
		t.Fatalf("balance: got %s", updated.Balance)
	}
}

func TestConcurrentDebits_NeverGoNegative(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, nil)

	w, err := store.CreateWallet(ctx, domain.Wallet{OwnerID: "prov-1", Balance: decimal.RequireFromString("5.00")})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	// 20 workers each try to debit 1.00 from a 5.00 balance: exactly five
	// must win.
	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Adjust(ctx, w.ID, decimal.RequireFromString("-1.00")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("debits succeeded: got %d, want 5", succeeded)
	}
	final, _ := store.GetWallet(ctx, w.ID)
	if !final.Balance.IsZero() {
		t.Fatalf("final balance: got %s", final.Balance)
	}
}

func TestTransferLog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, nil)

	from, _ := store.CreateWallet(ctx, domain.Wallet{OwnerID: "prov-1", Balance: decimal.RequireFromString("10.00")})
	to, _ := store.CreateWallet(ctx, domain.Wallet{OwnerID: "admin-1"})

	tr, err := svc.RecordTransfer(ctx, domain.Transfer{
		Reference:    "publish:p1:v1",
		ProductID:    "p1",
		Kind:         domain.TransferPublish,
		FromWalletID: from.ID,
		ToWalletID:   to.ID,
		Amount:       decimal.RequireFromString("1.35"),
	})
	if err != nil {
		t.Fatalf("record transfer: %v", err)
	}
	if tr.Status != domain.TransferPending {
		t.Fatalf("default status: got %s", tr.Status)
	}

	// The reference is an idempotency key; duplicates are rejected.
	if _, err := svc.RecordTransfer(ctx, domain.Transfer{Reference: "publish:p1:v1"}); err == nil {
		t.Fatalf("expected duplicate reference to be rejected")
	}

	marked, err := svc.MarkTransfer(ctx, tr, domain.TransferCompleted, "")
	if err != nil {
		t.Fatalf("mark transfer: %v", err)
	}
	if marked.Status != domain.TransferCompleted {
		t.Fatalf("status: got %s", marked.Status)
	}

	found, err := svc.FindTransferByReference(ctx, "publish:p1:v1")
	if err != nil {
		t.Fatalf("find by reference: %v", err)
	}
	if found.ID != tr.ID || found.Status != domain.TransferCompleted {
		t.Fatalf("found: %+v", found)
	}

	list, err := svc.Transfers(ctx, from.ID)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("transfers for wallet: got %d", len(list))
	}

	if _, err := svc.Transfers(ctx, " "); err == nil {
		t.Fatalf("expected error for missing wallet id")
	}
}
