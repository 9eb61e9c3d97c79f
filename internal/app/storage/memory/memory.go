// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and prototyping and keeps the
// concurrency semantics of the PostgreSQL store: conditional balance
// adjustments and optimistic product versioning behave identically.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revendify/backoffice/internal/app/domain/commission"
	"github.com/revendify/backoffice/internal/app/domain/product"
	"github.com/revendify/backoffice/internal/app/domain/user"
	"github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
)

// Store is the in-memory persistence layer.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	users       map[string]user.User
	wallets     map[string]wallet.Wallet
	transfers   map[string]wallet.Transfer
	commissions map[string]commission.Config
	products    map[string]product.Product
	stockItems  map[string]product.StockItem
}

var (
	_ storage.UserStore       = (*Store)(nil)
	_ storage.WalletStore     = (*Store)(nil)
	_ storage.CommissionStore = (*Store)(nil)
	_ storage.ProductStore    = (*Store)(nil)
	_ storage.StockItemStore  = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:      1,
		users:       make(map[string]user.User),
		wallets:     make(map[string]wallet.Wallet),
		transfers:   make(map[string]wallet.Transfer),
		commissions: make(map[string]commission.Config),
		products:    make(map[string]product.Product),
		stockItems:  make(map[string]product.StockItem),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) FirstAdministrator(_ context.Context) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found bool
		first user.User
	)
	for _, u := range s.users {
		if u.Role != user.RoleAdministrator {
			continue
		}
		if !found || u.CreatedAt.Before(first.CreatedAt) {
			first = u
			found = true
		}
	}
	if !found {
		return user.User{}, fmt.Errorf("administrator: %w", storage.ErrNotFound)
	}
	return first, nil
}

// WalletStore implementation --------------------------------------------------

func (s *Store) CreateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = s.nextIDLocked()
	} else if _, exists := s.wallets[w.ID]; exists {
		return wallet.Wallet{}, fmt.Errorf("wallet %s already exists", w.ID)
	}
	for _, existing := range s.wallets {
		if existing.OwnerID == w.OwnerID {
			return wallet.Wallet{}, fmt.Errorf("owner %s already has wallet %s", w.OwnerID, existing.ID)
		}
	}
	if w.Balance.IsNegative() {
		return wallet.Wallet{}, fmt.Errorf("wallet balance cannot start negative")
	}

	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) GetWallet(_ context.Context, id string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[id]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
	}
	return w, nil
}

func (s *Store) GetWalletByOwner(_ context.Context, ownerID string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.OwnerID == ownerID {
			return w, nil
		}
	}
	return wallet.Wallet{}, fmt.Errorf("wallet for owner %s: %w", ownerID, storage.ErrNotFound)
}

func (s *Store) AdjustBalance(_ context.Context, walletID string, delta decimal.Decimal) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, storage.ErrNotFound)
	}

	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, storage.ErrInsufficientBalance)
	}

	w.Balance = next
	w.UpdatedAt = time.Now().UTC()
	s.wallets[walletID] = w
	return w, nil
}

func (s *Store) CreateTransfer(_ context.Context, t wallet.Transfer) (wallet.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.transfers[t.ID]; exists {
		return wallet.Transfer{}, fmt.Errorf("transfer %s already exists", t.ID)
	}
	for _, existing := range s.transfers {
		if existing.Reference == t.Reference {
			return wallet.Transfer{}, fmt.Errorf("transfer reference %s already exists", t.Reference)
		}
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.transfers[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransfer(_ context.Context, t wallet.Transfer) (wallet.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.transfers[t.ID]
	if !ok {
		return wallet.Transfer{}, fmt.Errorf("transfer %s: %w", t.ID, storage.ErrNotFound)
	}

	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.transfers[t.ID] = t
	return t, nil
}

func (s *Store) GetTransferByReference(_ context.Context, reference string) (wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transfers {
		if t.Reference == reference {
			return t, nil
		}
	}
	return wallet.Transfer{}, fmt.Errorf("transfer reference %s: %w", reference, storage.ErrNotFound)
}

func (s *Store) ListTransfers(_ context.Context, walletID string) ([]wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]wallet.Transfer, 0)
	for _, t := range s.transfers {
		if t.FromWalletID == walletID || t.ToWalletID == walletID {
			result = append(result, t)
		}
	}
	return result, nil
}

// CommissionStore implementation ----------------------------------------------

func (s *Store) CreateCommissionConfig(_ context.Context, cfg commission.Config) (commission.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = s.nextIDLocked()
	} else if _, exists := s.commissions[cfg.ID]; exists {
		return commission.Config{}, fmt.Errorf("commission config %s already exists", cfg.ID)
	}

	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	s.commissions[cfg.ID] = cfg
	return cfg, nil
}

func (s *Store) CurrentCommissionConfig(_ context.Context) (commission.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found   bool
		current commission.Config
	)
	for _, cfg := range s.commissions {
		if !found || cfg.UpdatedAt.After(current.UpdatedAt) {
			current = cfg
			found = true
		}
	}
	if !found {
		return commission.Config{}, fmt.Errorf("commission config: %w", storage.ErrNotFound)
	}
	return current, nil
}

// ProductStore implementation -------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.products[p.ID]; exists {
		return product.Product{}, fmt.Errorf("product %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	p.StockList = append([]string(nil), p.StockList...)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (s *Store) ListProducts(_ context.Context, ownerID string) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.Product, 0)
	for _, p := range s.products {
		if ownerID == "" || p.OwnerID == ownerID {
			result = append(result, cloneProduct(p))
		}
	}
	return result, nil
}

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	owners := make([]string, 0)
	for _, p := range s.products {
		if _, ok := seen[p.OwnerID]; ok {
			continue
		}
		seen[p.OwnerID] = struct{}{}
		owners = append(owners, p.OwnerID)
	}
	return owners, nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.products[p.ID]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrNotFound)
	}
	if original.Version != p.Version {
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrVersionConflict)
	}

	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Version = original.Version + 1
	p.StockList = append([]string(nil), p.StockList...)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

// StockItemStore implementation -----------------------------------------------

func (s *Store) CreateStockItem(_ context.Context, item product.StockItem) (product.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = s.nextIDLocked()
	} else if _, exists := s.stockItems[item.ID]; exists {
		return product.StockItem{}, fmt.Errorf("stock item %s already exists", item.ID)
	}
	if _, ok := s.products[item.ProductID]; !ok {
		return product.StockItem{}, fmt.Errorf("product %s: %w", item.ProductID, storage.ErrNotFound)
	}
	if item.State == "" {
		item.State = product.ItemAvailable
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	s.stockItems[item.ID] = item
	return item, nil
}

func (s *Store) GetStockItem(_ context.Context, id string) (product.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.stockItems[id]
	if !ok {
		return product.StockItem{}, fmt.Errorf("stock item %s: %w", id, storage.ErrNotFound)
	}
	return item, nil
}

func (s *Store) DeleteStockItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stockItems[id]; !ok {
		return fmt.Errorf("stock item %s: %w", id, storage.ErrNotFound)
	}
	delete(s.stockItems, id)
	return nil
}

func (s *Store) ListStockItems(_ context.Context, productID string) ([]product.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.StockItem, 0)
	for _, item := range s.stockItems {
		if productID == "" || item.ProductID == productID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (s *Store) CountStockItems(_ context.Context, productID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.stockItems {
		if item.ProductID == productID {
			count++
		}
	}
	return count, nil
}

// Helpers ---------------------------------------------------------------------

func cloneProduct(p product.Product) product.Product {
	p.StockList = append([]string(nil), p.StockList...)
	if p.ExpiresAt != nil {
		exp := *p.ExpiresAt
		p.ExpiresAt = &exp
	}
	return p
}
