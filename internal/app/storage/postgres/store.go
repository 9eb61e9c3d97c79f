// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/revendify/backoffice/internal/app/domain/commission"
	"github.com/revendify/backoffice/internal/app/domain/product"
	"github.com/revendify/backoffice/internal/app/domain/user"
	"github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var (
	_ storage.UserStore       = (*Store)(nil)
	_ storage.WalletStore     = (*Store)(nil)
	_ storage.CommissionStore = (*Store)(nil)
	_ storage.ProductStore    = (*Store)(nil)
	_ storage.StockItemStore  = (*Store)(nil)
)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return err
}

// --- UserStore --------------------------------------------------------------

type userRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r userRow) toDomain() user.User {
	return user.User{ID: r.ID, Name: r.Name, Role: user.Role(r.Role), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, role, created_at, updated_at FROM users WHERE id = $1
	`, id)
	if err != nil {
		return user.User{}, notFound(err, "user", id)
	}
	return row.toDomain(), nil
}

func (s *Store) FirstAdministrator(ctx context.Context) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, role, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY created_at
		LIMIT 1
	`, user.RoleAdministrator)
	if err != nil {
		return user.User{}, notFound(err, "administrator", "")
	}
	return row.toDomain(), nil
}

// --- WalletStore ------------------------------------------------------------

type walletRow struct {
	ID        string          `db:"id"`
	OwnerID   string          `db:"owner_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r walletRow) toDomain() wallet.Wallet {
	return wallet.Wallet{ID: r.ID, OwnerID: r.OwnerID, Balance: r.Balance, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (s *Store) CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Balance.IsNegative() {
		return wallet.Wallet{}, fmt.Errorf("wallet balance cannot start negative")
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, w.ID, w.OwnerID, w.Balance, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *Store) GetWallet(ctx context.Context, id string) (wallet.Wallet, error) {
	var row walletRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE id = $1
	`, id)
	if err != nil {
		return wallet.Wallet{}, notFound(err, "wallet", id)
	}
	return row.toDomain(), nil
}

func (s *Store) GetWalletByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	var row walletRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return wallet.Wallet{}, notFound(err, "wallet for owner", ownerID)
	}
	return row.toDomain(), nil
}

// AdjustBalance applies the delta with a conditional update so two concurrent
// debits can never drive the balance negative or lose a write.
func (s *Store) AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (wallet.Wallet, error) {
	var row walletRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = $3
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING id, owner_id, balance, created_at, updated_at
	`, walletID, delta, time.Now().UTC())
	if err == nil {
		return row.toDomain(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return wallet.Wallet{}, err
	}

	// Guard rejected or wallet missing; disambiguate for the caller.
	if _, getErr := s.GetWallet(ctx, walletID); getErr != nil {
		return wallet.Wallet{}, getErr
	}
	return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", walletID, storage.ErrInsufficientBalance)
}

type transferRow struct {
	ID            string          `db:"id"`
	Reference     string          `db:"reference"`
	ProductID     string          `db:"product_id"`
	Kind          string          `db:"kind"`
	FromWalletID  string          `db:"from_wallet_id"`
	ToWalletID    string          `db:"to_wallet_id"`
	Amount        decimal.Decimal `db:"amount"`
	Status        string          `db:"status"`
	FailureReason string          `db:"failure_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r transferRow) toDomain() wallet.Transfer {
	return wallet.Transfer{
		ID:            r.ID,
		Reference:     r.Reference,
		ProductID:     r.ProductID,
		Kind:          wallet.TransferKind(r.Kind),
		FromWalletID:  r.FromWalletID,
		ToWalletID:    r.ToWalletID,
		Amount:        r.Amount,
		Status:        wallet.TransferStatus(r.Status),
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *Store) CreateTransfer(ctx context.Context, t wallet.Transfer) (wallet.Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_transfers
			(id, reference, product_id, kind, from_wallet_id, to_wallet_id, amount, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.Reference, t.ProductID, t.Kind, t.FromWalletID, t.ToWalletID, t.Amount, t.Status, t.FailureReason, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return wallet.Transfer{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransfer(ctx context.Context, t wallet.Transfer) (wallet.Transfer, error) {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE wallet_transfers
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1
	`, t.ID, t.Status, t.FailureReason, t.UpdatedAt)
	if err != nil {
		return wallet.Transfer{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.Transfer{}, fmt.Errorf("transfer %s: %w", t.ID, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTransferByReference(ctx context.Context, reference string) (wallet.Transfer, error) {
	var row transferRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, reference, product_id, kind, from_wallet_id, to_wallet_id,
		       amount, status, failure_reason, created_at, updated_at
		FROM wallet_transfers
		WHERE reference = $1
	`, reference)
	if err != nil {
		return wallet.Transfer{}, notFound(err, "transfer reference", reference)
	}
	return row.toDomain(), nil
}

func (s *Store) ListTransfers(ctx context.Context, walletID string) ([]wallet.Transfer, error) {
	var rows []transferRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, reference, product_id, kind, from_wallet_id, to_wallet_id,
		       amount, status, failure_reason, created_at, updated_at
		FROM wallet_transfers
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at
	`, walletID)
	if err != nil {
		return nil, err
	}
	result := make([]wallet.Transfer, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

// --- CommissionStore --------------------------------------------------------

type commissionRow struct {
	ID             string          `db:"id"`
	PublicationFee decimal.Decimal `db:"publication_fee"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (s *Store) CreateCommissionConfig(ctx context.Context, cfg commission.Config) (commission.Config, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_configs (id, publication_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, cfg.ID, cfg.PublicationFee, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return commission.Config{}, err
	}
	return cfg, nil
}

func (s *Store) CurrentCommissionConfig(ctx context.Context) (commission.Config, error) {
	var row commissionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, publication_fee, created_at, updated_at
		FROM commission_configs
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	if err != nil {
		return commission.Config{}, notFound(err, "commission config", "")
	}
	return commission.Config{ID: row.ID, PublicationFee: row.PublicationFee, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

// --- ProductStore -----------------------------------------------------------

type productRow struct {
	ID                string         `db:"id"`
	OwnerID           string         `db:"owner_id"`
	Name              string         `db:"name"`
	State             string         `db:"state"`
	ExpiresAt         *time.Time     `db:"expires_at"`
	UsageDurationDays int            `db:"usage_duration_days"`
	Renewable         bool           `db:"renewable"`
	StockCount        int            `db:"stock_count"`
	StockList         pq.StringArray `db:"stock_list"`
	Version           int64          `db:"version"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r productRow) toDomain() product.Product {
	return product.Product{
		ID:                r.ID,
		OwnerID:           r.OwnerID,
		Name:              r.Name,
		State:             product.State(r.State),
		ExpiresAt:         r.ExpiresAt,
		UsageDurationDays: r.UsageDurationDays,
		Renewable:         r.Renewable,
		StockCount:        r.StockCount,
		StockList:         append([]string(nil), r.StockList...),
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

const productColumns = `id, owner_id, name, state, expires_at, usage_duration_days,
	renewable, stock_count, stock_list, version, created_at, updated_at`

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products
			(id, owner_id, name, state, expires_at, usage_duration_days,
			 renewable, stock_count, stock_list, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.OwnerID, p.Name, p.State, p.ExpiresAt, p.UsageDurationDays,
		p.Renewable, p.StockCount, pq.StringArray(p.StockList), p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+productColumns+` FROM products WHERE id = $1
	`, id)
	if err != nil {
		return product.Product{}, notFound(err, "product", id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at`
	args := []any{}
	if ownerID != "" {
		query = `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1 ORDER BY created_at`
		args = append(args, ownerID)
	}

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]product.Product, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.SelectContext(ctx, &owners, `
		SELECT DISTINCT owner_id FROM products ORDER BY owner_id
	`)
	if err != nil {
		return nil, err
	}
	return owners, nil
}

// UpdateProduct writes the product guarded by its version so concurrent
// publish/renew/stock-sync calls on one product cannot lose updates.
func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, state = $3, expires_at = $4, usage_duration_days = $5,
		    renewable = $6, stock_count = $7, stock_list = $8,
		    version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $10
	`, p.ID, p.Name, p.State, p.ExpiresAt, p.UsageDurationDays,
		p.Renewable, p.StockCount, pq.StringArray(p.StockList), time.Now().UTC(), p.Version)
	if err != nil {
		return product.Product{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, getErr := s.GetProduct(ctx, p.ID); getErr != nil {
			return product.Product{}, getErr
		}
		return product.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrVersionConflict)
	}
	return s.GetProduct(ctx, p.ID)
}

// --- StockItemStore ---------------------------------------------------------

type stockItemRow struct {
	ID        string    `db:"id"`
	ProductID string    `db:"product_id"`
	State     string    `db:"state"`
	Published bool      `db:"published"`
	Username  string    `db:"username"`
	Secret    string    `db:"secret"`
	Profile   string    `db:"profile"`
	PIN       string    `db:"pin"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r stockItemRow) toDomain() product.StockItem {
	return product.StockItem{
		ID:        r.ID,
		ProductID: r.ProductID,
		State:     product.ItemState(r.State),
		Published: r.Published,
		Username:  r.Username,
		Secret:    r.Secret,
		Profile:   r.Profile,
		PIN:       r.PIN,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) CreateStockItem(ctx context.Context, item product.StockItem) (product.StockItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.State == "" {
		item.State = product.ItemAvailable
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_items
			(id, product_id, state, published, username, secret, profile, pin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.ProductID, item.State, item.Published,
		item.Username, item.Secret, item.Profile, item.PIN, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return product.StockItem{}, err
	}
	return item, nil
}

func (s *Store) GetStockItem(ctx context.Context, id string) (product.StockItem, error) {
	var row stockItemRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, product_id, state, published, username, secret, profile, pin, created_at, updated_at
		FROM stock_items
		WHERE id = $1
	`, id)
	if err != nil {
		return product.StockItem{}, notFound(err, "stock item", id)
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteStockItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("stock item %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListStockItems(ctx context.Context, productID string) ([]product.StockItem, error) {
	var rows []stockItemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, product_id, state, published, username, secret, profile, pin, created_at, updated_at
		FROM stock_items
		WHERE product_id = $1
		ORDER BY created_at
	`, productID)
	if err != nil {
		return nil, err
	}
	result := make([]product.StockItem, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) CountStockItems(ctx context.Context, productID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM stock_items WHERE product_id = $1
	`, productID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
