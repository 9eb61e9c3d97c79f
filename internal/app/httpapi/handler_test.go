package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	app "github.com/revendify/backoffice/internal/app"
	"github.com/revendify/backoffice/internal/app/domain/commission"
	"github.com/revendify/backoffice/internal/app/domain/user"
	walletdom "github.com/revendify/backoffice/internal/app/domain/wallet"
	"github.com/revendify/backoffice/internal/app/storage/memory"
)

type apiFixture struct {
	server   *httptest.Server
	provider user.User
}

func newAPIFixture(t *testing.T, providerBalance string) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	admin, err := store.CreateUser(ctx, user.User{Name: "root", Role: user.RoleAdministrator})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	provider, err := store.CreateUser(ctx, user.User{Name: "acme", Role: user.RoleProvider})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if _, err := store.CreateWallet(ctx, walletdom.Wallet{OwnerID: admin.ID}); err != nil {
		t.Fatalf("create admin wallet: %v", err)
	}
	if _, err := store.CreateWallet(ctx, walletdom.Wallet{
		OwnerID: provider.ID,
		Balance: decimal.RequireFromString(providerBalance),
	}); err != nil {
		t.Fatalf("create provider wallet: %v", err)
	}
	if _, err := store.CreateCommissionConfig(ctx, commission.Config{
		PublicationFee: decimal.RequireFromString("1.35"),
	}); err != nil {
		t.Fatalf("create commission config: %v", err)
	}

	application := app.New(app.Stores{
		Users:      store,
		Wallets:    store,
		Commission: store,
		Products:   store,
		StockItems: store,
	}, nil)

	server := httptest.NewServer(NewHandler(application, nil, Options{}))
	t.Cleanup(server.Close)

	return &apiFixture{server: server, provider: provider}
}

func (f *apiFixture) do(t *testing.T, method, path string, caller string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if caller != "" {
		req.Header.Set("X-Caller-ID", caller)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPublishFlow(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{
		"name":                "netflix premium",
		"usage_duration_days": 30,
		"renewable":           true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product: status %d", resp.StatusCode)
	}
	var created productPayload
	decodeBody(t, resp, &created)
	if created.State != "draft" || created.Status.Code != "draft" {
		t.Fatalf("created product: state=%s status=%s", created.State, created.Status.Code)
	}

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/publish", created.ID), f.provider.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: status %d", resp.StatusCode)
	}
	var published productPayload
	decodeBody(t, resp, &published)
	if published.State != "published" {
		t.Fatalf("published state: %s", published.State)
	}
	if published.ExpiresAt == nil {
		t.Fatalf("published product has no expiry")
	}
	if published.Status.Code != "vigente" {
		t.Fatalf("published status: %s", published.Status.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/wallets/"+f.provider.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get wallet: status %d", resp.StatusCode)
	}
	var w walletPayload
	decodeBody(t, resp, &w)
	if !w.Balance.Equal(decimal.RequireFromString("98.65")) {
		t.Fatalf("provider balance: got %s", w.Balance)
	}
}

func TestPublish_InsufficientFundsStatus(t *testing.T) {
	f := newAPIFixture(t, "1.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{"name": "hbo"})
	var created productPayload
	decodeBody(t, resp, &created)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/publish", created.ID), f.provider.ID, nil)
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status: got %d, want 402", resp.StatusCode)
	}
	var body struct {
		Required  decimal.Decimal `json:"required"`
		Available decimal.Decimal `json:"available"`
	}
	decodeBody(t, resp, &body)
	if !body.Required.Equal(decimal.RequireFromString("1.35")) {
		t.Fatalf("required: got %s", body.Required)
	}
	if !body.Available.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("available: got %s", body.Available)
	}
}

func TestCallerIdentityRequired(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/products"},
		{http.MethodPost, "/api/v1/products/1/publish"},
		{http.MethodPost, "/api/v1/products/1/renew"},
		{http.MethodGet, "/api/v1/balance-check"},
		{http.MethodPost, "/api/v1/stock-resync"},
	} {
		resp := f.do(t, tc.method, tc.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: status %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestPublish_WrongOwnerForbidden(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{"name": "spotify"})
	var created productPayload
	decodeBody(t, resp, &created)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/publish", created.ID), "intruder", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", resp.StatusCode)
	}
}

func TestPublish_DoubleIsConflict(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{"name": "crunchyroll"})
	var created productPayload
	decodeBody(t, resp, &created)

	path := fmt.Sprintf("/api/v1/products/%s/publish", created.ID)
	if resp := f.do(t, http.MethodPost, path, f.provider.ID, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first publish: status %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, path, f.provider.ID, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second publish: status %d, want 409", resp.StatusCode)
	}
}

func TestStockItemEndpoints(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{"name": "disney"})
	var created productPayload
	decodeBody(t, resp, &created)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/stock-items", created.ID), f.provider.ID, map[string]any{
		"username": "acct-1",
		"secret":   "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add stock item: status %d", resp.StatusCode)
	}
	var item struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &item)

	resp = f.do(t, http.MethodGet, "/api/v1/products/"+created.ID, "", nil)
	var reloaded productPayload
	decodeBody(t, resp, &reloaded)
	if reloaded.StockCount != 1 || len(reloaded.StockList) != 1 {
		t.Fatalf("stock after add: count=%d list=%v", reloaded.StockCount, reloaded.StockList)
	}

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/products/%s/stock-items/%s", created.ID, item.ID), f.provider.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove stock item: status %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/products/"+created.ID, "", nil)
	decodeBody(t, resp, &reloaded)
	if reloaded.StockCount != 0 {
		t.Fatalf("stock after remove: count=%d", reloaded.StockCount)
	}
}

func TestBalanceCheckEndpoint(t *testing.T) {
	f := newAPIFixture(t, "0.50")

	resp := f.do(t, http.MethodGet, "/api/v1/balance-check", f.provider.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var check struct {
		Sufficient         bool            `json:"sufficient"`
		CurrentBalance     decimal.Decimal `json:"current_balance"`
		RequiredCommission decimal.Decimal `json:"required_commission"`
	}
	decodeBody(t, resp, &check)
	if check.Sufficient {
		t.Fatalf("expected insufficient")
	}
	if !check.RequiredCommission.Equal(decimal.RequireFromString("1.35")) {
		t.Fatalf("commission: got %s", check.RequiredCommission)
	}
}

func TestDepositAndCommissionEndpoints(t *testing.T) {
	f := newAPIFixture(t, "0.00")

	resp := f.do(t, http.MethodPost, "/api/v1/wallets/"+f.provider.ID+"/deposits", f.provider.ID, map[string]any{
		"amount": "20.00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deposit: status %d", resp.StatusCode)
	}
	var w walletPayload
	decodeBody(t, resp, &w)
	if !w.Balance.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("balance: got %s", w.Balance)
	}

	resp = f.do(t, http.MethodPut, "/api/v1/commission", f.provider.ID, map[string]any{
		"publication_fee": "2.50",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set commission: status %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/commission", "", nil)
	var current struct {
		PublicationFee decimal.Decimal `json:"publication_fee"`
		Fallback       bool            `json:"fallback"`
	}
	decodeBody(t, resp, &current)
	if current.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if !current.PublicationFee.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("fee: got %s", current.PublicationFee)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	f := newAPIFixture(t, "100.00")

	resp := f.do(t, http.MethodPost, "/api/v1/products", f.provider.ID, map[string]any{
		"name":    "netflix",
		"mystery": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, "0.00")

	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}
