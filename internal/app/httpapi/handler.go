// Package httpapi exposes the back-office engine as a small REST surface.
// Session handling lives in front of this service; the caller id arrives in
// a trusted header.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	app "github.com/revendify/backoffice/internal/app"
	"github.com/revendify/backoffice/internal/app/domain/product"
	"github.com/revendify/backoffice/internal/app/metrics"
	"github.com/revendify/backoffice/pkg/logger"
)

// Options tunes the HTTP surface.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the REST API router.
func NewHandler(application *app.Application, log *logger.Logger, opts Options) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 50
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 100
	}

	h := &handler{app: application, log: log}

	r := chi.NewRouter()
	r.Use(requestLogger(log))
	r.Use(metrics.Instrument)
	r.Use(rateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/products", h.createProduct)
		r.Get("/products", h.listProducts)
		r.Get("/products/{productID}", h.getProduct)
		r.Post("/products/{productID}/publish", h.publishProduct)
		r.Post("/products/{productID}/renew", h.renewProduct)
		r.Post("/products/{productID}/stock-items", h.addStockItem)
		r.Delete("/products/{productID}/stock-items/{itemID}", h.removeStockItem)

		r.Get("/balance-check", h.balanceCheck)
		r.Get("/wallets/{ownerID}", h.getWallet)
		r.Post("/wallets/{ownerID}/deposits", h.deposit)

		r.Get("/commission", h.getCommission)
		r.Put("/commission", h.setCommission)

		r.Post("/stock-resync", h.stockResync)
	})

	return r
}

// --- payloads ---------------------------------------------------------------

type productPayload struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	Name              string          `json:"name"`
	State             product.State   `json:"state"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	UsageDurationDays int             `json:"usage_duration_days"`
	Renewable         bool            `json:"renewable"`
	StockCount        int             `json:"stock_count"`
	StockList         []string        `json:"stock_list"`
	Status            product.Status  `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toProductPayload(p product.Product, now time.Time) productPayload {
	return productPayload{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Name:              p.Name,
		State:             p.State,
		ExpiresAt:         p.ExpiresAt,
		UsageDurationDays: p.UsageDurationDays,
		Renewable:         p.Renewable,
		StockCount:        p.StockCount,
		StockList:         p.StockList,
		Status:            p.Lifecycle(now),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type walletPayload struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// --- product handlers -------------------------------------------------------

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing caller identity"))
		return
	}

	var payload struct {
		Name              string `json:"name"`
		UsageDurationDays int    `json:"usage_duration_days"`
		Renewable         bool   `json:"renewable"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Publication.CreateDraft(r.Context(), caller, payload.Name, payload.UsageDurationDays, payload.Renewable)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductPayload(p, time.Now()))
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = callerID(r)
	}

	products, err := h.app.Publication.List(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now()
	payloads := make([]productPayload, 0, len(products))
	for _, p := range products {
		payloads = append(payloads, toProductPayload(p, now))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Publication.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(p, time.Now()))
}

func (h *handler) publishProduct(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing caller identity"))
		return
	}

	p, err := h.app.Publication.Publish(r.Context(), chi.URLParam(r, "productID"), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(p, time.Now()))
}

func (h *handler) renewProduct(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing caller identity"))
		return
	}

	p, err := h.app.Publication.Renew(r.Context(), chi.URLParam(r, "productID"), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(p, time.Now()))
}

// --- stock handlers ---------------------------------------------------------

func (h *handler) addStockItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username  string `json:"username"`
		Secret    string `json:"secret"`
		Profile   string `json:"profile"`
		PIN       string `json:"pin"`
		Published bool   `json:"published"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.app.StockSync.AddStockItem(r.Context(), product.StockItem{
		ProductID: chi.URLParam(r, "productID"),
		Published: payload.Published,
		Username:  payload.Username,
		Secret:    payload.Secret,
		Profile:   payload.Profile,
		PIN:       payload.PIN,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         item.ID,
		"product_id": item.ProductID,
		"state":      item.State,
	})
}

func (h *handler) removeStockItem(w http.ResponseWriter, r *http.Request) {
	if err := h.app.StockSync.RemoveStockItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) stockResync(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing caller identity"))
		return
	}
	if err := h.app.StockSync.Resync(r.Context(), caller); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- wallet handlers --------------------------------------------------------

func (h *handler) balanceCheck(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing caller identity"))
		return
	}

	check, err := h.app.Publication.VerifyBalance(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *handler) getWallet(w http.ResponseWriter, r *http.Request) {
	wlt, err := h.app.Wallets.Balance(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletPayload{ID: wlt.ID, OwnerID: wlt.OwnerID, Balance: wlt.Balance, UpdatedAt: wlt.UpdatedAt})
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wlt, err := h.app.Wallets.Deposit(r.Context(), chi.URLParam(r, "ownerID"), payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, walletPayload{ID: wlt.ID, OwnerID: wlt.OwnerID, Balance: wlt.Balance, UpdatedAt: wlt.UpdatedAt})
}

// --- commission handlers ----------------------------------------------------

func (h *handler) getCommission(w http.ResponseWriter, r *http.Request) {
	fee, fallback := h.app.Commission.Preview(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"publication_fee": fee,
		"fallback":        fallback,
	})
}

func (h *handler) setCommission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PublicationFee decimal.Decimal `json:"publication_fee"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.app.Commission.Set(r.Context(), payload.PublicationFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":              cfg.ID,
		"publication_fee": cfg.PublicationFee,
		"updated_at":      cfg.UpdatedAt,
	})
}
