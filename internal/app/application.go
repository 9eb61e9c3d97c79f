// Package app ties the back-office services together.
package app

import (
	commissionsvc "github.com/revendify/backoffice/internal/app/services/commission"
	publicationsvc "github.com/revendify/backoffice/internal/app/services/publication"
	stocksyncsvc "github.com/revendify/backoffice/internal/app/services/stocksync"
	walletsvc "github.com/revendify/backoffice/internal/app/services/wallet"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/internal/app/storage/memory"
	"github.com/revendify/backoffice/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation.
type Stores struct {
	Users      storage.UserStore
	Wallets    storage.WalletStore
	Commission storage.CommissionStore
	Products   storage.ProductStore
	StockItems storage.StockItemStore
}

// Application bundles the domain services.
type Application struct {
	log *logger.Logger

	Users       storage.UserStore
	Wallets     *walletsvc.Service
	Commission  *commissionsvc.Service
	Publication *publicationsvc.Service
	StockSync   *stocksyncsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Wallets == nil {
		stores.Wallets = mem
	}
	if stores.Commission == nil {
		stores.Commission = mem
	}
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.StockItems == nil {
		stores.StockItems = mem
	}

	wallets := walletsvc.New(stores.Wallets, log.WithField("service", "wallet"))
	commission := commissionsvc.New(stores.Commission, log.WithField("service", "commission"))
	publication := publicationsvc.New(stores.Products, stores.Users, wallets, commission, log.WithField("service", "publication"))
	stockSync := stocksyncsvc.New(stores.Products, stores.StockItems, log.WithField("service", "stocksync"))

	return &Application{
		log:         log,
		Users:       stores.Users,
		Wallets:     wallets,
		Commission:  commission,
		Publication: publication,
		StockSync:   stockSync,
	}
}
