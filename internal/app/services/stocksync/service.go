// Package stocksync keeps each product's denormalized stock count and list
// consistent with its stock items.
package stocksync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revendify/backoffice/internal/app/domain/product"
	"github.com/revendify/backoffice/internal/app/metrics"
	"github.com/revendify/backoffice/internal/app/storage"
	"github.com/revendify/backoffice/pkg/logger"
)

// maxVersionRetries bounds the optimistic retry loop when concurrent stock
// mutations race on one product.
const maxVersionRetries = 5

// Service maintains Product.StockCount/StockList alongside stock item
// mutations and offers a repair pass that recomputes them from the items.
type Service struct {
	products storage.ProductStore
	items    storage.StockItemStore
	log      *logger.Logger
}

// New constructs a stock synchronization service.
func New(products storage.ProductStore, items storage.StockItemStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stocksync")
	}
	return &Service{products: products, items: items, log: log}
}

// AddStockItem inserts a stock item and synchronizes the product counter.
func (s *Service) AddStockItem(ctx context.Context, item product.StockItem) (product.StockItem, error) {
	if strings.TrimSpace(item.ProductID) == "" {
		return product.StockItem{}, fmt.Errorf("product_id is required")
	}
	created, err := s.items.CreateStockItem(ctx, item)
	if err != nil {
		return product.StockItem{}, err
	}
	if err := s.OnStockItemCreated(ctx, created.ProductID, created.ID); err != nil {
		return product.StockItem{}, err
	}
	return created, nil
}

// RemoveStockItem deletes a stock item and synchronizes the product counter.
func (s *Service) RemoveStockItem(ctx context.Context, itemID string) error {
	item, err := s.items.GetStockItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.items.DeleteStockItem(ctx, itemID); err != nil {
		return err
	}
	return s.OnStockItemDeleted(ctx, item.ProductID, itemID)
}

// OnStockItemCreated appends the item to the product's stock list and updates
// the count. The item row is expected to exist already.
func (s *Service) OnStockItemCreated(ctx context.Context, productID, stockItemID string) error {
	err := s.mutate(ctx, productID, func(p *product.Product) bool {
		for _, id := range p.StockList {
			if id == stockItemID {
				return false
			}
		}
		p.StockList = append(p.StockList, stockItemID)
		p.StockCount = len(p.StockList)
		return true
	})
	if err != nil {
		return err
	}
	metrics.ObserveStockSync("created")
	return nil
}

// OnStockItemDeleted removes the item from the product's stock list and
// updates the count. The item row is expected to be gone already.
func (s *Service) OnStockItemDeleted(ctx context.Context, productID, stockItemID string) error {
	err := s.mutate(ctx, productID, func(p *product.Product) bool {
		kept := p.StockList[:0]
		removed := false
		for _, id := range p.StockList {
			if id == stockItemID {
				removed = true
				continue
			}
			kept = append(kept, id)
		}
		if !removed {
			return false
		}
		p.StockList = kept
		p.StockCount = len(p.StockList)
		return true
	})
	if err != nil {
		return err
	}
	metrics.ObserveStockSync("deleted")
	return nil
}

// Resync recomputes the stock list and count of every product of the owner
// directly from the stock items. This is the repair pass for counters left
// stale by a crash between the item write and the product write.
func (s *Service) Resync(ctx context.Context, ownerID string) error {
	products, err := s.products.ListProducts(ctx, ownerID)
	if err != nil {
		return err
	}

	for _, p := range products {
		items, err := s.items.ListStockItems(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list stock items for product %s: %w", p.ID, err)
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			list = append(list, item.ID)
		}

		err = s.mutate(ctx, p.ID, func(current *product.Product) bool {
			if equalIDs(current.StockList, list) && current.StockCount == len(list) {
				return false
			}
			current.StockList = list
			current.StockCount = len(list)
			return true
		})
		if err != nil {
			return fmt.Errorf("resync product %s: %w", p.ID, err)
		}
	}

	metrics.ObserveResyncRun()
	s.log.WithField("owner_id", ownerID).WithField("products", len(products)).Info("stock resync completed")
	return nil
}

// ResyncAll runs the repair pass for every product owner.
func (s *Service) ResyncAll(ctx context.Context) error {
	owners, err := s.products.ListOwners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		if err := s.Resync(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

// mutate loads the product, applies fn and persists under the version guard,
// retrying a bounded number of times on conflict. fn returns false to report
// a no-op.
func (s *Service) mutate(ctx context.Context, productID string, fn func(*product.Product) bool) error {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		p, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !fn(&p) {
			return nil
		}
		if _, err := s.products.UpdateProduct(ctx, p); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("product %s: %w after %d attempts", productID, storage.ErrVersionConflict, maxVersionRetries)
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
