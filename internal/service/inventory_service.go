package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"
	"go-pos-checkout/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryService interface {
	CreateProduct(ctx context.Context, req *model.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product) (*model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

type inventoryService struct {
	store repository.Store
	feed  feed.Feed
	now   func() time.Time
	log   *zap.Logger
}

func NewInventoryService(store repository.Store, f feed.Feed, clock func() time.Time, log *zap.Logger) InventoryService {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &inventoryService{store: store, feed: f, now: clock, log: log.Named("inventory")}
}

func (s *inventoryService) CreateProduct(ctx context.Context, req *model.Product) error {
	cashier, ok := CashierFromContext(ctx)
	if !ok {
		return ErrMissingCashier
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	existing, err := s.store.Products().FindBySKU(ctx, req.SKU)
	if err == nil && existing.ID != uuid.Nil {
		return ErrSKUExists
	}

	req.TouchedBy(cashier.ID)
	if err := s.store.Products().Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrSKUExists
		}
		return err
	}

	s.publish(ctx, feed.Event{
		Type:      feed.StockUpdate,
		Action:    "product_created",
		Timestamp: s.now(),
		Data: map[string]interface{}{
			"id":    req.ID.String(),
			"sku":   req.SKU,
			"name":  req.Name,
			"stock": req.Stock,
			"price": req.Price,
		},
		Message: fmt.Sprintf("%s created product '%s'", cashier.Name, req.Name),
	})
	return nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product) (*model.Product, error) {
	cashier, ok := CashierFromContext(ctx)
	if !ok {
		return nil, ErrMissingCashier
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	var updated model.Product
	var oldStock int
	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		existing, err := tx.Products().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return &ProductNotFoundError{ProductID: id.String()}
		}
		if err != nil {
			return err
		}
		if other, err := tx.Products().FindBySKU(ctx, req.SKU); err == nil && other.ID != existing.ID {
			return ErrSKUExists
		}

		oldStock = existing.Stock
		existing.Name = req.Name
		existing.SKU = req.SKU
		existing.Category = req.Category
		existing.ImageURL = req.ImageURL
		existing.Stock = req.Stock
		existing.Unit = req.Unit
		existing.Price = req.Price
		existing.TouchedBy(cashier.ID)

		if err := tx.Products().Update(ctx, existing); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrSKUExists
			}
			return err
		}
		updated = *existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, feed.Event{
		Type:      feed.StockUpdate,
		Action:    "product_updated",
		Timestamp: s.now(),
		Data: map[string]interface{}{
			"id":        updated.ID.String(),
			"sku":       updated.SKU,
			"name":      updated.Name,
			"old_stock": oldStock,
			"new_stock": updated.Stock,
			"price":     updated.Price,
		},
		Message: fmt.Sprintf("%s updated product '%s'", cashier.Name, updated.Name),
	})
	return &updated, nil
}

func (s *inventoryService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.store.Products().FindAll(ctx)
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ProductNotFoundError{ProductID: id.String()}
	}
	return p, err
}

func (s *inventoryService) publish(ctx context.Context, ev feed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.log.Warn("publish stock update", zap.String("action", ev.Action), zap.Error(err))
	}
}
