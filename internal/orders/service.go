// Package orders handles the order lifecycle: open from a cart, settle
// exactly once, cancel while still open. Settlement depletes stock.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cents of slack between payments and total.
var paymentTolerance = decimal.New(1, -2)

type Service struct {
	db      *gorm.DB
	ledger  *stock.Ledger
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *gorm.DB, ledger *stock.Ledger, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{db: db, ledger: ledger, log: log.Named("orders"), metrics: m, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ItemInput struct {
	ProductID uint
	Quantity  float64
	Notes     string
}

type CreateInput struct {
	CustomerID *uint
	TableLabel string
	Items      []ItemInput
}

type PaymentInput struct {
	Method models.PaymentMethod
	Amount decimal.Decimal
}

type ListFilter struct {
	Status models.OrderStatus
	Limit  int
	Offset int
}

// Create opens an order. Prices are taken from the catalog at this moment.
func (s *Service) Create(ctx context.Context, tenant string, actor audit.Actor, in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("an order needs at least one item")
	}
	for _, it := range in.Items {
		if !(it.Quantity > 0) || math.IsInf(it.Quantity, 0) {
			return nil, apperr.Validation("item quantity must be > 0")
		}
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CustomerID != nil {
			var n int64
			if err := tx.Model(&models.Customer{}).
				Where("tenant_id = ? AND id = ?", tenant, *in.CustomerID).
				Count(&n).Error; err != nil {
				return fmt.Errorf("check customer: %w", err)
			}
			if n == 0 {
				return apperr.NotFound("customer", *in.CustomerID)
			}
		}

		ids := make([]uint, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		var products []models.Product
		if err := tx.Where("tenant_id = ? AND id IN ?", tenant, ids).Find(&products).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return apperr.NotFound("product", it.ProductID)
			}
			if !p.IsSellable() {
				return apperr.Validation("product %d (%s) has no sale price", p.ID, p.Name)
			}
			item := models.OrderItem{
				TenantID:  tenant,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: *p.SalePrice,
				Notes:     strings.TrimSpace(it.Notes),
			}
			total = total.Add(item.Subtotal())
			items = append(items, item)
		}

		order = models.Order{
			TenantID:   tenant,
			CustomerID: in.CustomerID,
			TableLabel: strings.TrimSpace(in.TableLabel),
			Status:     models.OrderStatusOpen,
			Total:      total.Round(2),
			OpenedAt:   s.now().UTC(),
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("order opened with %d items, total %s", len(items), order.Total.StringFixed(2)),
			After:       in,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenant, order.ID)
}

// Pay settles an open order: records the payments, stamps closed_at and
// depletes stock, all in one transaction. A second settlement is a conflict.
func (s *Service) Pay(ctx context.Context, tenant string, actor audit.Actor, orderID uint, payments []PaymentInput) (*models.Order, error) {
	if len(payments) == 0 {
		return nil, apperr.Validation("at least one payment is required")
	}
	paid := decimal.Zero
	for _, p := range payments {
		if !p.Method.Valid() {
			return nil, apperr.Validation("invalid payment method %q", p.Method)
		}
		if !p.Amount.IsPositive() {
			return nil, apperr.Validation("payment amounts must be > 0")
		}
		paid = paid.Add(p.Amount)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, tenant, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusOpen {
			return apperr.Conflict("order %d is %s", order.ID, order.Status)
		}
		if paid.Sub(order.Total).Abs().GreaterThan(paymentTolerance) {
			return apperr.Validation("payments total %s but the order total is %s",
				paid.StringFixed(2), order.Total.StringFixed(2))
		}

		now := s.now().UTC()
		// Guarded on status so two concurrent settlements cannot both win.
		res := tx.Model(&models.Order{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenant, order.ID, models.OrderStatusOpen).
			Updates(map[string]any{"status": models.OrderStatusPaid, "closed_at": now, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("settle order: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("order %d was settled concurrently", order.ID)
		}

		rows := make([]models.Payment, 0, len(payments))
		for _, p := range payments {
			rows = append(rows, models.Payment{
				TenantID:  tenant,
				OrderID:   order.ID,
				Method:    p.Method,
				Amount:    p.Amount.Round(2),
				Status:    models.PaymentStatusCompleted,
				CreatedAt: now,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return fmt.Errorf("create payments: %w", err)
		}

		if err := s.deplete(tx, tenant, actor, order); err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionSettle,
			Description: fmt.Sprintf("order settled, %s paid in %d payments", paid.StringFixed(2), len(rows)),
			After:       payments,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersPaid.Inc()
	return s.Get(ctx, tenant, orderID)
}

// deplete writes the outbound moves of a settled order. Dishes consume
// their recipe scaled by quantity/yield; stockable products consume
// themselves.
func (s *Service) deplete(tx *gorm.DB, tenant string, actor audit.Actor, order *models.Order) error {
	for _, item := range order.Items {
		p := item.Product
		if p.IsStockable() {
			_, err := s.ledger.RecordMoveTx(tx, tenant, actor, stock.MoveInput{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				Type:      models.StockMoveOut,
				Reason:    fmt.Sprintf("sale of %s (order %d)", p.Name, order.ID),
				OrderID:   &order.ID,
			})
			if err != nil {
				return fmt.Errorf("deplete %s: %w", p.Name, err)
			}
			continue
		}

		var recipe models.Recipe
		err := tx.Preload("Items").Where("tenant_id = ? AND product_id = ?", tenant, p.ID).First(&recipe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("dish sold without recipe, no stock depleted",
				zap.String("tenant", tenant),
				zap.Uint("order_id", order.ID),
				zap.Uint("product_id", p.ID),
				zap.String("product", p.Name),
			)
			continue
		}
		if err != nil {
			return fmt.Errorf("load recipe of %s: %w", p.Name, err)
		}
		if recipe.YieldQty <= 0 {
			return apperr.Validation("recipe of %s has a non-positive yield", p.Name)
		}

		for _, ri := range recipe.Items {
			qty := item.Quantity * ri.Quantity / recipe.YieldQty
			_, err := s.ledger.RecordMoveTx(tx, tenant, actor, stock.MoveInput{
				ProductID: ri.IngredientID,
				Quantity:  qty,
				Type:      models.StockMoveOut,
				Reason:    fmt.Sprintf("sale of %s (order %d)", p.Name, order.ID),
				OrderID:   &order.ID,
			})
			if err != nil {
				return fmt.Errorf("deplete recipe of %s: %w", p.Name, err)
			}
		}
	}
	return nil
}

// Cancel closes an open order without payment.
func (s *Service) Cancel(ctx context.Context, tenant string, actor audit.Actor, orderID uint) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, tenant, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusOpen {
			return apperr.Conflict("order %d is %s", order.ID, order.Status)
		}

		now := s.now().UTC()
		res := tx.Model(&models.Order{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenant, order.ID, models.OrderStatusOpen).
			Updates(map[string]any{"status": models.OrderStatusCanceled, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("cancel order: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("order %d changed concurrently", order.ID)
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCancel,
			Description: "order canceled",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenant, orderID)
}

func loadOrder(db *gorm.DB, tenant string, id uint) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ? AND id = ?", tenant, id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

func (s *Service) Get(ctx context.Context, tenant string, id uint) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), tenant, id)
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, tenant string, f ListFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ?", tenant)
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, apperr.Validation("invalid status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []models.Order
	if err := q.Order("opened_at DESC").Order("id DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
