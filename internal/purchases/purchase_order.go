package purchases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Payables raised on receipt fall due this many days after the receipt.
const ReceiptTermDays = 30

type OrderItemInput struct {
	ProductID uint
	Quantity  float64
	UnitPrice decimal.Decimal
}

type OrderInput struct {
	SupplierID uint
	Notes      string
	Items      []OrderItemInput
}

type OrderFilter struct {
	Status     models.PurchaseOrderStatus
	SupplierID *uint
	Limit      int
	Offset     int
}

// Receipt is what receiving a purchase order produced.
type Receipt struct {
	Order   *models.PurchaseOrder
	Batches []models.StockBatch
	// Nil when every item was free of charge.
	Payable *models.Payable
}

func (s *Service) CreateOrder(ctx context.Context, tenant string, actor audit.Actor, in OrderInput) (*models.PurchaseOrder, error) {
	if in.SupplierID == 0 {
		return nil, apperr.Validation("supplier_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("a purchase order needs at least one item")
	}
	ids := make([]uint, 0, len(in.Items))
	for i, it := range in.Items {
		if !(it.Quantity > 0) || math.IsInf(it.Quantity, 0) {
			return nil, apperr.Validation("item %d: quantity must be > 0", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return nil, apperr.Validation("item %d: unit_price must be >= 0", i+1)
		}
		ids = append(ids, it.ProductID)
	}

	po := models.PurchaseOrder{
		TenantID:   tenant,
		SupplierID: in.SupplierID,
		Status:     models.PurchaseOrderDraft,
		Notes:      strings.TrimSpace(in.Notes),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := supplierExists(tx, tenant, in.SupplierID); err != nil {
			return err
		}

		var products []models.Product
		if err := tx.Where("tenant_id = ? AND id IN ?", tenant, ids).Find(&products).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return apperr.NotFound("product", id)
			}
			if !p.IsStockable() {
				return apperr.Validation("product %d (%s) is not stockable", p.ID, p.Name)
			}
		}

		if err := tx.Omit(clause.Associations).Create(&po).Error; err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}
		items := make([]models.PurchaseOrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, models.PurchaseOrderItem{
				TenantID:        tenant,
				PurchaseOrderID: po.ID,
				ProductID:       it.ProductID,
				Quantity:        it.Quantity,
				UnitPrice:       it.UnitPrice,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("create purchase order items: %w", err)
		}
		po.Items = items

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("purchase order #%d: %d items, %s", po.ID, len(items), po.Total().StringFixed(2)),
			After:       in,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, tenant, po.ID)
}

func loadOrder(db *gorm.DB, tenant string, id uint) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := db.Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Where("tenant_id = ? AND id = ?", tenant, id).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("purchase order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return &po, nil
}

func (s *Service) GetOrder(ctx context.Context, tenant string, id uint) (*models.PurchaseOrder, error) {
	return loadOrder(s.db.WithContext(ctx), tenant, id)
}

// ListOrders returns purchase orders newest first.
func (s *Service) ListOrders(ctx context.Context, tenant string, f OrderFilter) ([]models.PurchaseOrder, error) {
	switch f.Status {
	case "", models.PurchaseOrderDraft, models.PurchaseOrderApproved, models.PurchaseOrderReceived:
	default:
		return nil, apperr.Validation("invalid purchase order status %q", f.Status)
	}

	q := s.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Where("tenant_id = ?", tenant)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	var out []models.PurchaseOrder
	if err := q.Order("created_at DESC").Order("id DESC").Limit(f.Limit).Offset(max(f.Offset, 0)).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return out, nil
}

// Approve moves a draft order to approved.
func (s *Service) Approve(ctx context.Context, tenant string, actor audit.Actor, id uint) (*models.PurchaseOrder, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		po, err := loadOrder(tx, tenant, id)
		if err != nil {
			return err
		}
		if po.Status != models.PurchaseOrderDraft {
			return apperr.Conflict("purchase order %d is already %s", po.ID, po.Status)
		}

		now := s.now().UTC()
		res := tx.Model(&models.PurchaseOrder{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenant, po.ID, models.PurchaseOrderDraft).
			Updates(map[string]any{"status": models.PurchaseOrderApproved, "approved_at": now, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("approve purchase order: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("purchase order %d changed concurrently", po.ID)
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionApprove,
			Description: fmt.Sprintf("purchase order #%d approved", po.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, tenant, id)
}

// Receive books the goods of a draft or approved order. In one transaction
// every item becomes a stock batch and the order total becomes an open
// payable due ReceiptTermDays later. An order is received at most once.
func (s *Service) Receive(ctx context.Context, tenant string, actor audit.Actor, id uint) (*Receipt, error) {
	receipt := &Receipt{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		po, err := loadOrder(tx, tenant, id)
		if err != nil {
			return err
		}
		if po.Status == models.PurchaseOrderReceived {
			return apperr.Conflict("purchase order %d was already received", po.ID)
		}

		now := s.now()
		res := tx.Model(&models.PurchaseOrder{}).
			Where("tenant_id = ? AND id = ? AND status IN ?", tenant, po.ID,
				[]models.PurchaseOrderStatus{models.PurchaseOrderDraft, models.PurchaseOrderApproved}).
			Updates(map[string]any{"status": models.PurchaseOrderReceived, "received_at": now.UTC(), "updated_at": now.UTC()})
		if res.Error != nil {
			return fmt.Errorf("receive purchase order: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("purchase order %d changed concurrently", po.ID)
		}

		for _, it := range po.Items {
			batch, err := s.ledger.RecordBatchTx(tx, tenant, actor, stock.BatchInput{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitCost:  it.UnitPrice,
				LotCode:   fmt.Sprintf("PO-%d", po.ID),
				Reason:    fmt.Sprintf("purchase order #%d received", po.ID),
			})
			if err != nil {
				return err
			}
			receipt.Batches = append(receipt.Batches, *batch)
		}

		if total := po.Total(); total.IsPositive() {
			local := now.In(s.loc)
			p := models.Payable{
				TenantID:        tenant,
				SupplierID:      &po.SupplierID,
				PurchaseOrderID: &po.ID,
				Description:     fmt.Sprintf("purchase order #%d", po.ID),
				Amount:          total,
				DueDate:         time.Date(local.Year(), local.Month(), local.Day()+ReceiptTermDays, 0, 0, 0, 0, time.UTC),
				Status:          models.PayableOpen,
			}
			if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
				return fmt.Errorf("create payable: %w", err)
			}
			if err := audit.Write(tx, audit.Entry{
				TenantID:    tenant,
				Actor:       actor,
				EntityType:  "payable",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("payable of %s due %s", p.Amount.StringFixed(2), p.DueDate.Format(period.DateLayout)),
				After:       p,
			}); err != nil {
				return err
			}
			receipt.Payable = &p
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "purchase_order",
			EntityID:    po.ID,
			Action:      models.AuditActionReceive,
			Description: fmt.Sprintf("purchase order #%d received (%d items)", po.ID, len(po.Items)),
		})
	})
	if err != nil {
		return nil, err
	}

	receipt.Order, err = s.GetOrder(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("tenant", tenant),
		zap.Uint("purchase_order_id", id),
		zap.Int("batches", len(receipt.Batches)),
	}
	if receipt.Payable != nil {
		fields = append(fields, zap.Uint("payable_id", receipt.Payable.ID), zap.String("amount", receipt.Payable.Amount.StringFixed(2)))
	}
	s.log.Info("purchase order received", fields...)
	return receipt, nil
}
