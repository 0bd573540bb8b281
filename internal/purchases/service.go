// Package purchases keeps suppliers, the purchase orders placed with them
// and the accounts payable owed to them. A payable starts open and ends
// either paid or canceled; both are final.
package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db      *gorm.DB
	ledger  *stock.Ledger
	log     *zap.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

func NewService(db *gorm.DB, ledger *stock.Ledger, log *zap.Logger, m *metrics.Metrics, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, ledger: ledger, log: log.Named("purchases"), metrics: m, loc: loc, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// -------------------------
// Suppliers
// -------------------------

type SupplierInput struct {
	Name    string
	Contact string
	Phone   string
	Email   string
}

func (s *Service) CreateSupplier(ctx context.Context, tenant string, actor audit.Actor, in SupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("supplier name is required")
	}

	sup := models.Supplier{
		TenantID: tenant,
		Name:     name,
		Contact:  strings.TrimSpace(in.Contact),
		Phone:    strings.TrimSpace(in.Phone),
		Email:    strings.TrimSpace(in.Email),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sup).Error; err != nil {
			return fmt.Errorf("create supplier: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "supplier",
			EntityID:    sup.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("supplier %s created", name),
			After:       sup,
		})
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Service) ListSuppliers(ctx context.Context, tenant string) ([]models.Supplier, error) {
	var out []models.Supplier
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenant).Order("name ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return out, nil
}

func supplierExists(tx *gorm.DB, tenant string, id uint) error {
	var n int64
	if err := tx.Model(&models.Supplier{}).Where("tenant_id = ? AND id = ?", tenant, id).Count(&n).Error; err != nil {
		return fmt.Errorf("lookup supplier: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("supplier", id)
	}
	return nil
}

// -------------------------
// Payables
// -------------------------

type PayableInput struct {
	SupplierID  *uint
	Description string
	Amount      decimal.Decimal
	DueDate     *time.Time
}

type PayableFilter struct {
	Status     models.PayableStatus
	SupplierID *uint
	DueFrom    *time.Time
	DueTo      *time.Time
	Limit      int
	Offset     int
}

func (s *Service) CreatePayable(ctx context.Context, tenant string, actor audit.Actor, in PayableInput) (*models.Payable, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be > 0")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		return nil, apperr.Validation("due_date is required")
	}

	p := models.Payable{
		TenantID:    tenant,
		SupplierID:  in.SupplierID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount.Round(2),
		DueDate:     in.DueDate.UTC(),
		Status:      models.PayableOpen,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.SupplierID != nil {
			if err := supplierExists(tx, tenant, *in.SupplierID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return fmt.Errorf("create payable: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "payable",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("payable of %s due %s", p.Amount.StringFixed(2), p.DueDate.Format(period.DateLayout)),
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPayable(ctx context.Context, tenant string, id uint) (*models.Payable, error) {
	var p models.Payable
	err := s.db.WithContext(ctx).Preload("Supplier").
		Where("tenant_id = ? AND id = ?", tenant, id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payable", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get payable: %w", err)
	}
	return &p, nil
}

// ListPayables returns payables by due date, oldest first.
func (s *Service) ListPayables(ctx context.Context, tenant string, f PayableFilter) ([]models.Payable, error) {
	if f.Status != "" && !validPayableStatus(f.Status) {
		return nil, apperr.Validation("invalid payable status %q", f.Status)
	}

	q := s.db.WithContext(ctx).Preload("Supplier").Where("tenant_id = ?", tenant)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.DueFrom != nil {
		q = q.Where("due_date >= ?", f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		q = q.Where("due_date <= ?", f.DueTo.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []models.Payable
	if err := q.Order("due_date ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	return out, nil
}

func validPayableStatus(st models.PayableStatus) bool {
	switch st {
	case models.PayableOpen, models.PayablePaid, models.PayableCanceled:
		return true
	}
	return false
}

// Settle marks an open payable paid.
func (s *Service) Settle(ctx context.Context, tenant string, actor audit.Actor, id uint) (*models.Payable, error) {
	return s.transition(ctx, tenant, actor, id, models.PayablePaid)
}

// Cancel voids an open payable.
func (s *Service) Cancel(ctx context.Context, tenant string, actor audit.Actor, id uint) (*models.Payable, error) {
	return s.transition(ctx, tenant, actor, id, models.PayableCanceled)
}

func (s *Service) transition(ctx context.Context, tenant string, actor audit.Actor, id uint, to models.PayableStatus) (*models.Payable, error) {
	var p models.Payable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("tenant_id = ? AND id = ?", tenant, id).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payable", id)
		}
		if err != nil {
			return fmt.Errorf("load payable: %w", err)
		}
		if p.Status != models.PayableOpen {
			return apperr.Conflict("payable %d is already %s", p.ID, p.Status)
		}

		now := s.now().UTC()
		updates := map[string]any{"status": to, "updated_at": now}
		action := models.AuditActionSettle
		if to == models.PayablePaid {
			updates["paid_at"] = now
			p.PaidAt = &now
		} else {
			updates["canceled_at"] = now
			p.CanceledAt = &now
			action = models.AuditActionCancel
		}

		res := tx.Model(&models.Payable{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenant, p.ID, models.PayableOpen).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update payable: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("payable %d changed concurrently", p.ID)
		}
		p.Status = to
		p.UpdatedAt = now

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "payable",
			EntityID:    p.ID,
			Action:      action,
			Description: fmt.Sprintf("payable %d %s (%s)", p.ID, to, p.Amount.StringFixed(2)),
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PayableSettlement.WithLabelValues(string(to)).Inc()
	s.log.Info("payable transitioned",
		zap.String("tenant", tenant),
		zap.Uint("payable_id", p.ID),
		zap.String("status", string(to)),
	)
	return &p, nil
}

// -------------------------
// Window summary
// -------------------------

type WindowSummary struct {
	Granularity period.Granularity `json:"granularity"`
	Label       string             `json:"label"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	TotalPaid   decimal.Decimal    `json:"total_paid"`
	Count       int                `json:"count"`
}

// PaidInWindow sums payables settled inside w.
func (s *Service) PaidInWindow(ctx context.Context, tenant string, w period.Window) (decimal.Decimal, int, error) {
	var paid []models.Payable
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND paid_at >= ? AND paid_at < ?",
			tenant, models.PayablePaid, w.Start.UTC(), w.End.UTC()).
		Find(&paid).Error
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("load paid payables: %w", err)
	}
	total := decimal.Zero
	for _, p := range paid {
		total = total.Add(p.Amount)
	}
	return total, len(paid), nil
}

// WindowSummary reports the payables paid in the day, week or month that
// contains ref (today when nil), using the same boundaries as the sales
// reports.
func (s *Service) WindowSummary(ctx context.Context, tenant string, g period.Granularity, ref *time.Time) (*WindowSummary, error) {
	if g == "" {
		g = period.Monthly
	}
	if _, err := period.ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	at := s.now().In(s.loc)
	if ref != nil {
		at = ref.In(s.loc)
	}

	w := period.WindowFor(at, g)
	total, n, err := s.PaidInWindow(ctx, tenant, w)
	if err != nil {
		return nil, err
	}
	return &WindowSummary{
		Granularity: g,
		Label:       w.Label,
		Start:       w.Start.Format(period.DateLayout),
		End:         w.LastDay().Format(period.DateLayout),
		TotalPaid:   total,
		Count:       n,
	}, nil
}

// Location is the reporting time zone.
func (s *Service) Location() *time.Location { return s.loc }
