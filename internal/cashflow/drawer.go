package cashflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Drawer runs cash sessions: a cashier opens the drawer with a float,
// records supplies and withdrawals during the shift and closes it with the
// counted amount.
type Drawer struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewDrawer(db *gorm.DB, log *zap.Logger) *Drawer {
	return &Drawer{db: db, log: log.Named("drawer"), now: time.Now}
}

func (d *Drawer) WithClock(now func() time.Time) *Drawer {
	d.now = now
	return d
}

// SessionReport is a session with its movements and the amount the drawer
// should hold. Difference is counted minus expected, set once closed.
type SessionReport struct {
	Session    models.CashSession
	Supplies   decimal.Decimal
	Withdrawn  decimal.Decimal
	Expected   decimal.Decimal
	Difference *decimal.Decimal
}

func report(s models.CashSession) *SessionReport {
	r := &SessionReport{Session: s, Supplies: decimal.Zero, Withdrawn: decimal.Zero}
	for _, m := range s.Movements {
		if m.Type == models.CashWithdrawal {
			r.Withdrawn = r.Withdrawn.Add(m.Amount)
		} else {
			r.Supplies = r.Supplies.Add(m.Amount)
		}
	}
	r.Expected = s.OpeningAmount.Add(r.Supplies).Sub(r.Withdrawn)
	if s.ClosingAmount != nil {
		diff := s.ClosingAmount.Sub(r.Expected)
		r.Difference = &diff
	}
	return r
}

// Open starts a session for actor. A user holds at most one open session.
func (d *Drawer) Open(ctx context.Context, tenant string, actor audit.Actor, opening decimal.Decimal) (*models.CashSession, error) {
	if actor.UserID == 0 {
		return nil, apperr.Validation("a cash session needs an identified user")
	}
	if opening.IsNegative() {
		return nil, apperr.Validation("opening_amount must be >= 0")
	}

	now := d.now().UTC()
	slot := actor.UserID
	sess := models.CashSession{
		TenantID:      tenant,
		UserID:        actor.UserID,
		UserName:      actor.UserName,
		OpenSlot:      &slot,
		IsOpen:        true,
		OpeningAmount: opening.Round(2),
		OpenedAt:      now,
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.CashSession{}).
			Where("tenant_id = ? AND user_id = ? AND is_open = ?", tenant, actor.UserID, true).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check open session: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("user %d already has an open cash session", actor.UserID)
		}
		if err := tx.Omit(clause.Associations).Create(&sess).Error; err != nil {
			return fmt.Errorf("open cash session: %w", err)
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "cash_session",
			EntityID:    sess.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("cash session opened with %s", sess.OpeningAmount.StringFixed(2)),
			After:       sess,
		})
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("cash session opened",
		zap.String("tenant", tenant),
		zap.Uint("session_id", sess.ID),
		zap.Uint("user_id", actor.UserID),
	)
	return &sess, nil
}

// Close ends an open session. Only its opener may close it unless override
// is set, which the caller grants to supervisors.
func (d *Drawer) Close(ctx context.Context, tenant string, actor audit.Actor, override bool, id uint, counted decimal.Decimal) (*SessionReport, error) {
	if counted.IsNegative() {
		return nil, apperr.Validation("closing_amount must be >= 0")
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := loadSession(tx, tenant, id)
		if err != nil {
			return err
		}
		if !sess.IsOpen {
			return apperr.Conflict("cash session %d is already closed", sess.ID)
		}
		if sess.UserID != actor.UserID && !override {
			return apperr.Forbidden("cash session %d belongs to another user", sess.ID)
		}

		now := d.now().UTC()
		res := tx.Model(&models.CashSession{}).
			Where("tenant_id = ? AND id = ? AND is_open = ?", tenant, sess.ID, true).
			Updates(map[string]any{
				"is_open":        false,
				"open_slot":      nil,
				"closing_amount": counted.Round(2),
				"closed_at":      now,
				"closed_by":      actor.UserID,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("close cash session: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("cash session %d changed concurrently", sess.ID)
		}

		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "cash_session",
			EntityID:    sess.ID,
			Action:      models.AuditActionClose,
			Description: fmt.Sprintf("cash session closed with %s counted", counted.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}

	r, err := d.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if r.Difference != nil && !r.Difference.IsZero() {
		d.log.Warn("cash session closed with a difference",
			zap.String("tenant", tenant),
			zap.Uint("session_id", id),
			zap.String("expected", r.Expected.StringFixed(2)),
			zap.String("difference", r.Difference.StringFixed(2)),
		)
	}
	return r, nil
}

func loadSession(db *gorm.DB, tenant string, id uint) (*models.CashSession, error) {
	var sess models.CashSession
	err := db.Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ? AND id = ?", tenant, id).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("cash session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get cash session: %w", err)
	}
	return &sess, nil
}

func (d *Drawer) Get(ctx context.Context, tenant string, id uint) (*SessionReport, error) {
	sess, err := loadSession(d.db.WithContext(ctx), tenant, id)
	if err != nil {
		return nil, err
	}
	return report(*sess), nil
}

type SessionFilter struct {
	UserID *uint
	Open   *bool
	Limit  int
	Offset int
}

// List returns sessions newest first.
func (d *Drawer) List(ctx context.Context, tenant string, f SessionFilter) ([]SessionReport, error) {
	q := d.db.WithContext(ctx).
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ?", tenant)
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Open != nil {
		q = q.Where("is_open = ?", *f.Open)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	var sessions []models.CashSession
	if err := q.Order("opened_at DESC").Order("id DESC").Limit(f.Limit).Offset(max(f.Offset, 0)).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list cash sessions: %w", err)
	}
	out := make([]SessionReport, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, *report(s))
	}
	return out, nil
}

type MovementInput struct {
	SessionID uint
	Type      models.CashMovementType
	Amount    decimal.Decimal
	Reason    string
}

// AddMovement records a supply or a withdrawal against an open session.
func (d *Drawer) AddMovement(ctx context.Context, tenant string, actor audit.Actor, in MovementInput) (*models.CashMovement, error) {
	switch in.Type {
	case models.CashSupply, models.CashWithdrawal:
	default:
		return nil, apperr.Validation("type must be supply or withdrawal")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be > 0")
	}

	mov := models.CashMovement{
		TenantID:  tenant,
		SessionID: in.SessionID,
		Type:      in.Type,
		Amount:    in.Amount.Round(2),
		Reason:    in.Reason,
		UserID:    actor.UserID,
		CreatedAt: d.now().UTC(),
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.CashSession
		err := tx.Where("tenant_id = ? AND id = ?", tenant, in.SessionID).First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cash session", in.SessionID)
		}
		if err != nil {
			return fmt.Errorf("get cash session: %w", err)
		}
		if !sess.IsOpen {
			return apperr.Conflict("cash session %d is closed", sess.ID)
		}

		if err := tx.Create(&mov).Error; err != nil {
			return fmt.Errorf("create cash movement: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "cash_movement",
			EntityID:    mov.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("cash %s of %s in session %d", mov.Type, mov.Amount.StringFixed(2), sess.ID),
			After:       mov,
		})
	})
	if err != nil {
		return nil, err
	}
	return &mov, nil
}
