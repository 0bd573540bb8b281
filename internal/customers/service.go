// Package customers keeps the guest register orders can be attached to.
package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("customers")}
}

type Input struct {
	Name        string
	Phone       string
	Email       string
	Preferences string
	Allergies   string
}

func (s *Service) Create(ctx context.Context, tenant string, actor audit.Actor, in Input) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("customer name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid email %q", email)
	}

	cust := models.Customer{
		TenantID:    tenant,
		Name:        name,
		Phone:       strings.TrimSpace(in.Phone),
		Email:       email,
		Preferences: strings.TrimSpace(in.Preferences),
		Allergies:   strings.TrimSpace(in.Allergies),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cust).Error; err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		// Contact data stays out of the audit trail.
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("customer #%d registered", cust.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (s *Service) Get(ctx context.Context, tenant string, id uint) (*models.Customer, error) {
	var cust models.Customer
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenant, id).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &cust, nil
}

type ListFilter struct {
	// Matches name or phone, case-insensitively.
	Search string
	Limit  int
	Offset int
}

// List returns customers by name.
func (s *Service) List(ctx context.Context, tenant string, f ListFilter) ([]models.Customer, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenant)
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	var out []models.Customer
	if err := q.Order("name ASC").Order("id ASC").Limit(f.Limit).Offset(max(f.Offset, 0)).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}
