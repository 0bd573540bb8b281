package audit

import (
	"encoding/json"
	"fmt"

	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"gorm.io/gorm"
)

// Actor is the user behind a write. Zero value means a system action.
type Actor struct {
	UserID   uint
	UserName string
}

func ActorFrom(id *auth.Identity) Actor {
	if id == nil {
		return Actor{}
	}
	return Actor{UserID: id.UserID, UserName: id.UserName}
}

type Entry struct {
	TenantID    string
	Actor       Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	After       any
}

// Write appends an audit row using tx, so it commits or rolls back together
// with the domain write it describes.
func Write(tx *gorm.DB, e Entry) error {
	afterStr := "null"
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	row := models.AuditLog{
		TenantID:    e.TenantID,
		UserID:      e.Actor.UserID,
		UserName:    e.Actor.UserName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		AfterData:   afterStr,
	}

	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

// List returns the tenant's audit rows, newest first.
func List(db *gorm.DB, tenantID string, f Filter) ([]models.AuditLog, error) {
	q := db.Model(&models.AuditLog{}).Where("tenant_id = ?", tenantID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
