package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionSettle  AuditAction = "settle"
	AuditActionCancel  AuditAction = "cancel"
	AuditActionApprove AuditAction = "approve"
	AuditActionReceive AuditAction = "receive"
	AuditActionClose   AuditAction = "close"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TenantID string `gorm:"size:64;index;not null" json:"tenant_id"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// e.g. "stock_batch", "stock_move", "order", "payable"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// State of the record after the action, as JSON.
	AfterData string `gorm:"type:text" json:"after_data"`
}
