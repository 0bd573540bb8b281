package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSession: one drawer shift. A user holds at most one open session;
// OpenSlot carries the user id while open and is cleared on close so the
// unique index enforces it.
type CashSession struct {
	ID            uint             `gorm:"primaryKey"`
	TenantID      string           `gorm:"size:64;index;not null;uniqueIndex:idx_cash_sessions_open_slot"`
	UserID        uint             `gorm:"index;not null"`
	UserName      string           `gorm:"size:120"`
	OpenSlot      *uint            `gorm:"uniqueIndex:idx_cash_sessions_open_slot"`
	IsOpen        bool             `gorm:"not null;index"`
	OpeningAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	ClosingAmount *decimal.Decimal `gorm:"type:numeric(12,2)"`
	OpenedAt      time.Time        `gorm:"not null;index"`
	ClosedAt      *time.Time
	ClosedBy      *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Movements []CashMovement `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type CashMovementType string

const (
	CashSupply     CashMovementType = "supply"     // suprimento
	CashWithdrawal CashMovementType = "withdrawal" // sangria
)

type CashMovement struct {
	ID        uint             `gorm:"primaryKey"`
	TenantID  string           `gorm:"size:64;index;not null"`
	SessionID uint             `gorm:"index;not null"`
	Type      CashMovementType `gorm:"size:20;not null"`
	Amount    decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	Reason    string           `gorm:"size:255"`
	UserID    uint
	CreatedAt time.Time `gorm:"index"`
}
