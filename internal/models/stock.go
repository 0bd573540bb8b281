package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockMoveType string

const (
	StockMoveIn       StockMoveType = "in"
	StockMoveOut      StockMoveType = "out"
	StockMoveAdjust   StockMoveType = "adjust"
	StockMoveTransfer StockMoveType = "transfer"
)

func (t StockMoveType) Valid() bool {
	switch t {
	case StockMoveIn, StockMoveOut, StockMoveAdjust, StockMoveTransfer:
		return true
	}
	return false
}

// Sign: in adds to the balance, every other type subtracts.
func (t StockMoveType) Sign() float64 {
	if t == StockMoveIn {
		return 1
	}
	return -1
}

// StockBatch: one inbound lot. Never mutated after creation.
type StockBatch struct {
	ID             uint   `gorm:"primaryKey"`
	TenantID       string `gorm:"size:64;index;not null"`
	ProductID      uint   `gorm:"index;not null"`
	Product        Product
	Quantity       float64         `gorm:"not null"`
	UnitCost       decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	ExpirationDate *time.Time
	LotCode        string    `gorm:"size:64"`
	CreatedAt      time.Time `gorm:"index"`
}

// StockMove: append-only ledger entry. Quantity is signed.
type StockMove struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index:idx_stock_moves_tenant_product;not null"`
	ProductID uint   `gorm:"index:idx_stock_moves_tenant_product;not null"`
	Product   Product
	Type      StockMoveType `gorm:"size:20;not null;index"`
	Quantity  float64       `gorm:"not null"`
	Reason    string        `gorm:"size:255"`
	BatchID   *uint         `gorm:"index"` // set on the mirror move of a batch receipt
	OrderID   *uint         `gorm:"index"` // set on depletion by a paid order
	CreatedAt time.Time     `gorm:"index;not null"`
}

// StockBalance: materialized running sum of StockMove.Quantity per product,
// updated in the same transaction as every move insert.
type StockBalance struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;not null;uniqueIndex:idx_stock_balance_tenant_product"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_stock_balance_tenant_product"`
	Product   Product
	Quantity  float64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
