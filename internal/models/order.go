package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPaid, OrderStatusCanceled:
		return true
	}
	return false
}

type Order struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"size:64;index:idx_orders_tenant_status_closed;not null"`
	CustomerID *uint
	TableLabel string          `gorm:"size:50"`
	Status     OrderStatus     `gorm:"size:20;not null;index:idx_orders_tenant_status_closed"`
	Total      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	OpenedAt   time.Time       `gorm:"not null"`
	ClosedAt   *time.Time      `gorm:"index:idx_orders_tenant_status_closed"` // settlement timestamp
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index;not null"`
	OrderID   uint   `gorm:"index;not null"`
	ProductID uint   `gorm:"index;not null"`
	Product   Product
	Quantity  float64         `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Notes     string          `gorm:"size:255"`
}

// Subtotal = Quantity × UnitPrice.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Quantity).Mul(i.UnitPrice)
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentPix          PaymentMethod = "pix"
	PaymentCardDebit    PaymentMethod = "card_debit"
	PaymentCardCredit   PaymentMethod = "card_credit"
	PaymentVoucher      PaymentMethod = "voucher"
	PaymentHouseAccount PaymentMethod = "house_account" // fiado
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPix, PaymentCardDebit, PaymentCardCredit, PaymentVoucher, PaymentHouseAccount:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

type Payment struct {
	ID        uint            `gorm:"primaryKey"`
	TenantID  string          `gorm:"size:64;index;not null"`
	OrderID   uint            `gorm:"index;not null"`
	Method    PaymentMethod   `gorm:"size:20;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status    PaymentStatus   `gorm:"size:20;not null"`
	CreatedAt time.Time       `gorm:"index"`
}
