package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Supplier struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  string `gorm:"size:64;index;not null"`
	Name      string `gorm:"size:120;not null"`
	Contact   string `gorm:"size:120"`
	Phone     string `gorm:"size:50"`
	Email     string `gorm:"size:120"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PayableStatus string

const (
	PayableOpen     PayableStatus = "open"
	PayablePaid     PayableStatus = "paid"
	PayableCanceled PayableStatus = "canceled"
)

// Payable: conta a pagar. open → paid | canceled, both terminal.
type Payable struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"size:64;index;not null"`
	SupplierID *uint
	Supplier   *Supplier
	// Set when the payable was raised by receiving a purchase order.
	PurchaseOrderID *uint           `gorm:"index"`
	Description     string          `gorm:"size:255"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate         time.Time       `gorm:"index;not null"`
	Status          PayableStatus   `gorm:"size:20;not null;index"`
	PaidAt          *time.Time      `gorm:"index"`
	CanceledAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PurchaseOrderStatus string

const (
	PurchaseOrderDraft    PurchaseOrderStatus = "draft"
	PurchaseOrderApproved PurchaseOrderStatus = "approved"
	PurchaseOrderReceived PurchaseOrderStatus = "received"
)

// PurchaseOrder: draft → approved → received. Receiving is final and may
// skip approval.
type PurchaseOrder struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"size:64;index;not null"`
	SupplierID uint   `gorm:"index;not null"`
	Supplier   *Supplier
	Status     PurchaseOrderStatus `gorm:"size:20;not null;index"`
	Notes      string              `gorm:"size:255"`
	ApprovedAt *time.Time
	ReceivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
}

// Total = Σ quantity × unit price, rounded to cents.
func (o *PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	return total.Round(2)
}

type PurchaseOrderItem struct {
	ID              uint   `gorm:"primaryKey"`
	TenantID        string `gorm:"size:64;index;not null"`
	PurchaseOrderID uint   `gorm:"index;not null"`
	ProductID       uint   `gorm:"index;not null"`
	Product         Product
	Quantity        float64         `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(12,4);not null"`
}

func (i *PurchaseOrderItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Quantity).Mul(i.UnitPrice)
}
