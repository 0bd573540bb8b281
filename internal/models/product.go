package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeDish        ProductType = "dish"
	ProductTypeIngredient  ProductType = "ingredient"
	ProductTypeMerchandise ProductType = "merchandise"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeDish, ProductTypeIngredient, ProductTypeMerchandise:
		return true
	}
	return false
}

// Unit of measure (kg, un, L). There is no update path once products reference it.
type Unit struct {
	ID           uint   `gorm:"primaryKey"`
	TenantID     string `gorm:"size:64;index;not null"`
	Name         string `gorm:"size:60;not null"`
	Abbreviation string `gorm:"size:10;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID        uint        `gorm:"primaryKey"`
	TenantID  string      `gorm:"size:64;index;not null"`
	Name      string      `gorm:"size:120;not null"`
	Type      ProductType `gorm:"size:20;not null;index"`
	UnitID    *uint
	Unit      *Unit
	CostPrice *decimal.Decimal `gorm:"type:numeric(12,2)"`
	SalePrice *decimal.Decimal `gorm:"type:numeric(12,2)"`
	CreatedAt time.Time
	UpdatedAt time.Time

	InventoryRule *InventoryRule `gorm:"foreignKey:ProductID"`
}

// IsStockable: only ingredients and merchandise carry a stock balance.
func (p *Product) IsStockable() bool {
	return p.Type == ProductTypeIngredient || p.Type == ProductTypeMerchandise
}

// IsSellable reports whether the product can go on an order.
func (p *Product) IsSellable() bool {
	return p.SalePrice != nil && p.SalePrice.IsPositive()
}

func (p *Product) UnitAbbreviation() *string {
	if p.Unit == nil {
		return nil
	}
	abbr := p.Unit.Abbreviation
	return &abbr
}

// InventoryRule: reorder thresholds for a stockable product.
type InventoryRule struct {
	ID           uint    `gorm:"primaryKey"`
	TenantID     string  `gorm:"size:64;not null;uniqueIndex:idx_inventory_rule_tenant_product"`
	ProductID    uint    `gorm:"not null;uniqueIndex:idx_inventory_rule_tenant_product"`
	ReorderPoint float64 `gorm:"not null"`
	ParLevel     *float64
	LeadTimeDays *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Recipe: ficha técnica of a dish. Paying an order for the dish consumes
// Quantity/YieldQty of every ingredient per portion sold.
type Recipe struct {
	ID        uint    `gorm:"primaryKey"`
	TenantID  string  `gorm:"size:64;not null;uniqueIndex:idx_recipe_tenant_product"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_recipe_tenant_product"`
	YieldQty  float64 `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []RecipeItem `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type RecipeItem struct {
	ID           uint   `gorm:"primaryKey"`
	TenantID     string `gorm:"size:64;index;not null"`
	RecipeID     uint   `gorm:"index;not null"`
	IngredientID uint   `gorm:"index;not null"`
	Ingredient   Product
	Quantity     float64 `gorm:"not null"`
}
