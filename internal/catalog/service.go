// Package catalog manages units, products, their inventory rules and recipes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("catalog")}
}

// -------------------------
// Units
// -------------------------

type UnitInput struct {
	Name         string
	Abbreviation string
}

func (s *Service) CreateUnit(ctx context.Context, tenant string, actor audit.Actor, in UnitInput) (*models.Unit, error) {
	name := strings.TrimSpace(in.Name)
	abbr := strings.TrimSpace(in.Abbreviation)
	if name == "" || abbr == "" {
		return nil, apperr.Validation("unit name and abbreviation are required")
	}

	unit := models.Unit{TenantID: tenant, Name: name, Abbreviation: abbr}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&unit).Error; err != nil {
			return fmt.Errorf("create unit: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "unit",
			EntityID:    unit.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("unit %s (%s) created", name, abbr),
			After:       unit,
		})
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (s *Service) ListUnits(ctx context.Context, tenant string) ([]models.Unit, error) {
	var units []models.Unit
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenant).Order("name ASC").Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// -------------------------
// Products
// -------------------------

type ProductInput struct {
	Name      string
	Type      models.ProductType
	UnitID    *uint
	CostPrice *decimal.Decimal
	SalePrice *decimal.Decimal
}

type ProductFilter struct {
	Type      models.ProductType
	Stockable bool
	Limit     int
	Offset    int
}

func (s *Service) validateProduct(tx *gorm.DB, tenant string, in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("product name is required")
	}
	if !in.Type.Valid() {
		return apperr.Validation("invalid product type %q", in.Type)
	}
	if in.Type == models.ProductTypeIngredient && in.UnitID == nil {
		return apperr.Validation("ingredients require a unit")
	}
	if in.CostPrice != nil && in.CostPrice.IsNegative() {
		return apperr.Validation("cost_price must be >= 0")
	}
	if in.SalePrice != nil && in.SalePrice.IsNegative() {
		return apperr.Validation("sale_price must be >= 0")
	}
	if in.UnitID != nil {
		var n int64
		if err := tx.Model(&models.Unit{}).Where("tenant_id = ? AND id = ?", tenant, *in.UnitID).Count(&n).Error; err != nil {
			return fmt.Errorf("lookup unit: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("unit", *in.UnitID)
		}
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, tenant string, actor audit.Actor, in ProductInput) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateProduct(tx, tenant, &in); err != nil {
			return err
		}
		product = models.Product{
			TenantID:  tenant,
			Name:      in.Name,
			Type:      in.Type,
			UnitID:    in.UnitID,
			CostPrice: in.CostPrice,
			SalePrice: in.SalePrice,
		}
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("product %s created", product.Name),
			After:       product,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, tenant, product.ID)
}

func (s *Service) UpdateProduct(ctx context.Context, tenant string, actor audit.Actor, id uint, in ProductInput) (*models.Product, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("tenant_id = ? AND id = ?", tenant, id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product", id)
			}
			return fmt.Errorf("load product: %w", err)
		}
		if err := s.validateProduct(tx, tenant, &in); err != nil {
			return err
		}
		if product.IsStockable() != (in.Type != models.ProductTypeDish) {
			var moves int64
			if err := tx.Model(&models.StockMove{}).Where("tenant_id = ? AND product_id = ?", tenant, id).Count(&moves).Error; err != nil {
				return fmt.Errorf("count moves: %w", err)
			}
			if moves > 0 {
				return apperr.Conflict("product %d has stock history and cannot change between stockable and dish", id)
			}
		}

		product.Name = in.Name
		product.Type = in.Type
		product.UnitID = in.UnitID
		product.CostPrice = in.CostPrice
		product.SalePrice = in.SalePrice
		if err := tx.Omit(clause.Associations).Save(&product).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "product",
			EntityID:    product.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("product %s updated", product.Name),
			After:       product,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, tenant, id)
}

func (s *Service) GetProduct(ctx context.Context, tenant string, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Unit").
		Preload("InventoryRule").
		Where("tenant_id = ? AND id = ?", tenant, id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (s *Service) ListProducts(ctx context.Context, tenant string, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Unit").Preload("InventoryRule").Where("tenant_id = ?", tenant)
	switch {
	case f.Stockable:
		q = q.Where("type IN ?", []models.ProductType{models.ProductTypeIngredient, models.ProductTypeMerchandise})
	case f.Type != "":
		if !f.Type.Valid() {
			return nil, apperr.Validation("invalid product type %q", f.Type)
		}
		q = q.Where("type = ?", f.Type)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var products []models.Product
	if err := q.Order("name ASC").Order("id ASC").Offset(f.Offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// -------------------------
// Inventory rules
// -------------------------

type RuleInput struct {
	ReorderPoint float64
	ParLevel     *float64
	LeadTimeDays *int
}

// SetInventoryRule creates or replaces the reorder thresholds of a stockable product.
func (s *Service) SetInventoryRule(ctx context.Context, tenant string, actor audit.Actor, productID uint, in RuleInput) (*models.InventoryRule, error) {
	if in.ReorderPoint < 0 {
		return nil, apperr.Validation("reorder_point must be >= 0")
	}
	if in.ParLevel != nil && *in.ParLevel < in.ReorderPoint {
		return nil, apperr.Validation("par_level must be >= reorder_point")
	}
	if in.LeadTimeDays != nil && *in.LeadTimeDays < 0 {
		return nil, apperr.Validation("lead_time_days must be >= 0")
	}

	rule := models.InventoryRule{
		TenantID:     tenant,
		ProductID:    productID,
		ReorderPoint: in.ReorderPoint,
		ParLevel:     in.ParLevel,
		LeadTimeDays: in.LeadTimeDays,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("tenant_id = ? AND id = ?", tenant, productID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product", productID)
			}
			return fmt.Errorf("load product: %w", err)
		}
		if !product.IsStockable() {
			return apperr.Validation("product %d is not stockable", productID)
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reorder_point", "par_level", "lead_time_days", "updated_at"}),
		}).Create(&rule).Error
		if err != nil {
			return fmt.Errorf("save inventory rule: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "inventory_rule",
			EntityID:    productID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("reorder point of %s set to %g", product.Name, in.ReorderPoint),
			After:       in,
		})
	})
	if err != nil {
		return nil, err
	}

	var saved models.InventoryRule
	if err := s.db.WithContext(ctx).Where("tenant_id = ? AND product_id = ?", tenant, productID).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload inventory rule: %w", err)
	}
	return &saved, nil
}

// -------------------------
// Recipes
// -------------------------

type RecipeItemInput struct {
	IngredientID uint
	Quantity     float64
}

type RecipeInput struct {
	YieldQty float64
	Items    []RecipeItemInput
}

// SetRecipe replaces the recipe of a dish.
func (s *Service) SetRecipe(ctx context.Context, tenant string, actor audit.Actor, productID uint, in RecipeInput) (*models.Recipe, error) {
	if in.YieldQty <= 0 {
		return nil, apperr.Validation("yield_qty must be > 0")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("a recipe needs at least one item")
	}
	seen := make(map[uint]bool, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, apperr.Validation("recipe item quantity must be > 0")
		}
		if seen[it.IngredientID] {
			return nil, apperr.Validation("ingredient %d listed twice", it.IngredientID)
		}
		seen[it.IngredientID] = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish models.Product
		if err := tx.Where("tenant_id = ? AND id = ?", tenant, productID).First(&dish).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product", productID)
			}
			return fmt.Errorf("load product: %w", err)
		}
		if dish.Type != models.ProductTypeDish {
			return apperr.Validation("only dishes have recipes")
		}

		ids := make([]uint, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.IngredientID)
		}
		var ingredients []models.Product
		if err := tx.Where("tenant_id = ? AND id IN ?", tenant, ids).Find(&ingredients).Error; err != nil {
			return fmt.Errorf("load ingredients: %w", err)
		}
		byID := make(map[uint]models.Product, len(ingredients))
		for _, p := range ingredients {
			byID[p.ID] = p
		}
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return apperr.NotFound("product", id)
			}
			if !p.IsStockable() {
				return apperr.Validation("recipe item %d (%s) is not stockable", id, p.Name)
			}
		}

		recipe := models.Recipe{TenantID: tenant, ProductID: productID}
		if err := tx.Where(models.Recipe{TenantID: tenant, ProductID: productID}).FirstOrCreate(&recipe).Error; err != nil {
			return fmt.Errorf("load recipe: %w", err)
		}
		recipe.YieldQty = in.YieldQty
		if err := tx.Omit(clause.Associations).Save(&recipe).Error; err != nil {
			return fmt.Errorf("save recipe: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeItem{}).Error; err != nil {
			return fmt.Errorf("clear recipe items: %w", err)
		}

		items := make([]models.RecipeItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, models.RecipeItem{
				TenantID:     tenant,
				RecipeID:     recipe.ID,
				IngredientID: it.IngredientID,
				Quantity:     it.Quantity,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("save recipe items: %w", err)
		}
		return audit.Write(tx, audit.Entry{
			TenantID:    tenant,
			Actor:       actor,
			EntityType:  "recipe",
			EntityID:    recipe.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("recipe of %s replaced (%d items)", dish.Name, len(items)),
			After:       in,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, tenant, productID)
}

func (s *Service) GetRecipe(ctx context.Context, tenant string, productID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Ingredient").
		Preload("Items.Ingredient.Unit").
		Where("tenant_id = ? AND product_id = ?", tenant, productID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe", productID)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return &recipe, nil
}
