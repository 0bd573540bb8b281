package catalog

import (
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type UnitResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type CreateUnitRequest struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type ProductRequest struct {
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	UnitID    *uint            `json:"unit_id"`
	CostPrice *decimal.Decimal `json:"cost_price"`
	SalePrice *decimal.Decimal `json:"sale_price"`
}

type InventoryRuleResponse struct {
	ReorderPoint float64  `json:"reorder_point"`
	ParLevel     *float64 `json:"par_level"`
	LeadTimeDays *int     `json:"lead_time_days"`
}

type ProductResponse struct {
	ID            uint                   `json:"id"`
	Name          string                 `json:"name"`
	Type          models.ProductType     `json:"type"`
	Unit          *UnitResponse          `json:"unit"`
	CostPrice     *decimal.Decimal       `json:"cost_price"`
	SalePrice     *decimal.Decimal       `json:"sale_price"`
	Stockable     bool                   `json:"stockable"`
	Sellable      bool                   `json:"sellable"`
	InventoryRule *InventoryRuleResponse `json:"inventory_rule"`
}

type InventoryRuleRequest struct {
	ReorderPoint *float64 `json:"reorder_point"`
	ParLevel     *float64 `json:"par_level"`
	LeadTimeDays *int     `json:"lead_time_days"`
}

type RecipeRequest struct {
	YieldQty float64 `json:"yield_qty"`
	Items    []struct {
		IngredientID uint    `json:"ingredient_id"`
		Quantity     float64 `json:"quantity"`
	} `json:"items"`
}

type RecipeItemResponse struct {
	ID         uint            `json:"id"`
	Ingredient ProductResponse `json:"ingredient"`
	Quantity   float64         `json:"quantity"`
}

type RecipeResponse struct {
	ID        uint                 `json:"id"`
	ProductID uint                 `json:"product_id"`
	YieldQty  float64              `json:"yield_qty"`
	Items     []RecipeItemResponse `json:"items"`
}

func toUnitResponse(u models.Unit) UnitResponse {
	return UnitResponse{ID: u.ID, Name: u.Name, Abbreviation: u.Abbreviation}
}

func toProductResponse(p models.Product) ProductResponse {
	resp := ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Type:      p.Type,
		CostPrice: p.CostPrice,
		SalePrice: p.SalePrice,
		Stockable: p.IsStockable(),
		Sellable:  p.IsSellable(),
	}
	if p.Unit != nil {
		u := toUnitResponse(*p.Unit)
		resp.Unit = &u
	}
	if p.InventoryRule != nil {
		resp.InventoryRule = &InventoryRuleResponse{
			ReorderPoint: p.InventoryRule.ReorderPoint,
			ParLevel:     p.InventoryRule.ParLevel,
			LeadTimeDays: p.InventoryRule.LeadTimeDays,
		}
	}
	return resp
}

func toRecipeResponse(r models.Recipe) RecipeResponse {
	resp := RecipeResponse{ID: r.ID, ProductID: r.ProductID, YieldQty: r.YieldQty, Items: make([]RecipeItemResponse, 0, len(r.Items))}
	for _, it := range r.Items {
		resp.Items = append(resp.Items, RecipeItemResponse{
			ID:         it.ID,
			Ingredient: toProductResponse(it.Ingredient),
			Quantity:   it.Quantity,
		})
	}
	return resp
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (r ProductRequest) input() ProductInput {
	return ProductInput{
		Name:      r.Name,
		Type:      models.ProductType(r.Type),
		UnitID:    r.UnitID,
		CostPrice: r.CostPrice,
		SalePrice: r.SalePrice,
	}
}

// POST /api/products/units
func CreateUnitHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CreateUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		unit, err := svc.CreateUnit(c.UserContext(), id.Tenant, audit.ActorFrom(id), UnitInput(body))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUnitResponse(*unit))
	}
}

// GET /api/products/units
func ListUnitsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		units, err := svc.ListUnits(c.UserContext(), id.Tenant)
		if err != nil {
			return err
		}
		resp := make([]UnitResponse, 0, len(units))
		for _, u := range units {
			resp = append(resp, toUnitResponse(u))
		}
		return c.JSON(resp)
	}
}

// POST /api/products
func CreateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		product, err := svc.CreateProduct(c.UserContext(), id.Tenant, audit.ActorFrom(id), body.input())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toProductResponse(*product))
	}
}

// PUT /api/products/:id
func UpdateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := paramID(c)
		if err != nil {
			return err
		}
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		product, err := svc.UpdateProduct(c.UserContext(), id.Tenant, audit.ActorFrom(id), productID, body.input())
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(*product))
	}
}

// GET /api/products/:id
func GetProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := paramID(c)
		if err != nil {
			return err
		}
		product, err := svc.GetProduct(c.UserContext(), id.Tenant, productID)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(*product))
	}
}

// GET /api/products?stockable=true&type=ingredient&limit=100&offset=0
func ListProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		f := ProductFilter{
			Type:      models.ProductType(c.Query("type")),
			Stockable: c.QueryBool("stockable", false),
			Limit:     c.QueryInt("limit", 100),
			Offset:    c.QueryInt("offset", 0),
		}
		if f.Offset < 0 {
			f.Offset = 0
		}

		products, err := svc.ListProducts(c.UserContext(), id.Tenant, f)
		if err != nil {
			return err
		}
		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		return c.JSON(resp)
	}
}

// PUT /api/products/:id/inventory-rule
func SetInventoryRuleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := paramID(c)
		if err != nil {
			return err
		}
		var body InventoryRuleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ReorderPoint == nil {
			return fiber.NewError(fiber.StatusBadRequest, "reorder_point is required")
		}

		rule, err := svc.SetInventoryRule(c.UserContext(), id.Tenant, audit.ActorFrom(id), productID, RuleInput{
			ReorderPoint: *body.ReorderPoint,
			ParLevel:     body.ParLevel,
			LeadTimeDays: body.LeadTimeDays,
		})
		if err != nil {
			return err
		}
		return c.JSON(InventoryRuleResponse{
			ReorderPoint: rule.ReorderPoint,
			ParLevel:     rule.ParLevel,
			LeadTimeDays: rule.LeadTimeDays,
		})
	}
}

// PUT /api/products/:id/recipe
func SetRecipeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := paramID(c)
		if err != nil {
			return err
		}
		var body RecipeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := RecipeInput{YieldQty: body.YieldQty}
		for _, it := range body.Items {
			in.Items = append(in.Items, RecipeItemInput{IngredientID: it.IngredientID, Quantity: it.Quantity})
		}
		recipe, err := svc.SetRecipe(c.UserContext(), id.Tenant, audit.ActorFrom(id), productID, in)
		if err != nil {
			return err
		}
		return c.JSON(toRecipeResponse(*recipe))
	}
}

// GET /api/products/:id/recipe
func GetRecipeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := paramID(c)
		if err != nil {
			return err
		}
		recipe, err := svc.GetRecipe(c.UserContext(), id.Tenant, productID)
		if err != nil {
			return err
		}
		return c.JSON(toRecipeResponse(*recipe))
	}
}
