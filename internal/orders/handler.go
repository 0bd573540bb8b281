package orders

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerID *uint  `json:"customer_id"`
	Table      string `json:"table"`
	Items      []struct {
		ProductID uint    `json:"product_id"`
		Quantity  float64 `json:"quantity"`
		Notes     string  `json:"notes"`
	} `json:"items"`
}

type PaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type OrderItemResponse struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Notes       string          `json:"notes,omitempty"`
}

type PaymentResponse struct {
	ID        uint                 `json:"id"`
	Method    models.PaymentMethod `json:"method"`
	Amount    decimal.Decimal      `json:"amount"`
	Status    models.PaymentStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

type OrderResponse struct {
	ID         uint                `json:"id"`
	CustomerID *uint               `json:"customer_id"`
	Table      string              `json:"table,omitempty"`
	Status     models.OrderStatus  `json:"status"`
	Total      decimal.Decimal     `json:"total"`
	OpenedAt   time.Time           `json:"opened_at"`
	ClosedAt   *time.Time          `json:"closed_at"`
	Items      []OrderItemResponse `json:"items"`
	Payments   []PaymentResponse   `json:"payments"`
}

func toOrderResponse(o models.Order) OrderResponse {
	resp := OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Table:      o.TableLabel,
		Status:     o.Status,
		Total:      o.Total,
		OpenedAt:   o.OpenedAt.UTC(),
		Items:      make([]OrderItemResponse, 0, len(o.Items)),
		Payments:   make([]PaymentResponse, 0, len(o.Payments)),
	}
	if o.ClosedAt != nil {
		closed := o.ClosedAt.UTC()
		resp.ClosedAt = &closed
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal().Round(2),
			Notes:       it.Notes,
		})
	}
	for _, p := range o.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			ID:        p.ID,
			Method:    p.Method,
			Amount:    p.Amount,
			Status:    p.Status,
			CreatedAt: p.CreatedAt.UTC(),
		})
	}
	return resp
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := CreateInput{CustomerID: body.CustomerID, TableLabel: body.Table}
		for _, it := range body.Items {
			in.Items = append(in.Items, ItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Notes: it.Notes})
		}
		order, err := svc.Create(c.UserContext(), id.Tenant, audit.ActorFrom(id), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toOrderResponse(*order))
	}
}

// PUT /api/orders/:id/pay  body: [{"method":"pix","amount":50.00}]
func PayOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		orderID, err := paramID(c)
		if err != nil {
			return err
		}
		var body []PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "body must be a list of payments")
		}

		payments := make([]PaymentInput, 0, len(body))
		for _, p := range body {
			payments = append(payments, PaymentInput{Method: models.PaymentMethod(p.Method), Amount: p.Amount})
		}
		order, err := svc.Pay(c.UserContext(), id.Tenant, audit.ActorFrom(id), orderID, payments)
		if err != nil {
			return err
		}
		return c.JSON(toOrderResponse(*order))
	}
}

// POST /api/orders/:id/cancel
func CancelOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		orderID, err := paramID(c)
		if err != nil {
			return err
		}
		order, err := svc.Cancel(c.UserContext(), id.Tenant, audit.ActorFrom(id), orderID)
		if err != nil {
			return err
		}
		return c.JSON(toOrderResponse(*order))
	}
}

// GET /api/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		orderID, err := paramID(c)
		if err != nil {
			return err
		}
		order, err := svc.Get(c.UserContext(), id.Tenant, orderID)
		if err != nil {
			return err
		}
		return c.JSON(toOrderResponse(*order))
	}
}

// GET /api/orders?status=open&limit=&offset=
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), id.Tenant, ListFilter{
			Status: models.OrderStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", 100),
			Offset: max(c.QueryInt("offset", 0), 0),
		})
		if err != nil {
			return err
		}
		resp := make([]OrderResponse, 0, len(list))
		for _, o := range list {
			resp = append(resp, toOrderResponse(o))
		}
		return c.JSON(resp)
	}
}
