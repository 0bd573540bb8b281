package purchases

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PurchaseOrderItemRequest struct {
	ProductID uint            `json:"product_id"`
	Quantity  float64         `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PurchaseOrderRequest struct {
	SupplierID uint                       `json:"supplier_id"`
	Notes      string                     `json:"notes"`
	Items      []PurchaseOrderItemRequest `json:"items"`
}

type PurchaseOrderItemResponse struct {
	ID          uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type PurchaseOrderResponse struct {
	ID           uint                        `json:"id"`
	SupplierID   uint                        `json:"supplier_id"`
	SupplierName string                      `json:"supplier_name,omitempty"`
	Status       models.PurchaseOrderStatus  `json:"status"`
	Notes        string                      `json:"notes,omitempty"`
	Total        decimal.Decimal             `json:"total"`
	ApprovedAt   *time.Time                  `json:"approved_at"`
	ReceivedAt   *time.Time                  `json:"received_at"`
	CreatedAt    time.Time                   `json:"created_at"`
	Items        []PurchaseOrderItemResponse `json:"items"`
}

type ReceiptResponse struct {
	Order    PurchaseOrderResponse `json:"order"`
	BatchIDs []uint                `json:"batch_ids"`
	Payable  *PayableResponse      `json:"payable"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toPurchaseOrderResponse(po models.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:         po.ID,
		SupplierID: po.SupplierID,
		Status:     po.Status,
		Notes:      po.Notes,
		Total:      po.Total(),
		ApprovedAt: utcPtr(po.ApprovedAt),
		ReceivedAt: utcPtr(po.ReceivedAt),
		CreatedAt:  po.CreatedAt.UTC(),
		Items:      make([]PurchaseOrderItemResponse, 0, len(po.Items)),
	}
	if po.Supplier != nil {
		resp.SupplierName = po.Supplier.Name
	}
	for _, it := range po.Items {
		resp.Items = append(resp.Items, PurchaseOrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal().Round(2),
		})
	}
	return resp
}

// POST /api/purchases/orders
func CreatePurchaseOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body PurchaseOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := OrderInput{SupplierID: body.SupplierID, Notes: body.Notes}
		for _, it := range body.Items {
			in.Items = append(in.Items, OrderItemInput(it))
		}
		po, err := svc.CreateOrder(c.UserContext(), id.Tenant, audit.ActorFrom(id), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toPurchaseOrderResponse(*po))
	}
}

// GET /api/purchases/orders?status=&supplier_id=&limit=&offset=
func ListPurchaseOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		f := OrderFilter{
			Status: models.PurchaseOrderStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", 100),
			Offset: c.QueryInt("offset", 0),
		}
		if v := c.QueryInt("supplier_id", 0); v > 0 {
			sid := uint(v)
			f.SupplierID = &sid
		}

		list, err := svc.ListOrders(c.UserContext(), id.Tenant, f)
		if err != nil {
			return err
		}
		out := make([]PurchaseOrderResponse, 0, len(list))
		for _, po := range list {
			out = append(out, toPurchaseOrderResponse(po))
		}
		return c.JSON(out)
	}
}

// GET /api/purchases/orders/:id
func GetPurchaseOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		poID, err := paramID(c, "purchase order")
		if err != nil {
			return err
		}
		po, err := svc.GetOrder(c.UserContext(), id.Tenant, poID)
		if err != nil {
			return err
		}
		return c.JSON(toPurchaseOrderResponse(*po))
	}
}

// PUT /api/purchases/orders/:id/approve
func ApprovePurchaseOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		poID, err := paramID(c, "purchase order")
		if err != nil {
			return err
		}
		po, err := svc.Approve(c.UserContext(), id.Tenant, audit.ActorFrom(id), poID)
		if err != nil {
			return err
		}
		return c.JSON(toPurchaseOrderResponse(*po))
	}
}

// PUT /api/purchases/orders/:id/receive
func ReceivePurchaseOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		poID, err := paramID(c, "purchase order")
		if err != nil {
			return err
		}
		rec, err := svc.Receive(c.UserContext(), id.Tenant, audit.ActorFrom(id), poID)
		if err != nil {
			return err
		}

		resp := ReceiptResponse{
			Order:    toPurchaseOrderResponse(*rec.Order),
			BatchIDs: make([]uint, 0, len(rec.Batches)),
		}
		for _, b := range rec.Batches {
			resp.BatchIDs = append(resp.BatchIDs, b.ID)
		}
		if rec.Payable != nil {
			p := toPayableResponse(*rec.Payable)
			resp.Payable = &p
		}
		return c.JSON(resp)
	}
}
