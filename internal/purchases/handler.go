package purchases

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SupplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type SupplierResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type PayableRequest struct {
	SupplierID  *uint           `json:"supplier_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"due_date"` // YYYY-MM-DD
}

type PayableResponse struct {
	ID              uint                 `json:"id"`
	SupplierID      *uint                `json:"supplier_id"`
	SupplierName    string               `json:"supplier_name,omitempty"`
	PurchaseOrderID *uint                `json:"purchase_order_id"`
	Description     string               `json:"description"`
	Amount          decimal.Decimal      `json:"amount"`
	DueDate         string               `json:"due_date"`
	Status          models.PayableStatus `json:"status"`
	PaidAt          *time.Time           `json:"paid_at"`
	CanceledAt      *time.Time           `json:"canceled_at"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toSupplierResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{ID: s.ID, Name: s.Name, Contact: s.Contact, Phone: s.Phone, Email: s.Email}
}

func toPayableResponse(p models.Payable) PayableResponse {
	resp := PayableResponse{
		ID:              p.ID,
		SupplierID:      p.SupplierID,
		PurchaseOrderID: p.PurchaseOrderID,
		Description:     p.Description,
		Amount:          p.Amount,
		DueDate:         p.DueDate.UTC().Format(period.DateLayout),
		Status:          p.Status,
		CreatedAt:       p.CreatedAt.UTC(),
	}
	if p.Supplier != nil {
		resp.SupplierName = p.Supplier.Name
	}
	if p.PaidAt != nil {
		t := p.PaidAt.UTC()
		resp.PaidAt = &t
	}
	if p.CanceledAt != nil {
		t := p.CanceledAt.UTC()
		resp.CanceledAt = &t
	}
	return resp
}

func paramID(c *fiber.Ctx, entity string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+entity+" id")
	}
	return uint(id), nil
}

func parseDate(v, field string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(period.DateLayout, v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" must be YYYY-MM-DD")
	}
	return &t, nil
}

// POST /api/purchases/suppliers
func CreateSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sup, err := svc.CreateSupplier(c.UserContext(), id.Tenant, audit.ActorFrom(id), SupplierInput(body))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(*sup))
	}
}

// GET /api/purchases/suppliers
func ListSuppliersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		sups, err := svc.ListSuppliers(c.UserContext(), id.Tenant)
		if err != nil {
			return err
		}
		out := make([]SupplierResponse, 0, len(sups))
		for _, s := range sups {
			out = append(out, toSupplierResponse(s))
		}
		return c.JSON(out)
	}
}

// POST /api/purchases/payables
func CreatePayableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body PayableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		due, err := parseDate(body.DueDate, "due_date")
		if err != nil {
			return err
		}

		p, err := svc.CreatePayable(c.UserContext(), id.Tenant, audit.ActorFrom(id), PayableInput{
			SupplierID:  body.SupplierID,
			Description: body.Description,
			Amount:      body.Amount,
			DueDate:     due,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toPayableResponse(*p))
	}
}

// GET /api/purchases/payables?status=open&supplier_id=&due_from=&due_to=&limit=&offset=
func ListPayablesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		f := PayableFilter{
			Status: models.PayableStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", 100),
			Offset: c.QueryInt("offset", 0),
		}
		if v := c.QueryInt("supplier_id", 0); v > 0 {
			sid := uint(v)
			f.SupplierID = &sid
		}
		if f.DueFrom, err = parseDate(c.Query("due_from"), "due_from"); err != nil {
			return err
		}
		if f.DueTo, err = parseDate(c.Query("due_to"), "due_to"); err != nil {
			return err
		}

		list, err := svc.ListPayables(c.UserContext(), id.Tenant, f)
		if err != nil {
			return err
		}
		out := make([]PayableResponse, 0, len(list))
		for _, p := range list {
			out = append(out, toPayableResponse(p))
		}
		return c.JSON(out)
	}
}

// GET /api/purchases/payables/:id
func GetPayableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		pid, err := paramID(c, "payable")
		if err != nil {
			return err
		}
		p, err := svc.GetPayable(c.UserContext(), id.Tenant, pid)
		if err != nil {
			return err
		}
		return c.JSON(toPayableResponse(*p))
	}
}

// PUT /api/purchases/payables/:id/settle
func SettlePayableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		pid, err := paramID(c, "payable")
		if err != nil {
			return err
		}
		p, err := svc.Settle(c.UserContext(), id.Tenant, audit.ActorFrom(id), pid)
		if err != nil {
			return err
		}
		return c.JSON(toPayableResponse(*p))
	}
}

// PUT /api/purchases/payables/:id/cancel
func CancelPayableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		pid, err := paramID(c, "payable")
		if err != nil {
			return err
		}
		p, err := svc.Cancel(c.UserContext(), id.Tenant, audit.ActorFrom(id), pid)
		if err != nil {
			return err
		}
		return c.JSON(toPayableResponse(*p))
	}
}

// GET /api/purchases/payables/summary/window?granularity=monthly&reference_date=2024-01-15
func WindowSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var ref *time.Time
		if v := c.Query("reference_date"); v != "" {
			t, err := time.ParseInLocation(period.DateLayout, v, svc.Location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "reference_date must be YYYY-MM-DD")
			}
			ref = &t
		}
		sum, err := svc.WindowSummary(c.UserContext(), id.Tenant, period.Granularity(c.Query("granularity")), ref)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}
