package customers

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Preferences string `json:"preferences"`
	Allergies   string `json:"allergies"`
}

type CustomerResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Preferences string    `json:"preferences,omitempty"`
	Allergies   string    `json:"allergies,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toResponse(c models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Email:       c.Email,
		Preferences: c.Preferences,
		Allergies:   c.Allergies,
		CreatedAt:   c.CreatedAt.UTC(),
	}
}

// POST /api/customers
func CreateCustomerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		cust, err := svc.Create(c.UserContext(), id.Tenant, audit.ActorFrom(id), Input(body))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(*cust))
	}
}

// GET /api/customers?q=&limit=&offset=
func ListCustomersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), id.Tenant, ListFilter{
			Search: c.Query("q"),
			Limit:  c.QueryInt("limit", 100),
			Offset: c.QueryInt("offset", 0),
		})
		if err != nil {
			return err
		}
		out := make([]CustomerResponse, 0, len(list))
		for _, cust := range list {
			out = append(out, toResponse(cust))
		}
		return c.JSON(out)
	}
}

// GET /api/customers/:id
func GetCustomerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		cid, err := c.ParamsInt("id")
		if err != nil || cid <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
		}
		cust, err := svc.Get(c.UserContext(), id.Tenant, uint(cid))
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*cust))
	}
}
