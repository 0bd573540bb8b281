package cashflow

import (
	"strconv"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OpenSessionRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
}

type CloseSessionRequest struct {
	ClosingAmount *decimal.Decimal `json:"closing_amount"`
}

type CashMovementRequest struct {
	SessionID uint                    `json:"session_id"`
	Type      models.CashMovementType `json:"type"` // supply | withdrawal
	Amount    decimal.Decimal         `json:"amount"`
	Reason    string                  `json:"reason"`
}

type CashMovementResponse struct {
	ID        uint                    `json:"id"`
	SessionID uint                    `json:"session_id"`
	Type      models.CashMovementType `json:"type"`
	Amount    decimal.Decimal         `json:"amount"`
	Reason    string                  `json:"reason,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type SessionResponse struct {
	ID            uint                   `json:"id"`
	UserID        uint                   `json:"user_id"`
	UserName      string                 `json:"user_name"`
	IsOpen        bool                   `json:"is_open"`
	OpeningAmount decimal.Decimal        `json:"opening_amount"`
	ClosingAmount *decimal.Decimal       `json:"closing_amount"`
	Supplies      decimal.Decimal        `json:"supplies"`
	Withdrawals   decimal.Decimal        `json:"withdrawals"`
	Expected      decimal.Decimal        `json:"expected_amount"`
	Difference    *decimal.Decimal       `json:"difference"`
	OpenedAt      time.Time              `json:"opened_at"`
	ClosedAt      *time.Time             `json:"closed_at"`
	Movements     []CashMovementResponse `json:"movements"`
}

func toMovementResponse(m models.CashMovement) CashMovementResponse {
	return CashMovementResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Type:      m.Type,
		Amount:    m.Amount,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func toSessionResponse(r SessionReport) SessionResponse {
	s := r.Session
	resp := SessionResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		UserName:      s.UserName,
		IsOpen:        s.IsOpen,
		OpeningAmount: s.OpeningAmount,
		ClosingAmount: s.ClosingAmount,
		Supplies:      r.Supplies,
		Withdrawals:   r.Withdrawn,
		Expected:      r.Expected,
		Difference:    r.Difference,
		OpenedAt:      s.OpenedAt.UTC(),
		Movements:     make([]CashMovementResponse, 0, len(s.Movements)),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.UTC()
		resp.ClosedAt = &t
	}
	for _, m := range s.Movements {
		resp.Movements = append(resp.Movements, toMovementResponse(m))
	}
	return resp
}

func sessionID(c *fiber.Ctx) (uint, error) {
	v, err := c.ParamsInt("id")
	if err != nil || v <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid cash session id")
	}
	return uint(v), nil
}

// POST /api/cash/sessions
func OpenSessionHandler(d *Drawer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body OpenSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}

		sess, err := d.Open(c.UserContext(), id.Tenant, audit.ActorFrom(id), body.OpeningAmount)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toSessionResponse(*report(*sess)))
	}
}

// PUT /api/cash/sessions/:id/close
func CloseSessionHandler(d *Drawer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		sid, err := sessionID(c)
		if err != nil {
			return err
		}
		var body CloseSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ClosingAmount == nil {
			return fiber.NewError(fiber.StatusBadRequest, "closing_amount is required")
		}

		supervisor := id.Role == auth.RoleOwner || id.Role == auth.RoleManager
		r, err := d.Close(c.UserContext(), id.Tenant, audit.ActorFrom(id), supervisor, sid, *body.ClosingAmount)
		if err != nil {
			return err
		}
		return c.JSON(toSessionResponse(*r))
	}
}

// GET /api/cash/sessions?user_id=&open=true&limit=&offset=
func ListSessionsHandler(d *Drawer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		f := SessionFilter{Limit: c.QueryInt("limit", 100), Offset: c.QueryInt("offset", 0)}
		if v := c.Query("user_id"); v != "" {
			uid, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
			}
			u := uint(uid)
			f.UserID = &u
		}
		if v := c.Query("open"); v != "" {
			open, err := strconv.ParseBool(v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "open must be true or false")
			}
			f.Open = &open
		}

		list, err := d.List(c.UserContext(), id.Tenant, f)
		if err != nil {
			return err
		}
		out := make([]SessionResponse, 0, len(list))
		for _, r := range list {
			out = append(out, toSessionResponse(r))
		}
		return c.JSON(out)
	}
}

// GET /api/cash/sessions/:id
func GetSessionHandler(d *Drawer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		sid, err := sessionID(c)
		if err != nil {
			return err
		}
		r, err := d.Get(c.UserContext(), id.Tenant, sid)
		if err != nil {
			return err
		}
		return c.JSON(toSessionResponse(*r))
	}
}

// POST /api/cash/movements
func CreateCashMovementHandler(d *Drawer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CashMovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		mov, err := d.AddMovement(c.UserContext(), id.Tenant, audit.ActorFrom(id), MovementInput(body))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*mov))
	}
}
