package stock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateBatchRequest struct {
	ProductID      uint            `json:"product_id"`
	Quantity       float64         `json:"quantity"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	ExpirationDate string          `json:"expiration_date"` // "2025-12-09", optional
	LotCode        string          `json:"lot_code"`
}

type BatchResponse struct {
	ID             uint            `json:"id"`
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       float64         `json:"quantity"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	ExpirationDate *string         `json:"expiration_date"`
	LotCode        string          `json:"lot_code"`
	CreatedAt      time.Time       `json:"created_at"`
}

type CreateMoveRequest struct {
	ProductID uint    `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Type      string  `json:"type"`
	Reason    string  `json:"reason"`
}

type MoveResponse struct {
	ID          uint                 `json:"id"`
	ProductID   uint                 `json:"product_id"`
	ProductName string               `json:"product_name,omitempty"`
	Type        models.StockMoveType `json:"type"`
	Quantity    float64              `json:"quantity"`
	Reason      string               `json:"reason"`
	BatchID     *uint                `json:"batch_id"`
	OrderID     *uint                `json:"order_id"`
	CreatedAt   time.Time            `json:"created_at"`
}

func toBatchResponse(b models.StockBatch) BatchResponse {
	resp := BatchResponse{
		ID:          b.ID,
		ProductID:   b.ProductID,
		ProductName: b.Product.Name,
		Quantity:    b.Quantity,
		CostPrice:   b.UnitCost,
		LotCode:     b.LotCode,
		CreatedAt:   b.CreatedAt.UTC(),
	}
	if b.ExpirationDate != nil {
		s := b.ExpirationDate.Format("2006-01-02")
		resp.ExpirationDate = &s
	}
	return resp
}

func toMoveResponse(m models.StockMove) MoveResponse {
	return MoveResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		ProductName: m.Product.Name,
		Type:        m.Type,
		Quantity:    m.Quantity,
		Reason:      m.Reason,
		BatchID:     m.BatchID,
		OrderID:     m.OrderID,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// POST /api/stock/batches
func CreateBatchHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := BatchInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			UnitCost:  body.CostPrice,
			LotCode:   body.LotCode,
		}
		if body.ExpirationDate != "" {
			exp, err := time.Parse("2006-01-02", body.ExpirationDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "expiration_date must be YYYY-MM-DD")
			}
			in.ExpirationDate = &exp
		}

		batch, err := l.RecordBatch(c.UserContext(), id.Tenant, audit.ActorFrom(id), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toBatchResponse(*batch))
	}
}

// GET /api/stock/batches?product_id=&limit=&offset=
func ListBatchesHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := queryProductID(c)
		if err != nil {
			return err
		}
		batches, err := l.ListBatches(c.UserContext(), id.Tenant,
			productID, c.QueryInt("limit", 100), max(c.QueryInt("offset", 0), 0))
		if err != nil {
			return err
		}
		resp := make([]BatchResponse, 0, len(batches))
		for _, b := range batches {
			resp = append(resp, toBatchResponse(b))
		}
		return c.JSON(resp)
	}
}

// POST /api/stock/moves
func CreateMoveHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		var body CreateMoveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		move, err := l.RecordMove(c.UserContext(), id.Tenant, audit.ActorFrom(id), MoveInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Type:      models.StockMoveType(body.Type),
			Reason:    body.Reason,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toMoveResponse(*move))
	}
}

// POST /api/stock/moves/import  multipart "file": .xlsx with product, quantity, type, reason
func ImportMovesHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are accepted")
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()

		rows, err := ParseMoveSheet(f)
		if err != nil {
			return err
		}
		res, err := l.ImportMoves(c.UserContext(), id.Tenant, audit.ActorFrom(id), rows)
		if err != nil {
			return err
		}

		moves := make([]MoveResponse, 0, len(res.Moves))
		for _, m := range res.Moves {
			moves = append(moves, toMoveResponse(m))
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imported": res.Imported, "moves": moves})
	}
}

// GET /api/stock/moves?product_id=&type=&limit=&offset=
func ListMovesHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := queryProductID(c)
		if err != nil {
			return err
		}
		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		moves, err := l.ListMoves(c.UserContext(), id.Tenant, MoveFilter{
			ProductID: productID,
			Type:      models.StockMoveType(c.Query("type")),
			Limit:     limit,
			Offset:    max(c.QueryInt("offset", 0), 0),
		})
		if err != nil {
			return err
		}
		resp := make([]MoveResponse, 0, len(moves))
		for _, m := range moves {
			resp = append(resp, toMoveResponse(m))
		}
		return c.JSON(resp)
	}
}

// GET /api/stock/inventory
func InventoryHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		inv, err := l.Inventory(c.UserContext(), id.Tenant)
		if err != nil {
			return err
		}
		return c.JSON(inv)
	}
}

// GET /api/stock/balance/:product_id?verify=true
func BalanceHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := c.ParamsInt("product_id")
		if err != nil || productID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}

		if c.QueryBool("verify") {
			check, err := l.Verify(c.UserContext(), id.Tenant, uint(productID))
			if err != nil {
				return err
			}
			return c.JSON(check)
		}

		balance, err := l.CurrentBalance(c.UserContext(), id.Tenant, uint(productID))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"product_id": productID, "balance": balance})
	}
}

// queryProductID reads the optional product_id filter; zero means all.
func queryProductID(c *fiber.Ctx) (uint, error) {
	v := c.Query("product_id")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
	}
	return uint(n), nil
}
