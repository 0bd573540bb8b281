package inventory

import (
	"github.com/dimaum1001/sistema-restaurante/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// GET /api/inventory/alerts?history_days=14&warning_multiplier=1.15
func AlertsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		q := DefaultAlertQuery()
		if c.Query("history_days") != "" {
			q.HistoryDays = c.QueryInt("history_days", -1)
		}
		if c.Query("warning_multiplier") != "" {
			q.WarningMultiplier = c.QueryFloat("warning_multiplier", -1)
		}

		report, err := svc.Alerts(c.UserContext(), id.Tenant, q)
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

// GET /api/inventory/consumption/:product_id?history_days=14
func ConsumptionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		productID, err := c.ParamsInt("product_id")
		if err != nil || productID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
		}
		days := 0
		if c.Query("history_days") != "" {
			days = c.QueryInt("history_days", -1)
		}

		out, err := svc.Consumption(c.UserContext(), id.Tenant, uint(productID), days)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}
