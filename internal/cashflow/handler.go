package cashflow

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/gofiber/fiber/v2"
)

// GET /api/cashflow/summary?granularity=daily&start_date=2024-01-01&end_date=2024-01-31
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		q := Query{Granularity: period.Granularity(c.Query("granularity"))}
		for key, dst := range map[string]**time.Time{"start_date": &q.Start, "end_date": &q.End} {
			v := c.Query(key)
			if v == "" {
				continue
			}
			t, err := time.ParseInLocation(period.DateLayout, v, svc.Location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
			}
			*dst = &t
		}

		sum, err := svc.Summarize(c.UserContext(), id.Tenant, q)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}
