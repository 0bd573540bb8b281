package analytics

import (
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/gofiber/fiber/v2"
)

// queryDate parses an optional YYYY-MM-DD query parameter in the report zone.
func queryDate(c *fiber.Ctx, key string, loc *time.Location) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(period.DateLayout, v, loc)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return &t, nil
}

func queryRange(c *fiber.Ctx, loc *time.Location) (Range, error) {
	start, err := queryDate(c, "start_date", loc)
	if err != nil {
		return Range{}, err
	}
	end, err := queryDate(c, "end_date", loc)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

// queryTopLimit returns 0 when absent so the service applies its default,
// and -1 when present but not an integer so validation rejects it.
func queryTopLimit(c *fiber.Ctx, key string) int {
	if c.Query(key) == "" {
		return 0
	}
	n := c.QueryInt(key, -1)
	if n == 0 {
		return -1
	}
	return n
}

// GET /api/analytics/periodic?granularity=weekly&start_date=2024-01-01&end_date=2024-01-31&top_limit=5
func PeriodicHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		r, err := queryRange(c, svc.Location())
		if err != nil {
			return err
		}

		report, err := svc.Periodic(c.UserContext(), id.Tenant, PeriodicQuery{
			Range:       r,
			Granularity: period.Granularity(c.Query("granularity")),
			TopLimit:    queryTopLimit(c, "top_limit"),
		})
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

// GET /api/analytics/daily?target_date=2024-01-01&top_limit=5
func DailyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		day, err := queryDate(c, "target_date", svc.Location())
		if err != nil {
			return err
		}

		overview, err := svc.Daily(c.UserContext(), id.Tenant, day, queryTopLimit(c, "top_limit"))
		if err != nil {
			return err
		}
		return c.JSON(overview)
	}
}

// GET /api/analytics/payment-mix?start_date=&end_date=
func PaymentMixHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		r, err := queryRange(c, svc.Location())
		if err != nil {
			return err
		}

		mix, err := svc.PaymentMix(c.UserContext(), id.Tenant, r)
		if err != nil {
			return err
		}
		return c.JSON(mix)
	}
}

// GET /api/analytics/top-products?start_date=&end_date=&limit=5
func TopProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}
		r, err := queryRange(c, svc.Location())
		if err != nil {
			return err
		}

		top, err := svc.TopProducts(c.UserContext(), id.Tenant, r, queryTopLimit(c, "limit"))
		if err != nil {
			return err
		}
		return c.JSON(top)
	}
}
