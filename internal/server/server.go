// Package server assembles the fiber application: middleware, services and
// the route table.
package server

import (
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/analytics"
	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/cashflow"
	"github.com/dimaum1001/sistema-restaurante/internal/catalog"
	"github.com/dimaum1001/sistema-restaurante/internal/config"
	"github.com/dimaum1001/sistema-restaurante/internal/customers"
	"github.com/dimaum1001/sistema-restaurante/internal/inventory"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/middleware"
	"github.com/dimaum1001/sistema-restaurante/internal/orders"
	"github.com/dimaum1001/sistema-restaurante/internal/purchases"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Services struct {
	Catalog   *catalog.Service
	Ledger    *stock.Ledger
	Inventory *inventory.Service
	Orders    *orders.Service
	Analytics *analytics.Service
	Purchases *purchases.Service
	Cashflow  *cashflow.Service
	Drawer    *cashflow.Drawer
	Customers *customers.Service
}

// NewServices wires every domain service against db. now overrides the
// clock when non-nil.
func NewServices(cfg *config.Config, db *gorm.DB, log *zap.Logger, m *metrics.Metrics, now func() time.Time) *Services {
	loc := cfg.Reports.Location

	ledger := stock.NewLedger(db, log, m, cfg.Stock.AllowNegative)
	estimator := inventory.NewEstimator(ledger)
	svc := &Services{
		Catalog:   catalog.NewService(db, log),
		Ledger:    ledger,
		Inventory: inventory.NewService(db, ledger, estimator, log, m),
		Orders:    orders.NewService(db, ledger, log, m),
		Analytics: analytics.NewService(db, loc),
		Purchases: purchases.NewService(db, ledger, log, m, loc),
		Drawer:    cashflow.NewDrawer(db, log),
		Customers: customers.NewService(db, log),
	}
	svc.Cashflow = cashflow.NewService(svc.Analytics, svc.Purchases, loc)
	if now != nil {
		svc.Ledger.WithClock(now)
		svc.Inventory.WithClock(now)
		svc.Orders.WithClock(now)
		svc.Analytics.WithClock(now)
		svc.Purchases.WithClock(now)
		svc.Cashflow.WithClock(now)
		svc.Drawer.WithClock(now)
	}
	return svc
}

// errorHandler renders every error as {"error": msg}. Unexpected errors are
// logged and reported generically.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg, ok := apperr.HTTPStatus(err)
		if !ok {
			log.Error("unexpected error",
				zap.Error(err),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", middleware.RequestIDFrom(c)),
			)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// New builds the application. The caller owns db and the listener.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger, m *metrics.Metrics, svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sistema-restaurante",
		ErrorHandler:          errorHandler(log),
		DisableStartupMessage: true,
	})

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log.Named("http")))
	app.Use(middleware.Metrics(m))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Tenant, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	registerRoutes(app, cfg, db, m, svc)
	return app
}
