package server

import (
	"github.com/dimaum1001/sistema-restaurante/internal/analytics"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/cashflow"
	"github.com/dimaum1001/sistema-restaurante/internal/catalog"
	"github.com/dimaum1001/sistema-restaurante/internal/config"
	"github.com/dimaum1001/sistema-restaurante/internal/customers"
	"github.com/dimaum1001/sistema-restaurante/internal/inventory"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/orders"
	"github.com/dimaum1001/sistema-restaurante/internal/purchases"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"
)

var (
	catalogAdmins = []auth.Role{auth.RoleOwner, auth.RoleManager}
	catalogEditor = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RolePurchasing, auth.RoleChef}
	stockStaff    = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RolePurchasing, auth.RoleChef}
	receiving     = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RolePurchasing}
	alertViewers  = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RoleChef, auth.RolePurchasing}
	floorStaff    = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RoleCashier, auth.RoleWaiter}
	cashiers      = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RoleCashier}
	reporting     = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RoleAccountant}
	payables      = []auth.Role{auth.RoleOwner, auth.RoleManager, auth.RolePurchasing, auth.RoleAccountant}
	approvers     = []auth.Role{auth.RoleOwner, auth.RoleManager}
)

func registerRoutes(app *fiber.App, cfg *config.Config, db *gorm.DB, m *metrics.Metrics, svc *Services) {
	// Public
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Protected
	api := app.Group("/api", auth.JWTMiddleware(cfg.JWTSecret), auth.TenantMiddleware(cfg.DefaultTenant))
	role := auth.RequireRole

	// Catalog. /units is registered ahead of /:id.
	api.Post("/products/units", role(catalogAdmins...), catalog.CreateUnitHandler(svc.Catalog))
	api.Get("/products/units", role(catalogEditor...), catalog.ListUnitsHandler(svc.Catalog))
	api.Post("/products", role(catalogEditor...), catalog.CreateProductHandler(svc.Catalog))
	api.Get("/products", catalog.ListProductsHandler(svc.Catalog))
	api.Get("/products/:id", catalog.GetProductHandler(svc.Catalog))
	api.Put("/products/:id", role(catalogEditor...), catalog.UpdateProductHandler(svc.Catalog))
	api.Put("/products/:id/inventory-rule", role(catalogEditor...), catalog.SetInventoryRuleHandler(svc.Catalog))
	api.Put("/products/:id/recipe", role(catalogEditor...), catalog.SetRecipeHandler(svc.Catalog))
	api.Get("/products/:id/recipe", catalog.GetRecipeHandler(svc.Catalog))

	// Stock ledger
	st := api.Group("/stock")
	st.Post("/batches", role(receiving...), stock.CreateBatchHandler(svc.Ledger))
	st.Get("/batches", role(stockStaff...), stock.ListBatchesHandler(svc.Ledger))
	st.Post("/moves", role(stockStaff...), stock.CreateMoveHandler(svc.Ledger))
	st.Post("/moves/import", role(receiving...), stock.ImportMovesHandler(svc.Ledger))
	st.Get("/moves", role(stockStaff...), stock.ListMovesHandler(svc.Ledger))
	st.Get("/inventory", role(stockStaff...), stock.InventoryHandler(svc.Ledger))
	st.Get("/balance/:product_id", role(stockStaff...), stock.BalanceHandler(svc.Ledger))

	// Alerts
	api.Get("/inventory/alerts", role(alertViewers...), inventory.AlertsHandler(svc.Inventory))
	api.Get("/inventory/consumption/:product_id", role(alertViewers...), inventory.ConsumptionHandler(svc.Inventory))

	// Customers
	api.Post("/customers", role(floorStaff...), customers.CreateCustomerHandler(svc.Customers))
	api.Get("/customers", role(floorStaff...), customers.ListCustomersHandler(svc.Customers))
	api.Get("/customers/:id", role(floorStaff...), customers.GetCustomerHandler(svc.Customers))

	// Orders
	ord := api.Group("/orders")
	ord.Post("/", role(floorStaff...), orders.CreateOrderHandler(svc.Orders))
	ord.Get("/", role(floorStaff...), orders.ListOrdersHandler(svc.Orders))
	ord.Get("/:id", role(floorStaff...), orders.GetOrderHandler(svc.Orders))
	ord.Put("/:id/pay", role(cashiers...), orders.PayOrderHandler(svc.Orders))
	ord.Post("/:id/cancel", role(cashiers...), orders.CancelOrderHandler(svc.Orders))

	// Analytics
	an := api.Group("/analytics", role(reporting...))
	an.Get("/periodic", analytics.PeriodicHandler(svc.Analytics))
	an.Get("/daily", analytics.DailyHandler(svc.Analytics))
	an.Get("/payment-mix", analytics.PaymentMixHandler(svc.Analytics))
	an.Get("/top-products", analytics.TopProductsHandler(svc.Analytics))

	api.Get("/cashflow/summary", role(reporting...), cashflow.SummaryHandler(svc.Cashflow))

	// Cash drawer
	cash := api.Group("/cash", role(cashiers...))
	cash.Post("/sessions", cashflow.OpenSessionHandler(svc.Drawer))
	cash.Get("/sessions", cashflow.ListSessionsHandler(svc.Drawer))
	cash.Get("/sessions/:id", cashflow.GetSessionHandler(svc.Drawer))
	cash.Put("/sessions/:id/close", cashflow.CloseSessionHandler(svc.Drawer))
	cash.Post("/movements", cashflow.CreateCashMovementHandler(svc.Drawer))

	// Purchases
	pur := api.Group("/purchases", role(payables...))
	pur.Post("/suppliers", purchases.CreateSupplierHandler(svc.Purchases))
	pur.Get("/suppliers", purchases.ListSuppliersHandler(svc.Purchases))
	pur.Get("/payables/summary/window", purchases.WindowSummaryHandler(svc.Purchases))
	pur.Post("/payables", purchases.CreatePayableHandler(svc.Purchases))
	pur.Get("/payables", purchases.ListPayablesHandler(svc.Purchases))
	pur.Get("/payables/:id", purchases.GetPayableHandler(svc.Purchases))
	pur.Put("/payables/:id/settle", purchases.SettlePayableHandler(svc.Purchases))
	pur.Put("/payables/:id/cancel", purchases.CancelPayableHandler(svc.Purchases))
	pur.Post("/orders", role(receiving...), purchases.CreatePurchaseOrderHandler(svc.Purchases))
	pur.Get("/orders", purchases.ListPurchaseOrdersHandler(svc.Purchases))
	pur.Get("/orders/:id", purchases.GetPurchaseOrderHandler(svc.Purchases))
	pur.Put("/orders/:id/approve", role(approvers...), purchases.ApprovePurchaseOrderHandler(svc.Purchases))
	pur.Put("/orders/:id/receive", role(receiving...), purchases.ReceivePurchaseOrderHandler(svc.Purchases))

	api.Get("/audit-logs", role(reporting...), audit.ListAuditLogsHandler(db))
}
