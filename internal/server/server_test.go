package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/auth"
	"github.com/dimaum1001/sistema-restaurante/internal/config"
	"github.com/dimaum1001/sistema-restaurante/internal/database/dbtest"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	secret = "server-test-secret-with-32-chars-or-more"
	tenant = "casa-a"
)

var now = time.Date(2024, 3, 15, 19, 30, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	app *fiber.App
}

func newHarness(t *testing.T) *harness {
	cfg := &config.Config{
		AppEnv:      "test",
		CORSOrigins: "http://localhost:5173",
		JWTSecret:   secret,
		Stock:       config.StockConfig{AllowNegative: true},
		Reports:     config.ReportsConfig{Location: time.UTC},
	}
	db := dbtest.Open(t)
	m := metrics.NewNop()
	log := zap.NewNop()
	svc := server.NewServices(cfg, db, log, m, func() time.Time { return now })
	return &harness{t: t, app: server.New(cfg, db, log, m, svc)}
}

func (h *harness) token(role auth.Role, pinned string) string {
	h.t.Helper()
	tok, err := auth.GenerateToken(secret, 1, string(role), role, pinned, time.Hour)
	require.NoError(h.t, err)
	return tok
}

// call performs a request and decodes the JSON response into out when
// out is non-nil.
func (h *harness) call(method, path, token string, body any, out any) int {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(auth.TenantHeader, tenant)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if out != nil {
		require.NoError(h.t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

type idResp struct {
	ID uint `json:"id"`
}

type errResp struct {
	Error string `json:"error"`
}

func TestPublicRoutes(t *testing.T) {
	h := newHarness(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, h.call("GET", "/api/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	assert.Equal(t, http.StatusUnauthorized, h.call("GET", "/api/products", "", nil, nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "restaurante_http_requests_total")
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	owner := h.token(auth.RoleOwner, "")

	var e errResp
	assert.Equal(t, http.StatusBadRequest, h.call("POST", "/api/products", owner, map[string]any{"name": "", "type": "dish"}, &e))
	assert.NotEmpty(t, e.Error)

	e = errResp{}
	assert.Equal(t, http.StatusNotFound, h.call("GET", "/api/products/999", owner, nil, &e))
	assert.Contains(t, e.Error, "999")

	assert.Equal(t, http.StatusBadRequest, h.call("GET", "/api/inventory/alerts?history_days=61", owner, nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("GET", "/api/analytics/periodic?granularity=yearly", owner, nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("GET", "/api/stock/moves?product_id=-3", owner, nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("GET", "/api/stock/batches?product_id=abc", owner, nil, nil))

	// Pinned to another tenant.
	other := h.token(auth.RoleOwner, "casa-b")
	assert.Equal(t, http.StatusForbidden, h.call("GET", "/api/products", other, nil, nil))
}

func TestRestaurantFlow(t *testing.T) {
	h := newHarness(t)
	owner := h.token(auth.RoleOwner, tenant)
	waiter := h.token(auth.RoleWaiter, "")
	cashier := h.token(auth.RoleCashier, "")
	accountant := h.token(auth.RoleAccountant, "")

	var kg idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products/units", owner,
		map[string]any{"name": "Quilograma", "abbreviation": "kg"}, &kg))
	assert.Equal(t, http.StatusForbidden, h.call("POST", "/api/products/units", waiter,
		map[string]any{"name": "Litro", "abbreviation": "l"}, nil))

	var beef idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products", owner,
		map[string]any{"name": "Carne moída", "type": "ingredient", "unit_id": kg.ID, "cost_price": 38.5}, &beef))
	require.Equal(t, http.StatusOK, h.call("PUT", fmt.Sprintf("/api/products/%d/inventory-rule", beef.ID), owner,
		map[string]any{"reorder_point": 8, "par_level": 12}, nil))

	var burger idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products", owner,
		map[string]any{"name": "Hambúrguer", "type": "dish", "sale_price": 30}, &burger))
	require.Equal(t, http.StatusOK, h.call("PUT", fmt.Sprintf("/api/products/%d/recipe", burger.ID), owner,
		map[string]any{"yield_qty": 1, "items": []map[string]any{{"ingredient_id": beef.ID, "quantity": 0.2}}}, nil))

	require.Equal(t, http.StatusCreated, h.call("POST", "/api/stock/batches", owner,
		map[string]any{"product_id": beef.ID, "quantity": 10, "cost_price": 38.5, "expiration_date": "2024-03-30"}, nil))

	var order struct {
		ID     uint    `json:"id"`
		Status string  `json:"status"`
		Total  float64 `json:"total"`
	}
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/orders", waiter,
		map[string]any{"table": "Mesa 2", "items": []map[string]any{{"product_id": burger.ID, "quantity": 5}}}, &order))
	assert.Equal(t, "open", order.Status)
	assert.Equal(t, 150.0, order.Total)

	payPath := fmt.Sprintf("/api/orders/%d/pay", order.ID)
	payment := []map[string]any{{"method": "pix", "amount": 150}}
	assert.Equal(t, http.StatusForbidden, h.call("PUT", payPath, waiter, payment, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("PUT", payPath, cashier, []map[string]any{{"method": "pix", "amount": 140}}, nil))
	require.Equal(t, http.StatusOK, h.call("PUT", payPath, cashier, payment, &order))
	assert.Equal(t, "paid", order.Status)
	assert.Equal(t, http.StatusConflict, h.call("PUT", payPath, cashier, payment, nil))

	var bal struct {
		Balance float64 `json:"balance"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", fmt.Sprintf("/api/stock/balance/%d", beef.ID), owner, nil, &bal))
	assert.InDelta(t, 9.0, bal.Balance, 1e-9)

	var check struct {
		Recomputed float64 `json:"recomputed"`
		Consistent bool    `json:"consistent"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", fmt.Sprintf("/api/stock/balance/%d?verify=true", beef.ID), owner, nil, &check))
	assert.True(t, check.Consistent)
	assert.InDelta(t, 9.0, check.Recomputed, 1e-9)

	var inv map[string]float64
	require.Equal(t, http.StatusOK, h.call("GET", "/api/stock/inventory", owner, nil, &inv))
	assert.InDelta(t, 9.0, inv["Carne moída"], 1e-9)

	var alerts struct {
		Alerts []struct {
			ProductID uint    `json:"product_id"`
			Status    string  `json:"status"`
			Coverage  float64 `json:"coverage_days"`
		} `json:"alerts"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", "/api/inventory/alerts", owner, nil, &alerts))
	require.Len(t, alerts.Alerts, 1)
	assert.Equal(t, beef.ID, alerts.Alerts[0].ProductID)
	assert.Equal(t, "warning", alerts.Alerts[0].Status)
	assert.InDelta(t, 126.0, alerts.Alerts[0].Coverage, 1e-6)

	var daily struct {
		TotalOrders  int     `json:"total_orders"`
		TotalRevenue float64 `json:"total_revenue"`
		Payments     []struct {
			Method     string  `json:"method"`
			Percentage float64 `json:"percentage"`
		} `json:"payment_breakdown"`
	}
	assert.Equal(t, http.StatusForbidden, h.call("GET", "/api/analytics/daily", waiter, nil, nil))
	require.Equal(t, http.StatusOK, h.call("GET", "/api/analytics/daily", accountant, nil, &daily))
	assert.Equal(t, 1, daily.TotalOrders)
	assert.Equal(t, 150.0, daily.TotalRevenue)
	require.Len(t, daily.Payments, 1)
	assert.Equal(t, 100.0, daily.Payments[0].Percentage)

	var payable idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/purchases/payables", accountant,
		map[string]any{"description": "gás", "amount": 40, "due_date": "2024-03-20"}, &payable))
	require.Equal(t, http.StatusOK, h.call("PUT", fmt.Sprintf("/api/purchases/payables/%d/settle", payable.ID), accountant, nil, nil))

	var cash struct {
		Revenue      float64 `json:"revenue"`
		PayablesPaid float64 `json:"payables_paid"`
		Net          float64 `json:"net"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", "/api/cashflow/summary?granularity=monthly", accountant, nil, &cash))
	assert.Equal(t, 150.0, cash.Revenue)
	assert.Equal(t, 40.0, cash.PayablesPaid)
	assert.Equal(t, 110.0, cash.Net)

	var logs []map[string]any
	require.Equal(t, http.StatusOK, h.call("GET", "/api/audit-logs?entity_type=order", accountant, nil, &logs))
	assert.Len(t, logs, 2)
}

func TestPurchaseOrderFlow(t *testing.T) {
	h := newHarness(t)
	owner := h.token(auth.RoleOwner, "")
	buyer := h.token(auth.RolePurchasing, "")
	accountant := h.token(auth.RoleAccountant, "")

	var supplier, kg, flour idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/purchases/suppliers", buyer,
		map[string]any{"name": "Moinho Real"}, &supplier))
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products/units", owner,
		map[string]any{"name": "Quilograma", "abbreviation": "kg"}, &kg))
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products", owner,
		map[string]any{"name": "Farinha", "type": "ingredient", "unit_id": kg.ID}, &flour))

	body := map[string]any{
		"supplier_id": supplier.ID,
		"items":       []map[string]any{{"product_id": flour.ID, "quantity": 20, "unit_price": 3.25}},
	}
	assert.Equal(t, http.StatusForbidden, h.call("POST", "/api/purchases/orders", accountant, body, nil))
	var po struct {
		ID     uint    `json:"id"`
		Status string  `json:"status"`
		Total  float64 `json:"total"`
	}
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/purchases/orders", buyer, body, &po))
	assert.Equal(t, "draft", po.Status)
	assert.Equal(t, 65.0, po.Total)

	approve := fmt.Sprintf("/api/purchases/orders/%d/approve", po.ID)
	assert.Equal(t, http.StatusForbidden, h.call("PUT", approve, buyer, nil, nil))
	require.Equal(t, http.StatusOK, h.call("PUT", approve, owner, nil, &po))
	assert.Equal(t, "approved", po.Status)

	var receipt struct {
		Order    struct{ Status string } `json:"order"`
		BatchIDs []uint                  `json:"batch_ids"`
		Payable  struct {
			Amount  float64 `json:"amount"`
			DueDate string  `json:"due_date"`
			Status  string  `json:"status"`
		} `json:"payable"`
	}
	receive := fmt.Sprintf("/api/purchases/orders/%d/receive", po.ID)
	require.Equal(t, http.StatusOK, h.call("PUT", receive, buyer, nil, &receipt))
	assert.Equal(t, "received", receipt.Order.Status)
	assert.Len(t, receipt.BatchIDs, 1)
	assert.Equal(t, 65.0, receipt.Payable.Amount)
	assert.Equal(t, "2024-04-14", receipt.Payable.DueDate)
	assert.Equal(t, "open", receipt.Payable.Status)
	assert.Equal(t, http.StatusConflict, h.call("PUT", receive, buyer, nil, nil))

	var bal struct {
		Balance float64 `json:"balance"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", fmt.Sprintf("/api/stock/balance/%d", flour.ID), owner, nil, &bal))
	assert.InDelta(t, 20.0, bal.Balance, 1e-9)

	var list []idResp
	require.Equal(t, http.StatusOK, h.call("GET", "/api/purchases/orders?status=received", accountant, nil, &list))
	assert.Len(t, list, 1)
	assert.Equal(t, http.StatusNotFound, h.call("GET", "/api/purchases/orders/99", accountant, nil, nil))
}

func TestCustomersAndCashDrawer(t *testing.T) {
	h := newHarness(t)
	owner := h.token(auth.RoleOwner, "")
	waiter := h.token(auth.RoleWaiter, "")
	cashier := h.token(auth.RoleCashier, "")
	otherCashier, err := auth.GenerateToken(secret, 2, "Caio", auth.RoleCashier, "", time.Hour)
	require.NoError(t, err)

	var guest idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/customers", waiter,
		map[string]any{"name": "Rita", "allergies": "glúten"}, &guest))
	var found struct {
		Name      string `json:"name"`
		Allergies string `json:"allergies"`
	}
	require.Equal(t, http.StatusOK, h.call("GET", fmt.Sprintf("/api/customers/%d", guest.ID), waiter, nil, &found))
	assert.Equal(t, "glúten", found.Allergies)

	var dish idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/products", owner,
		map[string]any{"name": "Café", "type": "dish", "sale_price": 6}, &dish))
	items := []map[string]any{{"product_id": dish.ID, "quantity": 1}}
	assert.Equal(t, http.StatusNotFound, h.call("POST", "/api/orders", waiter,
		map[string]any{"customer_id": 404, "items": items}, nil))
	assert.Equal(t, http.StatusCreated, h.call("POST", "/api/orders", waiter,
		map[string]any{"customer_id": guest.ID, "items": items}, nil))

	assert.Equal(t, http.StatusForbidden, h.call("POST", "/api/cash/sessions", waiter, nil, nil))
	var sess idResp
	require.Equal(t, http.StatusCreated, h.call("POST", "/api/cash/sessions", cashier,
		map[string]any{"opening_amount": 100}, &sess))
	assert.Equal(t, http.StatusConflict, h.call("POST", "/api/cash/sessions", cashier,
		map[string]any{"opening_amount": 0}, nil))

	require.Equal(t, http.StatusCreated, h.call("POST", "/api/cash/movements", cashier,
		map[string]any{"session_id": sess.ID, "type": "withdrawal", "amount": 40, "reason": "sangria"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("POST", "/api/cash/movements", cashier,
		map[string]any{"session_id": sess.ID, "type": "tip", "amount": 5}, nil))

	closePath := fmt.Sprintf("/api/cash/sessions/%d/close", sess.ID)
	assert.Equal(t, http.StatusForbidden, h.call("PUT", closePath, otherCashier, map[string]any{"closing_amount": 60}, nil))
	assert.Equal(t, http.StatusBadRequest, h.call("PUT", closePath, cashier, map[string]any{}, nil))

	var closed struct {
		IsOpen     bool     `json:"is_open"`
		Expected   float64  `json:"expected_amount"`
		Difference *float64 `json:"difference"`
	}
	require.Equal(t, http.StatusOK, h.call("PUT", closePath, owner, map[string]any{"closing_amount": 58}, &closed))
	assert.False(t, closed.IsOpen)
	assert.Equal(t, 60.0, closed.Expected)
	require.NotNil(t, closed.Difference)
	assert.Equal(t, -2.0, *closed.Difference)

	var sessions []idResp
	require.Equal(t, http.StatusOK, h.call("GET", "/api/cash/sessions?open=false", cashier, nil, &sessions))
	assert.Len(t, sessions, 1)
}
