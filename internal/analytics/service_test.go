package analytics_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/analytics"
	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/database/dbtest"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tenant = "casa-a"

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

type seed struct {
	t  *testing.T
	db *gorm.DB
}

func (s seed) product(name string) models.Product {
	s.t.Helper()
	price := money("10")
	p := models.Product{TenantID: tenant, Name: name, Type: models.ProductTypeDish, SalePrice: &price}
	require.NoError(s.t, s.db.Create(&p).Error)
	return p
}

type lineSeed struct {
	product models.Product
	qty     float64
	price   string
}

// order stores an order with the given status, settlement time, items and
// one payment per method/amount pair.
func (s seed) order(tenantID string, status models.OrderStatus, closedAt *time.Time, customer *uint, lines []lineSeed, pays map[models.PaymentMethod]string) models.Order {
	s.t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.qty).Mul(money(l.price)))
	}
	o := models.Order{
		TenantID:   tenantID,
		CustomerID: customer,
		Status:     status,
		Total:      total.Round(2),
		OpenedAt:   time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		ClosedAt:   closedAt,
	}
	require.NoError(s.t, s.db.Omit(clause.Associations).Create(&o).Error)
	for _, l := range lines {
		it := models.OrderItem{TenantID: tenantID, OrderID: o.ID, ProductID: l.product.ID, Quantity: l.qty, UnitPrice: money(l.price)}
		require.NoError(s.t, s.db.Omit(clause.Associations).Create(&it).Error)
	}
	for m, amt := range pays {
		p := models.Payment{TenantID: tenantID, OrderID: o.ID, Method: m, Amount: money(amt), Status: models.PaymentStatusCompleted}
		require.NoError(s.t, s.db.Create(&p).Error)
	}
	return o
}

func at(y int, m time.Month, d, h, min int) *time.Time {
	v := time.Date(y, m, d, h, min, 0, 0, time.UTC)
	return &v
}

func newService(t *testing.T, now time.Time) (*analytics.Service, seed) {
	db := dbtest.Open(t)
	svc := analytics.NewService(db, time.UTC).WithClock(func() time.Time { return now })
	return svc, seed{t: t, db: db}
}

func TestPeriodic_SingleDay(t *testing.T) {
	svc, sd := newService(t, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	feijoada := sd.product("Feijoada")
	suco := sd.product("Suco")

	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 12, 0), nil,
		[]lineSeed{{feijoada, 1, "40.00"}}, map[models.PaymentMethod]string{models.PaymentPix: "40.00"})
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 13, 0), nil,
		[]lineSeed{{feijoada, 1, "40.00"}, {suco, 2, "5.00"}}, map[models.PaymentMethod]string{models.PaymentCash: "50.00"})
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 21, 0), nil,
		[]lineSeed{{feijoada, 1, "40.00"}, {suco, 4, "5.00"}}, map[models.PaymentMethod]string{models.PaymentPix: "60.00"})

	// Ignored: open, canceled, another tenant, another day.
	sd.order(tenant, models.OrderStatusOpen, nil, nil, []lineSeed{{feijoada, 1, "40.00"}}, nil)
	sd.order(tenant, models.OrderStatusCanceled, at(2024, 1, 1, 14, 0), nil, []lineSeed{{feijoada, 1, "40.00"}}, nil)
	sd.order("casa-b", models.OrderStatusPaid, at(2024, 1, 1, 14, 0), nil, []lineSeed{{feijoada, 9, "40.00"}}, nil)
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 2, 0, 0), nil, []lineSeed{{feijoada, 1, "40.00"}}, nil)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := svc.Periodic(ctx, tenant, analytics.PeriodicQuery{
		Range:       analytics.Range{Start: &day, End: &day},
		Granularity: period.Daily,
	})
	require.NoError(t, err)

	require.Len(t, r.Entries, 1)
	e := r.Entries[0]
	assert.Equal(t, 3, e.TotalOrders)
	assert.True(t, money("150").Equal(e.TotalRevenue), e.TotalRevenue.String())
	assert.True(t, money("50").Equal(e.AverageTicket))

	require.Len(t, e.Products, 2)
	assert.Equal(t, "Feijoada", e.Products[0].Name)
	assert.Equal(t, 3.0, e.Products[0].QuantitySold)
	assert.True(t, money("120").Equal(e.Products[0].Revenue))
	assert.Equal(t, 6.0, e.Products[1].QuantitySold)

	assert.Equal(t, r.Summary.TotalOrders, e.TotalOrders)
	assert.True(t, r.Summary.TotalRevenue.Equal(e.TotalRevenue))
}

func TestPeriodic_DefaultsAndSwap(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC))
	ctx := context.Background()

	r, err := svc.Periodic(ctx, tenant, analytics.PeriodicQuery{})
	require.NoError(t, err)
	assert.Equal(t, period.Weekly, r.Granularity)
	assert.Equal(t, "2024-03-01", r.Start)
	assert.Equal(t, "2024-03-31", r.End)
	assert.Empty(t, r.Summary.Products)
	assert.Zero(t, r.Summary.TotalOrders)

	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	r, err = svc.Periodic(ctx, tenant, analytics.PeriodicQuery{
		Range:       analytics.Range{Start: &start, End: &end},
		Granularity: period.Monthly,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", r.Start)
	assert.Equal(t, "2024-02-10", r.End)
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "2024-02", r.Entries[0].Label)
}

func TestPeriodic_Validation(t *testing.T) {
	svc, _ := newService(t, time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Periodic(ctx, tenant, analytics.PeriodicQuery{Granularity: "yearly"})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Periodic(ctx, tenant, analytics.PeriodicQuery{TopLimit: 21})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Periodic(ctx, tenant, analytics.PeriodicQuery{TopLimit: -1})
	assert.ErrorAs(t, err, &verr)
}

func TestPeriodic_Idempotent(t *testing.T) {
	svc, sd := newService(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := sd.product("A")
	b := sd.product("B")
	for i := 1; i <= 20; i++ {
		p := a
		if i%3 == 0 {
			p = b
		}
		sd.order(tenant, models.OrderStatusPaid, at(2024, 1, i, 12, 0), nil,
			[]lineSeed{{p, float64(i%4 + 1), "12.30"}}, map[models.PaymentMethod]string{models.PaymentCardDebit: "1"})
	}

	q := analytics.PeriodicQuery{Granularity: period.Weekly, TopLimit: 2}
	first, err := svc.Periodic(ctx, tenant, q)
	require.NoError(t, err)
	second, err := svc.Periodic(ctx, tenant, q)
	require.NoError(t, err)

	x, err := json.Marshal(first)
	require.NoError(t, err)
	y, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(x), string(y))
	assert.Equal(t, string(x), string(y))

	sum := decimal.Zero
	for _, e := range first.Entries {
		sum = sum.Add(e.TotalRevenue)
	}
	assert.True(t, sum.Equal(first.Summary.TotalRevenue))
	assert.Equal(t, 20, first.Summary.TotalOrders)
}

func TestDaily(t *testing.T) {
	svc, sd := newService(t, time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC))
	ctx := context.Background()

	prato := sd.product("Prato")
	c1, c2 := uint(7), uint(8)

	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 12, 0), &c1,
		[]lineSeed{{prato, 3, "25.00"}}, map[models.PaymentMethod]string{models.PaymentPix: "45.00", models.PaymentCash: "30.00"})
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 13, 0), &c1,
		[]lineSeed{{prato, 1, "25.00"}}, map[models.PaymentMethod]string{models.PaymentPix: "25.00"})
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 1, 19, 0), &c2,
		[]lineSeed{{prato, 2, "25.00"}}, map[models.PaymentMethod]string{models.PaymentCardCredit: "50.00"})
	sd.order(tenant, models.OrderStatusPaid, at(2023, 12, 31, 23, 0), nil,
		[]lineSeed{{prato, 2, "25.00"}}, map[models.PaymentMethod]string{models.PaymentCardCredit: "50.00"})

	o, err := svc.Daily(ctx, tenant, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", o.Date)
	assert.Equal(t, 3, o.TotalOrders)
	assert.Equal(t, 2, o.CustomersServed)
	assert.True(t, money("150").Equal(o.TotalRevenue))
	assert.True(t, money("50").Equal(o.AverageTicket))

	require.Len(t, o.PaymentBreakdown, 3)
	assert.Equal(t, models.PaymentPix, o.PaymentBreakdown[0].Method)
	assert.True(t, money("70").Equal(o.PaymentBreakdown[0].Amount))
	assert.True(t, money("46.67").Equal(o.PaymentBreakdown[0].Percentage))
	assert.Equal(t, models.PaymentCardCredit, o.PaymentBreakdown[1].Method)

	require.Len(t, o.SoldProducts, 1)
	assert.Equal(t, 6.0, o.SoldProducts[0].QuantitySold)

	yesterday := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	o, err = svc.Daily(ctx, tenant, &yesterday, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, o.TotalOrders)
	assert.Zero(t, o.CustomersServed)
}

func TestRevenueAndTopProducts(t *testing.T) {
	svc, sd := newService(t, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a := sd.product("Arroz")
	b := sd.product("Bife")
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 15, 12, 0), nil, []lineSeed{{a, 1, "10"}}, nil)
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 16, 12, 0), nil, []lineSeed{{b, 2, "30"}}, nil)
	sd.order(tenant, models.OrderStatusPaid, at(2024, 1, 22, 12, 0), nil, []lineSeed{{a, 1, "10"}}, nil)

	total, n, err := svc.Revenue(ctx, tenant, period.WindowFor(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), period.Weekly))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, money("70").Equal(total))

	top, err := svc.TopProducts(ctx, tenant, analytics.Range{}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Bife", top[0].Name)

	_, err = svc.TopProducts(ctx, tenant, analytics.Range{Start: ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))}, 50)
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPaymentMix(t *testing.T) {
	svc, sd := newService(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p := sd.product("Suco")
	sd.order(tenant, models.OrderStatusPaid, at(2024, 3, 2, 12, 0), nil,
		[]lineSeed{{p, 2, "10"}}, map[models.PaymentMethod]string{models.PaymentCash: "20"})
	sd.order(tenant, models.OrderStatusPaid, at(2024, 3, 9, 12, 0), nil,
		[]lineSeed{{p, 6, "10"}}, map[models.PaymentMethod]string{models.PaymentPix: "60"})
	sd.order("casa-b", models.OrderStatusPaid, at(2024, 3, 9, 12, 0), nil,
		[]lineSeed{{p, 9, "10"}}, map[models.PaymentMethod]string{models.PaymentCash: "90"})

	mix, err := svc.PaymentMix(ctx, tenant, analytics.Range{})
	require.NoError(t, err)
	require.Len(t, mix, 2)
	assert.Equal(t, models.PaymentPix, mix[0].Method)
	assert.True(t, money("75").Equal(mix[0].Percentage))
	assert.Equal(t, models.PaymentCash, mix[1].Method)
	assert.True(t, money("20").Equal(mix[1].Amount))

	mix, err = svc.PaymentMix(ctx, tenant, analytics.Range{Start: at(2024, 3, 5, 0, 0)})
	require.NoError(t, err)
	require.Len(t, mix, 1)
	assert.True(t, money("100").Equal(mix[0].Percentage))
}
