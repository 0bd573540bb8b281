package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func sale(id uint, at time.Time, total string, lines ...Line) Sale {
	return Sale{OrderID: id, ClosedAt: at, Total: d(total), Lines: lines}
}

func line(product uint, name string, qty float64, revenue string) Line {
	return Line{ProductID: product, Name: name, Quantity: qty, Revenue: d(revenue)}
}

func TestAggregate_ThreeOrdersOneDay(t *testing.T) {
	sales := []Sale{
		sale(1, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), "40.00", line(1, "Feijoada", 1, "40.00")),
		sale(2, time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC), "50.00", line(1, "Feijoada", 1, "40.00"), line(2, "Suco", 1, "10.00")),
		sale(3, time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC), "60.00", line(3, "Picanha", 1, "60.00")),
	}

	r := Aggregate(sales, day(2024, 1, 1), day(2024, 1, 1), period.Daily, 5)

	require.Len(t, r.Entries, 1)
	e := r.Entries[0]
	assert.Equal(t, "2024-01-01", e.Label)
	assert.Equal(t, "2024-01-01", e.Start)
	assert.Equal(t, "2024-01-01", e.End)
	assert.Equal(t, 3, e.TotalOrders)
	assert.True(t, d("150.00").Equal(e.TotalRevenue))
	assert.True(t, d("50.00").Equal(e.AverageTicket))

	require.Len(t, e.Products, 3)
	assert.Equal(t, "Feijoada", e.Products[0].Name)
	assert.True(t, d("80").Equal(e.Products[0].Revenue))
	assert.Equal(t, 2.0, e.Products[0].QuantitySold)
	assert.Equal(t, "Picanha", e.Products[1].Name)
}

func TestAggregate_PartitionAndEmptyBuckets(t *testing.T) {
	sales := []Sale{
		sale(1, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), "999.00"), // before range
		sale(2, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), "10.50"),
		sale(3, time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC), "20.25"), // Sunday, last day of W01
		sale(4, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "30.00"),    // Monday, first of W02
		sale(5, time.Date(2024, 1, 29, 8, 0, 0, 0, time.UTC), "5.00"),
		sale(6, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "999.00"), // after range
	}

	r := Aggregate(sales, day(2024, 1, 1), day(2024, 1, 31), period.Weekly, 5)

	labels := make([]string, 0, len(r.Entries))
	sum := decimal.Zero
	orders := 0
	for _, e := range r.Entries {
		labels = append(labels, e.Label)
		sum = sum.Add(e.TotalRevenue)
		orders += e.TotalOrders
	}
	assert.Equal(t, []string{"2024-W01", "2024-W02", "2024-W03", "2024-W04", "2024-W05"}, labels)
	assert.True(t, sum.Equal(r.Summary.TotalRevenue), "buckets %s summary %s", sum, r.Summary.TotalRevenue)
	assert.Equal(t, orders, r.Summary.TotalOrders)
	assert.True(t, d("65.75").Equal(r.Summary.TotalRevenue))

	assert.Equal(t, 2, r.Entries[0].TotalOrders)
	assert.Equal(t, 1, r.Entries[1].TotalOrders)

	empty := r.Entries[2]
	assert.Zero(t, empty.TotalOrders)
	assert.True(t, empty.AverageTicket.IsZero())
	assert.Empty(t, empty.Products)

	// The last week is clipped to the range.
	assert.Equal(t, "2024-01-29", r.Entries[4].Start)
	assert.Equal(t, "2024-01-31", r.Entries[4].End)
}

func TestAggregate_Monthly(t *testing.T) {
	sales := []Sale{
		sale(1, time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), "10"),
		sale(2, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), "20"),
		sale(3, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "30"),
	}
	r := Aggregate(sales, day(2024, 1, 15), day(2024, 3, 10), period.Monthly, 5)

	require.Len(t, r.Entries, 3)
	assert.Equal(t, "2024-01", r.Entries[0].Label)
	assert.Equal(t, "2024-01-15", r.Entries[0].Start)
	assert.Equal(t, "2024-02-29", r.Entries[1].End)
	for _, e := range r.Entries {
		assert.Equal(t, 1, e.TotalOrders, e.Label)
	}
}

func TestAggregate_Location(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on Jan 2 is 22:00 on Jan 1 local time.
	sales := []Sale{sale(1, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), "10")}

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	last := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	r := Aggregate(sales, first, last, period.Daily, 5)

	require.Len(t, r.Entries, 2)
	assert.Equal(t, 1, r.Entries[0].TotalOrders)
	assert.Zero(t, r.Entries[1].TotalOrders)
}

func TestAggregate_ZeroOrders(t *testing.T) {
	r := Aggregate(nil, day(2024, 1, 1), day(2024, 1, 3), period.Daily, 5)
	require.Len(t, r.Entries, 3)
	for _, e := range r.Entries {
		assert.True(t, e.AverageTicket.IsZero())
	}
	assert.True(t, r.Summary.AverageTicket.IsZero())
	assert.Empty(t, r.Summary.Products)
}

func TestAggregate_TopLimitAndDeterminism(t *testing.T) {
	var sales []Sale
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	for i := uint(1); i <= 8; i++ {
		sales = append(sales, sale(i, at, "10", line(i, "Prato", 1, "10")))
	}
	sales = append(sales, sale(9, at, "30", line(3, "Prato", 3, "30")))

	first := Aggregate(sales, day(2024, 5, 1), day(2024, 5, 31), period.Monthly, 5)
	require.Len(t, first.Summary.Products, 5)
	assert.Equal(t, uint(3), first.Summary.Products[0].ProductID)
	// Equal revenue, quantity and name: ordered by id.
	assert.Equal(t, uint(1), first.Summary.Products[1].ProductID)
	assert.Equal(t, uint(2), first.Summary.Products[2].ProductID)

	reversed := make([]Sale, len(sales))
	for i, s := range sales {
		reversed[len(sales)-1-i] = s
	}
	second := Aggregate(reversed, day(2024, 5, 1), day(2024, 5, 31), period.Monthly, 5)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAverageTicket(t *testing.T) {
	assert.True(t, AverageTicket(decimal.Zero, 0).IsZero())
	assert.True(t, AverageTicket(d("100"), 3).Equal(d("33.33")))
	assert.True(t, AverageTicket(d("150.00"), 3).Equal(d("50")))
}

func TestPaymentBreakdown(t *testing.T) {
	sales := []Sale{
		{Payments: []PaymentLine{{Method: models.PaymentPix, Amount: d("60")}, {Method: models.PaymentCash, Amount: d("15")}}},
		{Payments: []PaymentLine{{Method: models.PaymentPix, Amount: d("15")}, {Method: models.PaymentCardCredit, Amount: d("10")}}},
	}
	mix := PaymentBreakdown(sales)
	require.Len(t, mix, 3)
	assert.Equal(t, models.PaymentPix, mix[0].Method)
	assert.True(t, d("75").Equal(mix[0].Amount))
	assert.True(t, d("75").Equal(mix[0].Percentage))
	assert.Equal(t, models.PaymentCash, mix[1].Method)
	assert.True(t, d("15").Equal(mix[1].Percentage))

	assert.Empty(t, PaymentBreakdown(nil))
}

func TestOverview_CustomersServed(t *testing.T) {
	c1, c2 := uint(1), uint(2)
	sales := []Sale{
		{Total: d("10"), CustomerID: &c1},
		{Total: d("20"), CustomerID: &c1},
		{Total: d("30"), CustomerID: &c2},
		{Total: d("40")},
	}
	gen := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	o := Overview(day(2024, 1, 1), sales, 5, gen)
	assert.Equal(t, "2024-01-01", o.Date)
	assert.Equal(t, 4, o.TotalOrders)
	assert.Equal(t, 2, o.CustomersServed)
	assert.True(t, d("25").Equal(o.AverageTicket))
	assert.True(t, gen.Equal(o.GeneratedAt))
}
