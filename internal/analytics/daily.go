package analytics

import (
	"sort"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/shopspring/decimal"
)

type PaymentShare struct {
	Method     models.PaymentMethod `json:"method"`
	Amount     decimal.Decimal      `json:"amount"`
	Percentage decimal.Decimal      `json:"percentage"`
}

type DailyOverview struct {
	Date             string          `json:"date"`
	GeneratedAt      time.Time       `json:"generated_at"`
	TotalOrders      int             `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AverageTicket    decimal.Decimal `json:"average_ticket"`
	CustomersServed  int             `json:"customers_served"`
	PaymentBreakdown []PaymentShare  `json:"payment_breakdown"`
	TopProducts      []ProductRank   `json:"top_products"`
	SoldProducts     []ProductRank   `json:"sold_products"`
}

var hundred = decimal.NewFromInt(100)

// PaymentBreakdown sums payments per method, largest first. Percentages
// are of the grand total, rounded to two places.
func PaymentBreakdown(sales []Sale) []PaymentShare {
	sums := make(map[models.PaymentMethod]decimal.Decimal)
	total := decimal.Zero
	for _, s := range sales {
		for _, p := range s.Payments {
			sums[p.Method] = sums[p.Method].Add(p.Amount)
			total = total.Add(p.Amount)
		}
	}

	out := make([]PaymentShare, 0, len(sums))
	for m, amt := range sums {
		share := PaymentShare{Method: m, Amount: amt, Percentage: decimal.Zero}
		if total.IsPositive() {
			share.Percentage = amt.Mul(hundred).DivRound(total, 2)
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Overview builds the daily dashboard from the sales of one day.
func Overview(day time.Time, sales []Sale, topLimit int, generatedAt time.Time) DailyOverview {
	revenue := decimal.Zero
	customers := make(map[uint]struct{})
	for _, s := range sales {
		revenue = revenue.Add(s.Total)
		if s.CustomerID != nil {
			customers[*s.CustomerID] = struct{}{}
		}
	}

	sold := TopProducts(sales, 0)
	top := sold
	if topLimit > 0 && len(top) > topLimit {
		top = top[:topLimit]
	}

	return DailyOverview{
		Date:             day.Format("2006-01-02"),
		GeneratedAt:      generatedAt,
		TotalOrders:      len(sales),
		TotalRevenue:     revenue,
		AverageTicket:    AverageTicket(revenue, len(sales)),
		CustomersServed:  len(customers),
		PaymentBreakdown: PaymentBreakdown(sales),
		TopProducts:      top,
		SoldProducts:     sold,
	}
}
