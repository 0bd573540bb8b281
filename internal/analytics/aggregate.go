// Package analytics summarizes paid orders: periodic buckets, the daily
// overview, payment mix and product rankings. Everything here is computed
// per request from committed orders and never stored.
package analytics

import (
	"sort"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
)

const (
	DefaultTopLimit = 5
	MaxTopLimit     = 20
	DefaultSpanDays = 30
)

// Sale is a settled order reduced to what the reports read.
type Sale struct {
	OrderID    uint
	ClosedAt   time.Time
	Total      decimal.Decimal
	CustomerID *uint
	Lines      []Line
	Payments   []PaymentLine
}

type Line struct {
	ProductID uint
	Name      string
	Quantity  float64
	Revenue   decimal.Decimal
}

type PaymentLine struct {
	Method models.PaymentMethod
	Amount decimal.Decimal
}

type ProductRank struct {
	ProductID    uint            `json:"product_id"`
	Name         string          `json:"name"`
	QuantitySold float64         `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type PeriodEntry struct {
	Label         string          `json:"label"`
	Start         string          `json:"start"`
	End           string          `json:"end"`
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	Products      []ProductRank   `json:"products"`
}

type Summary struct {
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	Products      []ProductRank   `json:"products"`
}

type PeriodicReport struct {
	Granularity period.Granularity `json:"granularity"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	Entries     []PeriodEntry      `json:"entries"`
	Summary     Summary            `json:"summary"`
}

// AverageTicket is revenue/orders rounded to cents, and zero without orders.
func AverageTicket(revenue decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return revenue.DivRound(decimal.NewFromInt(int64(orders)), 2)
}

// tally accumulates one bucket or the whole range.
type tally struct {
	orders   int
	revenue  decimal.Decimal
	products map[uint]*ProductRank
}

func newTally() *tally {
	return &tally{revenue: decimal.Zero, products: make(map[uint]*ProductRank)}
}

func (t *tally) add(s Sale) {
	t.orders++
	t.revenue = t.revenue.Add(s.Total)
	for _, l := range s.Lines {
		r, ok := t.products[l.ProductID]
		if !ok {
			r = &ProductRank{ProductID: l.ProductID, Name: l.Name, Revenue: decimal.Zero}
			t.products[l.ProductID] = r
		}
		r.QuantitySold += l.Quantity
		r.Revenue = r.Revenue.Add(l.Revenue)
	}
}

func (t *tally) ranking(limit int) []ProductRank {
	out := make([]ProductRank, 0, len(t.products))
	for _, r := range t.products {
		out = append(out, *r)
	}
	RankProducts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankProducts orders by revenue desc, quantity desc, name, id.
func RankProducts(rs []ProductRank) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		if a.QuantitySold != b.QuantitySold {
			return a.QuantitySold > b.QuantitySold
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ProductID < b.ProductID
	})
}

// Aggregate buckets sales settled between firstDay and lastDay (inclusive,
// in firstDay's location). Every bucket of the range is present, empty
// ones included; sales outside the range are ignored. Bucket product
// lists are complete rankings, the summary keeps the top topLimit.
func Aggregate(sales []Sale, firstDay, lastDay time.Time, g period.Granularity, topLimit int) PeriodicReport {
	loc := firstDay.Location()
	lastDay = lastDay.In(loc)
	windows := period.Windows(firstDay, lastDay, g)

	buckets := make([]*tally, len(windows))
	for i := range buckets {
		buckets[i] = newTally()
	}
	overall := newTally()

	for _, s := range sales {
		at := s.ClosedAt.In(loc)
		i := sort.Search(len(windows), func(i int) bool { return at.Before(windows[i].End) })
		if i == len(windows) || !windows[i].Contains(at) {
			continue
		}
		buckets[i].add(s)
		overall.add(s)
	}

	report := PeriodicReport{
		Granularity: g,
		Start:       period.Day(firstDay).Format(period.DateLayout),
		End:         period.Day(lastDay).Format(period.DateLayout),
		Entries:     make([]PeriodEntry, 0, len(windows)),
	}
	for i, w := range windows {
		b := buckets[i]
		report.Entries = append(report.Entries, PeriodEntry{
			Label:         w.Label,
			Start:         w.Start.Format(period.DateLayout),
			End:           w.LastDay().Format(period.DateLayout),
			TotalOrders:   b.orders,
			TotalRevenue:  b.revenue,
			AverageTicket: AverageTicket(b.revenue, b.orders),
			Products:      b.ranking(0),
		})
	}
	report.Summary = Summary{
		TotalOrders:   overall.orders,
		TotalRevenue:  overall.revenue,
		AverageTicket: AverageTicket(overall.revenue, overall.orders),
		Products:      overall.ranking(topLimit),
	}
	return report
}

// TopProducts ranks every product sold across sales.
func TopProducts(sales []Sale, limit int) []ProductRank {
	t := newTally()
	for _, s := range sales {
		t.add(s)
	}
	return t.ranking(limit)
}
