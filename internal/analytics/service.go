package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewService reports in loc: day, week and month boundaries are local
// midnights there.
func NewService(db *gorm.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, loc: loc, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Range is an inclusive span of calendar days. Nil ends take defaults.
type Range struct {
	Start *time.Time
	End   *time.Time
}

type PeriodicQuery struct {
	Range
	Granularity period.Granularity
	TopLimit    int
}

func (s *Service) today() time.Time {
	return period.Day(s.now().In(s.loc))
}

// resolve applies the defaults (end today, start 30 days before end) and
// swaps reversed bounds.
func (s *Service) resolve(r Range) (first, last time.Time) {
	last = s.today()
	if r.End != nil {
		last = period.Day(r.End.In(s.loc))
	}
	first = last.AddDate(0, 0, -DefaultSpanDays)
	if r.Start != nil {
		first = period.Day(r.Start.In(s.loc))
	}
	if first.After(last) {
		first, last = last, first
	}
	return first, last
}

func validateTopLimit(n int) error {
	if n < 1 || n > MaxTopLimit {
		return apperr.Validation("top_limit must be between 1 and %d", MaxTopLimit)
	}
	return nil
}

// sales loads paid orders settled in [from, to).
func (s *Service) sales(ctx context.Context, tenant string, from, to time.Time) ([]Sale, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("tenant_id = ? AND status = ? AND closed_at >= ? AND closed_at < ?",
			tenant, models.OrderStatusPaid, from.UTC(), to.UTC()).
		Order("closed_at ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load paid orders: %w", err)
	}

	out := make([]Sale, 0, len(orders))
	for _, o := range orders {
		if o.ClosedAt == nil {
			continue
		}
		sale := Sale{
			OrderID:    o.ID,
			ClosedAt:   *o.ClosedAt,
			Total:      o.Total,
			CustomerID: o.CustomerID,
		}
		for _, it := range o.Items {
			sale.Lines = append(sale.Lines, Line{
				ProductID: it.ProductID,
				Name:      it.Product.Name,
				Quantity:  it.Quantity,
				Revenue:   it.Subtotal().Round(2),
			})
		}
		for _, p := range o.Payments {
			if p.Status != models.PaymentStatusCompleted {
				continue
			}
			sale.Payments = append(sale.Payments, PaymentLine{Method: p.Method, Amount: p.Amount})
		}
		out = append(out, sale)
	}
	return out, nil
}

func (s *Service) salesBetween(ctx context.Context, tenant string, first, last time.Time) ([]Sale, error) {
	return s.sales(ctx, tenant, first, last.AddDate(0, 0, 1))
}

// Periodic buckets the paid orders of the range by granularity.
func (s *Service) Periodic(ctx context.Context, tenant string, q PeriodicQuery) (*PeriodicReport, error) {
	if q.Granularity == "" {
		q.Granularity = period.Weekly
	}
	if _, err := period.ParseGranularity(string(q.Granularity)); err != nil {
		return nil, err
	}
	if q.TopLimit == 0 {
		q.TopLimit = DefaultTopLimit
	}
	if err := validateTopLimit(q.TopLimit); err != nil {
		return nil, err
	}

	first, last := s.resolve(q.Range)
	sales, err := s.salesBetween(ctx, tenant, first, last)
	if err != nil {
		return nil, err
	}
	report := Aggregate(sales, first, last, q.Granularity, q.TopLimit)
	return &report, nil
}

// Daily is the dashboard for one calendar day, today by default.
func (s *Service) Daily(ctx context.Context, tenant string, day *time.Time, topLimit int) (*DailyOverview, error) {
	if topLimit == 0 {
		topLimit = DefaultTopLimit
	}
	if err := validateTopLimit(topLimit); err != nil {
		return nil, err
	}

	target := s.today()
	if day != nil {
		target = period.Day(day.In(s.loc))
	}
	sales, err := s.salesBetween(ctx, tenant, target, target)
	if err != nil {
		return nil, err
	}
	overview := Overview(target, sales, topLimit, s.now().UTC())
	return &overview, nil
}

func (s *Service) PaymentMix(ctx context.Context, tenant string, r Range) ([]PaymentShare, error) {
	first, last := s.resolve(r)
	sales, err := s.salesBetween(ctx, tenant, first, last)
	if err != nil {
		return nil, err
	}
	return PaymentBreakdown(sales), nil
}

func (s *Service) TopProducts(ctx context.Context, tenant string, r Range, limit int) ([]ProductRank, error) {
	if limit == 0 {
		limit = DefaultTopLimit
	}
	if err := validateTopLimit(limit); err != nil {
		return nil, err
	}
	first, last := s.resolve(r)
	sales, err := s.salesBetween(ctx, tenant, first, last)
	if err != nil {
		return nil, err
	}
	return TopProducts(sales, limit), nil
}

// Revenue is the total of paid orders in the window, used by the cash
// summaries.
func (s *Service) Revenue(ctx context.Context, tenant string, w period.Window) (decimal.Decimal, int, error) {
	sales, err := s.sales(ctx, tenant, w.Start, w.End)
	if err != nil {
		return decimal.Zero, 0, err
	}
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Total)
	}
	return total, len(sales), nil
}

// Location is the reporting time zone.
func (s *Service) Location() *time.Location { return s.loc }
