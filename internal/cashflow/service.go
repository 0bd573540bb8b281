// Package cashflow sets takings against outgoings: revenue from settled
// orders minus supplier payables paid, per day, week or month.
package cashflow

import (
	"context"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
)

// MaxWindows bounds a single summary request.
const MaxWindows = 400

type RevenueSource interface {
	Revenue(ctx context.Context, tenant string, w period.Window) (decimal.Decimal, int, error)
}

type PayablesSource interface {
	PaidInWindow(ctx context.Context, tenant string, w period.Window) (decimal.Decimal, int, error)
}

type Service struct {
	revenue  RevenueSource
	payables PayablesSource
	loc      *time.Location
	now      func() time.Time
}

func NewService(revenue RevenueSource, payables PayablesSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{revenue: revenue, payables: payables, loc: loc, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Entry struct {
	Label        string          `json:"label"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Orders       int             `json:"orders"`
	Revenue      decimal.Decimal `json:"revenue"`
	PayablesPaid decimal.Decimal `json:"payables_paid"`
	Net          decimal.Decimal `json:"net"`
}

type Summary struct {
	Granularity  period.Granularity `json:"granularity"`
	Start        string             `json:"start"`
	End          string             `json:"end"`
	Entries      []Entry            `json:"entries"`
	Revenue      decimal.Decimal    `json:"revenue"`
	PayablesPaid decimal.Decimal    `json:"payables_paid"`
	Net          decimal.Decimal    `json:"net"`
}

type Query struct {
	Granularity period.Granularity
	Start       *time.Time
	End         *time.Time
}

// Summarize defaults to the current month by day.
func (s *Service) Summarize(ctx context.Context, tenant string, q Query) (*Summary, error) {
	if q.Granularity == "" {
		q.Granularity = period.Daily
	}
	if _, err := period.ParseGranularity(string(q.Granularity)); err != nil {
		return nil, err
	}

	today := period.Day(s.now().In(s.loc))
	first := period.BucketStart(today, period.Monthly)
	last := today
	if q.Start != nil {
		first = period.Day(q.Start.In(s.loc))
	}
	if q.End != nil {
		last = period.Day(q.End.In(s.loc))
	}
	if first.After(last) {
		return nil, apperr.Validation("start_date must not be after end_date")
	}

	windows := period.Windows(first, last, q.Granularity)
	if len(windows) > MaxWindows {
		return nil, apperr.Validation("range spans %d %s windows, at most %d allowed", len(windows), q.Granularity, MaxWindows)
	}

	out := &Summary{
		Granularity:  q.Granularity,
		Start:        first.Format(period.DateLayout),
		End:          last.Format(period.DateLayout),
		Entries:      make([]Entry, 0, len(windows)),
		Revenue:      decimal.Zero,
		PayablesPaid: decimal.Zero,
	}
	for _, w := range windows {
		rev, n, err := s.revenue.Revenue(ctx, tenant, w)
		if err != nil {
			return nil, err
		}
		paid, _, err := s.payables.PaidInWindow(ctx, tenant, w)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, Entry{
			Label:        w.Label,
			Start:        w.Start.Format(period.DateLayout),
			End:          w.LastDay().Format(period.DateLayout),
			Orders:       n,
			Revenue:      rev,
			PayablesPaid: paid,
			Net:          rev.Sub(paid),
		})
		out.Revenue = out.Revenue.Add(rev)
		out.PayablesPaid = out.PayablesPaid.Add(paid)
	}
	out.Net = out.Revenue.Sub(out.PayablesPaid)
	return out, nil
}

// Location is the reporting time zone.
func (s *Service) Location() *time.Location { return s.loc }
