package cashflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/period"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byDay is a fake source keyed by the local day an amount was booked.
type byDay map[string]decimal.Decimal

func (b byDay) sum(w period.Window) (decimal.Decimal, int) {
	total, n := decimal.Zero, 0
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		if v, ok := b[d.Format(period.DateLayout)]; ok {
			total = total.Add(v)
			n++
		}
	}
	return total, n
}

type fakeRevenue struct{ byDay }

func (f fakeRevenue) Revenue(_ context.Context, _ string, w period.Window) (decimal.Decimal, int, error) {
	total, n := f.sum(w)
	return total, n, nil
}

type fakePayables struct {
	byDay
	err error
}

func (f fakePayables) PaidInWindow(_ context.Context, _ string, w period.Window) (decimal.Decimal, int, error) {
	if f.err != nil {
		return decimal.Zero, 0, f.err
	}
	total, n := f.sum(w)
	return total, n, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize_Weekly(t *testing.T) {
	rev := fakeRevenue{byDay{"2024-01-02": d("300"), "2024-01-09": d("120.50"), "2024-01-20": d("80")}}
	pay := fakePayables{byDay: byDay{"2024-01-03": d("100"), "2024-01-16": d("200")}}
	svc := NewService(rev, pay, time.UTC)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	sum, err := svc.Summarize(context.Background(), "casa-a", Query{Granularity: period.Weekly, Start: &start, End: &end})
	require.NoError(t, err)

	require.Len(t, sum.Entries, 3)
	assert.Equal(t, "2024-W01", sum.Entries[0].Label)
	assert.True(t, d("200").Equal(sum.Entries[0].Net))
	assert.True(t, d("120.50").Equal(sum.Entries[1].Net))
	assert.True(t, d("-120").Equal(sum.Entries[2].Net))

	assert.True(t, d("500.50").Equal(sum.Revenue))
	assert.True(t, d("300").Equal(sum.PayablesPaid))
	assert.True(t, d("200.50").Equal(sum.Net))
}

func TestSummarize_DefaultsToMonthToDate(t *testing.T) {
	svc := NewService(fakeRevenue{byDay{}}, fakePayables{byDay: byDay{}}, time.UTC).
		WithClock(func() time.Time { return time.Date(2024, 2, 5, 18, 0, 0, 0, time.UTC) })

	sum, err := svc.Summarize(context.Background(), "casa-a", Query{})
	require.NoError(t, err)
	assert.Equal(t, period.Daily, sum.Granularity)
	assert.Equal(t, "2024-02-01", sum.Start)
	assert.Equal(t, "2024-02-05", sum.End)
	assert.Len(t, sum.Entries, 5)
	assert.True(t, sum.Net.IsZero())
}

func TestSummarize_Errors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(fakeRevenue{byDay{}}, fakePayables{err: boom}, time.UTC)
	ctx := context.Background()

	_, err := svc.Summarize(ctx, "casa-a", Query{})
	assert.ErrorIs(t, err, boom)

	var verr *apperr.ValidationError
	_, err = svc.Summarize(ctx, "casa-a", Query{Granularity: "hourly"})
	assert.ErrorAs(t, err, &verr)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Summarize(ctx, "casa-a", Query{Start: &start, End: &end})
	assert.ErrorAs(t, err, &verr)

	start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Summarize(ctx, "casa-a", Query{Start: &start, End: &end})
	assert.ErrorAs(t, err, &verr)
}
