package inventory

import (
	"context"
	"math"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"
)

// ConsumptionTotals sums outbound quantities per product over
// [now-windowDays, now]. Products without outbound moves in the window are
// absent from the result.
func ConsumptionTotals(moves []models.StockMove, windowDays int, now time.Time) map[uint]float64 {
	from := now.AddDate(0, 0, -windowDays)
	totals := make(map[uint]float64)
	for _, m := range moves {
		if m.Type != models.StockMoveOut {
			continue
		}
		if m.CreatedAt.Before(from) || m.CreatedAt.After(now) {
			continue
		}
		totals[m.ProductID] += math.Abs(m.Quantity)
	}
	return totals
}

// AverageDailyConsumption is the outbound total of one product over the
// window divided by its length in days. ok is false when there is no
// outbound history in the window: coverage is then unknown, not infinite.
func AverageDailyConsumption(moves []models.StockMove, productID uint, windowDays int, now time.Time) (avg float64, ok bool) {
	if windowDays <= 0 {
		return 0, false
	}
	own := make([]models.StockMove, 0, len(moves))
	for _, m := range moves {
		if m.ProductID == productID {
			own = append(own, m)
		}
	}
	total, ok := ConsumptionTotals(own, windowDays, now)[productID]
	if !ok {
		return 0, false
	}
	return total / float64(windowDays), true
}

// Estimator reads outbound moves from the ledger and turns them into daily
// consumption rates.
type Estimator struct {
	ledger *stock.Ledger
	now    func() time.Time
}

func NewEstimator(ledger *stock.Ledger) *Estimator {
	return &Estimator{ledger: ledger, now: time.Now}
}

func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Rates returns the average daily consumption of every product of the
// tenant that has outbound moves in the window.
func (e *Estimator) Rates(ctx context.Context, tenant string, windowDays int) (map[uint]float64, error) {
	if windowDays <= 0 {
		return map[uint]float64{}, nil
	}
	now := e.now().UTC()
	from := now.AddDate(0, 0, -windowDays)
	moves, err := e.ledger.ListMoves(ctx, tenant, stock.MoveFilter{
		Type:  models.StockMoveOut,
		Since: &from,
		Until: &now,
	})
	if err != nil {
		return nil, err
	}

	rates := ConsumptionTotals(moves, windowDays, now)
	for id, total := range rates {
		rates[id] = total / float64(windowDays)
	}
	return rates, nil
}

// Rate is the average daily consumption of one product. ok is false when
// the product has no outbound moves in the window.
func (e *Estimator) Rate(ctx context.Context, tenant string, productID uint, windowDays int) (float64, bool, error) {
	if windowDays <= 0 {
		return 0, false, nil
	}
	now := e.now().UTC()
	from := now.AddDate(0, 0, -windowDays)
	moves, err := e.ledger.ListMoves(ctx, tenant, stock.MoveFilter{
		ProductID: productID,
		Type:      models.StockMoveOut,
		Since:     &from,
		Until:     &now,
	})
	if err != nil {
		return 0, false, err
	}
	avg, ok := AverageDailyConsumption(moves, productID, windowDays, now)
	return avg, ok, nil
}
