package inventory

import (
	"math"
	"sort"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

const (
	DefaultHistoryDays       = 14
	MinHistoryDays           = 1
	MaxHistoryDays           = 60
	DefaultWarningMultiplier = 1.15
	MinWarningMultiplier     = 1.0
	MaxWarningMultiplier     = 2.0
)

// Keeps 11.5 <= 10*1.15 true despite 10*1.15 == 11.499999999999998.
const thresholdEpsilon = 1e-9

// Classify places a balance against its reorder point. ok is false when the
// product needs no alert.
func Classify(balance, reorderPoint, multiplier float64) (sev Severity, ok bool) {
	if balance <= reorderPoint {
		return SeverityCritical, true
	}
	if balance <= reorderPoint*multiplier+thresholdEpsilon {
		return SeverityWarning, true
	}
	return "", false
}

// Item is one stockable product as seen by the alert pass.
type Item struct {
	ProductID    uint
	Name         string
	Unit         *string
	Balance      float64
	ReorderPoint *float64
	ParLevel     *float64
}

type Alert struct {
	ProductID           uint     `json:"product_id"`
	ProductName         string   `json:"product_name"`
	Unit                *string  `json:"unit"`
	CurrentStock        float64  `json:"current_stock"`
	ReorderPoint        float64  `json:"reorder_point"`
	ParLevel            *float64 `json:"par_level"`
	AvgDailyConsumption *float64 `json:"avg_daily_consumption"`
	CoverageDays        *float64 `json:"coverage_days"`
	Status              Severity `json:"status"`
}

// BuildAlerts classifies every item. Items that cannot be classified are
// returned as data-quality errors and left out; they never fail the pass.
func BuildAlerts(items []Item, rates map[uint]float64, multiplier float64) ([]Alert, []*apperr.DataQualityError) {
	var (
		alerts  []Alert
		skipped []*apperr.DataQualityError
	)
	for _, it := range items {
		if reason := unclassifiable(it); reason != "" {
			skipped = append(skipped, &apperr.DataQualityError{
				ProductID:   it.ProductID,
				ProductName: it.Name,
				Reason:      reason,
			})
			continue
		}

		sev, ok := Classify(it.Balance, *it.ReorderPoint, multiplier)
		if !ok {
			continue
		}

		a := Alert{
			ProductID:    it.ProductID,
			ProductName:  it.Name,
			Unit:         it.Unit,
			CurrentStock: it.Balance,
			ReorderPoint: *it.ReorderPoint,
			ParLevel:     it.ParLevel,
			Status:       sev,
		}
		if avg, ok := rates[it.ProductID]; ok {
			rate := avg
			a.AvgDailyConsumption = &rate
			a.CoverageDays = coverageDays(it.Balance, avg)
		}
		alerts = append(alerts, a)
	}

	SortAlerts(alerts)
	return alerts, skipped
}

// coverageDays is nil when nothing is being consumed.
func coverageDays(balance, avg float64) *float64 {
	if avg <= 0 {
		return nil
	}
	cov := math.Max(balance, 0) / avg
	return &cov
}

func unclassifiable(it Item) string {
	switch {
	case it.ReorderPoint == nil:
		return "missing reorder point"
	case math.IsNaN(*it.ReorderPoint) || *it.ReorderPoint < 0:
		return "invalid reorder point"
	case math.IsNaN(it.Balance) || math.IsInf(it.Balance, 0):
		return "invalid balance"
	}
	return ""
}

// SortAlerts orders critical before warning, then by ascending coverage
// with unknown coverage last, then by name and id.
func SortAlerts(alerts []Alert) {
	rank := func(s Severity) int {
		if s == SeverityCritical {
			return 0
		}
		return 1
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
			return ra < rb
		}
		switch {
		case a.CoverageDays != nil && b.CoverageDays == nil:
			return true
		case a.CoverageDays == nil && b.CoverageDays != nil:
			return false
		case a.CoverageDays != nil && *a.CoverageDays != *b.CoverageDays:
			return *a.CoverageDays < *b.CoverageDays
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})
}
