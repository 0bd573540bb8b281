package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AlertQuery struct {
	HistoryDays       int
	WarningMultiplier float64
}

func DefaultAlertQuery() AlertQuery {
	return AlertQuery{HistoryDays: DefaultHistoryDays, WarningMultiplier: DefaultWarningMultiplier}
}

func (q AlertQuery) Validate() error {
	if q.HistoryDays < MinHistoryDays || q.HistoryDays > MaxHistoryDays {
		return apperr.Validation("history_days must be between %d and %d", MinHistoryDays, MaxHistoryDays)
	}
	if q.WarningMultiplier < MinWarningMultiplier || q.WarningMultiplier > MaxWarningMultiplier {
		return apperr.Validation("warning_multiplier must be between %.2f and %.2f", MinWarningMultiplier, MaxWarningMultiplier)
	}
	return nil
}

type SkippedProduct struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

type AlertReport struct {
	GeneratedAt       time.Time        `json:"generated_at"`
	HistoryDays       int              `json:"history_days"`
	WarningMultiplier float64          `json:"warning_multiplier"`
	Alerts            []Alert          `json:"alerts"`
	Skipped           []SkippedProduct `json:"skipped"`
}

type Service struct {
	db        *gorm.DB
	ledger    *stock.Ledger
	estimator *Estimator
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(db *gorm.DB, ledger *stock.Ledger, estimator *Estimator, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		estimator: estimator,
		log:       log.Named("inventory"),
		metrics:   m,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.estimator.WithClock(now)
	return s
}

// Alerts recomputes the alert list from committed ledger state.
func (s *Service) Alerts(ctx context.Context, tenant string, q AlertQuery) (*AlertReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Unit").
		Preload("InventoryRule").
		Where("tenant_id = ? AND type IN ?", tenant, []models.ProductType{models.ProductTypeIngredient, models.ProductTypeMerchandise}).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("load stockable products: %w", err)
	}

	balances, err := s.ledger.Balances(ctx, tenant)
	if err != nil {
		return nil, err
	}
	rates, err := s.estimator.Rates(ctx, tenant, q.HistoryDays)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(products))
	for _, p := range products {
		it := Item{
			ProductID: p.ID,
			Name:      p.Name,
			Unit:      p.UnitAbbreviation(),
			Balance:   balances[p.ID],
		}
		if p.InventoryRule != nil {
			rp := p.InventoryRule.ReorderPoint
			it.ReorderPoint = &rp
			it.ParLevel = p.InventoryRule.ParLevel
		}
		items = append(items, it)
	}

	alerts, dq := BuildAlerts(items, rates, q.WarningMultiplier)

	report := &AlertReport{
		GeneratedAt:       s.now().UTC(),
		HistoryDays:       q.HistoryDays,
		WarningMultiplier: q.WarningMultiplier,
		Alerts:            alerts,
		Skipped:           make([]SkippedProduct, 0, len(dq)),
	}
	if report.Alerts == nil {
		report.Alerts = []Alert{}
	}
	for _, e := range dq {
		s.log.Warn("product skipped by alert pass",
			zap.String("tenant", tenant),
			zap.Uint("product_id", e.ProductID),
			zap.String("product", e.ProductName),
			zap.String("reason", e.Reason),
		)
		s.metrics.DataQualitySkips.Inc()
		report.Skipped = append(report.Skipped, SkippedProduct{
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			Reason:      e.Reason,
		})
	}
	for _, a := range alerts {
		s.metrics.Alerts.WithLabelValues(string(a.Status)).Inc()
	}
	return report, nil
}

type Consumption struct {
	ProductID           uint     `json:"product_id"`
	HistoryDays         int      `json:"history_days"`
	CurrentStock        float64  `json:"current_stock"`
	AvgDailyConsumption *float64 `json:"avg_daily_consumption"`
	CoverageDays        *float64 `json:"coverage_days"`
}

// Consumption reports the consumption rate and coverage of one product,
// whether or not it has an inventory rule.
func (s *Service) Consumption(ctx context.Context, tenant string, productID uint, historyDays int) (*Consumption, error) {
	if historyDays == 0 {
		historyDays = DefaultHistoryDays
	}
	if historyDays < MinHistoryDays || historyDays > MaxHistoryDays {
		return nil, apperr.Validation("history_days must be between %d and %d", MinHistoryDays, MaxHistoryDays)
	}

	balance, err := s.ledger.CurrentBalance(ctx, tenant, productID)
	if err != nil {
		return nil, err
	}
	avg, ok, err := s.estimator.Rate(ctx, tenant, productID, historyDays)
	if err != nil {
		return nil, err
	}

	out := &Consumption{ProductID: productID, HistoryDays: historyDays, CurrentStock: balance}
	if ok {
		out.AvgDailyConsumption = &avg
		out.CoverageDays = coverageDays(balance, avg)
	}
	return out, nil
}
