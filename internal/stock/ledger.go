// Package stock is the append-only stock ledger: inbound batches, signed
// moves and the materialized balance per (tenant, product).
package stock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Float sums drift; anything above -epsilon counts as zero.
const epsilon = 1e-9

const batchReceiptReason = "batch receipt"

type Ledger struct {
	db            *gorm.DB
	log           *zap.Logger
	metrics       *metrics.Metrics
	allowNegative bool
	now           func() time.Time
}

func NewLedger(db *gorm.DB, log *zap.Logger, m *metrics.Metrics, allowNegative bool) *Ledger {
	return &Ledger{
		db:            db,
		log:           log.Named("stock"),
		metrics:       m,
		allowNegative: allowNegative,
		now:           time.Now,
	}
}

// WithClock replaces the wall clock used to stamp batches and moves.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

type BatchInput struct {
	ProductID      uint
	Quantity       float64
	UnitCost       decimal.Decimal
	ExpirationDate *time.Time
	LotCode        string
	// Reason of the mirrored `in` move; "batch receipt" when empty.
	Reason string
}

type MoveInput struct {
	ProductID uint
	Quantity  float64
	Type      models.StockMoveType
	Reason    string
	OrderID   *uint
}

func validQuantity(q float64) bool {
	return q > 0 && !math.IsInf(q, 0) && !math.IsNaN(q)
}

// RecordBatch stores an inbound lot in its own transaction.
func (l *Ledger) RecordBatch(ctx context.Context, tenant string, actor audit.Actor, in BatchInput) (*models.StockBatch, error) {
	var batch *models.StockBatch
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = l.RecordBatchTx(tx, tenant, actor, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// RecordBatchTx stores an inbound lot inside the caller's transaction and
// mirrors it into the move log as an `in` move, so the balance is always the
// sum of moves.
func (l *Ledger) RecordBatchTx(tx *gorm.DB, tenant string, actor audit.Actor, in BatchInput) (*models.StockBatch, error) {
	if !validQuantity(in.Quantity) {
		return nil, apperr.Validation("quantity must be > 0")
	}
	if in.UnitCost.IsNegative() {
		return nil, apperr.Validation("cost_price must be >= 0")
	}
	lot := strings.TrimSpace(in.LotCode)
	if lot == "" {
		lot = strings.ToUpper(uuid.NewString()[:8])
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = batchReceiptReason
	}

	product, err := l.stockableProduct(tx, tenant, in.ProductID)
	if err != nil {
		return nil, err
	}

	batch := models.StockBatch{
		TenantID:       tenant,
		ProductID:      product.ID,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		ExpirationDate: in.ExpirationDate,
		LotCode:        lot,
		CreatedAt:      l.now().UTC(),
	}
	if err := tx.Omit(clause.Associations).Create(&batch).Error; err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	if _, err := l.appendMove(tx, tenant, product, models.StockMoveIn, in.Quantity, reason, &batch.ID, nil); err != nil {
		return nil, err
	}

	if err := audit.Write(tx, audit.Entry{
		TenantID:    tenant,
		Actor:       actor,
		EntityType:  "stock_batch",
		EntityID:    batch.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("batch %s: %g of %s received", lot, in.Quantity, product.Name),
		After:       in,
	}); err != nil {
		return nil, err
	}
	return &batch, nil
}

// RecordMove appends one move in its own transaction.
func (l *Ledger) RecordMove(ctx context.Context, tenant string, actor audit.Actor, in MoveInput) (*models.StockMove, error) {
	var move *models.StockMove
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		move, err = l.RecordMoveTx(tx, tenant, actor, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return move, nil
}

// RecordMoveTx appends a move inside the caller's transaction. Quantity is
// always positive; the sign comes from the move type.
func (l *Ledger) RecordMoveTx(tx *gorm.DB, tenant string, actor audit.Actor, in MoveInput) (*models.StockMove, error) {
	if !validQuantity(in.Quantity) {
		return nil, apperr.Validation("quantity must be > 0")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("invalid move type %q", in.Type)
	}

	product, err := l.stockableProduct(tx, tenant, in.ProductID)
	if err != nil {
		return nil, err
	}

	move, err := l.appendMove(tx, tenant, product, in.Type, in.Quantity, strings.TrimSpace(in.Reason), nil, in.OrderID)
	if err != nil {
		return nil, err
	}

	if err := audit.Write(tx, audit.Entry{
		TenantID:    tenant,
		Actor:       actor,
		EntityType:  "stock_move",
		EntityID:    move.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("%s %g of %s", in.Type, in.Quantity, product.Name),
		After:       in,
	}); err != nil {
		return nil, err
	}
	return move, nil
}

func (l *Ledger) stockableProduct(tx *gorm.DB, tenant string, id uint) (*models.Product, error) {
	var product models.Product
	if err := tx.Where("tenant_id = ? AND id = ?", tenant, id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if !product.IsStockable() {
		return nil, apperr.Validation("product %d (%s) is not stockable", product.ID, product.Name)
	}
	return &product, nil
}

// appendMove inserts the move and applies it to the materialized balance.
// The balance row is updated with a relative assignment so concurrent
// writers serialize on the row instead of overwriting each other.
func (l *Ledger) appendMove(tx *gorm.DB, tenant string, product *models.Product, typ models.StockMoveType, qty float64, reason string, batchID, orderID *uint) (*models.StockMove, error) {
	now := l.now().UTC()
	signed := typ.Sign() * qty

	move := models.StockMove{
		TenantID:  tenant,
		ProductID: product.ID,
		Type:      typ,
		Quantity:  signed,
		Reason:    reason,
		BatchID:   batchID,
		OrderID:   orderID,
		CreatedAt: now,
	}
	if err := tx.Omit(clause.Associations).Create(&move).Error; err != nil {
		return nil, fmt.Errorf("create move: %w", err)
	}

	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("stock_balances.quantity + ?", signed),
			"updated_at": now,
		}),
	}).Create(&models.StockBalance{
		TenantID:  tenant,
		ProductID: product.ID,
		Quantity:  signed,
		UpdatedAt: now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if signed >= 0 {
		l.metrics.StockMoves.WithLabelValues(string(typ)).Inc()
		return &move, nil
	}

	balance, err := balanceOf(tx, tenant, product.ID)
	if err != nil {
		return nil, err
	}
	if balance >= -epsilon {
		l.metrics.StockMoves.WithLabelValues(string(typ)).Inc()
		return &move, nil
	}
	if !l.allowNegative {
		return nil, &apperr.InsufficientStockError{
			ProductID: product.ID,
			Balance:   balance - signed,
			Requested: qty,
		}
	}

	l.metrics.StockMoves.WithLabelValues(string(typ)).Inc()
	l.metrics.NegativeBalances.Inc()
	l.log.Warn("stock balance went negative",
		zap.String("tenant", tenant),
		zap.Uint("product_id", product.ID),
		zap.String("product", product.Name),
		zap.String("type", string(typ)),
		zap.Float64("quantity", qty),
		zap.Float64("balance", balance),
	)
	return &move, nil
}

func balanceOf(db *gorm.DB, tenant string, productID uint) (float64, error) {
	var rows []float64
	err := db.Model(&models.StockBalance{}).
		Where("tenant_id = ? AND product_id = ?", tenant, productID).
		Pluck("quantity", &rows).Error
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0], nil
}

// CurrentBalance reads the materialized balance. Products without moves
// have a balance of zero.
func (l *Ledger) CurrentBalance(ctx context.Context, tenant string, productID uint) (float64, error) {
	db := l.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Product{}).Where("tenant_id = ? AND id = ?", tenant, productID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("lookup product: %w", err)
	}
	if n == 0 {
		return 0, apperr.NotFound("product", productID)
	}
	return balanceOf(db, tenant, productID)
}

// Balances returns every materialized balance of the tenant keyed by product.
func (l *Ledger) Balances(ctx context.Context, tenant string) (map[uint]float64, error) {
	var rows []models.StockBalance
	if err := l.db.WithContext(ctx).Where("tenant_id = ?", tenant).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	out := make(map[uint]float64, len(rows))
	for _, r := range rows {
		out[r.ProductID] = r.Quantity
	}
	return out, nil
}

// Inventory maps product name to balance for every product with stock
// history. Duplicate names get the product id appended.
func (l *Ledger) Inventory(ctx context.Context, tenant string) (map[string]float64, error) {
	type row struct {
		ProductID uint
		Name      string
		Quantity  float64
	}
	var rows []row
	err := l.db.WithContext(ctx).
		Table("stock_balances").
		Select("stock_balances.product_id, products.name, stock_balances.quantity").
		Joins("JOIN products ON products.id = stock_balances.product_id AND products.tenant_id = stock_balances.tenant_id").
		Where("stock_balances.tenant_id = ?", tenant).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		key := r.Name
		if _, dup := out[key]; dup {
			key = fmt.Sprintf("%s (#%d)", r.Name, r.ProductID)
		}
		out[key] = r.Quantity
	}
	return out, nil
}

// Recompute sums the full move history of a product. It should always
// match CurrentBalance; a difference means the materialized row drifted.
func (l *Ledger) Recompute(ctx context.Context, tenant string, productID uint) (float64, error) {
	var total float64
	err := l.db.WithContext(ctx).
		Model(&models.StockMove{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tenant_id = ? AND product_id = ?", tenant, productID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("recompute balance: %w", err)
	}
	return total, nil
}

type BalanceCheck struct {
	ProductID  uint    `json:"product_id"`
	Balance    float64 `json:"balance"`
	Recomputed float64 `json:"recomputed"`
	Drift      float64 `json:"drift"`
	Consistent bool    `json:"consistent"`
}

// Verify compares the materialized balance with the sum of the move log.
func (l *Ledger) Verify(ctx context.Context, tenant string, productID uint) (*BalanceCheck, error) {
	balance, err := l.CurrentBalance(ctx, tenant, productID)
	if err != nil {
		return nil, err
	}
	total, err := l.Recompute(ctx, tenant, productID)
	if err != nil {
		return nil, err
	}

	check := &BalanceCheck{
		ProductID:  productID,
		Balance:    balance,
		Recomputed: total,
		Drift:      balance - total,
	}
	check.Consistent = math.Abs(check.Drift) <= epsilon
	if !check.Consistent {
		l.log.Warn("stock balance drifted from move log",
			zap.String("tenant", tenant),
			zap.Uint("product_id", productID),
			zap.Float64("balance", balance),
			zap.Float64("recomputed", total),
		)
	}
	return check, nil
}

type MoveFilter struct {
	ProductID uint
	Type      models.StockMoveType
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// ListMoves returns moves newest first.
func (l *Ledger) ListMoves(ctx context.Context, tenant string, f MoveFilter) ([]models.StockMove, error) {
	q := l.db.WithContext(ctx).Preload("Product").Where("tenant_id = ?", tenant)
	if f.ProductID > 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if f.Until != nil {
		q = q.Where("created_at <= ?", f.Until.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var moves []models.StockMove
	if err := q.Order("created_at DESC").Order("id DESC").Find(&moves).Error; err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	return moves, nil
}

func (l *Ledger) ListBatches(ctx context.Context, tenant string, productID uint, limit, offset int) ([]models.StockBatch, error) {
	q := l.db.WithContext(ctx).Preload("Product").Where("tenant_id = ?", tenant)
	if productID > 0 {
		q = q.Where("product_id = ?", productID)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var batches []models.StockBatch
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}
