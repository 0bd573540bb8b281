package stock

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/audit"
	"github.com/dimaum1001/sistema-restaurante/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxImportRows bounds one spreadsheet upload.
const MaxImportRows = 2000

// SheetRow is one line of a stock count or receiving sheet. Product is a
// product name or numeric id as typed by the user.
type SheetRow struct {
	Line     int
	Product  string
	Quantity float64
	Type     models.StockMoveType
	Reason   string
}

type ImportResult struct {
	Imported int                `json:"imported"`
	Moves    []models.StockMove `json:"-"`
}

// ParseMoveSheet reads the first sheet of an .xlsx file with the columns
// product, quantity, type and reason. A header row is detected and skipped;
// empty type defaults to "in".
func ParseMoveSheet(r io.Reader) ([]SheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("could not read spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("could not read sheet %q: %v", sheets[0], err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && isHeader(rows[0][0]) {
		start = 1
	}

	var out []SheetRow
	var problems []string
	for i := start; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(out) >= MaxImportRows {
			return nil, apperr.Validation("spreadsheet has more than %d rows", MaxImportRows)
		}

		sr := SheetRow{Line: line, Product: strings.TrimSpace(row[0]), Type: models.StockMoveIn}
		if len(row) < 2 {
			problems = append(problems, fmt.Sprintf("line %d: quantity is missing", line))
			continue
		}
		q, err := parseQuantity(row[1])
		if err != nil || !validQuantity(q) {
			problems = append(problems, fmt.Sprintf("line %d: invalid quantity %q", line, row[1]))
			continue
		}
		sr.Quantity = q
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			sr.Type = models.StockMoveType(strings.ToLower(strings.TrimSpace(row[2])))
			if !sr.Type.Valid() {
				problems = append(problems, fmt.Sprintf("line %d: invalid move type %q", line, row[2]))
				continue
			}
		}
		if len(row) > 3 {
			sr.Reason = strings.TrimSpace(row[3])
		}
		out = append(out, sr)
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("%s", strings.Join(problems, "; "))
	}
	if len(out) == 0 {
		return nil, apperr.Validation("spreadsheet has no moves")
	}
	return out, nil
}

func isHeader(cell string) bool {
	c := strings.ToUpper(strings.TrimSpace(cell))
	return strings.Contains(c, "PRODUCT") || strings.Contains(c, "PRODUTO")
}

// parseQuantity accepts both 2.5 and 2,5.
func parseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// ImportMoves records every row in one transaction: either all moves land
// or none do. Products are matched by id or by case-insensitive name among
// the tenant's stockable products.
func (l *Ledger) ImportMoves(ctx context.Context, tenant string, actor audit.Actor, rows []SheetRow) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, apperr.Validation("nothing to import")
	}

	res := &ImportResult{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []models.Product
		if err := tx.Where("tenant_id = ? AND type IN ?", tenant,
			[]models.ProductType{models.ProductTypeIngredient, models.ProductTypeMerchandise}).
			Find(&products).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byName := make(map[string][]uint, len(products))
		byID := make(map[uint]bool, len(products))
		for _, p := range products {
			key := strings.ToLower(strings.TrimSpace(p.Name))
			byName[key] = append(byName[key], p.ID)
			byID[p.ID] = true
		}

		var problems []string
		ids := make([]uint, len(rows))
		for i, r := range rows {
			if n, err := strconv.ParseUint(r.Product, 10, 64); err == nil && byID[uint(n)] {
				ids[i] = uint(n)
				continue
			}
			switch matches := byName[strings.ToLower(r.Product)]; len(matches) {
			case 1:
				ids[i] = matches[0]
			case 0:
				problems = append(problems, fmt.Sprintf("line %d: unknown stockable product %q", r.Line, r.Product))
			default:
				problems = append(problems, fmt.Sprintf("line %d: product name %q is ambiguous, use the id", r.Line, r.Product))
			}
		}
		if len(problems) > 0 {
			return apperr.Validation("%s", strings.Join(problems, "; "))
		}

		for i, r := range rows {
			reason := r.Reason
			if reason == "" {
				reason = "spreadsheet import"
			}
			move, err := l.RecordMoveTx(tx, tenant, actor, MoveInput{
				ProductID: ids[i],
				Quantity:  r.Quantity,
				Type:      r.Type,
				Reason:    reason,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", r.Line, err)
			}
			res.Moves = append(res.Moves, *move)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Imported = len(res.Moves)
	l.log.Info("stock moves imported", zap.String("tenant", tenant), zap.Int("count", res.Imported))
	return res, nil
}
