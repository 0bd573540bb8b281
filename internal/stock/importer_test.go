package stock_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
	"github.com/dimaum1001/sistema-restaurante/internal/models"
	"github.com/dimaum1001/sistema-restaurante/internal/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sheet(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseMoveSheet(t *testing.T) {
	rows, err := stock.ParseMoveSheet(sheet(t,
		[]any{"Produto", "Quantidade", "Tipo", "Motivo"},
		[]any{"Arroz", 25, "in", "nota 123"},
		[]any{},
		[]any{"Feijão", "1,5", "OUT"},
		[]any{"7", 2},
	))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Arroz", rows[0].Product)
	assert.Equal(t, 25.0, rows[0].Quantity)
	assert.Equal(t, "nota 123", rows[0].Reason)

	assert.Equal(t, 1.5, rows[1].Quantity)
	assert.Equal(t, models.StockMoveOut, rows[1].Type)

	assert.Equal(t, models.StockMoveIn, rows[2].Type)
}

func TestParseMoveSheet_Invalid(t *testing.T) {
	cases := map[string]*bytes.Buffer{
		"empty":         sheet(t, []any{"Produto", "Quantidade"}),
		"zero quantity": sheet(t, []any{"Arroz", 0}),
		"bad quantity":  sheet(t, []any{"Arroz", "muito"}),
		"no quantity":   sheet(t, []any{"Arroz"}),
		"bad type":      sheet(t, []any{"Arroz", 1, "gift"}),
		"not xlsx":      bytes.NewBufferString("product,quantity\nArroz,1\n"),
	}
	for name, buf := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := stock.ParseMoveSheet(buf)
			var verr *apperr.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestImportMoves(t *testing.T) {
	ctx := context.Background()
	l, db := newLedger(t, true)
	rice := seedProduct(t, db, tenant, "Arroz", models.ProductTypeIngredient)
	beans := seedProduct(t, db, tenant, "Feijão", models.ProductTypeIngredient)
	seedProduct(t, db, tenant, "Feijoada", models.ProductTypeDish)

	rows, err := stock.ParseMoveSheet(sheet(t,
		[]any{"arroz", 25},
		[]any{fmt.Sprint(beans.ID), 10},
		[]any{"FEIJÃO", 2.5, "out", "almoço"},
	))
	require.NoError(t, err)

	res, err := l.ImportMoves(ctx, tenant, actor, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, "spreadsheet import", res.Moves[0].Reason)
	assert.Equal(t, "almoço", res.Moves[2].Reason)

	b, err := l.CurrentBalance(ctx, tenant, rice.ID)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, b, 1e-9)
	b, err = l.CurrentBalance(ctx, tenant, beans.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, b, 1e-9)
}

func TestImportMoves_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	l, db := newLedger(t, false)
	rice := seedProduct(t, db, tenant, "Arroz", models.ProductTypeIngredient)
	seedProduct(t, db, tenant, "Feijoada", models.ProductTypeDish)
	seedProduct(t, db, "casa-b", "Sal", models.ProductTypeIngredient)

	var verr *apperr.ValidationError
	_, err := l.ImportMoves(ctx, tenant, actor, []stock.SheetRow{
		{Line: 1, Product: "Arroz", Quantity: 5, Type: models.StockMoveIn},
		{Line: 2, Product: "Feijoada", Quantity: 1, Type: models.StockMoveIn},
		{Line: 3, Product: "Sal", Quantity: 1, Type: models.StockMoveIn},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "line 3")

	_, err = l.ImportMoves(ctx, tenant, actor, []stock.SheetRow{
		{Line: 1, Product: "Arroz", Quantity: 5, Type: models.StockMoveIn},
		{Line: 2, Product: "Arroz", Quantity: 8, Type: models.StockMoveOut},
	})
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)

	b, err := l.CurrentBalance(ctx, tenant, rice.ID)
	require.NoError(t, err)
	assert.Zero(t, b)

	moves, err := l.ListMoves(ctx, tenant, stock.MoveFilter{ProductID: rice.ID})
	require.NoError(t, err)
	assert.Empty(t, moves)
}
