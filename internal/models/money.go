package models

import "github.com/shopspring/decimal"

func init() {
	// API clients expect JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
