package models

import "github.com/shopspring/decimal"

// Amounts travel as plain JSON numbers, the way the storefront and the
// admin dashboard expect them.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
