package models

import "github.com/shopspring/decimal"

// Money columns reach the storefront and the mailer as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
