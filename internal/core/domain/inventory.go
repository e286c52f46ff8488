package domain

import "github.com/shopspring/decimal"

// Inventory is the running stock total for one product, kept in the
// canonical unit fixed by the first purchase of that product.
type Inventory struct {
	Product  string
	Quantity decimal.Decimal
	Unit     string
}

// Profit is the per-actor financial summary derived from the ledger:
// quantity×price summed per kind, net = sales − purchases.
type Profit struct {
	Sales     decimal.Decimal
	Purchases decimal.Decimal
	Net       decimal.Decimal
}
