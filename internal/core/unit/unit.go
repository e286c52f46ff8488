// Package unit normalizes unit spellings and converts quantities and
// unit prices between the canonical stock units.
package unit

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical units of inventory truth.
const (
	Kilos     = "kilos"
	Toneladas = "toneladas"
	Cajas     = "cajas"
)

var synonyms = map[string]string{
	"kg":         Kilos,
	"k":          Kilos,
	"kilo":       Kilos,
	"kilogramo":  Kilos,
	"kilogramos": Kilos,
	"kilos":      Kilos,
	"ton":        Toneladas,
	"t":          Toneladas,
	"tonelada":   Toneladas,
	"toneladas":  Toneladas,
	"caja":       Cajas,
	"cajas":      Cajas,
}

// 1 tonelada = 1000 kilos, 1 caja = 50 kilos.
var factors = map[[2]string]decimal.Decimal{
	{Kilos, Kilos}:         decimal.NewFromInt(1),
	{Toneladas, Toneladas}: decimal.NewFromInt(1),
	{Cajas, Cajas}:         decimal.NewFromInt(1),

	{Kilos, Toneladas}: decimal.RequireFromString("0.001"),
	{Toneladas, Kilos}: decimal.NewFromInt(1000),

	{Cajas, Kilos}: decimal.NewFromInt(50),
	{Kilos, Cajas}: decimal.RequireFromString("0.02"),

	{Cajas, Toneladas}: decimal.RequireFromString("0.05"),
	{Toneladas, Cajas}: decimal.NewFromInt(20),
}

// Normalize lowercases and trims a unit string and maps known synonyms
// to their canonical unit. Unknown units pass through unchanged and act
// as their own canonical unit.
func Normalize(u string) string {
	lower := strings.ToLower(strings.TrimSpace(u))
	if canonical, ok := synonyms[lower]; ok {
		return canonical
	}
	return lower
}

// Factor returns the multiplicative factor from one unit to another,
// defaulting to identity for unknown pairs so unrelated units are never
// blocked. Every factor in the table is positive.
func Factor(from, to string) decimal.Decimal {
	if f, ok := factors[[2]string{Normalize(from), Normalize(to)}]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// Convert re-expresses a quantity and its unit price in the target unit.
// The price is per unit, so it scales inversely with the quantity.
func Convert(from, to string, qty, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	f := Factor(from, to)
	return qty.Mul(f), price.Div(f)
}
