package unit

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"kg":         Kilos,
		" KILO ":     Kilos,
		"kilogramos": Kilos,
		"ton":        Toneladas,
		"t":          Toneladas,
		"Tonelada":   Toneladas,
		"caja":       Cajas,
		"cajas":      Cajas,
		"litros":     "litros",
		" Unidades ": "unidades",
		"sacos":      "sacos",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvert_KilosToToneladas(t *testing.T) {
	qty, price := Convert("kg", "toneladas", decimal.NewFromInt(1000), decimal.NewFromInt(5))

	if !qty.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected quantity 1, got %s", qty)
	}
	if !price.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected price 5000, got %s", price)
	}
}

func TestConvert_CajasToKilos(t *testing.T) {
	qty, price := Convert("cajas", "kilos", decimal.NewFromInt(10), decimal.NewFromInt(100))

	if !qty.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected quantity 500, got %s", qty)
	}
	if !price.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected price 2, got %s", price)
	}
}

func TestConvert_UnknownPairIsIdentity(t *testing.T) {
	qty, price := Convert("litros", "kilos", decimal.NewFromInt(7), decimal.NewFromInt(3))

	if !qty.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected quantity 7, got %s", qty)
	}
	if !price.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected price 3, got %s", price)
	}
}

func TestFactor_TableIsComplete(t *testing.T) {
	units := []string{Kilos, Toneladas, Cajas}
	for _, from := range units {
		for _, to := range units {
			f := Factor(from, to)
			if !f.IsPositive() {
				t.Errorf("Factor(%s, %s) = %s, want positive", from, to, f)
			}
			// Round-tripping must be exact.
			inverse := Factor(to, from)
			if !f.Mul(inverse).Equal(decimal.NewFromInt(1)) {
				t.Errorf("Factor(%s, %s) * Factor(%s, %s) = %s, want 1", from, to, to, from, f.Mul(inverse))
			}
		}
	}
}

func TestFactor_NormalizesArguments(t *testing.T) {
	if got := Factor("KG", "Ton"); !got.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("Factor(KG, Ton) = %s, want 0.001", got)
	}
}
