package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// AffectsInventory reports whether entries of this kind move stock.
// Other kinds may exist as plain ledger records.
func (k Kind) AffectsInventory() bool {
	return k == KindSale || k == KindPurchase
}

// Reversed returns the kind whose inventory effect undoes this one.
func (k Kind) Reversed() Kind {
	if k == KindSale {
		return KindPurchase
	}
	return KindSale
}

type Entry struct {
	ID           string
	Actor        string
	Kind         Kind
	Product      string
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    decimal.Decimal
	Counterparty string
	Note         string
	RecordedAt   time.Time
}

// EntryPatch is a partial update with explicit per-field presence.
// A nil field leaves the stored value untouched.
type EntryPatch struct {
	Kind         *Kind
	Product      *string
	Quantity     *decimal.Decimal
	Unit         *string
	UnitPrice    *decimal.Decimal
	Counterparty *string
	Note         *string
}

// Apply overlays the set fields of the patch onto e and returns the result.
func (p EntryPatch) Apply(e Entry) Entry {
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Product != nil {
		e.Product = *p.Product
	}
	if p.Quantity != nil {
		e.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		e.Unit = *p.Unit
	}
	if p.UnitPrice != nil {
		e.UnitPrice = *p.UnitPrice
	}
	if p.Counterparty != nil {
		e.Counterparty = *p.Counterparty
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	return e
}

// IsZero reports whether the patch would change nothing.
func (p EntryPatch) IsZero() bool {
	return p.Kind == nil && p.Product == nil && p.Quantity == nil &&
		p.Unit == nil && p.UnitPrice == nil && p.Counterparty == nil && p.Note == nil
}
