package domain

import "github.com/shopspring/decimal"

// ActionKind is what the extractor asks us to do with one record.
type ActionKind string

const (
	ActionSale     ActionKind = "sale"
	ActionPurchase ActionKind = "purchase"
	ActionModify   ActionKind = "modify"
	ActionDelete   ActionKind = "delete"
)

// Action is one record of an inbound batch from the extractor or the
// automation path. Err carries an extractor-side error marker; such
// records are passed through to the caller unprocessed.
type Action struct {
	Kind         ActionKind
	Product      string
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    decimal.Decimal
	Counterparty string
	Note         string
	ActionID     string
	EntryID      string
	Err          string
}

// EntryKind maps sale/purchase actions to their ledger kind.
func (a Action) EntryKind() Kind {
	if a.Kind == ActionPurchase {
		return KindPurchase
	}
	return KindSale
}

type ActionStatus string

const (
	StatusApplied   ActionStatus = "applied"
	StatusRejected  ActionStatus = "rejected"
	StatusDuplicate ActionStatus = "duplicate"
	StatusError     ActionStatus = "error"
)

// ActionResult is the per-action outcome of a processed batch.
type ActionResult struct {
	ActionID string
	EntryID  string
	Status   ActionStatus
	Message  string
}
