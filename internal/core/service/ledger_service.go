package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoralesv/agrobook/internal/core/domain"
	"github.com/jmoralesv/agrobook/internal/core/unit"
	"github.com/jmoralesv/agrobook/internal/port"
)

var (
	ErrNotFound          = errors.New("entry not found")
	ErrPermissionDenied  = errors.New("actor does not own this entry")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownProduct    = errors.New("no inventory registered for product")
	ErrDuplicateAction   = errors.New("duplicate action")
	ErrInvalidEntry      = errors.New("invalid entry")
)

// LedgerService coordinates the ledger and the derived inventory so
// they move together per logical operation. Mutations are serialized
// under a single lock held only across store round-trips.
type LedgerService struct {
	db port.DatabaseRepository
	mu sync.Mutex
}

func NewLedgerService(db port.DatabaseRepository) *LedgerService {
	return &LedgerService{db: db}
}

// Create appends a ledger entry and applies its inventory effect.
// If the inventory step fails the appended row is intentionally kept
// and the new id is returned alongside the error; the caller may issue
// a compensating delete.
func (s *LedgerService) Create(ctx context.Context, entry domain.Entry) (string, error) {
	normalizeEntry(&entry)
	if err := validateEntry(entry); err != nil {
		return "", err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.AppendEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("append entry: %w", err)
	}
	if entry.Kind.AffectsInventory() {
		if err := s.applyInventory(ctx, entry.Product, entry.Unit, entry.Quantity, entry.Kind); err != nil {
			return entry.ID, err
		}
	}
	return entry.ID, nil
}

// Modify rewrites an owned entry, compensating inventory first with the
// original values and re-applying with the new ones. A failed reversal
// aborts with ledger and inventory untouched.
func (s *LedgerService) Modify(ctx context.Context, id, actor string, patch domain.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ownedEntry(ctx, id, actor)
	if err != nil {
		return err
	}

	updated := patch.Apply(*current)
	normalizeEntry(&updated)
	if err := validateEntry(updated); err != nil {
		return err
	}

	if current.Kind.AffectsInventory() {
		if err := s.applyInventory(ctx, current.Product, current.Unit, current.Quantity, current.Kind.Reversed()); err != nil {
			return err
		}
	}
	if err := s.db.UpdateEntry(ctx, updated); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if updated.Kind.AffectsInventory() {
		if err := s.applyInventory(ctx, updated.Product, updated.Unit, updated.Quantity, updated.Kind); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an owned entry after reverting its inventory effect.
func (s *LedgerService) Delete(ctx context.Context, id, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.ownedEntry(ctx, id, actor)
	if err != nil {
		return err
	}
	if current.Kind.AffectsInventory() {
		if err := s.applyInventory(ctx, current.Product, current.Unit, current.Quantity, current.Kind.Reversed()); err != nil {
			return err
		}
	}
	if err := s.db.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// History returns the actor's entries, most recent first.
func (s *LedgerService) History(ctx context.Context, actor string) ([]domain.Entry, error) {
	return s.db.EntriesByActor(ctx, actor)
}

// InventorySnapshot returns the current stock records.
func (s *LedgerService) InventorySnapshot(ctx context.Context) ([]domain.Inventory, error) {
	return s.db.ListInventory(ctx)
}

// ProfitSummary sums quantity×price per kind over the actor's entries.
func (s *LedgerService) ProfitSummary(ctx context.Context, actor string) (domain.Profit, error) {
	entries, err := s.db.EntriesByActor(ctx, actor)
	if err != nil {
		return domain.Profit{}, err
	}
	p := domain.Profit{Sales: decimal.Zero, Purchases: decimal.Zero, Net: decimal.Zero}
	for _, e := range entries {
		total := e.Quantity.Mul(e.UnitPrice)
		switch e.Kind {
		case domain.KindSale:
			p.Sales = p.Sales.Add(total)
		case domain.KindPurchase:
			p.Purchases = p.Purchases.Add(total)
		}
	}
	p.Net = p.Sales.Sub(p.Purchases)
	return p, nil
}

func (s *LedgerService) ownedEntry(ctx context.Context, id, actor string) (*domain.Entry, error) {
	current, err := s.db.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if current.Actor != actor {
		return nil, ErrPermissionDenied
	}
	return current, nil
}

// applyInventory is the only primitive that touches inventory. A sale
// of an unknown product fails; a purchase of one creates the record and
// fixes its canonical unit. Reversal is a call with the kind flipped.
func (s *LedgerService) applyInventory(ctx context.Context, product, u string, qty decimal.Decimal, kind domain.Kind) error {
	inv, err := s.db.GetInventory(ctx, product)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	if inv == nil {
		if kind == domain.KindSale {
			return fmt.Errorf("%w: %s", ErrUnknownProduct, product)
		}
		return s.db.UpsertInventory(ctx, domain.Inventory{
			Product:  product,
			Quantity: qty,
			Unit:     unit.Normalize(u),
		})
	}

	converted, _ := unit.Convert(u, inv.Unit, qty, decimal.Zero)
	var next decimal.Decimal
	if kind == domain.KindPurchase {
		next = inv.Quantity.Add(converted)
	} else {
		next = inv.Quantity.Sub(converted)
		if next.IsNegative() {
			return fmt.Errorf("%w: %s has %s %s available", ErrInsufficientStock, product, inv.Quantity, inv.Unit)
		}
	}
	inv.Quantity = next
	return s.db.UpsertInventory(ctx, *inv)
}

func normalizeEntry(e *domain.Entry) {
	e.Actor = strings.TrimSpace(e.Actor)
	e.Product = strings.TrimSpace(e.Product)
	e.Unit = strings.ToLower(strings.TrimSpace(e.Unit))
	e.Counterparty = strings.TrimSpace(e.Counterparty)
	e.Note = strings.TrimSpace(e.Note)
}

func validateEntry(e domain.Entry) error {
	switch {
	case e.Actor == "":
		return fmt.Errorf("%w: missing actor", ErrInvalidEntry)
	case e.Kind == "":
		return fmt.Errorf("%w: missing kind", ErrInvalidEntry)
	case e.Product == "":
		return fmt.Errorf("%w: missing product", ErrInvalidEntry)
	case e.Unit == "":
		return fmt.Errorf("%w: missing unit", ErrInvalidEntry)
	case !e.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidEntry)
	case !e.UnitPrice.IsPositive():
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidEntry)
	}
	return nil
}
