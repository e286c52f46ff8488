package port

import (
	"context"

	"github.com/jmoralesv/agrobook/internal/core/domain"
)

type DatabaseRepository interface {
	// AppendEntry persists a fully populated ledger entry.
	AppendEntry(ctx context.Context, entry domain.Entry) error

	// GetEntry retrieves an entry by id, returning (nil, nil) when absent.
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)

	// UpdateEntry rewrites the full row for entry.ID.
	UpdateEntry(ctx context.Context, entry domain.Entry) error

	// DeleteEntry removes the row for id.
	DeleteEntry(ctx context.Context, id string) error

	// EntriesByActor returns an actor's entries, most recent first.
	EntriesByActor(ctx context.Context, actor string) ([]domain.Entry, error)

	// GetInventory retrieves the stock record for a product, returning
	// (nil, nil) when the product has never been purchased.
	GetInventory(ctx context.Context, product string) (*domain.Inventory, error)

	// UpsertInventory creates or replaces the stock record for inv.Product.
	UpsertInventory(ctx context.Context, inv domain.Inventory) error

	// ListInventory returns all stock records ordered by product name.
	ListInventory(ctx context.Context) ([]domain.Inventory, error)
}
