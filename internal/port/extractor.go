package port

import (
	"context"

	"github.com/jmoralesv/agrobook/internal/core/domain"
)

// ActionExtractor turns a free-form message into structured actions.
// It is an external collaborator; records it could not interpret come
// back with their Err marker set.
type ActionExtractor interface {
	Extract(ctx context.Context, actor, displayName, message string, history []domain.Message) ([]domain.Action, error)
}
