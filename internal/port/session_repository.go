package port

import "github.com/jmoralesv/agrobook/internal/core/domain"

// SessionRepository holds per-actor conversational context and the
// accepted-action-id set used for duplicate detection. It is purely
// in-memory and must stay usable regardless of store health.
type SessionRepository interface {
	// BeginBatch clears the actor's accepted-id set so that duplicate
	// detection is scoped to the inbound batch about to be processed.
	BeginBatch(actor string)

	// Accept records actionID for the actor and returns true, or returns
	// false if the id was already accepted in the current scope.
	Accept(actor, actionID string) bool

	// IsRegistered reports membership without recording anything.
	IsRegistered(actor, actionID string) bool

	// AddMessage appends one exchange message to the actor's window.
	AddMessage(actor, role, content string)

	// Messages returns the retained window, oldest first.
	Messages(actor string) []domain.Message

	// Sweep evicts contexts idle longer than the TTL.
	Sweep()
}
