package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jmoralesv/agrobook/internal/core/domain"
	"github.com/jmoralesv/agrobook/internal/port"
)

var ErrExtractorUnavailable = errors.New("action extractor unavailable")

// defaultUnit is assumed when an inbound action carries no unit.
const defaultUnit = "unidades"

// MessageService drives the batch path: extract actions from a message,
// deduplicate them against the actor's session, and dispatch each one
// to the ledger. Batches for the same actor are serialized so two
// racing batches cannot both accept the same action id.
type MessageService struct {
	ledger    *LedgerService
	sessions  port.SessionRepository
	extractor port.ActionExtractor

	mu     sync.Mutex
	actors map[string]*sync.Mutex
}

func NewMessageService(ledger *LedgerService, sessions port.SessionRepository, extractor port.ActionExtractor) *MessageService {
	return &MessageService{
		ledger:    ledger,
		sessions:  sessions,
		extractor: extractor,
		actors:    make(map[string]*sync.Mutex),
	}
}

// HandleMessage runs the extractor over a free-form message and
// processes the resulting batch. Both sides of the exchange are
// recorded in the actor's context window.
func (s *MessageService) HandleMessage(ctx context.Context, actor, displayName, text string) ([]domain.ActionResult, error) {
	if s.extractor == nil {
		return nil, ErrExtractorUnavailable
	}

	lock := s.actorLock(actor)
	lock.Lock()
	defer lock.Unlock()

	history := s.sessions.Messages(actor)
	actions, err := s.extractor.Extract(ctx, actor, displayName, text, history)
	if err != nil {
		return nil, fmt.Errorf("extract actions: %w", err)
	}

	s.sessions.AddMessage(actor, "user", text)
	if raw, err := json.Marshal(actions); err == nil {
		s.sessions.AddMessage(actor, "assistant", string(raw))
	}

	return s.process(ctx, actor, actions), nil
}

// ProcessBatch handles actions already extracted elsewhere.
func (s *MessageService) ProcessBatch(ctx context.Context, actor string, actions []domain.Action) []domain.ActionResult {
	lock := s.actorLock(actor)
	lock.Lock()
	defer lock.Unlock()
	return s.process(ctx, actor, actions)
}

// process scopes duplicate detection to this batch: the accepted-id set
// is cleared up front, so only duplicates inside the batch are caught.
func (s *MessageService) process(ctx context.Context, actor string, actions []domain.Action) []domain.ActionResult {
	s.sessions.BeginBatch(actor)

	results := make([]domain.ActionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, s.dispatch(ctx, actor, a))
	}
	return results
}

func (s *MessageService) dispatch(ctx context.Context, actor string, a domain.Action) domain.ActionResult {
	if a.Err != "" {
		return domain.ActionResult{Status: domain.StatusError, Message: a.Err}
	}
	if a.ActionID == "" {
		a.ActionID = uuid.NewString()
	}

	switch a.Kind {
	case domain.ActionSale, domain.ActionPurchase:
		if a.Unit == "" {
			a.Unit = defaultUnit
		}
		if !s.sessions.Accept(actor, a.ActionID) {
			return domain.ActionResult{
				ActionID: a.ActionID,
				Status:   domain.StatusDuplicate,
				Message:  ErrDuplicateAction.Error(),
			}
		}
		id, err := s.ledger.Create(ctx, domain.Entry{
			Actor:        actor,
			Kind:         a.EntryKind(),
			Product:      a.Product,
			Quantity:     a.Quantity,
			Unit:         a.Unit,
			UnitPrice:    a.UnitPrice,
			Counterparty: a.Counterparty,
			Note:         a.Note,
		})
		if err != nil {
			// On inventory failure the ledger row may already be
			// persisted; the id is reported so the caller can compensate.
			return domain.ActionResult{ActionID: a.ActionID, EntryID: id, Status: domain.StatusRejected, Message: err.Error()}
		}
		return domain.ActionResult{ActionID: a.ActionID, EntryID: id, Status: domain.StatusApplied}

	case domain.ActionModify:
		patch := patchFromAction(a)
		if err := s.ledger.Modify(ctx, a.EntryID, actor, patch); err != nil {
			return domain.ActionResult{ActionID: a.ActionID, EntryID: a.EntryID, Status: domain.StatusRejected, Message: err.Error()}
		}
		return domain.ActionResult{ActionID: a.ActionID, EntryID: a.EntryID, Status: domain.StatusApplied}

	case domain.ActionDelete:
		if err := s.ledger.Delete(ctx, a.EntryID, actor); err != nil {
			return domain.ActionResult{ActionID: a.ActionID, EntryID: a.EntryID, Status: domain.StatusRejected, Message: err.Error()}
		}
		return domain.ActionResult{ActionID: a.ActionID, EntryID: a.EntryID, Status: domain.StatusApplied}

	default:
		return domain.ActionResult{
			ActionID: a.ActionID,
			Status:   domain.StatusRejected,
			Message:  fmt.Sprintf("unsupported action kind %q", a.Kind),
		}
	}
}

// patchFromAction keeps only the fields the extractor actually filled.
func patchFromAction(a domain.Action) domain.EntryPatch {
	var patch domain.EntryPatch
	if a.Product != "" {
		patch.Product = &a.Product
	}
	if a.Quantity.IsPositive() {
		patch.Quantity = &a.Quantity
	}
	if a.Unit != "" {
		patch.Unit = &a.Unit
	}
	if a.UnitPrice.IsPositive() {
		patch.UnitPrice = &a.UnitPrice
	}
	if a.Counterparty != "" {
		patch.Counterparty = &a.Counterparty
	}
	if a.Note != "" {
		patch.Note = &a.Note
	}
	return patch
}

func (s *MessageService) actorLock(actor string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.actors[actor]
	if !ok {
		lock = &sync.Mutex{}
		s.actors[actor] = lock
	}
	return lock
}
