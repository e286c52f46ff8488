package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoralesv/agrobook/internal/core/domain"
	"github.com/jmoralesv/agrobook/internal/core/service"
)

type HTTPHandler struct {
	ledger   *service.LedgerService
	messages *service.MessageService
}

func NewHTTPHandler(ledger *service.LedgerService, messages *service.MessageService) *HTTPHandler {
	return &HTTPHandler{ledger: ledger, messages: messages}
}

// Register wires all routes onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/entries", h.CreateEntry)
	mux.HandleFunc("PUT /api/entries/{id}", h.ModifyEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/inventory", h.Inventory)
	mux.HandleFunc("GET /api/profit", h.Profit)
	mux.HandleFunc("POST /api/actions", h.ProcessActions)
	mux.HandleFunc("POST /api/message", h.HandleMessage)
}

type createEntryRequest struct {
	Actor        string          `json:"actor"`
	Kind         string          `json:"kind"`
	Product      string          `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Counterparty string          `json:"counterparty"`
	Note         string          `json:"note"`
	ID           string          `json:"id"`
}

type entryResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *HTTPHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "invalid request body"})
		return
	}

	id, err := h.ledger.Create(r.Context(), domain.Entry{
		ID:           req.ID,
		Actor:        req.Actor,
		Kind:         domain.Kind(req.Kind),
		Product:      req.Product,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		UnitPrice:    req.UnitPrice,
		Counterparty: req.Counterparty,
		Note:         req.Note,
	})
	if err != nil {
		// The id is reported even on inventory failure: the ledger row
		// is already committed and the caller may compensate.
		writeJSON(w, statusFor(err), entryResponse{ID: id, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Success: true, ID: id})
}

type modifyEntryRequest struct {
	Actor        string           `json:"actor"`
	Kind         *string          `json:"kind"`
	Product      *string          `json:"product"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         *string          `json:"unit"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Counterparty *string          `json:"counterparty"`
	Note         *string          `json:"note"`
}

func (h *HTTPHandler) ModifyEntry(w http.ResponseWriter, r *http.Request) {
	var req modifyEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "invalid request body"})
		return
	}

	patch := domain.EntryPatch{
		Product:      req.Product,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		UnitPrice:    req.UnitPrice,
		Counterparty: req.Counterparty,
		Note:         req.Note,
	}
	if req.Kind != nil {
		kind := domain.Kind(*req.Kind)
		patch.Kind = &kind
	}

	id := r.PathValue("id")
	if err := h.ledger.Modify(r.Context(), id, req.Actor, patch); err != nil {
		writeJSON(w, statusFor(err), entryResponse{ID: id, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Success: true, ID: id})
}

func (h *HTTPHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := r.URL.Query().Get("actor")
	if err := h.ledger.Delete(r.Context(), id, actor); err != nil {
		writeJSON(w, statusFor(err), entryResponse{ID: id, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Success: true, ID: id})
}

type entryJSON struct {
	ID           string          `json:"id"`
	Actor        string          `json:"actor"`
	Kind         string          `json:"kind"`
	Product      string          `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Counterparty string          `json:"counterparty,omitempty"`
	Note         string          `json:"note,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	entries, err := h.ledger.History(r.Context(), actor)
	if err != nil {
		writeJSON(w, statusFor(err), entryResponse{Message: err.Error()})
		return
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID: e.ID, Actor: e.Actor, Kind: string(e.Kind), Product: e.Product,
			Quantity: e.Quantity, Unit: e.Unit, UnitPrice: e.UnitPrice,
			Counterparty: e.Counterparty, Note: e.Note, RecordedAt: e.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.InventorySnapshot(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), entryResponse{Message: err.Error()})
		return
	}
	type inventoryJSON struct {
		Product  string          `json:"product"`
		Quantity decimal.Decimal `json:"quantity"`
		Unit     string          `json:"unit"`
	}
	out := make([]inventoryJSON, 0, len(records))
	for _, inv := range records {
		out = append(out, inventoryJSON{Product: inv.Product, Quantity: inv.Quantity, Unit: inv.Unit})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Profit(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	p, err := h.ledger.ProfitSummary(r.Context(), actor)
	if err != nil {
		writeJSON(w, statusFor(err), entryResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{
		"sales":     p.Sales,
		"purchases": p.Purchases,
		"net":       p.Net,
	})
}

type actionJSON struct {
	Kind         string          `json:"kind"`
	Product      string          `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Counterparty string          `json:"counterparty"`
	Note         string          `json:"note"`
	ActionID     string          `json:"action_id"`
	EntryID      string          `json:"entry_id"`
	Err          string          `json:"error"`
}

type actionsRequest struct {
	Actor   string       `json:"actor"`
	Actions []actionJSON `json:"actions"`
}

type actionResultJSON struct {
	ActionID string `json:"action_id,omitempty"`
	EntryID  string `json:"entry_id,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

func (h *HTTPHandler) ProcessActions(w http.ResponseWriter, r *http.Request) {
	var req actionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "invalid request body"})
		return
	}
	if req.Actor == "" {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "missing actor"})
		return
	}

	actions := make([]domain.Action, 0, len(req.Actions))
	for _, a := range req.Actions {
		actions = append(actions, domain.Action{
			Kind:         domain.ActionKind(a.Kind),
			Product:      a.Product,
			Quantity:     a.Quantity,
			Unit:         a.Unit,
			UnitPrice:    a.UnitPrice,
			Counterparty: a.Counterparty,
			Note:         a.Note,
			ActionID:     a.ActionID,
			EntryID:      a.EntryID,
			Err:          a.Err,
		})
	}
	writeJSON(w, http.StatusOK, toResultJSON(h.messages.ProcessBatch(r.Context(), req.Actor, actions)))
}

type messageRequest struct {
	Actor   string `json:"actor"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (h *HTTPHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "invalid request body"})
		return
	}
	if req.Actor == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, entryResponse{Message: "missing required fields"})
		return
	}

	results, err := h.messages.HandleMessage(r.Context(), req.Actor, req.Name, req.Message)
	if err != nil {
		writeJSON(w, statusFor(err), entryResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toResultJSON(results))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toResultJSON(results []domain.ActionResult) []actionResultJSON {
	out := make([]actionResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, actionResultJSON{
			ActionID: res.ActionID,
			EntryID:  res.EntryID,
			Status:   string(res.Status),
			Message:  res.Message,
		})
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateAction):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusGone
	case errors.Is(err, service.ErrUnknownProduct):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidEntry):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrExtractorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
