// Package extractor adapts the Gemini API as the external
// text-to-structured-action service.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/jmoralesv/agrobook/internal/core/domain"
)

const systemPrompt = `You are a commercial assistant. Your only task is to interpret the
user's message, extract the commercial actions it describes, and reply
with exactly one JSON object of this shape and nothing else:

{
  "actions": [
    {
      "kind": "sale|purchase|modify|delete",
      "product": "specific product name",
      "quantity": number,
      "unit_price": number,
      "unit": "kg|unidades|litros|toneladas|cajas",
      "counterparty": "name (optional)",
      "note": "text (optional)",
      "entry_id": "only for modify/delete, otherwise empty"
    }
  ]
}

Rules:
- No text outside the JSON. No markdown, no code fences, no explanations.
- Use exactly these field names.
- If the message describes several actions, return one object per action.
- "entry_id" is only used for modify/delete; leave it empty otherwise.`

// historyWindow is how many prior exchange messages are replayed to the
// model for context.
const historyWindow = 3

type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(client *genai.Client, model string) *GeminiExtractor {
	return &GeminiExtractor{client: client, model: model}
}

func (g *GeminiExtractor) Extract(ctx context.Context, actor, displayName, message string, history []domain.Message) ([]domain.Action, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var contents []*genai.Content
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	prompt := fmt.Sprintf("User: %s. Now process this message: %s", displayName, message)
	contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: prompt}}})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.1),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model %s", g.model)
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		raw.WriteString(part.Text)
	}
	return ParseActions(raw.String()), nil
}

// flexNumber tolerates models that quote numeric fields.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = flexNumber(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

type wireAction struct {
	Kind         string     `json:"kind"`
	Product      string     `json:"product"`
	Quantity     flexNumber `json:"quantity"`
	UnitPrice    flexNumber `json:"unit_price"`
	Unit         string     `json:"unit"`
	Counterparty string     `json:"counterparty"`
	Note         string     `json:"note"`
	ActionID     string     `json:"action_id"`
	EntryID      string     `json:"entry_id"`
	Err          string     `json:"error"`
}

type wirePayload struct {
	Actions []wireAction `json:"actions"`
}

// ParseActions decodes the model output, repairing fragmented JSON and
// normalizing kinds. A response that cannot be decoded yields a single
// error-marked action that is passed through unprocessed.
func ParseActions(raw string) []domain.Action {
	clean, ok := repairJSON(raw)
	if !ok {
		return []domain.Action{{Err: "no JSON object found in extractor response"}}
	}

	var payload wirePayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil || len(payload.Actions) == 0 {
		// Some models answer with a bare action object.
		var single wireAction
		if err := json.Unmarshal([]byte(clean), &single); err != nil || (single.Kind == "" && single.Err == "") {
			return []domain.Action{{Err: "unparseable extractor response"}}
		}
		payload.Actions = []wireAction{single}
	}

	out := make([]domain.Action, 0, len(payload.Actions))
	for _, w := range payload.Actions {
		out = append(out, normalizeAction(w))
	}
	return out
}

// repairJSON extracts the substring between the first '{' and the last
// '}' so stray prose around the payload does not break decoding.
func repairJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func normalizeAction(w wireAction) domain.Action {
	if w.Err != "" {
		return domain.Action{Err: w.Err}
	}
	a := domain.Action{
		Product:      strings.TrimSpace(w.Product),
		Unit:         strings.ToLower(strings.TrimSpace(w.Unit)),
		Counterparty: strings.TrimSpace(w.Counterparty),
		Note:         strings.TrimSpace(w.Note),
		ActionID:     strings.TrimSpace(w.ActionID),
		EntryID:      strings.TrimSpace(w.EntryID),
	}

	switch strings.ToLower(strings.TrimSpace(w.Kind)) {
	case "sale", "venta", "vender":
		a.Kind = domain.ActionSale
	case "purchase", "compra", "comprar":
		a.Kind = domain.ActionPurchase
	case "modify", "modificar":
		a.Kind = domain.ActionModify
	case "delete", "eliminar":
		a.Kind = domain.ActionDelete
	default:
		return domain.Action{Err: fmt.Sprintf("unrecognized action kind %q", w.Kind)}
	}

	if q, err := decimal.NewFromString(string(w.Quantity)); err == nil {
		a.Quantity = q
	}
	if p, err := decimal.NewFromString(string(w.UnitPrice)); err == nil {
		a.UnitPrice = p
	}
	return a
}
