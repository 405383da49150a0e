// Package oracle defines the engine's two external language collaborators:
// the classification oracle (intent + entities + confidence) and the
// response oracle (customer-facing phrasing). Both are capability interfaces
// injected into the orchestrator at construction; adapters for OpenAI and
// Anthropic live in subpackages, deterministic stubs live here. Neither
// oracle carries policy: the orchestrator's decision is final regardless of
// phrasing.
package oracle

import (
	"context"
	"strings"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/policy"
)

// Classification is the classification oracle's result for one message.
type Classification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// Classifier maps a customer message plus accumulated facts to an intent
// label, extracted entities and a confidence score in [0,1].
type Classifier interface {
	Classify(ctx context.Context, message string, facts map[string]any) (*Classification, error)
}

// ResponseRequest carries everything the response oracle may use to phrase
// a reply: the final decision, tool outcomes and conversation context.
type ResponseRequest struct {
	Decision    *policy.Decision
	ToolResults []core.ToolCallRecord
	Facts       map[string]any
	History     []core.Message
}

// Responder renders the customer-facing reply for a decided turn.
type Responder interface {
	Respond(ctx context.Context, req ResponseRequest) (string, error)
}

// StaticClassifier returns scripted classifications in order, repeating the
// last one once the script is exhausted. Useful in tests and demos.
type StaticClassifier struct {
	Script []Classification
	Err    error
	calls  int
}

// Classify implements Classifier.
func (s *StaticClassifier) Classify(ctx context.Context, message string, facts map[string]any) (*Classification, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Script) == 0 {
		return &Classification{Intent: "UNKNOWN"}, nil
	}
	idx := s.calls
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	}
	s.calls++
	result := s.Script[idx]
	return &result, nil
}

// TemplateResponder renders replies from a fixed template table keyed by the
// decision's response template id. It is the deterministic Responder used in
// tests and as a no-LLM fallback deployment mode.
type TemplateResponder struct {
	Templates map[string]string
	Err       error
}

// Respond implements Responder.
func (r *TemplateResponder) Respond(ctx context.Context, req ResponseRequest) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	d := req.Decision
	if d != nil && d.Action == policy.ActionAskClarifying {
		if len(d.ClarifyingQuestions) > 0 {
			return strings.Join(d.ClarifyingQuestions, " "), nil
		}
		return "Could you share a few more details about your request?", nil
	}
	for _, rec := range req.ToolResults {
		if !rec.Success {
			return "We could not complete that automatically. Could you double-check the details you provided?", nil
		}
	}
	if d != nil && d.ResponseTemplate != "" {
		if text, ok := r.Templates[d.ResponseTemplate]; ok {
			return text, nil
		}
	}
	return "Thanks for reaching out. We are looking into your request.", nil
}

// DefaultTemplates is the built-in reply table matching the shipped
// decision tables.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"wismo_promise_friday":    "We are sorry for the delay. Your order is on its way and will be delivered by Friday.",
		"wismo_promise_next_week": "We are sorry for the delay. Your order is on its way and will be delivered early next week.",
		"wismo_generic":           "We are checking the status of your order and will update you shortly.",
		"refund_generic":          "We have received your refund request and are processing it.",
		"wrong_missing_generic":   "We are sorry about the mix-up with your order. We are on it.",
	}
}
