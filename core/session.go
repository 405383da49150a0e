package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusActive sessions accept and process customer messages.
	StatusActive Status = "active"
	// StatusEscalated sessions are locked: messages are still recorded for
	// audit but no classification, rule evaluation or tool calls happen.
	// The transition into this state is irreversible.
	StatusEscalated Status = "escalated"
	// StatusResolved sessions completed their workflow with no further
	// automated action required.
	StatusResolved Status = "resolved"
)

// Role identifies the author of a message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleSystem   Role = "system"
)

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage constructs a message with a fresh id and UTC timestamp.
func NewMessage(role Role, text string) Message {
	return Message{ID: NewID(), Role: role, Text: text, Timestamp: time.Now().UTC()}
}

// Customer identifies the customer a session belongs to.
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CaseContext holds the structured facts accumulated about a case across
// turns (order id, tracking number, promise state, contact day, ...). Keys
// are workflow-defined. It is a plain map so it serializes naturally; writes
// go through Session helpers which enforce the overwrite discipline.
type CaseContext map[string]any

// Clone returns an independent shallow copy.
func (c CaseContext) Clone() CaseContext {
	out := make(CaseContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether a fact is present and non-empty.
func (c CaseContext) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// Session is the unit of conversation state. It exclusively owns its
// messages, case context, tool history and trace. A session is only mutated
// by the orchestrator inside its per-session critical section; stores hand
// out independent copies so a turn can be discarded without partial effects.
type Session struct {
	ID          string             `json:"id"`
	Customer    Customer           `json:"customer"`
	Status      Status             `json:"status"`
	Intent      string             `json:"intent,omitempty"`
	Confidence  float64            `json:"confidence,omitempty"`
	Messages    []Message          `json:"messages"`
	Context     CaseContext        `json:"context"`
	Confidences map[string]float64 `json:"confidences,omitempty"`
	// Pinned marks facts written by rule actions. A pinned fact is only
	// superseded by another rule action, never by entity extraction,
	// unless the active workflow marks the field overridable.
	Pinned map[string]bool `json:"pinned,omitempty"`
	ToolHistory []ToolCallRecord   `json:"tool_history,omitempty"`
	Trace       []TraceEvent       `json:"trace"`
	// PolicyVersion pins the decision table snapshot the last turn evaluated
	// against; a policy publish never changes an in-flight turn.
	PolicyVersion int       `json:"policy_version,omitempty"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

// NewSession creates an active session for a customer.
func NewSession(customer Customer) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          NewID(),
		Customer:    customer,
		Status:      StatusActive,
		Messages:    []Message{},
		Context:     CaseContext{},
		Confidences: map[string]float64{},
		Pinned:      map[string]bool{},
		Trace:       []TraceEvent{},
		Created:     now,
		Updated:     now,
	}
}

// AppendMessage records a conversation turn.
func (s *Session) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.Updated = time.Now().UTC()
}

// AppendTrace appends an event to the ordered trace.
func (s *Session) AppendTrace(ev TraceEvent) {
	s.Trace = append(s.Trace, ev)
	s.Updated = time.Now().UTC()
}

// RecordToolCall appends a tool call record to both the tool history and the trace.
func (s *Session) RecordToolCall(rec ToolCallRecord) {
	s.ToolHistory = append(s.ToolHistory, rec)
	s.AppendTrace(NewToolCallEvent(rec))
}

// SetFact stores a fact unconditionally and pins it. Rule actions are the
// only writers allowed to supersede promise-type facts, so a fact set here
// is locked against the entity merge.
func (s *Session) SetFact(key string, value any) {
	s.ensureFactMaps()
	s.Context[key] = value
	s.Confidences[key] = 1.0
	s.Pinned[key] = true
	s.Updated = time.Now().UTC()
}

// ensureFactMaps re-creates fact bookkeeping maps dropped by omitempty on a
// JSON round trip.
func (s *Session) ensureFactMaps() {
	if s.Context == nil {
		s.Context = CaseContext{}
	}
	if s.Confidences == nil {
		s.Confidences = map[string]float64{}
	}
	if s.Pinned == nil {
		s.Pinned = map[string]bool{}
	}
}

// MergeEntities merges classifier-extracted entities into the case context.
// Pinned facts are skipped outright; any other established fact is only
// replaced when the new value arrives with a confidence at least as high as
// the recorded one. Fields the active workflow marks overridable bypass both
// guards. Nil and empty values are ignored.
func (s *Session) MergeEntities(entities map[string]any, confidence float64, overridable map[string]bool) {
	s.ensureFactMaps()
	for key, value := range entities {
		if value == nil {
			continue
		}
		if str, ok := value.(string); ok && str == "" {
			continue
		}
		if s.Pinned[key] && !overridable[key] {
			continue
		}
		if s.Context.Has(key) && !overridable[key] && confidence < s.Confidences[key] {
			continue
		}
		s.Context[key] = value
		s.Confidences[key] = confidence
	}
	s.Updated = time.Now().UTC()
}

// FailedToolCalls counts unsuccessful entries in the tool history.
func (s *Session) FailedToolCalls() int {
	n := 0
	for _, rec := range s.ToolHistory {
		if !rec.Success {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe for independent mutation. Stores return
// clones so that an abandoned turn leaves the persisted session untouched.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = append([]Message(nil), s.Messages...)
	clone.Context = s.Context.Clone()
	clone.Confidences = make(map[string]float64, len(s.Confidences))
	for k, v := range s.Confidences {
		clone.Confidences[k] = v
	}
	clone.Pinned = make(map[string]bool, len(s.Pinned))
	for k, v := range s.Pinned {
		clone.Pinned[k] = v
	}
	clone.ToolHistory = append([]ToolCallRecord(nil), s.ToolHistory...)
	clone.Trace = append([]TraceEvent(nil), s.Trace...)
	return &clone
}

// ErrSessionNotFound is returned by stores when no session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions. Get and Save operate on whole-session
// snapshots: Get returns an independent copy, Save atomically replaces the
// stored state. The orchestrator serializes Save calls per session id, so
// implementations only need to be safe for concurrent access across sessions.
type SessionStore interface {
	Create(ctx context.Context, customer Customer) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// NewID generates a unique identifier for sessions, messages and trace events.
func NewID() string { return uuid.NewString() }
