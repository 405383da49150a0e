package core

import (
	"fmt"
	"time"
)

// TraceEventType discriminates the trace event union.
type TraceEventType string

const (
	TraceCustomerMessage  TraceEventType = "customer_message"
	TraceClassification   TraceEventType = "classification_result"
	TraceWorkflowDecision TraceEventType = "workflow_decision"
	TraceToolCall         TraceEventType = "tool_call"
	TraceAgentResponse    TraceEventType = "agent_response"
	TraceEscalation       TraceEventType = "escalation"
)

// TraceEvent is one entry in a session's append-only audit log. Events are
// never mutated or removed; consumers can reconstruct the full decision,
// tool and escalation timeline of a session from the trace alone.
type TraceEvent struct {
	ID        string         `json:"id"`
	Type      TraceEventType `json:"type"`
	Agent     string         `json:"agent,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

func newTraceEvent(t TraceEventType, agent string, data map[string]any) TraceEvent {
	if data == nil {
		data = map[string]any{}
	}
	return TraceEvent{ID: NewID(), Type: t, Agent: agent, Data: data, Timestamp: time.Now().UTC()}
}

// NewCustomerMessageEvent records an inbound customer message.
func NewCustomerMessageEvent(text string) TraceEvent {
	return newTraceEvent(TraceCustomerMessage, "", map[string]any{"message": text})
}

// NewClassificationEvent records the classification oracle's result.
func NewClassificationEvent(intent string, confidence float64, entities map[string]any) TraceEvent {
	return newTraceEvent(TraceClassification, "classifier", map[string]any{
		"intent":     intent,
		"confidence": confidence,
		"entities":   entities,
	})
}

// NewWorkflowDecisionEvent records the rule evaluator's chosen decision.
func NewWorkflowDecisionEvent(workflow, ruleID, action string, missingFields []string, toolPlan []string) TraceEvent {
	return newTraceEvent(TraceWorkflowDecision, "policy", map[string]any{
		"workflow":       workflow,
		"rule_id":        ruleID,
		"action":         action,
		"missing_fields": missingFields,
		"tool_plan":      toolPlan,
	})
}

// NewToolCallEvent records a single tool gateway invocation attempt.
func NewToolCallEvent(rec ToolCallRecord) TraceEvent {
	return newTraceEvent(TraceToolCall, "tool_gateway", map[string]any{
		"tool":        rec.Tool,
		"params":      rec.Params,
		"result":      rec.Result,
		"error":       rec.Error,
		"success":     rec.Success,
		"retry_count": rec.RetryCount,
	})
}

// NewAgentResponseEvent records the customer-facing reply emitted for a turn.
func NewAgentResponseEvent(agent, reply string) TraceEvent {
	return newTraceEvent(TraceAgentResponse, agent, map[string]any{"reply": reply})
}

// NewEscalationEvent records the hand-off to human handling.
func NewEscalationEvent(payload EscalationPayload) TraceEvent {
	return newTraceEvent(TraceEscalation, "escalation", map[string]any{
		"escalation_id": payload.EscalationID,
		"reason":        payload.Reason,
		"priority":      payload.Priority,
	})
}

// ToolCallRecord is the immutable record of one tool invocation attempt:
// a validation failure, a first attempt or a retry each produce one record.
type ToolCallRecord struct {
	Tool       string         `json:"tool_name"`
	Params     map[string]any `json:"params"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Success    bool           `json:"success"`
	RetryCount int            `json:"retry_count"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Priority grades an escalation for the human queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// EscalationPayload is the structured hand-off document created exactly once
// per escalated session. The field set is fixed; downstream ticketing
// integrations rely on exactly these seven fields being present.
type EscalationPayload struct {
	EscalationID        string   `json:"escalation_id"`
	CustomerID          string   `json:"customer_id"`
	Reason              string   `json:"reason"`
	ConversationSummary string   `json:"conversation_summary"`
	AttemptedActions    []string `json:"attempted_actions"`
	Priority            Priority `json:"priority"`
	CreatedAt           string   `json:"created_at"`
}

// Validate checks the payload against the fixed schema.
func (p EscalationPayload) Validate() error {
	if p.EscalationID == "" {
		return fmt.Errorf("escalation payload: missing escalation_id")
	}
	if p.CustomerID == "" {
		return fmt.Errorf("escalation payload: missing customer_id")
	}
	if p.Reason == "" {
		return fmt.Errorf("escalation payload: missing reason")
	}
	if p.CreatedAt == "" {
		return fmt.Errorf("escalation payload: missing created_at")
	}
	switch p.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("escalation payload: invalid priority %q", p.Priority)
	}
	if p.AttemptedActions == nil {
		return fmt.Errorf("escalation payload: attempted_actions must be present (may be empty)")
	}
	return nil
}
