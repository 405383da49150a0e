package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/caseflow-io/caseflow/core"
)

// escalationNotice is the fixed reply for every message on an escalated
// session. Escalation is irreversible, so the wording never varies.
const escalationNotice = "Your request has been escalated to our specialist team. " +
	"A human agent will review your case and follow up with you shortly."

const (
	summaryMessages = 5
	summaryMaxRunes = 100
	failedCallsHigh = 2
)

var urgencyKeywords = []string{
	"urgent", "immediately", "asap", "right now", "unacceptable", "lawyer", "chargeback",
}

// escalate flips the session into its terminal escalated state, records the
// hand-off payload on the trace and produces the fixed reply.
func (o *Orchestrator) escalate(sess *core.Session, reason string, now time.Time) *Reply {
	payload := buildPayload(sess, reason, now)

	sess.Status = core.StatusEscalated
	sess.AppendTrace(core.NewEscalationEvent(payload))
	sess.AppendMessage(core.NewMessage(core.RoleAgent, escalationNotice))
	sess.AppendTrace(core.NewAgentResponseEvent("orchestrator", escalationNotice))

	o.opts.Logger.Info("session escalated",
		"session_id", sess.ID, "reason", reason, "priority", string(payload.Priority))

	return &Reply{
		SessionID:  sess.ID,
		Text:       escalationNotice,
		Status:     core.StatusEscalated,
		Escalation: &payload,
	}
}

// buildPayload assembles the seven-field hand-off document for the human
// queue from the session's current state.
func buildPayload(sess *core.Session, reason string, now time.Time) core.EscalationPayload {
	return core.EscalationPayload{
		EscalationID:        core.NewID(),
		CustomerID:          sess.Customer.ID,
		Reason:              reason,
		ConversationSummary: summarize(sess.Messages),
		AttemptedActions:    attemptedActions(sess.ToolHistory),
		Priority:            priorityFor(sess),
		CreatedAt:           now.UTC().Format(time.RFC3339),
	}
}

// summarize renders the last few conversation turns, one line per message,
// long messages truncated.
func summarize(messages []core.Message) string {
	start := 0
	if len(messages) > summaryMessages {
		start = len(messages) - summaryMessages
	}
	lines := make([]string, 0, summaryMessages)
	for _, m := range messages[start:] {
		text := m.Text
		if runes := []rune(text); len(runes) > summaryMaxRunes {
			text = string(runes[:summaryMaxRunes]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, text))
	}
	return strings.Join(lines, "\n")
}

// attemptedActions lists every tool attempt made during the session. The
// slice is never nil; a session escalated before any tool ran hands off an
// empty list.
func attemptedActions(history []core.ToolCallRecord) []string {
	actions := make([]string, 0, len(history))
	for _, rec := range history {
		outcome := "ok"
		if !rec.Success {
			outcome = "failed"
		}
		actions = append(actions, fmt.Sprintf("%s (%s)", rec.Tool, outcome))
	}
	return actions
}

// priorityFor grades the hand-off. Repeated tool failures or urgent language
// in the latest customer message push it to high.
func priorityFor(sess *core.Session) core.Priority {
	if sess.FailedToolCalls() >= failedCallsHigh {
		return core.PriorityHigh
	}
	if hasUrgency(lastCustomerText(sess.Messages)) {
		return core.PriorityHigh
	}
	return core.PriorityMedium
}

func lastCustomerText(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleCustomer {
			return messages[i].Text
		}
	}
	return ""
}

func hasUrgency(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
