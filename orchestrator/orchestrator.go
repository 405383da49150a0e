// Package orchestrator drives a support session through one turn: classify
// the message, evaluate the pinned decision table, run any tool plan and
// render the reply. All session mutation happens on a working copy that is
// committed with a single Save at the end of the turn, and turns for the
// same session are serialized with a per-session lock.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/logging"
	"github.com/caseflow-io/caseflow/oracle"
	"github.com/caseflow-io/caseflow/policy"
	"github.com/caseflow-io/caseflow/tool"
)

// Options configure the orchestrator.
type Options struct {
	// ConfidenceThreshold is the minimum classification confidence below
	// which the turn escalates before any rule evaluation.
	ConfidenceThreshold float64
	// OracleTimeout bounds each classification and response call.
	OracleTimeout time.Duration
	// IntentWorkflows maps intent labels to workflow names. Intents absent
	// from the map use their own label as the workflow name.
	IntentWorkflows map[string]string
	Logger          logging.Logger
	// Clock supplies the turn's notion of now. Tests pin it.
	Clock func() time.Time
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID  string                  `json:"session_id"`
	Text       string                  `json:"text"`
	Status     core.Status             `json:"status"`
	Escalation *core.EscalationPayload `json:"escalation,omitempty"`
}

// Orchestrator coordinates the session store, policy registry, tool gateway
// and the two oracles.
type Orchestrator struct {
	sessions   core.SessionStore
	registry   *policy.Registry
	gateway    *tool.Gateway
	classifier oracle.Classifier
	responder  oracle.Responder
	opts       Options

	// locks serializes turns per session id. Entries are never pruned; the
	// map grows with the number of distinct sessions seen over the process
	// lifetime, which a deployment recycling its workers keeps bounded.
	locks sync.Map // session id -> *sync.Mutex
}

// New creates an orchestrator.
func New(
	sessions core.SessionStore,
	registry *policy.Registry,
	gateway *tool.Gateway,
	classifier oracle.Classifier,
	responder oracle.Responder,
	optFns ...func(o *Options),
) *Orchestrator {
	opts := Options{
		ConfidenceThreshold: 0.6,
		OracleTimeout:       10 * time.Second,
		Logger:              logging.NoOpLogger{},
		Clock:               time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		sessions:   sessions,
		registry:   registry,
		gateway:    gateway,
		classifier: classifier,
		responder:  responder,
		opts:       opts,
	}
}

// StartSession opens a new session for a customer.
func (o *Orchestrator) StartSession(ctx context.Context, customer core.Customer) (*core.Session, error) {
	return o.sessions.Create(ctx, customer)
}

// Session returns the current committed state of a session.
func (o *Orchestrator) Session(ctx context.Context, id string) (*core.Session, error) {
	return o.sessions.Get(ctx, id)
}

// Advance processes one customer message and returns the reply. Turns for
// the same session never interleave; the session either commits the whole
// turn or, on storage failure, none of it.
func (o *Orchestrator) Advance(ctx context.Context, sessionID, text string) (*Reply, error) {
	mu := o.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := o.opts.Clock().UTC()

	sess.AppendMessage(core.NewMessage(core.RoleCustomer, text))
	sess.AppendTrace(core.NewCustomerMessageEvent(text))

	// Escalation is a one-way door. Messages after it are kept for the
	// audit record but never re-enter classification or rule evaluation.
	if sess.Status == core.StatusEscalated {
		sess.AppendMessage(core.NewMessage(core.RoleAgent, escalationNotice))
		sess.AppendTrace(core.NewAgentResponseEvent("orchestrator", escalationNotice))
		if err := o.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return &Reply{SessionID: sess.ID, Text: escalationNotice, Status: sess.Status}, nil
	}

	// A new message reopens a resolved session.
	if sess.Status == core.StatusResolved {
		sess.Status = core.StatusActive
	}

	if !sess.Context.Has("contact_day") {
		sess.SetFact("contact_day", policy.ContactDay(now))
	}

	reply := o.advanceActive(ctx, sess, text, now)

	if err := o.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return reply, nil
}

func (o *Orchestrator) advanceActive(ctx context.Context, sess *core.Session, text string, now time.Time) *Reply {
	log := logging.With(o.opts.Logger, "session_id", sess.ID)

	cls, err := o.classify(ctx, text, sess.Context)
	if err != nil {
		log.Warn("classification oracle failed", "error", err)
		return o.escalate(sess, "classification unavailable", now)
	}

	sess.AppendTrace(core.NewClassificationEvent(cls.Intent, cls.Confidence, cls.Entities))
	sess.Intent = cls.Intent
	sess.Confidence = cls.Confidence

	if cls.Confidence < o.opts.ConfidenceThreshold {
		return o.escalate(sess, "low classification confidence", now)
	}

	snapshot := o.registry.Current()
	workflow := o.workflowFor(cls.Intent)
	table, ok := snapshot.Table(workflow)
	if !ok {
		return o.escalate(sess, "no workflow for intent "+cls.Intent, now)
	}

	sess.MergeEntities(cls.Entities, cls.Confidence, table.Overridable())
	sess.PolicyVersion = snapshot.Version

	decision, err := snapshot.Decide(workflow, evaluationFacts(sess, now), now)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrNoApplicableRule):
			return o.escalate(sess, "no applicable rule in workflow "+workflow, now)
		case errors.Is(err, policy.ErrRoutingLoop):
			return o.escalate(sess, "routing loop in workflow "+workflow, now)
		default:
			log.Error("decision table evaluation failed", "workflow", workflow, "error", err)
			return o.escalate(sess, "policy evaluation failed", now)
		}
	}

	sess.AppendTrace(core.NewWorkflowDecisionEvent(
		decision.Workflow, decision.RuleID, string(decision.Action),
		decision.MissingFields, decision.ToolNames(),
	))
	applyContext(sess, decision.SetContext)

	var toolResults []core.ToolCallRecord
	if decision.Action == policy.ActionCallTool {
		results, failReason := o.runToolPlan(ctx, sess, decision.ToolPlan)
		if failReason != "" {
			return o.escalate(sess, failReason, now)
		}
		toolResults = results
	}

	if decision.Action == policy.ActionEscalate {
		reason := decision.EscalationReason
		if reason == "" {
			reason = "escalated by policy rule " + decision.RuleID
		}
		return o.escalate(sess, reason, now)
	}

	replyText, err := o.respond(ctx, oracle.ResponseRequest{
		Decision:    decision,
		ToolResults: toolResults,
		Facts:       sess.Context,
		History:     sess.Messages,
	})
	if err != nil {
		log.Warn("response oracle failed", "error", err)
		return o.escalate(sess, "response generation unavailable", now)
	}

	sess.AppendMessage(core.NewMessage(core.RoleAgent, replyText))
	sess.AppendTrace(core.NewAgentResponseEvent("orchestrator", replyText))

	if decision.Resolve {
		sess.Status = core.StatusResolved
	}

	return &Reply{SessionID: sess.ID, Text: replyText, Status: sess.Status}
}

// runToolPlan executes the bound plan in order, recording every attempt on
// the session, and stops at the first failed call. A retry-exhausted call
// returns a non-empty escalation reason. A validation failure is a local
// fault: it ends the plan as a failed record the responder can speak to, but
// the session stays in automated handling.
func (o *Orchestrator) runToolPlan(ctx context.Context, sess *core.Session, plan []policy.BoundToolCall) ([]core.ToolCallRecord, string) {
	var results []core.ToolCallRecord
	for _, call := range plan {
		recs, res := o.gateway.Invoke(ctx, call.Tool, call.Params)
		for _, rec := range recs {
			sess.RecordToolCall(rec)
		}
		if len(recs) > 0 {
			results = append(results, recs[len(recs)-1])
		}
		if !res.Success {
			if res.ValidationFailed {
				return results, ""
			}
			return results, "tool " + call.Tool + " failed: " + res.Error
		}
	}
	return results, ""
}

func (o *Orchestrator) classify(ctx context.Context, text string, facts core.CaseContext) (*oracle.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.OracleTimeout)
	defer cancel()
	return o.classifier.Classify(ctx, text, facts)
}

func (o *Orchestrator) respond(ctx context.Context, req oracle.ResponseRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.OracleTimeout)
	defer cancel()
	return o.responder.Respond(ctx, req)
}

func (o *Orchestrator) workflowFor(intent string) string {
	if wf, ok := o.opts.IntentWorkflows[intent]; ok {
		return wf
	}
	return intent
}

func (o *Orchestrator) lockFor(sessionID string) *sync.Mutex {
	v, _ := o.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// evaluationFacts is the rule evaluator's view of the session: the case
// context plus synthetic facts for the most recent tool call and the state
// of any delivery promise, so rules can react to a previous turn's outcome.
// The synthetic facts are derived per evaluation and never stored.
func evaluationFacts(sess *core.Session, now time.Time) map[string]any {
	facts := sess.Context.Clone()
	if n := len(sess.ToolHistory); n > 0 {
		last := sess.ToolHistory[n-1]
		facts["last_tool"] = last.Tool
		facts["last_tool_success"] = last.Success
	}
	if deadline, ok := facts["promise_deadline"].(string); ok {
		facts["promise_expired"] = policy.PromiseExpired(deadline, now)
	}
	return facts
}

func applyContext(sess *core.Session, setContext map[string]any) {
	keys := make([]string, 0, len(setContext))
	for k := range setContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sess.SetFact(k, setContext[k])
	}
}
