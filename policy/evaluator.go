package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxRouteHops bounds how many route_to_workflow redirections a single
// evaluation may follow before the engine declares a routing loop.
const MaxRouteHops = 3

var (
	// ErrNoApplicableRule is returned when no rule in the table matches the
	// facts. The orchestrator must treat this as an escalation trigger.
	ErrNoApplicableRule = errors.New("policy: no applicable rule")
	// ErrWorkflowNotFound is returned when an intent has no decision table.
	ErrWorkflowNotFound = errors.New("policy: workflow not found")
	// ErrRoutingLoop is returned when route_to_workflow redirections exceed
	// MaxRouteHops.
	ErrRoutingLoop = errors.New("policy: workflow routing loop")
)

// BoundToolCall is a tool plan entry with its parameters fully resolved
// against the case facts, ready for the tool gateway.
type BoundToolCall struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Decision is the evaluator's output: the matched rule's action tag plus its
// bound parameters.
type Decision struct {
	Workflow            string          `json:"workflow"`
	RuleID              string          `json:"rule_id"`
	Action              Action          `json:"action"`
	ResponseTemplate    string          `json:"response_template,omitempty"`
	ClarifyingQuestions []string        `json:"clarifying_questions,omitempty"`
	MissingFields       []string        `json:"missing_fields,omitempty"`
	ToolPlan            []BoundToolCall `json:"tool_plan,omitempty"`
	EscalationReason    string          `json:"escalation_reason,omitempty"`
	TargetWorkflow      string          `json:"target_workflow,omitempty"`
	SetContext          map[string]any  `json:"set_context,omitempty"`
	Resolve             bool            `json:"resolve,omitempty"`
}

// ToolNames lists the tools in the decision's plan, in order.
func (d *Decision) ToolNames() []string {
	names := make([]string, 0, len(d.ToolPlan))
	for _, tc := range d.ToolPlan {
		names = append(names, tc.Tool)
	}
	return names
}

// Evaluate scans the table's rules in declared order and returns the decision
// of the first rule whose predicate matches the facts. It is a pure function
// of its inputs: facts are never mutated and no I/O happens. now is the
// evaluation instant, passed in so date-dependent rules stay deterministic.
//
// A call_tool decision whose context-sourced parameters cannot all be
// resolved is downgraded to ask_clarifying naming exactly the unresolved
// fields; this takes precedence over the matched rule's own action.
func Evaluate(table *Table, facts map[string]any, now time.Time) (*Decision, error) {
	for i := range table.Rules {
		rule := &table.Rules[i]
		if !rule.When.Match(facts) {
			continue
		}
		return buildDecision(table, rule, facts, now)
	}
	return nil, fmt.Errorf("%w: workflow %s", ErrNoApplicableRule, table.Workflow)
}

func buildDecision(table *Table, rule *Rule, facts map[string]any, now time.Time) (*Decision, error) {
	d := &Decision{
		Workflow:            table.Workflow,
		RuleID:              rule.ID,
		Action:              rule.Action,
		ResponseTemplate:    rule.ResponseTemplate,
		ClarifyingQuestions: append([]string(nil), rule.ClarifyingQuestions...),
		EscalationReason:    rule.EscalationReason,
		TargetWorkflow:      rule.TargetWorkflow,
		Resolve:             rule.Resolve,
	}

	if len(rule.SetContext) > 0 || rule.Promise != "" {
		d.SetContext = make(map[string]any, len(rule.SetContext)+3)
		for k, v := range rule.SetContext {
			d.SetContext[k] = v
		}
	}

	if rule.Promise == "delivery" {
		contactDay, _ := facts["contact_day"].(string)
		promiseType, deadline := DeliveryPromise(contactDay, now)
		d.SetContext["promise_given"] = true
		d.SetContext["promise_type"] = string(promiseType)
		d.SetContext["promise_deadline"] = deadline
	}

	switch rule.Action {
	case ActionAskClarifying:
		d.MissingFields = missingRequired(table, facts)
	case ActionCallTool:
		plan, unresolved := bindToolPlan(rule.ToolPlan, facts)
		if len(unresolved) > 0 {
			d.Action = ActionAskClarifying
			d.MissingFields = unresolved
			d.ToolPlan = nil
			return d, nil
		}
		d.ToolPlan = plan
	}
	return d, nil
}

func missingRequired(table *Table, facts map[string]any) []string {
	missing := []string{}
	for _, field := range table.RequiredFields {
		if isEmpty(facts[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// bindToolPlan resolves "context.<field>" parameter sources against the
// facts. It returns the bound plan and the (deduplicated, ordered) list of
// context fields that could not be resolved.
func bindToolPlan(plan []ToolStep, facts map[string]any) ([]BoundToolCall, []string) {
	bound := make([]BoundToolCall, 0, len(plan))
	var unresolved []string
	seen := map[string]bool{}
	for _, step := range plan {
		call := BoundToolCall{Tool: step.Tool, Params: make(map[string]any, len(step.Params))}
		for name, source := range step.Params {
			if field, ok := strings.CutPrefix(source, "context."); ok {
				value := facts[field]
				if isEmpty(value) {
					if !seen[field] {
						seen[field] = true
						unresolved = append(unresolved, field)
					}
					continue
				}
				call.Params[name] = value
				continue
			}
			call.Params[name] = source
		}
		bound = append(bound, call)
	}
	sort.Strings(unresolved)
	return bound, unresolved
}
