// Package policy implements the deterministic side of the engine: versioned
// decision tables, a pure first-match rule evaluator and the registry that
// publishes immutable table snapshots. Rule predicates are small expression
// trees (all/any/not/comparison) evaluated against the accumulated case
// facts; no free-form expression source is ever interpreted at runtime.
package policy

import (
	"fmt"
	"strings"
)

// Action is the tag of the behavior a matched rule requests.
type Action string

const (
	ActionRespond       Action = "respond"
	ActionAskClarifying Action = "ask_clarifying"
	ActionCallTool      Action = "call_tool"
	ActionEscalate      Action = "escalate"
	ActionRoute         Action = "route_to_workflow"
)

// Operator is a comparison applied to a single case fact.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpIsNull    Operator = "is_null"
	OpIsNotNull Operator = "is_not_null"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpContains  Operator = "contains"
)

// Condition is a node in a predicate expression tree. Exactly one of All,
// Any, Not or Field should be set; an empty condition matches everything,
// which is how tables express a catch-all final rule.
type Condition struct {
	All   []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any   []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not   *Condition  `yaml:"not,omitempty" json:"not,omitempty"`
	Field string      `yaml:"field,omitempty" json:"field,omitempty"`
	Op    Operator    `yaml:"op,omitempty" json:"op,omitempty"`
	Value any         `yaml:"value,omitempty" json:"value,omitempty"`
}

// Match evaluates the condition against the given facts.
func (c Condition) Match(facts map[string]any) bool {
	switch {
	case len(c.All) > 0:
		for _, sub := range c.All {
			if !sub.Match(facts) {
				return false
			}
		}
		return true
	case len(c.Any) > 0:
		for _, sub := range c.Any {
			if sub.Match(facts) {
				return true
			}
		}
		return false
	case c.Not != nil:
		return !c.Not.Match(facts)
	case c.Field != "":
		return matchLeaf(c, facts[c.Field])
	default:
		return true
	}
}

func matchLeaf(c Condition, actual any) bool {
	switch c.Op {
	case OpIsNull:
		return isEmpty(actual)
	case OpIsNotNull:
		return !isEmpty(actual)
	case OpEquals:
		return looseEqual(actual, c.Value)
	case OpNotEquals:
		return !looseEqual(actual, c.Value)
	case OpIn:
		return inList(actual, c.Value)
	case OpNotIn:
		return !inList(actual, c.Value)
	case OpContains:
		if isEmpty(actual) {
			return false
		}
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(c.Value))
	default:
		return false
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// looseEqual compares fact values across the primitive types YAML and JSON
// decoding produce (string, bool, int vs float64).
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func inList(actual, list any) bool {
	items, ok := list.([]any)
	if !ok {
		if strs, sok := list.([]string); sok {
			for _, s := range strs {
				if looseEqual(actual, s) {
					return true
				}
			}
		}
		return false
	}
	for _, item := range items {
		if looseEqual(actual, item) {
			return true
		}
	}
	return false
}

// ToolStep declares one entry of a rule's tool plan. Param values starting
// with "context." are resolved from the case facts at evaluation time;
// anything else is passed through literally.
type ToolStep struct {
	Tool   string            `yaml:"tool" json:"tool"`
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Rule pairs a predicate with an action and its parameters. Rules are
// evaluated in declared order; the first match wins.
type Rule struct {
	ID                  string         `yaml:"id" json:"id"`
	When                Condition      `yaml:"when,omitempty" json:"when,omitempty"`
	Action              Action         `yaml:"action" json:"action"`
	ResponseTemplate    string         `yaml:"response_template,omitempty" json:"response_template,omitempty"`
	ClarifyingQuestions []string       `yaml:"clarifying_questions,omitempty" json:"clarifying_questions,omitempty"`
	ToolPlan            []ToolStep     `yaml:"tool_plan,omitempty" json:"tool_plan,omitempty"`
	EscalationReason    string         `yaml:"escalation_reason,omitempty" json:"escalation_reason,omitempty"`
	TargetWorkflow      string         `yaml:"target_workflow,omitempty" json:"target_workflow,omitempty"`
	SetContext          map[string]any `yaml:"set_context,omitempty" json:"set_context,omitempty"`
	// Promise names a commitment computed at match time ("delivery" fills
	// promise_type and promise_deadline from the contact day).
	Promise string `yaml:"promise,omitempty" json:"promise,omitempty"`
	// Resolve marks a respond rule as terminal: the session moves to resolved.
	Resolve bool `yaml:"resolve,omitempty" json:"resolve,omitempty"`
}

// Table is an immutable ordered rule set for one workflow. Tables are never
// mutated after load; policy changes publish a whole new snapshot.
type Table struct {
	Workflow          string   `yaml:"workflow" json:"workflow"`
	RequiredFields    []string `yaml:"required_fields,omitempty" json:"required_fields,omitempty"`
	OverridableFields []string `yaml:"overridable_fields,omitempty" json:"overridable_fields,omitempty"`
	Rules             []Rule   `yaml:"rules" json:"rules"`
}

// Overridable returns the table's overridable entity fields as a set.
func (t *Table) Overridable() map[string]bool {
	set := make(map[string]bool, len(t.OverridableFields))
	for _, f := range t.OverridableFields {
		set[f] = true
	}
	return set
}

// Validate checks structural invariants of a loaded table.
func (t *Table) Validate() error {
	if t.Workflow == "" {
		return fmt.Errorf("policy: table missing workflow name")
	}
	if len(t.Rules) == 0 {
		return fmt.Errorf("policy: table %s has no rules", t.Workflow)
	}
	seen := map[string]bool{}
	for i, r := range t.Rules {
		if r.ID == "" {
			return fmt.Errorf("policy: table %s rule %d missing id", t.Workflow, i)
		}
		if seen[r.ID] {
			return fmt.Errorf("policy: table %s duplicate rule id %s", t.Workflow, r.ID)
		}
		seen[r.ID] = true
		switch r.Action {
		case ActionRespond, ActionAskClarifying, ActionCallTool, ActionEscalate, ActionRoute:
		default:
			return fmt.Errorf("policy: table %s rule %s has unknown action %q", t.Workflow, r.ID, r.Action)
		}
		if r.Action == ActionRoute && r.TargetWorkflow == "" {
			return fmt.Errorf("policy: table %s rule %s routes without target_workflow", t.Workflow, r.ID)
		}
		if r.Action == ActionCallTool && len(r.ToolPlan) == 0 {
			return fmt.Errorf("policy: table %s rule %s calls tools without tool_plan", t.Workflow, r.ID)
		}
	}
	return nil
}
