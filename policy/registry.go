package policy

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is an immutable, versioned set of decision tables. Sessions
// evaluate against one snapshot for a whole turn; publishing a new version
// never changes a snapshot already handed out.
type Snapshot struct {
	Version int
	tables  map[string]*Table
}

// Table returns the decision table for a workflow name.
func (s *Snapshot) Table(workflow string) (*Table, bool) {
	t, ok := s.tables[workflow]
	return t, ok
}

// Workflows lists the workflow names in the snapshot.
func (s *Snapshot) Workflows() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}

// Decide evaluates the named workflow's table against the facts, following
// route_to_workflow redirections with the same facts up to MaxRouteHops.
// Exceeding the bound fails with ErrRoutingLoop; a missing table fails with
// ErrWorkflowNotFound. Both force escalation in the orchestrator.
func (s *Snapshot) Decide(workflow string, facts map[string]any, now time.Time) (*Decision, error) {
	current := workflow
	for hop := 0; hop <= MaxRouteHops; hop++ {
		table, ok := s.tables[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, current)
		}
		decision, err := Evaluate(table, facts, now)
		if err != nil {
			return nil, err
		}
		if decision.Action != ActionRoute {
			return decision, nil
		}
		current = decision.TargetWorkflow
	}
	return nil, fmt.Errorf("%w: exceeded %d redirections from %s", ErrRoutingLoop, MaxRouteHops, workflow)
}

// Registry holds the currently published snapshot and hands out new versions
// atomically. Readers never observe a half-updated rule set: Current returns
// the snapshot pointer under a read lock and snapshots are never mutated.
type Registry struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewRegistry creates a registry whose first snapshot holds the given tables.
func NewRegistry(tables ...*Table) (*Registry, error) {
	r := &Registry{}
	if _, err := r.Publish(tables); err != nil {
		return nil, err
	}
	return r, nil
}

// Current returns the latest published snapshot.
func (r *Registry) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Publish validates the tables and atomically installs them as a new
// immutable snapshot with an incremented version.
func (r *Registry) Publish(tables []*Table) (*Snapshot, error) {
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[t.Workflow]; dup {
			return nil, fmt.Errorf("policy: duplicate table for workflow %s", t.Workflow)
		}
		byName[t.Workflow] = t
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	version := 1
	if r.current != nil {
		version = r.current.Version + 1
	}
	r.current = &Snapshot{Version: version, tables: byName}
	return r.current, nil
}

// Override redirects a single rule's behavior. Applying an override never
// touches the live snapshot; it constructs modified copies of the tables and
// publishes them as a new version.
type Override struct {
	ID               string         `json:"id" yaml:"id"`
	Workflow         string         `json:"workflow" yaml:"workflow"`
	RuleID           string         `json:"rule_id" yaml:"rule_id"`
	Action           Action         `json:"action" yaml:"action"`
	EscalationReason string         `json:"escalation_reason,omitempty" yaml:"escalation_reason,omitempty"`
	ResponseTemplate string         `json:"response_template,omitempty" yaml:"response_template,omitempty"`
	SetContext       map[string]any `json:"set_context,omitempty" yaml:"set_context,omitempty"`
}

// ApplyOverride publishes a new snapshot in which the targeted rule carries
// the override's action and parameters. All untouched tables and rules are
// carried over structurally unchanged.
func (r *Registry) ApplyOverride(o Override) (*Snapshot, error) {
	current := r.Current()
	if current == nil {
		return nil, fmt.Errorf("policy: no snapshot published")
	}
	target, ok := current.tables[o.Workflow]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, o.Workflow)
	}

	rewritten := *target
	rewritten.Rules = append([]Rule(nil), target.Rules...)
	found := false
	for i := range rewritten.Rules {
		if rewritten.Rules[i].ID != o.RuleID {
			continue
		}
		found = true
		rule := &rewritten.Rules[i]
		rule.Action = o.Action
		if o.EscalationReason != "" {
			rule.EscalationReason = o.EscalationReason
		}
		if o.ResponseTemplate != "" {
			rule.ResponseTemplate = o.ResponseTemplate
		}
		if len(o.SetContext) > 0 {
			merged := make(map[string]any, len(rule.SetContext)+len(o.SetContext))
			for k, v := range rule.SetContext {
				merged[k] = v
			}
			for k, v := range o.SetContext {
				merged[k] = v
			}
			rule.SetContext = merged
		}
	}
	if !found {
		return nil, fmt.Errorf("policy: rule %s not found in workflow %s", o.RuleID, o.Workflow)
	}

	tables := make([]*Table, 0, len(current.tables))
	for name, t := range current.tables {
		if name == o.Workflow {
			tables = append(tables, &rewritten)
			continue
		}
		tables = append(tables, t)
	}
	return r.Publish(tables)
}
