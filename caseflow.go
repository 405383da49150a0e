// Package caseflow provides a high-level façade over the orchestrator and
// its services (sessions, policy registry, tool gateway & logging) enabling
// quick construction of a support session engine. Most applications interact
// with this package by:
//  1. Creating a Caseflow via New() with their decision tables
//  2. Opening sessions for customers (OpenSession)
//  3. Sending customer messages (Send) and reading the replies
//
// The façade delegates turn processing to orchestrator.Orchestrator while
// keeping setup concise. All defaults are safe for local development and
// testing; production deployments supply a Redis session store, an HTTP tool
// transport, real oracles and a structured logger.
package caseflow

import (
	"context"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/logging"
	"github.com/caseflow-io/caseflow/oracle"
	"github.com/caseflow-io/caseflow/orchestrator"
	"github.com/caseflow-io/caseflow/policy"
	"github.com/caseflow-io/caseflow/session"
	"github.com/caseflow-io/caseflow/tool"
)

// Options configure the Caseflow instance.
type Options struct {
	// SessionStore holds conversation state. Defaults to in-memory.
	SessionStore core.SessionStore
	// Catalog declares the invocable tools. Defaults to the built-in
	// commerce catalog.
	Catalog *tool.Catalog
	// Transport performs tool calls. Defaults to the stub transport, which
	// answers every call with a synthetic success.
	Transport tool.Transport
	// Classifier and Responder are the two language oracles. Both default
	// to deterministic implementations.
	Classifier oracle.Classifier
	Responder  oracle.Responder
	Logger     logging.Logger
}

// Caseflow bundles the engine's services behind a small API.
type Caseflow struct {
	orch     *orchestrator.Orchestrator
	registry *policy.Registry
}

// New creates a Caseflow engine from a set of decision tables.
func New(tables []*policy.Table, optFns ...func(o *Options)) (*Caseflow, error) {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Catalog:      tool.DefaultCatalog(),
		Transport:    tool.NewStubTransport(),
		Classifier:   &oracle.StaticClassifier{},
		Responder:    &oracle.TemplateResponder{Templates: oracle.DefaultTemplates()},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := policy.NewRegistry(tables...)
	if err != nil {
		return nil, err
	}

	gateway := tool.NewGateway(opts.Catalog, opts.Transport, func(o *tool.GatewayOptions) {
		o.Logger = opts.Logger
	})
	orch := orchestrator.New(opts.SessionStore, registry, gateway, opts.Classifier, opts.Responder,
		func(o *orchestrator.Options) {
			o.Logger = opts.Logger
		})

	return &Caseflow{orch: orch, registry: registry}, nil
}

// OpenSession starts a new support session for a customer.
func (c *Caseflow) OpenSession(ctx context.Context, customer core.Customer) (*core.Session, error) {
	return c.orch.StartSession(ctx, customer)
}

// Send processes one customer message and returns the engine's reply.
func (c *Caseflow) Send(ctx context.Context, sessionID, text string) (*orchestrator.Reply, error) {
	return c.orch.Advance(ctx, sessionID, text)
}

// Session returns the committed state of a session, trace included.
func (c *Caseflow) Session(ctx context.Context, id string) (*core.Session, error) {
	return c.orch.Session(ctx, id)
}

// Registry exposes the policy registry for publishing new table versions or
// applying rule overrides at runtime.
func (c *Caseflow) Registry() *policy.Registry {
	return c.registry
}
