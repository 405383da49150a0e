package tool

import (
	"context"
	"time"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/internal/util"
	"github.com/caseflow-io/caseflow/logging"
)

// GatewayOptions configure a Gateway.
type GatewayOptions struct {
	// Timeout bounds each individual transport attempt.
	Timeout time.Duration
	// Logger receives structured invocation logs. Defaults to NoOp.
	Logger logging.Logger
}

// Gateway is the single entry point for tool execution. It validates
// parameters against the catalog schema (validation failures never reach the
// transport), dispatches through the injected transport, normalizes the
// outcome and retries a failed call exactly once. Every attempt, including a
// validation failure, yields its own ToolCallRecord.
type Gateway struct {
	catalog   *Catalog
	transport Transport
	timeout   time.Duration
	logger    logging.Logger
}

// NewGateway constructs a Gateway over a catalog and transport.
func NewGateway(catalog *Catalog, transport Transport, optFns ...func(o *GatewayOptions)) *Gateway {
	opts := GatewayOptions{
		Timeout: 10 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{
		catalog:   catalog,
		transport: transport,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Invoke executes one tool call. The returned records list every attempt in
// order (one for a validation failure, one or two for transport attempts);
// the Result is the final outcome. A second consecutive transport failure is
// annotated RetryExhausted, which the orchestrator treats as an escalation
// trigger. Validation failures are never retried.
func (g *Gateway) Invoke(ctx context.Context, name string, params map[string]any) ([]core.ToolCallRecord, Result) {
	def, ok := g.catalog.Get(name)
	if !ok {
		res := Result{Success: false, Error: "unknown tool: " + name, ValidationFailed: true}
		g.logger.Warn("tool.invoke.unknown", "tool", name)
		return []core.ToolCallRecord{record(name, params, res, 0)}, res
	}

	if err := util.ValidateParams(params, def.Parameters); err != nil {
		res := Result{Success: false, Error: err.Error(), ValidationFailed: true}
		g.logger.Warn("tool.invoke.validation_failed", "tool", name, "error", err.Error())
		return []core.ToolCallRecord{record(name, params, res, 0)}, res
	}

	records := make([]core.ToolCallRecord, 0, 2)
	var res Result
	for attempt := 0; attempt <= 1; attempt++ {
		res = g.attempt(ctx, def, params)
		records = append(records, record(name, params, res, attempt))
		if res.Success {
			g.logger.Info("tool.invoke.success", "tool", name, "retry_count", attempt)
			return records, res
		}
		g.logger.Warn("tool.invoke.failed", "tool", name, "retry_count", attempt, "error", res.Error)
	}
	res.RetryExhausted = true
	g.logger.Error("tool.invoke.retry_exhausted", "tool", name, "error", res.Error)
	return records, res
}

// attempt performs one bounded transport call, folding transport errors and
// timeouts into a normalized failure result.
func (g *Gateway) attempt(ctx context.Context, def Definition, params map[string]any) Result {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.transport.RoundTrip(callCtx, def, params)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if !res.Success && res.Error == "" {
		res.Error = "tool reported failure without error message"
	}
	return res
}

func record(name string, params map[string]any, res Result, retryCount int) core.ToolCallRecord {
	return core.ToolCallRecord{
		Tool:       name,
		Params:     params,
		Result:     res.Data,
		Error:      res.Error,
		Success:    res.Success,
		RetryCount: retryCount,
		Timestamp:  time.Now().UTC(),
	}
}
