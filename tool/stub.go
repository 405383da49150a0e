package tool

import (
	"context"
	"fmt"
	"sync"
)

// StubTransport is an in-memory Transport for tests and local development.
// Responses are canned per tool name; unlisted tools succeed with synthetic
// data. FailTool forces deterministic failures to exercise the retry path.
type StubTransport struct {
	mu        sync.Mutex
	responses map[string]Result
	failing   map[string]string
	calls     []string
}

// NewStubTransport constructs an empty stub.
func NewStubTransport() *StubTransport {
	return &StubTransport{
		responses: map[string]Result{},
		failing:   map[string]string{},
	}
}

// Respond registers a canned result for a tool.
func (s *StubTransport) Respond(toolName string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[toolName] = result
}

// FailTool makes every call to the tool fail with the given message.
func (s *StubTransport) FailTool(toolName, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[toolName] = message
}

// Calls returns the tool names dispatched so far, in order. Each retry
// counts as its own call.
func (s *StubTransport) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// RoundTrip implements Transport.
func (s *StubTransport) RoundTrip(ctx context.Context, def Definition, params map[string]any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, def.Name)

	if msg, ok := s.failing[def.Name]; ok {
		return Result{Success: false, Error: msg}, nil
	}
	if res, ok := s.responses[def.Name]; ok {
		return res, nil
	}
	return Result{Success: true, Data: map[string]any{
		"tool":   def.Name,
		"status": fmt.Sprintf("stubbed %s ok", def.Name),
	}}, nil
}
