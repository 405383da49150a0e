// Package core defines the shared data model of the caseflow engine: support
// sessions with their message history, accumulated case facts, the append-only
// trace, tool call records and the escalation payload handed to humans. All
// higher-level packages (policy, tool, orchestrator, server) depend on core;
// core depends on nothing above the standard library and uuid.
package core
