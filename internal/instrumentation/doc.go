// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the inboxpilot agent runtime.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, agent executions, and mailbox operations
//   - Distributed tracing for agent runs and Gmail/AI calls
//   - Prometheus metrics export via /metrics endpoint
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Agent Metrics:
//   - agent_executions_total: Counter of agent runs by agent and status
//   - agent_execution_duration_seconds: Histogram of agent run durations
//   - agent_emails_processed_total: Counter of emails touched by agents
//
// Mailbox Metrics:
//   - mailbox_operations_total: Counter of Gmail operations by operation and status
//   - mailbox_operation_duration_seconds: Histogram of Gmail operation durations
//
// AI Metrics:
//   - ai_completions_total: Counter of completion requests by backend and status
//   - ai_completion_duration_seconds: Histogram of completion durations
//
// Self-tuning Metrics:
//   - config_changes_total: Counter of applied config changes by agent and proposer
//   - feedback_recorded_total: Counter of user feedback entries by agent and type
//   - guardrail_rejections_total: Counter of rejected config changes by agent and field
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - Agent executions (agent.<id>)
//   - MCP tool invocations (tool.<name>)
//   - Gmail operations (mailbox.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxpilot)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxpilot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/api/agents/triage/trigger", 200, time.Since(start))
//
//	// Record an agent execution
//	recorder.RecordAgentExecution(ctx, "triage", "success", 12, time.Since(start))
//
//	// Record a Gmail operation
//	recorder.RecordMailboxOperation(ctx, "archive", "success", time.Since(start))
package instrumentation
