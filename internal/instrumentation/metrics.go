package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrAgent      = "agent"
	attrBackend    = "backend"
	attrProposedBy = "proposed_by"
	attrField      = "field"
	attrType       = "type"
	attrTool       = "tool"
	attrSender     = "sender_domain"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Agent metrics
	agentExecutionsTotal   metric.Int64Counter
	agentExecutionDuration metric.Float64Histogram
	emailsProcessedTotal   metric.Int64Counter

	// Mailbox (Gmail) metrics
	mailboxOperationsTotal   metric.Int64Counter
	mailboxOperationDuration metric.Float64Histogram

	// AI completion metrics
	aiCompletionsTotal   metric.Int64Counter
	aiCompletionDuration metric.Float64Histogram

	// Self-tuning metrics
	configChangesTotal       metric.Int64Counter
	feedbackRecordedTotal    metric.Int64Counter
	guardrailRejectionsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Agent Metrics
	m.agentExecutionsTotal, err = meter.Int64Counter(
		"agent_executions_total",
		metric.WithDescription("Total number of agent executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_executions_total counter: %w", err)
	}

	m.agentExecutionDuration, err = meter.Float64Histogram(
		"agent_execution_duration_seconds",
		metric.WithDescription("Agent execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_execution_duration_seconds histogram: %w", err)
	}

	m.emailsProcessedTotal, err = meter.Int64Counter(
		"agent_emails_processed_total",
		metric.WithDescription("Total number of emails processed by agents"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_emails_processed_total counter: %w", err)
	}

	// Mailbox Metrics
	m.mailboxOperationsTotal, err = meter.Int64Counter(
		"mailbox_operations_total",
		metric.WithDescription("Total number of mailbox operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_operations_total counter: %w", err)
	}

	m.mailboxOperationDuration, err = meter.Float64Histogram(
		"mailbox_operation_duration_seconds",
		metric.WithDescription("Mailbox operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_operation_duration_seconds histogram: %w", err)
	}

	// AI Completion Metrics
	m.aiCompletionsTotal, err = meter.Int64Counter(
		"ai_completions_total",
		metric.WithDescription("Total number of AI completion requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai_completions_total counter: %w", err)
	}

	m.aiCompletionDuration, err = meter.Float64Histogram(
		"ai_completion_duration_seconds",
		metric.WithDescription("AI completion request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai_completion_duration_seconds histogram: %w", err)
	}

	// Self-tuning Metrics
	m.configChangesTotal, err = meter.Int64Counter(
		"config_changes_total",
		metric.WithDescription("Total number of agent configuration changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create config_changes_total counter: %w", err)
	}

	m.feedbackRecordedTotal, err = meter.Int64Counter(
		"feedback_recorded_total",
		metric.WithDescription("Total number of user feedback entries recorded"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback_recorded_total counter: %w", err)
	}

	m.guardrailRejectionsTotal, err = meter.Int64Counter(
		"guardrail_rejections_total",
		metric.WithDescription("Total number of config changes rejected by the guardrails"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail_rejections_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAgentExecution records one agent run with its outcome, how many
// emails it touched, and how long it took.
//
// Parameters:
//   - agentID: Agent identifier (briefing, triage, cleanup, ...)
//   - status: Result status ("success" or "error")
//   - emailsProcessed: Number of emails the run touched
//   - duration: Time taken for the run
func (m *Metrics) RecordAgentExecution(ctx context.Context, agentID, status string, emailsProcessed int, duration time.Duration) {
	if m.agentExecutionsTotal == nil || m.agentExecutionDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAgent, agentID),
		attribute.String(attrStatus, status),
	}

	m.agentExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.agentExecutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrAgent, agentID),
	))
	if emailsProcessed > 0 && m.emailsProcessedTotal != nil {
		m.emailsProcessedTotal.Add(ctx, int64(emailsProcessed), metric.WithAttributes(
			attribute.String(attrAgent, agentID),
		))
	}
}

// RecordMailboxOperation records a Gmail operation with operation type,
// status, and duration.
//
// Parameters:
//   - operation: Operation type (list, get, archive, trash, mark_read, send)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordMailboxOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.mailboxOperationsTotal == nil || m.mailboxOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.mailboxOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.mailboxOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAICompletion records an AI completion request with its backend
// ("gemini" or "ollama"), status, and duration.
func (m *Metrics) RecordAICompletion(ctx context.Context, backend, status string, duration time.Duration) {
	if m.aiCompletionsTotal == nil || m.aiCompletionDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	}

	m.aiCompletionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.aiCompletionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordConfigChange records one applied agent configuration change.
// ProposedBy should be one of: "user", "director", "learning_manager".
func (m *Metrics) RecordConfigChange(ctx context.Context, agentID, proposedBy string) {
	if m.configChangesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAgent, agentID),
		attribute.String(attrProposedBy, proposedBy),
	}

	m.configChangesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFeedback records one user feedback entry.
// FeedbackType should be one of: "thumbs_up", "thumbs_down", "correction".
func (m *Metrics) RecordFeedback(ctx context.Context, agentID, feedbackType string) {
	if m.feedbackRecordedTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAgent, agentID),
		attribute.String(attrType, feedbackType),
	}

	m.feedbackRecordedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGuardrailRejection records one config change rejected by the
// guardrails, labeled by the offending field.
func (m *Metrics) RecordGuardrailRejection(ctx context.Context, agentID, field string) {
	if m.guardrailRejectionsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAgent, agentID),
		attribute.String(attrField, field),
	}

	m.guardrailRejectionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "agent_trigger", "inbox_briefing")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordVIPEmail records a VIP email sighting. The sender domain is only
// included when detailedLabels is enabled.
func (m *Metrics) RecordVIPEmail(ctx context.Context, senderEmail string) {
	if m.emailsProcessedTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAgent, "vip_monitor"),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && senderEmail != "" {
		attrs = append(attrs, attribute.String(attrSender, ExtractUserDomain(senderEmail)))
	}

	m.emailsProcessedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
