package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Invocation captures all information about one agent run or MCP tool call
// for audit logging. This provides a trail for every action taken against
// the user's mailbox.
//
// # Privacy Considerations
//
// The SenderEmail field contains PII. When logging, consider:
//   - Using SenderDomain() to get only the domain for metrics/general logs
//   - Only logging full addresses in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type Invocation struct {
	// Tool name, when the invocation came through an MCP tool
	Tool string

	// Agent and operation info
	AgentID       string // Agent identifier (briefing, triage, cleanup, ...)
	Operation     string // Mailbox operation (list, archive, trash, mark_read, send)
	ConfigVersion int    // Config version the agent ran with

	// Sender involved in the action, if any (PII)
	SenderEmail string

	// Execution details
	StartTime       time.Time
	Duration        time.Duration
	EmailsProcessed int
	Success         bool
	Error           string

	// Tracing context
	TraceID string
	SpanID  string
}

// SenderDomain returns the domain portion of the sender's email for
// lower-cardinality logging.
func (in *Invocation) SenderDomain() string {
	return ExtractUserDomain(in.SenderEmail)
}

// Status returns "success" or "error" based on the Success field.
func (in *Invocation) Status() string {
	if in.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// This provides a consistent set of fields for all invocation logs.
//
// # Cardinality
//
// This function uses cardinality-controlled values (sender_domain)
// for metrics-compatible logging. For full audit logging, use LogAuditAttrs.
func (in *Invocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("agent", in.AgentID),
		slog.Duration("duration", in.Duration),
		slog.Bool("success", in.Success),
	}

	// Add optional fields only if present
	if in.Tool != "" {
		attrs = append(attrs, slog.String("tool", in.Tool))
	}
	if in.Operation != "" {
		attrs = append(attrs, slog.String("operation", in.Operation))
	}
	if in.SenderEmail != "" {
		attrs = append(attrs, slog.String("sender_domain", in.SenderDomain()))
	}
	if in.EmailsProcessed > 0 {
		attrs = append(attrs, slog.Int("emails_processed", in.EmailsProcessed))
	}
	if in.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", in.TraceID))
	}
	if in.Error != "" {
		attrs = append(attrs, slog.String("error", in.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes full email addresses for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII (full addresses). Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (in *Invocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("agent", in.AgentID),
		slog.Duration("duration", in.Duration),
		slog.Bool("success", in.Success),
	}

	// Add all optional fields
	if in.Tool != "" {
		attrs = append(attrs, slog.String("tool", in.Tool))
	}
	if in.Operation != "" {
		attrs = append(attrs, slog.String("operation", in.Operation))
	}
	if in.ConfigVersion > 0 {
		attrs = append(attrs, slog.Int("config_version", in.ConfigVersion))
	}
	if in.SenderEmail != "" {
		attrs = append(attrs, slog.String("sender", in.SenderEmail))
	}
	if in.EmailsProcessed > 0 {
		attrs = append(attrs, slog.Int("emails_processed", in.EmailsProcessed))
	}
	if in.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", in.TraceID))
	}
	if in.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", in.SpanID))
	}
	if in.Error != "" {
		attrs = append(attrs, slog.String("error", in.Error))
	}

	return attrs
}

// NewInvocation creates a new Invocation with timing started.
// Call Complete() when the operation finishes.
func NewInvocation(agentID string) *Invocation {
	return &Invocation{
		AgentID:   agentID,
		StartTime: time.Now(),
	}
}

// WithTool marks the invocation as coming from an MCP tool.
func (in *Invocation) WithTool(tool string) *Invocation {
	in.Tool = tool
	return in
}

// WithOperation sets the mailbox operation.
func (in *Invocation) WithOperation(operation string) *Invocation {
	in.Operation = operation
	return in
}

// WithSender sets the sender address involved in the action.
func (in *Invocation) WithSender(email string) *Invocation {
	in.SenderEmail = email
	return in
}

// WithConfigVersion sets the config version the agent ran with.
func (in *Invocation) WithConfigVersion(version int) *Invocation {
	in.ConfigVersion = version
	return in
}

// WithSpanContext extracts trace context from the current span.
func (in *Invocation) WithSpanContext(ctx context.Context) *Invocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		in.TraceID = span.SpanContext().TraceID().String()
		in.SpanID = span.SpanContext().SpanID().String()
	}
	return in
}

// Complete marks the invocation as completed and calculates duration.
// Returns the same Invocation for method chaining.
func (in *Invocation) Complete(success bool, err error) *Invocation {
	in.Duration = time.Since(in.StartTime)
	in.Success = success
	if err != nil {
		in.Error = err.Error()
	}
	return in
}

// CompleteWithError marks the invocation as failed with the given error.
func (in *Invocation) CompleteWithError(err error) *Invocation {
	return in.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (in *Invocation) CompleteSuccess() *Invocation {
	return in.Complete(true, nil)
}

// AuditLogger provides structured audit logging for agent and tool
// invocations. It wraps slog.Logger with convenience methods.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full email addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogInvocation logs an invocation using the standard log attributes.
// This is suitable for general operational logging with cardinality controls.
// If the logger is configured with IncludePII, full addresses are logged;
// otherwise, only domain-based anonymized identifiers are used.
func (al *AuditLogger) LogInvocation(in *Invocation) {
	if !al.enabled {
		return
	}

	// Choose between PII and anonymized logging based on configuration
	var attrs []slog.Attr
	if al.includePII {
		attrs = in.LogAuditAttrs()
	} else {
		attrs = in.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if in.Success {
		al.logger.Info("agent_action", args...)
	} else {
		al.logger.Warn("agent_action_failed", args...)
	}
}

// LogAudit logs an invocation with full audit details.
// This includes PII (full addresses) for compliance/audit purposes.
// SECURITY: Ensure audit logs are routed to secure storage with appropriate access controls.
//
// Note: This method respects the enabled flag but always includes PII when
// called, regardless of the IncludePII configuration. Use LogInvocation for
// configuration-aware logging.
func (al *AuditLogger) LogAudit(in *Invocation) {
	if !al.enabled {
		return
	}

	attrs := in.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("agent_audit", args...)
}
