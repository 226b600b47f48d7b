package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for all inboxpilot spans.
const TracerName = "github.com/teemow/inboxpilot"

// Span attribute keys.
const (
	// SpanAttrAgent is the agent identifier attribute.
	SpanAttrAgent = "agent.id"

	// SpanAttrTool is the MCP tool name attribute.
	SpanAttrTool = "mcp.tool"

	// SpanAttrConfigVersion is the agent config version attribute.
	SpanAttrConfigVersion = "agent.config_version"

	// SpanAttrEmailCount is the number of emails an operation touched.
	SpanAttrEmailCount = "mailbox.email_count"
)

// SpanAttributeBuilder constructs span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 4),
	}
}

// WithAgent adds the agent identifier attribute.
func (b *SpanAttributeBuilder) WithAgent(agentID string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrAgent, agentID))
	return b
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithConfigVersion adds the agent config version attribute.
func (b *SpanAttributeBuilder) WithConfigVersion(version int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrConfigVersion, version))
	return b
}

// WithEmailCount adds the email count attribute.
func (b *SpanAttributeBuilder) WithEmailCount(count int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrEmailCount, count))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartAgentSpan starts a span covering one agent execution. The agent ID is
// always attached. The caller must end the span.
func StartAgentSpan(ctx context.Context, agentID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrAgent, agentID))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "agent."+agentID,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartToolSpan starts a span covering one MCP tool invocation. The tool
// name is always attached. The caller must end the span.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// SetSpanError records an error on the span and sets the status to error.
// A nil error is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
