package agent_tools

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/server"
)

// errTool marks spans for handlers that returned a tool-level error result
// rather than a Go error.
var errTool = errors.New("tool returned an error result")

// instrumented wraps a tool handler with metrics and audit logging. When
// neither is configured the handler runs bare.
func instrumented(
	toolName string,
	app *server.AppContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := app.Metrics()
		auditLogger := app.AuditLogger()
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		agentID, _ := request.GetArguments()["agent_id"].(string)

		// The span is opened before the invocation record so the audit log
		// picks up this trace's IDs.
		var attrs []attribute.KeyValue
		if agentID != "" {
			attrs = instrumentation.NewSpanAttributeBuilder().WithAgent(agentID).Build()
		}
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs...)
		defer span.End()

		invocation := instrumentation.NewInvocation(agentID).
			WithTool(toolName).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				invocation.CompleteWithError(err)
				instrumentation.SetSpanError(span, err)
			} else {
				invocation.Complete(false, nil)
				instrumentation.SetSpanError(span, errTool)
			}
		} else {
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		if metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}
		if auditLogger != nil {
			auditLogger.LogInvocation(invocation)
		}

		return result, err
	}
}
