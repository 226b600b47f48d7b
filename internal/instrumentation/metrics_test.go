package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context, detailedLabels bool) *Provider {
	t.Helper()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailedLabels,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/agents", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/agents/triage/trigger", 500, 50*time.Millisecond)
}

func TestMetrics_RecordAgentExecution(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordAgentExecution(ctx, "triage", StatusSuccess, 12, 2*time.Second)
	metrics.RecordAgentExecution(ctx, "cleanup", StatusError, 0, 500*time.Millisecond)
}

func TestMetrics_RecordMailboxOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordMailboxOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordMailboxOperation(ctx, OperationArchive, StatusError, 500*time.Millisecond)
	metrics.RecordMailboxOperation(ctx, OperationSend, StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordAICompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordAICompletion(ctx, BackendGemini, StatusSuccess, 3*time.Second)
	metrics.RecordAICompletion(ctx, BackendOllama, StatusError, 30*time.Second)
}

func TestMetrics_RecordConfigChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordConfigChange(ctx, "triage", ProposedByUser)
	metrics.RecordConfigChange(ctx, "cleanup", ProposedByDirector)
	metrics.RecordConfigChange(ctx, "briefing", ProposedByLearning)
}

func TestMetrics_RecordFeedback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordFeedback(ctx, "triage", "thumbs_up")
	metrics.RecordFeedback(ctx, "triage", "thumbs_down")
}

func TestMetrics_RecordGuardrailRejection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordGuardrailRejection(ctx, "triage", "max_emails")
	metrics.RecordGuardrailRejection(ctx, "cleanup", "system_prompt")
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx, false).Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "agent_trigger", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "inbox_briefing", StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordVIPEmail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test without detailed labels - sender domain should be ignored
	metrics := newTestProvider(t, ctx, false).Metrics()
	metrics.RecordVIPEmail(ctx, "boss@example.com")
}

func TestMetrics_RecordVIPEmail_DetailedLabels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test with detailed labels - sender domain should be included
	metrics := newTestProvider(t, ctx, true).Metrics()
	metrics.RecordVIPEmail(ctx, "boss@example.com")
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/api/agents", 200, 100*time.Millisecond)
	metrics.RecordAgentExecution(ctx, "triage", StatusSuccess, 5, time.Second)
	metrics.RecordMailboxOperation(ctx, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordAICompletion(ctx, BackendGemini, StatusSuccess, time.Second)
	metrics.RecordConfigChange(ctx, "triage", ProposedByUser)
	metrics.RecordFeedback(ctx, "triage", "thumbs_up")
	metrics.RecordGuardrailRejection(ctx, "triage", "max_emails")
	metrics.RecordToolInvocation(ctx, "agent_trigger", StatusSuccess, 100*time.Millisecond)
	metrics.RecordVIPEmail(ctx, "boss@example.com")
}
