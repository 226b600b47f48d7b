package learning

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/mailbox"
)

type fakeAI struct {
	proposal *ai.EvolutionProposal
	err      error
	calls    int
}

func (f *fakeAI) Generate(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}

func (f *fakeAI) Classify(ctx context.Context, emails []mailbox.Message, task string) ([]ai.Classification, error) {
	return nil, nil
}

func (f *fakeAI) Summarize(ctx context.Context, emails []mailbox.Message) (*ai.Briefing, error) {
	return nil, nil
}

func (f *fakeAI) DigestNarrative(ctx context.Context, stats map[string]any) (string, error) {
	return "", nil
}

func (f *fakeAI) DraftReply(ctx context.Context, email mailbox.Message) (string, error) {
	return "", nil
}

func (f *fakeAI) EvaluateConfigChange(ctx context.Context, agentID string, currentConfig, evalContext map[string]any) (*ai.EvolutionProposal, error) {
	f.calls++
	return f.proposal, f.err
}

type noopStrategy struct{ id string }

func (s *noopStrategy) ID() string          { return s.id }
func (s *noopStrategy) DisplayName() string { return s.id }
func (s *noopStrategy) Execute(ctx context.Context, cfg *agents.Config) (*agents.Result, error) {
	return agents.OK(nil), nil
}

func newFixture(t *testing.T, svc ai.Service) (*Manager, *agents.Registry, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfgStore, err := agents.NewConfigStore(filepath.Join(t.TempDir(), "agents"), nil)
	require.NoError(t, err)

	reg := agents.NewRegistry()
	unit := agents.NewUnit(&noopStrategy{id: "triage"}, cfgStore, agents.DefaultConfig("triage"), nil)
	require.NoError(t, reg.Register(unit))

	return NewManager(store, reg, svc, nil), reg, store
}

func addFeedback(t *testing.T, m *Manager, agentID string, n int, feedbackType string) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, m.RecordFeedback(context.Background(), agentID, nil, feedbackType, nil))
	}
}

func TestRecordExecutionWritesLedgerAndMetrics(t *testing.T) {
	m, _, store := newFixture(t, &fakeAI{})
	ctx := context.Background()

	result := agents.OK(map[string]any{"n": 1}).WithEmails(4)
	result.ExecutionTimeMS = 55
	id, err := m.RecordExecution(ctx, "triage", result, 2)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	execs, err := store.Executions(ctx, "triage", 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, 2, execs[0].ConfigVersion)

	metrics, err := store.Metrics(ctx, "triage", 7)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 1, metrics[0].TotalExecutions)
	assert.Equal(t, 4, metrics[0].EmailsProcessed)
}

func TestProposeEvolutionRequiresEnoughFeedback(t *testing.T) {
	svc := &fakeAI{proposal: &ai.EvolutionProposal{Approve: true, ModifiedChange: map[string]any{
		"thresholds": map[string]any{"max_emails": float64(80)},
	}}}
	m, _, _ := newFixture(t, svc)
	ctx := context.Background()

	addFeedback(t, m, "triage", MinFeedbackForEvolution-1, "thumbs_down")
	change, err := m.ProposeEvolution(ctx, "triage")
	require.NoError(t, err)
	assert.Nil(t, change)
	assert.Equal(t, 0, svc.calls)

	addFeedback(t, m, "triage", 1, "thumbs_down")
	change, err = m.ProposeEvolution(ctx, "triage")
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 1, svc.calls)
}

func TestProposeEvolutionConsumesFeedbackEvenWhenRejected(t *testing.T) {
	// The proposal violates the max_emails upper bound; the guardrails veto
	// it, but the feedback batch is still consumed.
	svc := &fakeAI{proposal: &ai.EvolutionProposal{Approve: true, ModifiedChange: map[string]any{
		"max_emails": float64(500),
	}}}
	m, _, store := newFixture(t, svc)
	ctx := context.Background()

	addFeedback(t, m, "triage", MinFeedbackForEvolution, "thumbs_down")
	change, err := m.ProposeEvolution(ctx, "triage")
	require.NoError(t, err)
	assert.Nil(t, change)

	fb, err := store.UnprocessedFeedback(ctx, "triage")
	require.NoError(t, err)
	assert.Empty(t, fb)

	// A second call has no unprocessed feedback left, so no new proposal.
	_, err = m.ProposeEvolution(ctx, "triage")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.calls)
}

func TestProposeEvolutionAllOrNothing(t *testing.T) {
	// One valid field plus one invalid field: the whole change is vetoed.
	svc := &fakeAI{proposal: &ai.EvolutionProposal{Approve: true, ModifiedChange: map[string]any{
		"system_prompt": "Focus on emails from clients first.",
		"batch_size":    float64(0),
	}}}
	m, _, _ := newFixture(t, svc)

	addFeedback(t, m, "triage", MinFeedbackForEvolution, "thumbs_down")
	change, err := m.ProposeEvolution(context.Background(), "triage")
	require.NoError(t, err)
	assert.Nil(t, change)
}

func TestProposeEvolutionAIFailureIsNotFatal(t *testing.T) {
	svc := &fakeAI{err: errors.New("model offline")}
	m, _, store := newFixture(t, svc)
	ctx := context.Background()

	addFeedback(t, m, "triage", MinFeedbackForEvolution, "thumbs_up")
	change, err := m.ProposeEvolution(ctx, "triage")
	require.NoError(t, err)
	assert.Nil(t, change)

	// Feedback is still consumed so we don't hammer a failing backend.
	fb, err := store.UnprocessedFeedback(ctx, "triage")
	require.NoError(t, err)
	assert.Empty(t, fb)
}

func TestProposeEvolutionUnknownAgent(t *testing.T) {
	m, _, _ := newFixture(t, &fakeAI{})
	addFeedback(t, m, "ghost", MinFeedbackForEvolution, "thumbs_up")
	_, err := m.ProposeEvolution(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestApplyEvolutionMergesAndAudits(t *testing.T) {
	m, reg, store := newFixture(t, &fakeAI{})
	ctx := context.Background()

	unit, _ := reg.Get("triage")
	versionBefore := unit.Config().Version

	change := map[string]any{
		"thresholds":    map[string]any{"max_emails": float64(80)},
		"system_prompt": "Prioritize client emails.",
	}
	require.NoError(t, m.ApplyEvolution(ctx, "triage", change, "five thumbs down"))

	cfg := unit.Config()
	assert.Equal(t, versionBefore+1, cfg.Version)
	assert.Equal(t, float64(80), cfg.Thresholds["max_emails"])
	assert.Equal(t, "Prioritize client emails.", cfg.SystemPrompt)

	log, err := store.AuditLog(ctx, "triage", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "learning_manager", log[0].ProposedBy)
	assert.Equal(t, versionBefore, log[0].VersionBefore)
	assert.Equal(t, versionBefore+1, log[0].VersionAfter)
	assert.True(t, log[0].Approved)
}

func TestEvolveIfReadyAppliesValidatedChange(t *testing.T) {
	svc := &fakeAI{proposal: &ai.EvolutionProposal{Approve: true, ModifiedChange: map[string]any{
		"thresholds": map[string]any{"max_emails": float64(80)},
	}}}
	m, reg, store := newFixture(t, svc)
	ctx := context.Background()

	// Below the threshold nothing happens.
	evolved, err := m.EvolveIfReady(ctx, "triage")
	require.NoError(t, err)
	assert.False(t, evolved)

	addFeedback(t, m, "triage", MinFeedbackForEvolution, "thumbs_down")
	evolved, err = m.EvolveIfReady(ctx, "triage")
	require.NoError(t, err)
	assert.True(t, evolved)

	unit, _ := reg.Get("triage")
	cfg := unit.Config()
	assert.Equal(t, 2, cfg.Version)
	assert.Equal(t, float64(80), cfg.Thresholds["max_emails"])

	log, err := store.AuditLog(ctx, "triage", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
}

func TestEvolutionHistoryFiltersAutomaticChanges(t *testing.T) {
	m, _, store := newFixture(t, &fakeAI{})
	ctx := context.Background()

	change := map[string]any{"thresholds": map[string]any{"max_emails": float64(80)}}
	require.NoError(t, m.ApplyEvolution(ctx, "triage", change, "feedback trend"))

	// A manual change lands in the audit log but not in the evolution history.
	require.NoError(t, store.RecordConfigChange(ctx, ledger.ConfigChangeInput{
		AgentID:       "triage",
		VersionBefore: 2,
		VersionAfter:  3,
		FieldChanged:  "enabled",
		ProposedBy:    "user",
		Approved:      true,
	}))

	history, err := m.EvolutionHistory(ctx, "triage", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "learning_manager", history[0].ProposedBy)

	full, err := m.AuditLog(ctx, "triage", 10)
	require.NoError(t, err)
	assert.Len(t, full, 2)
}

func TestApplyEvolutionMergeKeepsOtherThresholds(t *testing.T) {
	m, reg, _ := newFixture(t, &fakeAI{})
	unit, _ := reg.Get("triage")

	// Seed a second threshold, then evolve only one of them.
	_, err := unit.SaveConfig(func(c *agents.Config) {
		c.Thresholds["hours_back"] = 24
	})
	require.NoError(t, err)

	change := map[string]any{"thresholds": map[string]any{"max_emails": float64(60)}}
	require.NoError(t, m.ApplyEvolution(context.Background(), "triage", change, ""))

	cfg := unit.Config()
	assert.Equal(t, float64(60), cfg.Thresholds["max_emails"])
	assert.Equal(t, float64(24), cfg.Thresholds["hours_back"])
}
