package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/ai"
	"github.com/teemow/inboxpilot/internal/learning"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/scheduler"
	"github.com/teemow/inboxpilot/internal/vip"
)

type nullAI struct{}

func (nullAI) Generate(ctx context.Context, prompt, system string) (string, error) { return "", nil }
func (nullAI) Classify(ctx context.Context, emails []mailbox.Message, task string) ([]ai.Classification, error) {
	return nil, nil
}
func (nullAI) Summarize(ctx context.Context, emails []mailbox.Message) (*ai.Briefing, error) {
	return &ai.Briefing{}, nil
}
func (nullAI) DigestNarrative(ctx context.Context, stats map[string]any) (string, error) {
	return "", nil
}
func (nullAI) DraftReply(ctx context.Context, email mailbox.Message) (string, error) {
	return "", nil
}
func (nullAI) EvaluateConfigChange(ctx context.Context, agentID string, currentConfig, evalContext map[string]any) (*ai.EvolutionProposal, error) {
	return &ai.EvolutionProposal{}, nil
}

// replyAI drafts a fixed reply where nullAI drafts nothing.
type replyAI struct{ nullAI }

func (replyAI) DraftReply(ctx context.Context, email mailbox.Message) (string, error) {
	return "Thanks, will take a look.", nil
}

// fakeMailbox serves canned data so handlers can be exercised without Gmail.
type fakeMailbox struct {
	unread            int
	estimate          int
	lastEstimateQuery string
	messages          []mailbox.Message
	sent              []mailbox.Reply
	marked            []string
}

func (f *fakeMailbox) List(ctx context.Context, opts mailbox.ListOptions) ([]mailbox.Message, error) {
	return f.messages, nil
}
func (f *fakeMailbox) Get(ctx context.Context, id string) (*mailbox.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			return &m, nil
		}
	}
	return &mailbox.Message{ID: id}, nil
}
func (f *fakeMailbox) UnreadCount(ctx context.Context) (int, error) { return f.unread, nil }
func (f *fakeMailbox) EstimateCount(ctx context.Context, query string) (int, error) {
	f.lastEstimateQuery = query
	return f.estimate, nil
}
func (f *fakeMailbox) Archive(ctx context.Context, ids []string) error { return nil }
func (f *fakeMailbox) Trash(ctx context.Context, ids []string) error   { return nil }
func (f *fakeMailbox) MarkRead(ctx context.Context, ids []string) error {
	f.marked = append(f.marked, ids...)
	return nil
}
func (f *fakeMailbox) SendReply(ctx context.Context, r mailbox.Reply) error {
	f.sent = append(f.sent, r)
	return nil
}

type okStrategy struct{ id string }

func (s okStrategy) ID() string          { return s.id }
func (s okStrategy) DisplayName() string { return s.id }
func (s okStrategy) Execute(ctx context.Context, cfg *agents.Config) (*agents.Result, error) {
	return agents.OK(map[string]any{"ran": true}), nil
}

type apiFixture struct {
	srv    *httptest.Server
	app    *AppContext
	store  *ledger.Store
	vips   *vip.Store
	mail   *fakeMailbox
	triage *agents.Unit
}

func newAPIFixture(t *testing.T) *apiFixture {
	return newAPIFixtureWithAI(t, nullAI{})
}

func newAPIFixtureWithAI(t *testing.T, svc ai.Service) *apiFixture {
	t.Helper()

	store, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfgStore, err := agents.NewConfigStore(filepath.Join(t.TempDir(), "agents"), nil)
	require.NoError(t, err)

	registry := agents.NewRegistry()
	require.NoError(t, registry.Register(
		agents.NewUnit(okStrategy{id: "triage"}, cfgStore, agents.DefaultConfig("triage"), nil)))
	require.NoError(t, registry.Register(
		agents.NewUnit(okStrategy{id: "director"}, cfgStore, agents.DefaultConfig("director"), nil)))

	manager := learning.NewManager(store, registry, svc, nil)
	sched := scheduler.New(registry, manager, nil)
	vips := vip.NewStore(filepath.Join(t.TempDir(), "vips.json"))
	mail := &fakeMailbox{unread: 7, estimate: 2, messages: []mailbox.Message{
		{ID: "m1", ThreadID: "t1", Subject: "Q3 numbers", From: "Boss <boss@example.com>"},
		{ID: "m2"},
	}}

	app := NewAppContext(context.Background(), AppContextConfig{
		Registry:  registry,
		Scheduler: sched,
		Learning:  manager,
		Ledger:    store,
		VIPs:      vips,
		Mailbox:   mail,
		AI:        svc,
	})

	srv := httptest.NewServer(NewAPI(app, nil).Handler())
	t.Cleanup(srv.Close)

	triage, ok := registry.Get("triage")
	require.True(t, ok)
	return &apiFixture{srv: srv, app: app, store: store, vips: vips, mail: mail, triage: triage}
}

func (f *apiFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func (f *apiFixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.get(t, "/api/health")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "inboxpilot", body["service"])
}

func TestStatsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.vips.AddContact("boss@example.com", "Boss"))
	require.NoError(t, f.vips.AddDomain("bigcorp.com", "BigCorp"))

	resp, body := f.get(t, "/api/stats")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), body["unread"])
	assert.Equal(t, float64(2), body["vip_unread"])
	assert.Equal(t, float64(1), body["vip_contacts"])
	assert.Equal(t, float64(1), body["vip_domains"])

	// The VIP count comes from a result size estimate, not a message fetch.
	assert.Contains(t, f.mail.lastEstimateQuery, "boss@example.com")
	assert.Contains(t, f.mail.lastEstimateQuery, "bigcorp.com")
}

func TestStatsNoVIPsSkipsMailboxQuery(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.get(t, "/api/stats")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["vip_unread"])
	assert.Empty(t, f.mail.lastEstimateQuery)
}

func TestListAgents(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.get(t, "/api/agents")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, ok := body["agents"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	ids := make([]string, 0, len(list))
	for _, entry := range list {
		status := entry.(map[string]any)
		ids = append(ids, status["agent_id"].(string))
	}
	assert.Contains(t, ids, "triage")
	assert.Contains(t, ids, "director")
}

func TestAgentDetail(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.get(t, "/api/agents/triage")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg, ok := body["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "triage", cfg["agent_id"])
	assert.Contains(t, body, "status")
	assert.Contains(t, body, "recent_executions")
	assert.Contains(t, body, "audit_log")
}

func TestAgentDetailUnknown(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.get(t, "/api/agents/nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown agent")
}

func TestTriggerAgent(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.post(t, "/api/agents/triage/trigger", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["success"])

	execs, err := f.store.Executions(context.Background(), "triage", 10)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestTriggerUnknownAgent(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.post(t, "/api/agents/nope/trigger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerDisabledAgent(t *testing.T) {
	f := newAPIFixture(t)
	_, err := f.triage.SaveConfig(func(c *agents.Config) { c.Enabled = false })
	require.NoError(t, err)

	resp, body := f.post(t, "/api/agents/triage/trigger", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "disabled")

	execs, err := f.store.Executions(context.Background(), "triage", 10)
	require.NoError(t, err)
	assert.Empty(t, execs)
}

func TestEvolutionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	// One automatic change and one manual change; only the automatic one is
	// evolution history.
	require.NoError(t, f.app.Learning().ApplyEvolution(ctx, "triage",
		map[string]any{"thresholds": map[string]any{"max_emails": float64(80)}}, "feedback trend"))
	require.NoError(t, f.store.RecordConfigChange(ctx, ledger.ConfigChangeInput{
		AgentID: "triage", FieldChanged: "enabled", ProposedBy: "user", Approved: true,
	}))

	resp, body := f.get(t, "/api/agents/triage/evolution")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	history, ok := body["evolution"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, "learning_manager", entry["proposed_by"])

	resp, _ = f.get(t, "/api/agents/nope/evolution")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnableTogglesWithoutBody(t *testing.T) {
	f := newAPIFixture(t)
	require.True(t, f.triage.Config().Enabled)

	resp, body := f.post(t, "/api/agents/triage/enable", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["enabled"])
	assert.False(t, f.triage.Config().Enabled)

	audit, err := f.store.AuditLog(context.Background(), "triage", 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "enabled", audit[0].FieldChanged)
	assert.Equal(t, "user", audit[0].ProposedBy)
	assert.True(t, audit[0].Approved)
}

func TestEnableExplicit(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/agents/triage/enable", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["enabled"])

	resp, body = f.post(t, "/api/agents/triage/enable", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["enabled"])
	assert.True(t, f.triage.Config().Enabled)
}

func TestScheduleUpdate(t *testing.T) {
	f := newAPIFixture(t)
	before := f.triage.Config().Version

	resp, body := f.post(t, "/api/agents/triage/schedule", map[string]any{
		"schedule": map[string]any{"type": "interval", "minutes": 45},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	sched, ok := body["schedule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(45), sched["minutes"])

	cfg := f.triage.Config()
	assert.Equal(t, 45, cfg.Schedule.Minutes)
	assert.Equal(t, before+1, cfg.Version)

	audit, err := f.store.AuditLog(context.Background(), "triage", 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "schedule", audit[0].FieldChanged)
}

func TestScheduleRejectedByGuardrails(t *testing.T) {
	f := newAPIFixture(t)
	before := f.triage.Config().Version

	resp, body := f.post(t, "/api/agents/triage/schedule", map[string]any{
		"schedule": map[string]any{"type": "interval", "minutes": 2},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "interval must be >= 5 minutes", body["error"])
	assert.Equal(t, before, f.triage.Config().Version)
}

func TestScheduleDirectorIsImmutable(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/agents/director/schedule", map[string]any{
		"schedule": map[string]any{"type": "interval", "minutes": 30},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "immutable")
}

func TestScheduleMissingBody(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.post(t, "/api/agents/triage/schedule", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "schedule is required", body["error"])
}

func TestFeedback(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.post(t, "/api/agents/triage/feedback", map[string]any{
		"type": "thumbs_down",
		"data": map[string]any{"note": "archived something important"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["recorded"])

	pending, err := f.store.UnprocessedFeedback(context.Background(), "triage")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "thumbs_down", pending[0].FeedbackType)
}

func TestFeedbackInvalidType(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.post(t, "/api/agents/triage/feedback", map[string]any{"type": "meh"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid feedback type")
}

func TestLogsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		resp, _ := f.post(t, "/api/agents/triage/trigger", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := f.get(t, "/api/agents/logs?agent_id=triage&limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs, ok := body["logs"].([]any)
	require.True(t, ok)
	assert.Len(t, logs, 2)

	resp, body = f.get(t, "/api/agents/logs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs, ok = body["logs"].([]any)
	require.True(t, ok)
	assert.Len(t, logs, 3)
}

func TestAuditEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.post(t, "/api/agents/triage/enable", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.get(t, "/api/agents/audit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audit, ok := body["audit"].([]any)
	require.True(t, ok)
	require.Len(t, audit, 1)
	entry := audit[0].(map[string]any)
	assert.Equal(t, "triage", entry["agent_id"])
}

func TestSchedulerEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.post(t, "/api/agents/triage/trigger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.get(t, "/api/agents/scheduler")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["running"])
	assert.Equal(t, float64(1), body["execution_count"])
	assert.Equal(t, float64(1), body["total_executions"])
}

func TestRequestIDHeader(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := http.Get(f.srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))
}

func TestAppContextShutdownIsIdempotent(t *testing.T) {
	f := newAPIFixture(t)

	require.NoError(t, f.app.Shutdown())
	assert.True(t, f.app.IsShutdown())
	require.NoError(t, f.app.Shutdown())
}

func TestDraftReply(t *testing.T) {
	f := newAPIFixtureWithAI(t, replyAI{})

	resp, body := f.post(t, "/api/messages/draft-reply", map[string]any{"email_id": "m1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "m1", body["email_id"])
	assert.Equal(t, "Boss <boss@example.com>", body["from"])
	assert.Equal(t, "Thanks, will take a look.", body["draft"])
	assert.Equal(t, true, body["needs_reply"])
}

func TestDraftReplyNotNeeded(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/messages/draft-reply", map[string]any{"email_id": "m1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["draft"])
	assert.Equal(t, false, body["needs_reply"])
}

func TestDraftReplyMissingID(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/messages/draft-reply", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "email_id")
}

func TestSendReply(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/messages/send-reply", map[string]any{
		"email_id": "m1",
		"body":     "On it.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["sent"])
	assert.Equal(t, "boss@example.com", body["to"])

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "boss@example.com", f.mail.sent[0].To)
	assert.Equal(t, "Q3 numbers", f.mail.sent[0].Subject)
	assert.Equal(t, "t1", f.mail.sent[0].ThreadID)
	assert.Equal(t, []string{"m1"}, f.mail.marked)
}

func TestSendReplyMissingBody(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/messages/send-reply", map[string]any{"email_id": "m1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "body")
	assert.Empty(t, f.mail.sent)
}
