package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/guardrails"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/ledger"
	"github.com/teemow/inboxpilot/internal/logging"
	"github.com/teemow/inboxpilot/internal/mailbox"
	"github.com/teemow/inboxpilot/internal/vip"
)

// Feedback types accepted by the feedback endpoint.
var validFeedbackTypes = map[string]bool{
	"thumbs_up":   true,
	"thumbs_down": true,
	"correction":  true,
}

// API is the REST surface over the agent runtime. All state lives in the
// AppContext; the API itself is stateless.
type API struct {
	app     *AppContext
	log     *slog.Logger
	metrics *instrumentation.Metrics
}

// APIOption configures optional API collaborators.
type APIOption func(*API)

// WithAPIMetrics attaches HTTP and domain metrics recording.
func WithAPIMetrics(m *instrumentation.Metrics) APIOption {
	return func(a *API) { a.metrics = m }
}

// NewAPI builds the REST API over the given application context.
func NewAPI(app *AppContext, logger *slog.Logger, opts ...APIOption) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{app: app, log: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the routed and instrumented HTTP handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /api/agents", a.handleListAgents)
	mux.HandleFunc("GET /api/agents/logs", a.handleLogs)
	mux.HandleFunc("GET /api/agents/audit", a.handleAudit)
	mux.HandleFunc("GET /api/agents/scheduler", a.handleScheduler)
	mux.HandleFunc("GET /api/agents/{id}", a.handleAgentDetail)
	mux.HandleFunc("GET /api/agents/{id}/evolution", a.handleEvolution)
	mux.HandleFunc("POST /api/agents/{id}/trigger", a.handleTrigger)
	mux.HandleFunc("POST /api/agents/{id}/enable", a.handleEnable)
	mux.HandleFunc("POST /api/agents/{id}/schedule", a.handleSchedule)
	mux.HandleFunc("POST /api/agents/{id}/feedback", a.handleFeedback)
	mux.HandleFunc("POST /api/messages/draft-reply", a.handleDraftReply)
	mux.HandleFunc("POST /api/messages/send-reply", a.handleSendReply)

	return a.withRequestID(a.withLogging(mux))
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *API) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (a *API) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		a.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
			"request_id", w.Header().Get("X-Request-ID"))

		if a.metrics != nil {
			a.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, duration)
		}
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "inboxpilot",
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unread, err := a.app.Mailbox().UnreadCount(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("mailbox unavailable: %v", err))
		return
	}

	contacts, domains, err := a.app.VIPs().Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("load vips: %v", err))
		return
	}

	vipUnread := 0
	if query := mailbox.QueryFromAny(vip.Addresses(contacts), vip.DomainNames(domains)); query != "" {
		vipUnread, err = a.app.Mailbox().EstimateCount(ctx, query)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("mailbox unavailable: %v", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unread":       unread,
		"vip_unread":   vipUnread,
		"vip_contacts": len(contacts),
		"vip_domains":  len(domains),
	})
}

func (a *API) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents": a.app.Registry().Statuses(),
	})
}

func (a *API) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, ok := a.app.Registry().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}

	ctx := r.Context()
	executions, err := a.app.Ledger().Executions(ctx, id, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	audit, err := a.app.Ledger().AuditLog(ctx, id, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            unit.Status(),
		"config":            unit.Config().ToMap(),
		"recent_executions": executions,
		"audit_log":         audit,
	})
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, ok := a.app.Registry().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}
	if !unit.Enabled() {
		writeError(w, http.StatusConflict, fmt.Sprintf("agent %s is disabled", id))
		return
	}

	result, err := a.app.Scheduler().TriggerAgent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (a *API) handleEnable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, ok := a.app.Registry().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	before := unit.Config()
	enabled := !before.Enabled
	if body.Enabled != nil {
		enabled = *body.Enabled
	}

	cfg, err := unit.SaveConfig(func(c *agents.Config) { c.Enabled = enabled })
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.recordConfigChange(r, ledger.ConfigChangeInput{
		AgentID:       id,
		VersionBefore: before.Version,
		VersionAfter:  cfg.Version,
		FieldChanged:  "enabled",
		OldValue:      before.Enabled,
		NewValue:      enabled,
		Reason:        "user request",
		ProposedBy:    instrumentation.ProposedByUser,
		Approved:      true,
	})
	if err := a.app.Scheduler().Reschedule(id); err != nil {
		a.log.Warn("reschedule after enable change failed", "agent", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"enabled":  enabled,
	})
}

func (a *API) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, ok := a.app.Registry().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}

	var body struct {
		Schedule map[string]any `json:"schedule"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Schedule) == 0 {
		writeError(w, http.StatusBadRequest, "schedule is required")
		return
	}

	before := unit.Config()
	if ok, reason := guardrails.ValidateChange(id, "schedule", before.Schedule.ToMap(), body.Schedule); !ok {
		if a.metrics != nil {
			a.metrics.RecordGuardrailRejection(r.Context(), id, "schedule")
		}
		writeError(w, http.StatusUnprocessableEntity, reason)
		return
	}

	schedule := agents.ScheduleFromMap(body.Schedule)
	cfg, err := unit.SaveConfig(func(c *agents.Config) { c.Schedule = schedule })
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.recordConfigChange(r, ledger.ConfigChangeInput{
		AgentID:       id,
		VersionBefore: before.Version,
		VersionAfter:  cfg.Version,
		FieldChanged:  "schedule",
		OldValue:      before.Schedule.ToMap(),
		NewValue:      body.Schedule,
		Reason:        "user request",
		ProposedBy:    instrumentation.ProposedByUser,
		Approved:      true,
	})
	if err := a.app.Scheduler().Reschedule(id); err != nil {
		a.log.Warn("reschedule after schedule change failed", "agent", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"schedule": schedule.ToMap(),
	})
}

func (a *API) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := a.app.Registry().Get(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}

	var body struct {
		Type        string         `json:"type"`
		ExecutionID *int64         `json:"execution_id"`
		Data        map[string]any `json:"data"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validFeedbackTypes[body.Type] {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid feedback type: %q (want thumbs_up, thumbs_down, or correction)", body.Type))
		return
	}

	if err := a.app.Learning().RecordFeedback(r.Context(), id, body.ExecutionID, body.Type, body.Data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a.metrics != nil {
		a.metrics.RecordFeedback(r.Context(), id, body.Type)
	}

	writeJSON(w, http.StatusOK, map[string]any{"recorded": true})
}

func (a *API) handleDraftReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmailID string `json:"email_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.EmailID) == "" {
		writeError(w, http.StatusBadRequest, "email_id must be a non-empty string")
		return
	}

	email, err := a.app.Mailbox().Get(r.Context(), body.EmailID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	draft, err := a.app.AI().DraftReply(r.Context(), *email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"email_id":    body.EmailID,
		"from":        email.From,
		"subject":     email.Subject,
		"draft":       nil,
		"needs_reply": false,
	}
	if draft != "" {
		resp["draft"] = draft
		resp["needs_reply"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

const maxReplyBodyChars = 50000

func (a *API) handleSendReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmailID string `json:"email_id"`
		Body    string `json:"body"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.EmailID) == "" {
		writeError(w, http.StatusBadRequest, "email_id must be a non-empty string")
		return
	}
	if strings.TrimSpace(body.Body) == "" {
		writeError(w, http.StatusBadRequest, "body must be a non-empty string")
		return
	}
	if len(body.Body) > maxReplyBodyChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("body must be less than %d characters", maxReplyBodyChars))
		return
	}

	original, err := a.app.Mailbox().Get(r.Context(), body.EmailID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	to := mailbox.SenderAddress(original.From)

	reply := mailbox.Reply{
		To:       to,
		Subject:  original.Subject,
		Body:     body.Body,
		ThreadID: original.ThreadID,
	}
	if err := a.app.Mailbox().SendReply(r.Context(), reply); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := a.app.Mailbox().MarkRead(r.Context(), []string{body.EmailID}); err != nil {
		a.log.Warn("mark read after reply", logging.Err(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"sent": true, "to": to})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryLimit(r, 50)

	logs, err := a.app.Ledger().Executions(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []ledger.ExecutionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleEvolution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := a.app.Registry().Get(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent: %s", id))
		return
	}

	history, err := a.app.Learning().EvolutionHistory(r.Context(), id, queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evolution": history})
}

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryLimit(r, 50)

	audit, err := a.app.Learning().AuditLog(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if audit == nil {
		audit = []ledger.ConfigChangeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": audit})
}

func (a *API) handleScheduler(w http.ResponseWriter, r *http.Request) {
	sched := a.app.Scheduler()
	total, err := a.app.Ledger().ExecutionCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"running":          sched.Running(),
		"jobs":             sched.Jobs(),
		"execution_count":  sched.ExecutionCount(),
		"total_executions": total,
	})
}

// recordConfigChange writes the audit row and bumps the config-change
// counter. Audit failures are logged, not surfaced; the config write
// already succeeded.
func (a *API) recordConfigChange(r *http.Request, in ledger.ConfigChangeInput) {
	if err := a.app.Ledger().RecordConfigChange(r.Context(), in); err != nil {
		a.log.Warn("audit write failed", "agent", in.AgentID, "field", in.FieldChanged, "error", err)
	}
	if a.metrics != nil {
		a.metrics.RecordConfigChange(r.Context(), in.AgentID, in.ProposedBy)
	}
}

// decodeBody parses an optional JSON body. An empty body decodes to the zero
// value; malformed JSON is an error.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 200 {
		return 200
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
