// Package ledger is the durable record of everything the agents do: every
// execution, every config change, every piece of user feedback, and the
// per-day aggregated metrics. SQLite-backed, single writer at a time.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ExecutionRecord is one row of the executions table.
type ExecutionRecord struct {
	ID              int64          `json:"id"`
	AgentID         string         `json:"agent_id"`
	Timestamp       time.Time      `json:"timestamp"`
	ConfigVersion   int            `json:"config_version"`
	Success         bool           `json:"success"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	EmailsProcessed int            `json:"emails_processed"`
	ActionsTaken    []string       `json:"actions_taken"`
	ResultData      map[string]any `json:"result_data"`
	Error           string         `json:"error,omitempty"`
}

// ExecutionInput is the writable part of an execution record.
type ExecutionInput struct {
	AgentID         string
	ConfigVersion   int
	Success         bool
	ExecutionTimeMS int64
	EmailsProcessed int
	ActionsTaken    []string
	ResultData      map[string]any
	Error           string
}

// ConfigChangeRecord is one row of the audit trail.
type ConfigChangeRecord struct {
	ID            int64     `json:"id"`
	AgentID       string    `json:"agent_id"`
	Timestamp     time.Time `json:"timestamp"`
	VersionBefore int       `json:"version_before"`
	VersionAfter  int       `json:"version_after"`
	FieldChanged  string    `json:"field_changed"`
	OldValue      string    `json:"old_value"`
	NewValue      string    `json:"new_value"`
	Reason        string    `json:"reason"`
	ProposedBy    string    `json:"proposed_by"`
	Approved      bool      `json:"approved"`
	Reasoning     string    `json:"reasoning"`
}

// ConfigChangeInput is the writable part of a config change record. OldValue
// and NewValue are JSON-encoded before storage.
type ConfigChangeInput struct {
	AgentID       string
	VersionBefore int
	VersionAfter  int
	FieldChanged  string
	OldValue      any
	NewValue      any
	Reason        string
	ProposedBy    string
	Approved      bool
	Reasoning     string
}

// FeedbackRecord is one row of the feedback table.
type FeedbackRecord struct {
	ID           int64          `json:"id"`
	AgentID      string         `json:"agent_id"`
	ExecutionID  *int64         `json:"execution_id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	FeedbackType string         `json:"feedback_type"`
	FeedbackData map[string]any `json:"feedback_data"`
	Processed    bool           `json:"processed"`
}

// DailyMetric is one agent-day aggregate.
type DailyMetric struct {
	AgentID          string  `json:"agent_id"`
	Date             string  `json:"date"`
	TotalExecutions  int     `json:"total_executions"`
	Successful       int     `json:"successful"`
	Failed           int     `json:"failed"`
	AvgTimeMS        float64 `json:"avg_time_ms"`
	EmailsProcessed  int     `json:"emails_processed"`
	PositiveFeedback int     `json:"positive_feedback"`
	NegativeFeedback int     `json:"negative_feedback"`
}

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	config_version INTEGER DEFAULT 1,
	success INTEGER NOT NULL,
	execution_time_ms INTEGER DEFAULT 0,
	emails_processed INTEGER DEFAULT 0,
	actions_taken TEXT DEFAULT '[]',
	result_data TEXT DEFAULT '{}',
	error TEXT
);

CREATE TABLE IF NOT EXISTS config_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	version_before INTEGER,
	version_after INTEGER,
	field_changed TEXT,
	old_value TEXT,
	new_value TEXT,
	reason TEXT,
	proposed_by TEXT DEFAULT 'user',
	approved INTEGER DEFAULT 1,
	reasoning TEXT
);

CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	execution_id INTEGER,
	timestamp TEXT NOT NULL,
	feedback_type TEXT NOT NULL,
	feedback_data TEXT DEFAULT '{}',
	processed INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	date TEXT NOT NULL,
	total_executions INTEGER DEFAULT 0,
	successful INTEGER DEFAULT 0,
	failed INTEGER DEFAULT 0,
	avg_time_ms REAL DEFAULT 0,
	emails_processed INTEGER DEFAULT 0,
	positive_feedback INTEGER DEFAULT 0,
	negative_feedback INTEGER DEFAULT 0,
	UNIQUE(agent_id, date)
);

CREATE INDEX IF NOT EXISTS idx_exec_agent ON executions(agent_id);
CREATE INDEX IF NOT EXISTS idx_exec_ts ON executions(timestamp);
CREATE INDEX IF NOT EXISTS idx_feedback_agent ON feedback(agent_id);
CREATE INDEX IF NOT EXISTS idx_config_agent ON config_changes(agent_id);
`

// Store is the SQLite-backed ledger. All writes are serialized through one
// mutex; SQLite itself only allows one writer at a time and the write volume
// here is tiny.
type Store struct {
	mu sync.Mutex
	db *sql.DB

	// now is swappable in tests.
	now func() time.Time
}

// Open opens (or creates) the ledger database. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// RecordExecution inserts an execution row and returns its ID.
func (s *Store) RecordExecution(ctx context.Context, in ExecutionInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := json.Marshal(orEmptySlice(in.ActionsTaken))
	if err != nil {
		return 0, fmt.Errorf("marshal actions: %w", err)
	}
	data, err := json.Marshal(orEmptyMap(in.ResultData))
	if err != nil {
		return 0, fmt.Errorf("marshal result data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions
		 (agent_id, timestamp, config_version, success, execution_time_ms,
		  emails_processed, actions_taken, result_data, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.AgentID, s.now().UTC().Format(time.RFC3339Nano), in.ConfigVersion,
		boolToInt(in.Success), in.ExecutionTimeMS, in.EmailsProcessed,
		string(actions), string(data), nullString(in.Error),
	)
	if err != nil {
		return 0, fmt.Errorf("record execution for %s: %w", in.AgentID, err)
	}
	return res.LastInsertId()
}

// Executions returns recent executions newest first, filtered to one agent
// when agentID is non-empty.
func (s *Store) Executions(ctx context.Context, agentID string, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT id, agent_id, timestamp, config_version, success, execution_time_ms, emails_processed, actions_taken, result_data, error FROM executions"
	args := []any{}
	if agentID != "" {
		query += " WHERE agent_id = ?"
		args = append(args, agentID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var (
			rec         ExecutionRecord
			ts          string
			success     int
			actionsJSON string
			dataJSON    string
			errText     sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &ts, &rec.ConfigVersion, &success,
			&rec.ExecutionTimeMS, &rec.EmailsProcessed, &actionsJSON, &dataJSON, &errText); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		rec.Success = success == 1
		_ = json.Unmarshal([]byte(actionsJSON), &rec.ActionsTaken)
		_ = json.Unmarshal([]byte(dataJSON), &rec.ResultData)
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ExecutionCount returns the total execution count across all agents.
func (s *Store) ExecutionCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}

// RecordConfigChange appends to the audit trail.
func (s *Store) RecordConfigChange(ctx context.Context, in ConfigChangeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldVal, err := json.Marshal(in.OldValue)
	if err != nil {
		return fmt.Errorf("marshal old value: %w", err)
	}
	newVal, err := json.Marshal(in.NewValue)
	if err != nil {
		return fmt.Errorf("marshal new value: %w", err)
	}
	if in.ProposedBy == "" {
		in.ProposedBy = "user"
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO config_changes
		 (agent_id, timestamp, version_before, version_after, field_changed,
		  old_value, new_value, reason, proposed_by, approved, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.AgentID, s.now().UTC().Format(time.RFC3339Nano), in.VersionBefore, in.VersionAfter,
		in.FieldChanged, string(oldVal), string(newVal), in.Reason, in.ProposedBy,
		boolToInt(in.Approved), in.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("record config change for %s: %w", in.AgentID, err)
	}
	return nil
}

// AuditLog returns config changes newest first, filtered to one agent when
// agentID is non-empty.
func (s *Store) AuditLog(ctx context.Context, agentID string, limit int) ([]ConfigChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT id, agent_id, timestamp, version_before, version_after, field_changed, old_value, new_value, reason, proposed_by, approved, reasoning FROM config_changes"
	args := []any{}
	if agentID != "" {
		query += " WHERE agent_id = ?"
		args = append(args, agentID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []ConfigChangeRecord
	for rows.Next() {
		var (
			rec      ConfigChangeRecord
			ts       string
			approved int
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &ts, &rec.VersionBefore, &rec.VersionAfter,
			&rec.FieldChanged, &rec.OldValue, &rec.NewValue, &rec.Reason, &rec.ProposedBy,
			&approved, &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("scan config change: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		rec.Approved = approved == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordFeedback stores user feedback, initially unprocessed. executionID
// may be nil when the feedback is not tied to a specific run.
func (s *Store) RecordFeedback(ctx context.Context, agentID string, executionID *int64, feedbackType string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(orEmptyMap(data))
	if err != nil {
		return fmt.Errorf("marshal feedback data: %w", err)
	}

	var execID any
	if executionID != nil {
		execID = *executionID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (agent_id, execution_id, timestamp, feedback_type, feedback_data, processed)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		agentID, execID, s.now().UTC().Format(time.RFC3339Nano), feedbackType, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("record feedback for %s: %w", agentID, err)
	}
	return nil
}

// UnprocessedFeedback returns unprocessed feedback for an agent, oldest
// first.
func (s *Store) UnprocessedFeedback(ctx context.Context, agentID string) ([]FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, execution_id, timestamp, feedback_type, feedback_data, processed
		 FROM feedback WHERE agent_id = ? AND processed = 0 ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []FeedbackRecord
	for rows.Next() {
		var (
			rec       FeedbackRecord
			execID    sql.NullInt64
			ts        string
			dataJSON  string
			processed int
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &execID, &ts, &rec.FeedbackType, &dataJSON, &processed); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if execID.Valid {
			v := execID.Int64
			rec.ExecutionID = &v
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		_ = json.Unmarshal([]byte(dataJSON), &rec.FeedbackData)
		rec.Processed = processed == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkFeedbackProcessed flags the given feedback rows as consumed. Calling
// it twice with the same IDs is harmless.
func (s *Store) MarkFeedbackProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE feedback SET processed = 1 WHERE id IN (%s)", placeholders), args...)
	if err != nil {
		return fmt.Errorf("mark feedback processed: %w", err)
	}
	return nil
}

// UpdateDailyMetrics folds one execution into today's aggregate row for the
// agent. The running average is updated incrementally so the row never needs
// a rescan of the executions table.
func (s *Store) UpdateDailyMetrics(ctx context.Context, in ExecutionInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().UTC().Format("2006-01-02")
	success := boolToInt(in.Success)

	var (
		total int
		avg   float64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT total_executions, avg_time_ms FROM metrics WHERE agent_id = ? AND date = ?",
		in.AgentID, today).Scan(&total, &avg)

	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO metrics (agent_id, date, total_executions, successful, failed, avg_time_ms, emails_processed)
			 VALUES (?, ?, 1, ?, ?, ?, ?)`,
			in.AgentID, today, success, 1-success, float64(in.ExecutionTimeMS), in.EmailsProcessed)
	case err == nil:
		newTotal := total + 1
		newAvg := (avg*float64(total) + float64(in.ExecutionTimeMS)) / float64(newTotal)
		_, err = s.db.ExecContext(ctx,
			`UPDATE metrics SET total_executions = ?, successful = successful + ?, failed = failed + ?,
			 avg_time_ms = ?, emails_processed = emails_processed + ?
			 WHERE agent_id = ? AND date = ?`,
			newTotal, success, 1-success, newAvg, in.EmailsProcessed, in.AgentID, today)
	}
	if err != nil {
		return fmt.Errorf("update daily metrics for %s: %w", in.AgentID, err)
	}
	return nil
}

// Metrics returns up to days of daily aggregates for an agent, newest first.
func (s *Store) Metrics(ctx context.Context, agentID string, days int) ([]DailyMetric, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, date, total_executions, successful, failed, avg_time_ms, emails_processed,
		        positive_feedback, negative_feedback
		 FROM metrics WHERE agent_id = ? ORDER BY date DESC LIMIT ?`, agentID, days)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []DailyMetric
	for rows.Next() {
		var m DailyMetric
		if err := rows.Scan(&m.AgentID, &m.Date, &m.TotalExecutions, &m.Successful, &m.Failed,
			&m.AvgTimeMS, &m.EmailsProcessed, &m.PositiveFeedback, &m.NegativeFeedback); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
