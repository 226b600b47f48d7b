package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStrategy lets a test control what Execute does.
type scriptedStrategy struct {
	id      string
	execute func(ctx context.Context, cfg *Config) (*Result, error)
}

func (s *scriptedStrategy) ID() string          { return s.id }
func (s *scriptedStrategy) DisplayName() string { return s.id }
func (s *scriptedStrategy) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	return s.execute(ctx, cfg)
}

func TestUnitRunContainsErrors(t *testing.T) {
	strategy := &scriptedStrategy{id: "triage", execute: func(ctx context.Context, cfg *Config) (*Result, error) {
		return nil, errors.New("mailbox unreachable")
	}}
	unit := NewUnit(strategy, newTestStore(t), DefaultConfig("triage"), nil)

	res := unit.Run(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "mailbox unreachable", res.Error)
	assert.GreaterOrEqual(t, res.ExecutionTimeMS, int64(0))
}

func TestUnitRunContainsPanics(t *testing.T) {
	strategy := &scriptedStrategy{id: "triage", execute: func(ctx context.Context, cfg *Config) (*Result, error) {
		panic("boom")
	}}
	unit := NewUnit(strategy, newTestStore(t), DefaultConfig("triage"), nil)

	res := unit.Run(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
}

func TestUnitRunNilResultIsFailure(t *testing.T) {
	strategy := &scriptedStrategy{id: "triage", execute: func(ctx context.Context, cfg *Config) (*Result, error) {
		return nil, nil
	}}
	unit := NewUnit(strategy, newTestStore(t), DefaultConfig("triage"), nil)

	res := unit.Run(context.Background())
	assert.False(t, res.Success)
}

func TestUnitRunRecordsStatus(t *testing.T) {
	strategy := &scriptedStrategy{id: "triage", execute: func(ctx context.Context, cfg *Config) (*Result, error) {
		return OK(map[string]any{"n": 1}).WithEmails(3), nil
	}}
	unit := NewUnit(strategy, newTestStore(t), DefaultConfig("triage"), nil)

	st := unit.Status()
	assert.Nil(t, st.LastRun)
	assert.Nil(t, st.LastResult)

	res := unit.Run(context.Background())
	assert.True(t, res.Success)

	st = unit.Status()
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, 3, st.LastResult.EmailsProcessed)
	assert.Equal(t, "triage", st.AgentID)
}

func TestUnitConfigIsACopy(t *testing.T) {
	strategy := &scriptedStrategy{id: "triage"}
	unit := NewUnit(strategy, newTestStore(t), DefaultConfig("triage"), nil)

	cfg := unit.Config()
	cfg.Thresholds["max_emails"] = 999

	assert.Equal(t, float64(50), unit.Config().Thresholds["max_emails"])
}

func TestUnitSaveConfigBumpsVersionAndPersists(t *testing.T) {
	store := newTestStore(t)
	strategy := &scriptedStrategy{id: "triage"}
	unit := NewUnit(strategy, store, DefaultConfig("triage"), nil)

	before := unit.Config().Version
	cfg, err := unit.SaveConfig(func(c *Config) {
		c.Thresholds["max_emails"] = 75
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, cfg.Version)
	assert.Equal(t, float64(75), cfg.Thresholds["max_emails"])

	// A fresh unit loads the persisted config, not the defaults.
	reloaded := NewUnit(strategy, store, DefaultConfig("triage"), nil)
	assert.Equal(t, before+1, reloaded.Config().Version)
	assert.Equal(t, float64(75), reloaded.Config().Thresholds["max_emails"])
}

func TestRegistry(t *testing.T) {
	store := newTestStore(t)
	reg := NewRegistry()

	a := NewUnit(&scriptedStrategy{id: "a"}, store, DefaultConfig("a"), nil)
	b := NewUnit(&scriptedStrategy{id: "b"}, store, DefaultConfig("b"), nil)

	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))
	assert.Error(t, reg.Register(a))

	got, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, reg.IDs())
	assert.Len(t, reg.Statuses(), 2)
}

func TestRegistryEnabled(t *testing.T) {
	store := newTestStore(t)
	reg := NewRegistry()

	triage := NewUnit(&scriptedStrategy{id: "triage"}, store, DefaultConfig("triage"), nil)
	cleanup := NewUnit(&scriptedStrategy{id: "cleanup"}, store, DefaultConfig("cleanup"), nil)
	require.NoError(t, reg.Register(triage))
	require.NoError(t, reg.Register(cleanup))

	assert.Len(t, reg.Enabled(), 2)

	_, err := cleanup.SaveConfig(func(c *Config) { c.Enabled = false })
	require.NoError(t, err)

	enabled := reg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "triage", enabled[0].ID())
}
