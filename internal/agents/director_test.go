package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/ledger"
)

func newDirectorFixture(t *testing.T, verdict string) (*DirectorAgent, *Registry, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfgStore := newTestStore(t)
	reg := NewRegistry()
	for _, id := range []string{"triage", "cleanup"} {
		unit := NewUnit(&scriptedStrategy{id: id}, cfgStore, DefaultConfig(id), nil)
		require.NoError(t, reg.Register(unit))
	}

	director := NewDirectorAgent(&fakeAI{generated: verdict}, reg, store, nil)
	unit := NewUnit(director, cfgStore, DefaultConfig("director"), nil)
	require.NoError(t, reg.Register(unit))

	return director, reg, store
}

func TestDirectorAppliesValidReschedule(t *testing.T) {
	director, reg, store := newDirectorFixture(t, `{
		"adjustments": [
			{"agent_id": "triage", "action": "reschedule",
			 "new_schedule": {"type": "interval", "minutes": 45},
			 "reason": "low volume"}
		],
		"summary": "healthy"
	}`)

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Data["adjustments_applied"])

	unit, _ := reg.Get("triage")
	cfg := unit.Config()
	assert.Equal(t, 45, cfg.Schedule.Minutes)
	assert.Equal(t, 2, cfg.Version)

	log, err := store.AuditLog(context.Background(), "triage", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "director", log[0].ProposedBy)
	assert.Equal(t, "schedule", log[0].FieldChanged)
}

func TestDirectorRejectsScheduleBelowFloor(t *testing.T) {
	director, reg, store := newDirectorFixture(t, `{
		"adjustments": [
			{"agent_id": "triage", "action": "reschedule",
			 "new_schedule": {"type": "interval", "minutes": 1},
			 "reason": "run constantly"}
		],
		"summary": "aggressive"
	}`)

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["adjustments_applied"])

	unit, _ := reg.Get("triage")
	assert.Equal(t, 30, unit.Config().Schedule.Minutes)
	assert.Equal(t, 1, unit.Config().Version)

	log, err := store.AuditLog(context.Background(), "triage", 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestDirectorNeverModifiesItself(t *testing.T) {
	director, reg, _ := newDirectorFixture(t, `{
		"adjustments": [
			{"agent_id": "director", "action": "reschedule",
			 "new_schedule": {"type": "interval", "minutes": 60},
			 "reason": "self-promotion"}
		],
		"summary": "suspicious"
	}`)

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["adjustments_applied"])

	unit, _ := reg.Get("director")
	assert.Equal(t, ScheduleManual, unit.Config().Schedule.Type)
}

func TestDirectorDisablesAgent(t *testing.T) {
	director, reg, store := newDirectorFixture(t, `{
		"adjustments": [
			{"agent_id": "cleanup", "action": "disable", "reason": "error streak"}
		],
		"summary": "cleanup is failing"
	}`)

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Data["adjustments_applied"])

	unit, _ := reg.Get("cleanup")
	assert.False(t, unit.Config().Enabled)

	log, err := store.AuditLog(context.Background(), "cleanup", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "enabled", log[0].FieldChanged)
}

func TestDirectorToleratesUnparseableVerdict(t *testing.T) {
	director, _, _ := newDirectorFixture(t, "everything looks great to me!")

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Data["adjustments_proposed"])
	assert.Equal(t, "No changes needed", res.Data["summary"])
}

func TestDirectorSkipsUnknownAgents(t *testing.T) {
	director, _, _ := newDirectorFixture(t, `{
		"adjustments": [
			{"agent_id": "ghost", "action": "disable", "reason": "haunting"}
		],
		"summary": "ok"
	}`)

	res, err := director.Execute(context.Background(), DefaultConfig("director"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["adjustments_applied"])
}
