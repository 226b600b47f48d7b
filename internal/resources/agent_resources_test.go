package resources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxpilot/internal/agents"
	"github.com/teemow/inboxpilot/internal/server"
	"github.com/teemow/inboxpilot/internal/vip"
)

type stubStrategy struct{ id string }

func (s stubStrategy) ID() string          { return s.id }
func (s stubStrategy) DisplayName() string { return s.id }
func (s stubStrategy) Execute(ctx context.Context, cfg *agents.Config) (*agents.Result, error) {
	return agents.OK(nil), nil
}

func newTestAppContext(t *testing.T) *server.AppContext {
	t.Helper()

	cfgStore, err := agents.NewConfigStore(filepath.Join(t.TempDir(), "agents"), nil)
	require.NoError(t, err)

	registry := agents.NewRegistry()
	require.NoError(t, registry.Register(
		agents.NewUnit(stubStrategy{id: "triage"}, cfgStore, agents.DefaultConfig("triage"), nil)))

	vips := vip.NewStore(filepath.Join(t.TempDir(), "vips.json"))
	require.NoError(t, vips.AddContact("boss@example.com", "Boss"))
	require.NoError(t, vips.AddDomain("bigclient.com", "Big Client"))

	return server.NewAppContext(context.Background(), server.AppContextConfig{
		Registry: registry,
		VIPs:     vips,
	})
}

func readRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: uri},
	}
}

func TestAgentStatusResource(t *testing.T) {
	app := newTestAppContext(t)

	contents, err := handleAgentStatuses(context.Background(), readRequest("agents://status"), app)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "agents://status", text.URI)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, `"agent_id": "triage"`)
}

func TestVIPListResource(t *testing.T) {
	app := newTestAppContext(t)

	contents, err := handleVIPList(context.Background(), readRequest("vip://list"), app)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, text.Text, "boss@example.com")
	assert.Contains(t, text.Text, "bigclient.com")
}
