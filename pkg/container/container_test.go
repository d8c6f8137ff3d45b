package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/calchat/pkg/calcom"
	"github.com/soypete/calchat/pkg/testutil"
)

func TestNewWiresDefaults(t *testing.T) {
	cfg := testutil.NewTestConfig()

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Same(t, cfg, c.Config())
	assert.Len(t, c.Catalog().Definitions(), 5)
	assert.IsType(t, &calcom.Client{}, c.Provider())
	assert.NotNil(t, c.Orchestrator())
	assert.NotNil(t, c.Server())
	assert.Nil(t, c.AuditStore())
	assert.Nil(t, c.Pruner())
	assert.NoError(t, c.Close())
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Model.Type = "carrier-pigeon"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend type")
}

func TestChatThroughContainerRecordsAudit(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Database.Enabled = true
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "audit.db")
	cfg.Database.PruneSchedule = "@hourly"
	cfg.Database.Retention = 24 * time.Hour

	cal := testutil.NewFakeCalendar().AddSlots("2026-01-15", "2026-01-15T10:00:00.000Z")
	planner := testutil.NewScriptedPlanner().
		AddToolCall("find-available-slots", map[string]interface{}{"date": "2026-01-15"}).
		AddAnswer("10:00 UTC is free.")

	c, err := New(context.Background(), cfg, WithPlanner(planner), WithProvider(cal), WithVersion("2.0.0"))
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.Pruner())

	srv := httptest.NewServer(c.Server().Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"message":"free on the 15th?","user_email":"ann@example.com"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, cal.CallCount("ListAvailableSlots"))

	entries, err := c.AuditStore().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "find-available-slots", entries[0].Operation)
	assert.True(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].RequestID)
}

func TestNewFailsOnBadPruneSchedule(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Database.Enabled = true
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "audit.db")
	cfg.Database.PruneSchedule = "every tuesday"

	_, err := New(context.Background(), cfg, WithPlanner(testutil.NewScriptedPlanner()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prune schedule")
}
