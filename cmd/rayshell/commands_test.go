package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepherg/rayshell/internal/devcore"
	"github.com/stepherg/rayshell/internal/events"
	"github.com/stepherg/rayshell/internal/ws"
)

func startDevcore(t *testing.T, seed string) *devcore.Core {
	t.Helper()
	reg := events.New()
	core := devcore.New(reg, zerolog.Nop())
	if seed != "" {
		_, err := core.ImportFromText(context.Background(), seed)
		require.NoError(t, err)
	}
	srv := httptest.NewServer(&ws.Handler{Dispatcher: core.Mux(), Events: reg})
	t.Cleanup(srv.Close)
	t.Setenv("RAYSHELL_CORE_URL", "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	t.Setenv("RAYSHELL_TRANSPORT", "ws")
	t.Setenv("RAYSHELL_LOG_LEVEL", "error")
	return core
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestProfilesCommands(t *testing.T) {
	core := startDevcore(t, "socks://10.0.0.2:1080#beta\nsocks://10.0.0.1:1080#alpha")

	out := run(t, "profiles", "--search", "a")
	alpha := strings.Index(out, "alpha")
	beta := strings.Index(out, "beta")
	require.Positive(t, alpha)
	require.Positive(t, beta)
	assert.Less(t, alpha, beta)
	assert.Contains(t, out, "10.0.0.1:1080")

	profiles, err := core.GetProfiles(context.Background(), "")
	require.NoError(t, err)
	run(t, "profiles", "activate", profiles[0].ID)

	out = run(t, "profiles", "export", profiles[0].ID)
	assert.Equal(t, "socks://10.0.0.2:1080#beta\n", out)

	out = run(t, "core", "start")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "beta")

	out = run(t, "logs", "--search", "started")
	assert.Contains(t, out, "core started with beta")

	out = run(t, "core", "stop")
	assert.Contains(t, out, "stopped")
}

func TestVersionCommand(t *testing.T) {
	out := run(t, "version")
	assert.Equal(t, "rayshell dev\n", out)
}
