package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

func TestPrinter_JSONLines(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, false)

	require.NoError(t, p.print(protocol.StartOfLLM("planner")))
	require.NoError(t, p.print(protocol.EndOfLLM("planner")))
	require.NoError(t, p.flush())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "start_of_llm", first["event"])
}

func TestPrinter_Summary(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, true)

	require.NoError(t, p.print(protocol.ContentMessage("m1", "a")))
	require.NoError(t, p.print(protocol.ContentMessage("m1", "b")))
	require.NoError(t, p.print(protocol.FinalSessionState(nil)))
	assert.Empty(t, out.String(), "nothing is written before flush")

	require.NoError(t, p.flush())
	table := out.String()
	assert.Contains(t, table, "message")
	assert.Contains(t, table, "final_session_state")
	assert.Contains(t, table, "3")
}

func TestRequestFlags(t *testing.T) {
	f := requestFlags{messages: []string{"first", "second"}, team: []string{"researcher"}, deepThinking: true}
	req := f.request()

	require.Len(t, req.Messages, 2)
	assert.Equal(t, protocol.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "second", req.Messages[1].Content)
	assert.True(t, req.DeepThinking)
	assert.Equal(t, []string{"researcher"}, req.TeamMembers)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9123")
	t.Setenv("CHROME_HEADLESS", "false")
	t.Setenv("BROWSER_HISTORY_DIR", "/tmp/history")
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9123, cfg.Server.Port)
	assert.False(t, cfg.Browser.IsHeadless())
	assert.Equal(t, "/tmp/history", cfg.Browser.HistoryDir)
}
