// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/internal/runtime/phase"
	"agent-studio/pkg/log"
)

const sampleSession = `{
  "session_id": "s-1",
  "task_title": "Add caching",
  "created_at": "2025-01-01T00:00:00Z",
  "status": "success",
  "tool_calls": [
    {"call_id": "c1", "tool_name": "Read", "tool_category": "perception", "duration_ms": 5,
     "input": {"params": {"file_path": "/a.go"}}, "output": {"status": "success"}}
  ]
}`

func newTestSession(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s-1.json"), []byte(sampleSession), 0o644))
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"session_id": 1}`), 0o644))

	ctx := context.Background()
	srv, err := NewServer(ctx, &Config{
		Name:    "studio-test",
		Version: "test",
		Dir:     dir,
		Logger:  log.NewWithWriter(&bytes.Buffer{}, "error", "json"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs, bad
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestPhaseGroupsTool(t *testing.T) {
	cs, _ := newTestSession(t)

	text, isErr := callText(t, cs, "session_phase_groups", map[string]any{"session_id": "s-1"})
	require.False(t, isErr, text)
	var res phase.Result
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, phase.SourceAuto, res.Source)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 1, res.Groups[0].ToolCount)

	_, isErr = callText(t, cs, "session_phase_groups", map[string]any{"session_id": "missing"})
	assert.True(t, isErr)

	_, isErr = callText(t, cs, "session_phase_groups", map[string]any{})
	assert.True(t, isErr)
}

func TestValidateTool(t *testing.T) {
	cs, bad := newTestSession(t)

	text, isErr := callText(t, cs, "session_validate", map[string]any{"path": bad})
	require.False(t, isErr, text)
	var out ValidateOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Errors)
}

func TestListTool(t *testing.T) {
	cs, _ := newTestSession(t)

	text, isErr := callText(t, cs, "session_list", map[string]any{"query": "caching"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"total": 1`)

	text, _ = callText(t, cs, "session_list", map[string]any{"query": "tool:bash"})
	assert.Contains(t, text, `"total": 0`)
}
