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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/internal/runtime/phase"
)

const sessionFile = `{
  "session_id": "s-cli",
  "task_title": "Refactor parser",
  "created_at": "2025-01-01T00:00:00Z",
  "status": "success",
  "tool_calls": [
    {"call_id": "c1", "tool_name": "Read", "tool_category": "perception", "duration_ms": 10,
     "input": {"params": {"file_path": "/p.go"}}, "output": {"status": "success"}},
    {"call_id": "c2", "tool_name": "Edit", "tool_category": "action", "duration_ms": 20,
     "input": {"params": {"file_path": "/p.go"}}, "output": {"status": "success"}}
  ],
  "phase_annotations": [
    {"annotation_id": "a1", "phase_type": "understand",
     "tool_call_range": {"start_call_id": "c1", "end_call_id": "c1"}},
    {"annotation_id": "a2", "phase_type": "execute",
     "tool_call_range": {"start_call_id": "c2", "end_call_id": "c2"}}
  ]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "studio version "+version)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"`+version+`"}`, out)
}

func TestGroupCmd_JSON(t *testing.T) {
	path := writeFile(t, sessionFile)
	out, err := execute(t, "group", path, "-o", "json")
	require.NoError(t, err)

	var res phase.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "s-cli", res.SessionID)
	assert.Equal(t, phase.SourceAnnotations, res.Source)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, 1, res.Groups[0].ToolCount)
}

func TestGroupCmd_TableAndYAML(t *testing.T) {
	path := writeFile(t, sessionFile)

	out, err := execute(t, "group", path)
	require.NoError(t, err)
	assert.Contains(t, out, "session: s-cli")
	assert.Contains(t, out, "annotations")

	out, err = execute(t, "group", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "session_id: s-cli")
	assert.Contains(t, out, "source: annotations")

	_, err = execute(t, "group", path, "-o", "xml")
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate", writeFile(t, sessionFile))
	require.NoError(t, err)
	assert.Contains(t, out, "session_id=s-cli")

	out, err = execute(t, "validate", writeFile(t, `{"session_id": ""}`))
	require.Error(t, err)
	assert.Contains(t, out, "task_title")
	assert.Contains(t, out, "tool_calls")
}

func TestRemoteCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/sessions":
			assert.Equal(t, "parser", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"sessions":[{"session_id":"s-cli","name":"Refactor parser","status":"success","tool_call_count":2,"created_at":"2025-01-01T00:00:00Z"}],"total":1}`))
		case "/api/v1/sessions/s-cli/phase-groups":
			_, _ = w.Write([]byte(`{"session_id":"s-cli","source":"auto","groups":[{"group_id":"g1","phase_type":"execute","label":"Execute","tool_count":2,"source":"auto"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer srv.Close()

	out, err := execute(t, "sessions", "parser", "--api", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "s-cli")
	assert.Contains(t, out, "共 1 条")

	out, err = execute(t, "groups", "s-cli", "--api", srv.URL, "-o", "json")
	require.NoError(t, err)
	var res phase.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 2, res.Groups[0].ToolCount)

	_, err = execute(t, "groups", "missing", "--api", srv.URL)
	assert.Error(t, err)
}
