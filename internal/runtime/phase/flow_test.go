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

package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/internal/runtime/session"
)

func TestFlowSegments(t *testing.T) {
	calls := []session.ToolCall{
		call("c1", session.CategoryPerception, "Read"),
		call("c2", session.CategoryPerception, "Read"),
		call("c3", session.CategoryAction, "Edit"),
		call("c4", session.CategoryAction, "Bash"),
		call("c5", session.CategoryPerception, "RunTests"),
	}
	anns := []session.PhaseAnnotation{
		{AnnotationID: "a1", PhaseType: session.PhaseExplore, ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c2"}},
		{AnnotationID: "a2", PhaseType: session.PhaseVerify, ToolCallRange: session.CallRange{StartCallID: "c5", EndCallID: "missing"}},
		{AnnotationID: "a3", PhaseType: session.PhaseExecute, ToolCallRange: session.CallRange{StartCallID: "c4", EndCallID: "c4"}},
	}
	segs := FlowSegments(calls, anns)
	require.Len(t, segs, 4)

	assert.Equal(t, "a1", segs[0].Annotation.AnnotationID)
	assert.Equal(t, []string{"c1", "c2"}, callIDs(segs[0].ToolCalls))
	assert.Equal(t, "#3b82f6", segs[0].Color)

	assert.Nil(t, segs[1].Annotation)
	assert.Equal(t, session.PhaseUnclassified, segs[1].PhaseType)
	assert.Equal(t, "未标注", segs[1].Label)
	assert.Equal(t, []string{"c3"}, callIDs(segs[1].ToolCalls))

	assert.Equal(t, "a3", segs[2].Annotation.AnnotationID)
	assert.Equal(t, []string{"c4"}, callIDs(segs[2].ToolCalls))

	// a2 终点无法解析，不覆盖 c5
	assert.Nil(t, segs[3].Annotation)
	assert.Equal(t, []string{"c5"}, callIDs(segs[3].ToolCalls))
}

func TestFlowSegments_LaterAnnotationWins(t *testing.T) {
	calls := []session.ToolCall{
		call("c1", session.CategoryPerception, "Read"),
		call("c2", session.CategoryAction, "Edit"),
	}
	anns := []session.PhaseAnnotation{
		{AnnotationID: "wide", PhaseType: session.PhaseExplore, ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c2"}},
		{AnnotationID: "narrow", PhaseType: session.PhaseExecute, ToolCallRange: session.CallRange{StartCallID: "c2", EndCallID: "c2"}},
	}
	segs := FlowSegments(calls, anns)
	require.Len(t, segs, 2)
	assert.Equal(t, "wide", segs[0].Annotation.AnnotationID)
	assert.Equal(t, "narrow", segs[1].Annotation.AnnotationID)
}

func TestFlowSegments_Empty(t *testing.T) {
	segs := FlowSegments(nil, nil)
	assert.NotNil(t, segs)
	assert.Empty(t, segs)

	calls := []session.ToolCall{call("c1", session.CategoryAction, "Edit"), call("c2", session.CategoryAction, "Edit")}
	segs = FlowSegments(calls, nil)
	require.Len(t, segs, 1)
	assert.Len(t, segs[0].ToolCalls, 2)
}
