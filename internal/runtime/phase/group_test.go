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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/internal/runtime/session"
)

func call(id string, cat session.ToolCategory, name string) session.ToolCall {
	return session.ToolCall{
		CallID:       id,
		ToolName:     name,
		ToolCategory: cat,
		DurationMs:   100,
		Input:        session.ToolInput{Params: map[string]any{}},
		Output:       session.ToolOutput{Status: session.CallSuccess},
	}
}

func failed(tc session.ToolCall) session.ToolCall {
	tc.Output.Status = session.CallFailed
	return tc
}

func withPath(tc session.ToolCall, path string) session.ToolCall {
	tc.Input.Params = map[string]any{"file_path": path}
	return tc
}

func callIDs(calls []*session.ToolCall) []string {
	out := make([]string, len(calls))
	for i, tc := range calls {
		out[i] = tc.CallID
	}
	return out
}

func sessionIDs(s *session.AgentSession) []string {
	out := make([]string, len(s.ToolCalls))
	for i := range s.ToolCalls {
		out[i] = s.ToolCalls[i].CallID
	}
	return out
}

func mixedCalls() []session.ToolCall {
	return []session.ToolCall{
		call("c1", session.CategoryPerception, "Read"),
		call("c2", session.CategoryPerception, "Grep"),
		call("c3", session.CategoryPlanning, "EnterPlanMode"),
		call("c4", session.CategoryAction, "Edit"),
		failed(call("c5", session.CategoryAction, "Bash")),
		call("c6", "mcp", "Custom"),
		call("c7", session.CategoryPerception, "RunTests"),
	}
}

func TestGetPhaseGroups_Empty(t *testing.T) {
	groups := GetPhaseGroups(&session.AgentSession{ToolCalls: []session.ToolCall{}})
	require.NotNil(t, groups)
	assert.Empty(t, groups)

	groups = GetPhaseGroups(&session.AgentSession{})
	require.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestGetPhaseGroups_OrderPreservation(t *testing.T) {
	calls := mixedCalls()
	cases := map[string]*session.AgentSession{
		"auto": {ToolCalls: calls},
		"annotations": {
			ToolCalls: calls,
			PhaseAnnotations: []session.PhaseAnnotation{
				{AnnotationID: "a1", PhaseType: session.PhaseExplore, ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c2"}},
				{AnnotationID: "a2", PhaseType: session.PhaseExecute, ToolCallRange: session.CallRange{StartCallID: "c3", EndCallID: "c6"}},
				{AnnotationID: "a3", PhaseType: session.PhaseVerify, ToolCallRange: session.CallRange{StartCallID: "c7", EndCallID: "c7"}},
			},
		},
		"phases": {
			ToolCalls: calls,
			Phases: []session.LegacyPhase{
				{PhaseID: "p1", PhaseType: session.PhaseExplore, ToolCallIDs: []string{"c1", "c2", "c3"}},
				{PhaseID: "p2", PhaseType: session.PhaseExecute, ToolCallIDs: []string{"c4", "c5", "c6"}},
				{PhaseID: "p3", PhaseType: session.PhaseVerify, ToolCallIDs: []string{"c7"}},
			},
		},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			groups := GetPhaseGroups(s)
			assert.Equal(t, sessionIDs(s), callIDs(Flatten(groups)))
			assert.Equal(t, Source(name), DetectSource(s))
			for _, g := range groups {
				assert.Equal(t, Source(name), g.Source)
			}
		})
	}
}

func TestGetPhaseGroups_SameIdentity(t *testing.T) {
	s := &session.AgentSession{ToolCalls: mixedCalls()}
	flat := Flatten(GetPhaseGroups(s))
	for i := range s.ToolCalls {
		assert.Same(t, &s.ToolCalls[i], flat[i])
	}
}

func TestGetPhaseGroups_PhasesWinOverAnnotations(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{call("c1", session.CategoryAction, "Edit")},
		Phases:    []session.LegacyPhase{{PhaseID: "legacy", PhaseType: session.PhaseExecute, ToolCallIDs: []string{"c1"}}},
		PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "ann", PhaseType: session.PhasePlan, ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c1"}},
		},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 1)
	assert.Equal(t, "legacy", groups[0].GroupID)
	assert.Equal(t, SourcePhases, groups[0].Source)
	assert.Equal(t, session.ConfidenceHigh, groups[0].Confidence)
	assert.Equal(t, SourcePhases, DetectSource(s))
}

func TestGetPhaseGroups_EmptyPhasesFallThrough(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{call("c1", session.CategoryAction, "Edit")},
		Phases:    []session.LegacyPhase{},
		PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "ann", PhaseType: session.PhasePlan, Confidence: session.ConfidenceMedium,
				ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c1"}},
		},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 1)
	assert.Equal(t, SourceAnnotations, groups[0].Source)

	s.PhaseAnnotations = []session.PhaseAnnotation{}
	groups = GetPhaseGroups(s)
	require.Len(t, groups, 1)
	assert.Equal(t, SourceAuto, groups[0].Source)
}

func TestGetPhaseGroups_HasErrorsMatchesMembers(t *testing.T) {
	calls := mixedCalls()
	sessions := []*session.AgentSession{
		{ToolCalls: calls},
		{ToolCalls: calls, PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "a1", ToolCallRange: session.CallRange{StartCallID: "c1", EndCallID: "c4"}},
			{AnnotationID: "a2", ToolCallRange: session.CallRange{StartCallID: "c5", EndCallID: "c7"}},
		}},
		{ToolCalls: calls, Phases: []session.LegacyPhase{
			{ToolCallIDs: []string{"c1", "c5"}},
			{ToolCallIDs: []string{"c2", "c3"}},
		}},
	}
	for _, s := range sessions {
		for _, g := range GetPhaseGroups(s) {
			want := false
			for _, tc := range g.ToolCalls {
				want = want || tc.Output.Status == session.CallFailed
			}
			assert.Equal(t, want, g.HasErrors, "group %s", g.GroupID)
			assert.Equal(t, len(g.ToolCalls), g.ToolCount)
		}
	}
}

func TestLegacy_DanglingID(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{call("x1", session.CategoryAction, "Write")},
		Phases: []session.LegacyPhase{
			{PhaseID: "p1", PhaseType: session.PhaseExecute, ToolCallIDs: []string{"x1", "x2"}},
		},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].ToolCount)
	assert.Equal(t, []string{"x1"}, callIDs(groups[0].ToolCalls))
}

func TestLegacy_Fields(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{
			call("a", session.CategoryPerception, "Read"),
			failed(call("b", session.CategoryAction, "Edit")),
		},
		Phases: []session.LegacyPhase{
			{PhaseType: session.PhaseExplore, DurationMs: 5000, ToolCallIDs: []string{"a"},
				Decisions: []session.Decision{{DecisionID: "d1"}}},
			{PhaseID: "p-exec", PhaseType: "deploy", ToolCallIDs: []string{"b"}},
		},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 2)

	assert.Equal(t, "phase-0", groups[0].GroupID)
	assert.Equal(t, "探索", groups[0].Label)
	assert.Equal(t, int64(5000), groups[0].DurationMs)
	assert.False(t, groups[0].HasErrors)
	assert.Len(t, groups[0].Decisions, 1)
	assert.NotNil(t, groups[0].ContextUsed)
	assert.Empty(t, groups[0].Description)

	assert.Equal(t, "p-exec", groups[1].GroupID)
	assert.Equal(t, "deploy", groups[1].Label)
	assert.Equal(t, int64(100), groups[1].DurationMs)
	assert.True(t, groups[1].HasErrors)
	assert.NotNil(t, groups[1].Decisions)
	assert.Equal(t, session.ConfidenceHigh, groups[1].Confidence)
}

func TestAnnotations_Fields(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{
			call("c1", session.CategoryPerception, "Read"),
			failed(call("c2", session.CategoryAction, "Edit")),
			call("c3", session.CategoryAction, "Write"),
		},
		PhaseAnnotations: []session.PhaseAnnotation{{
			AnnotationID:  "ann-x",
			PhaseType:     session.PhaseExecute,
			ToolCallRange: session.CallRange{StartCallID: "c2", EndCallID: "c3"},
			Confidence:    session.ConfidenceMedium,
			Description:   "apply fix",
			ContextUsed:   []session.ContextReference{{Type: session.ContextRule, Source: "rules/go.md"}},
		}},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "ann-x", g.GroupID)
	assert.Equal(t, "执行", g.Label)
	assert.Equal(t, []string{"c2", "c3"}, callIDs(g.ToolCalls))
	assert.Equal(t, int64(200), g.DurationMs)
	assert.True(t, g.HasErrors)
	assert.Equal(t, session.ConfidenceMedium, g.Confidence)
	assert.Equal(t, "apply fix", g.Description)
	assert.Len(t, g.ContextUsed, 1)
	assert.NotNil(t, g.Decisions)
	assert.Empty(t, g.Decisions)
}

func TestAnnotations_UnresolvedEndpointsFallBack(t *testing.T) {
	calls := []session.ToolCall{
		call("c1", session.CategoryPerception, "Read"),
		call("c2", session.CategoryPerception, "Read"),
		call("c3", session.CategoryAction, "Edit"),
	}
	s := &session.AgentSession{
		ToolCalls: calls,
		PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "no-start", ToolCallRange: session.CallRange{StartCallID: "missing", EndCallID: "c2"}},
			{AnnotationID: "no-end", ToolCallRange: session.CallRange{StartCallID: "c2", EndCallID: "missing"}},
			{AnnotationID: "neither", ToolCallRange: session.CallRange{}},
		},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"c1", "c2"}, callIDs(groups[0].ToolCalls))
	assert.Equal(t, []string{"c2", "c3"}, callIDs(groups[1].ToolCalls))
	assert.Equal(t, []string{"c1", "c2", "c3"}, callIDs(groups[2].ToolCalls))
}

func TestAnnotations_ReversedRangeIsEmpty(t *testing.T) {
	s := &session.AgentSession{
		ToolCalls: []session.ToolCall{
			call("c1", session.CategoryPerception, "Read"),
			failed(call("c2", session.CategoryAction, "Edit")),
			call("c3", session.CategoryAction, "Write"),
		},
		PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "rev", PhaseType: session.PhasePlan, ToolCallRange: session.CallRange{StartCallID: "c3", EndCallID: "c1"}},
		},
	}
	var groups []Group
	require.NotPanics(t, func() { groups = GetPhaseGroups(s) })
	require.Len(t, groups, 1)
	assert.Equal(t, 0, groups[0].ToolCount)
	assert.Equal(t, int64(0), groups[0].DurationMs)
	assert.False(t, groups[0].HasErrors)
	assert.NotNil(t, groups[0].ToolCalls)
	assert.Empty(t, groups[0].ToolCalls)
}

func TestAnnotations_NoToolCalls(t *testing.T) {
	s := &session.AgentSession{
		PhaseAnnotations: []session.PhaseAnnotation{{AnnotationID: "a", ToolCallRange: session.CallRange{StartCallID: "x", EndCallID: "y"}}},
	}
	groups := GetPhaseGroups(s)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].ToolCalls)
}

func TestAnnotationsFromPhases(t *testing.T) {
	s := &session.AgentSession{
		Phases: []session.LegacyPhase{
			{PhaseType: session.PhaseExplore, EndedAt: "t1", ToolCallIDs: []string{"a", "b", "c"}},
			{PhaseType: session.PhaseVerify, EndedAt: "t2"},
		},
	}
	anns := AnnotationsFromPhases(s)
	require.Len(t, anns, 2)
	assert.Equal(t, "ann-1", anns[0].AnnotationID)
	assert.Equal(t, session.CallRange{StartCallID: "a", EndCallID: "c"}, anns[0].ToolCallRange)
	assert.Equal(t, session.AnnotatedByAuto, anns[0].AnnotatedBy)
	assert.Equal(t, session.ConfidenceMedium, anns[0].Confidence)
	assert.Equal(t, "探索阶段", anns[0].Description)
	assert.Equal(t, "t1", anns[0].AnnotatedAt)
	assert.Equal(t, "ann-2", anns[1].AnnotationID)
	assert.Equal(t, session.CallRange{}, anns[1].ToolCallRange)
	assert.Equal(t, "验证阶段", anns[1].Description)

	own := []session.PhaseAnnotation{}
	s.PhaseAnnotations = own
	assert.Empty(t, AnnotationsFromPhases(s))
	assert.NotNil(t, AnnotationsFromPhases(s))
}

func TestAnnotationsFromPhases_None(t *testing.T) {
	anns := AnnotationsFromPhases(&session.AgentSession{})
	assert.NotNil(t, anns)
	assert.Empty(t, anns)
}

func ExampleGetPhaseGroups() {
	s := &session.AgentSession{ToolCalls: []session.ToolCall{
		{CallID: "1", ToolName: "Read", ToolCategory: session.CategoryPerception},
		{CallID: "2", ToolName: "Edit", ToolCategory: session.CategoryAction},
		{CallID: "3", ToolName: "RunTests", ToolCategory: session.CategoryPerception},
	}}
	for _, g := range GetPhaseGroups(s) {
		fmt.Println(g.GroupID, g.PhaseType, g.ToolCount)
	}
	// Output:
	// auto-1 explore 1
	// auto-2 execute 1
	// auto-3 verify 1
}

func TestDuplicateCallIDsResolveToLast(t *testing.T) {
	calls := []session.ToolCall{
		call("d1", session.CategoryPerception, "Read"),
		call("d2", session.CategoryPerception, "Grep"),
		call("d1", session.CategoryAction, "Edit"),
	}

	legacy := GetPhaseGroups(&session.AgentSession{
		ToolCalls: calls,
		Phases: []session.LegacyPhase{
			{PhaseID: "p1", PhaseType: session.PhaseExecute, ToolCallIDs: []string{"d1"}},
		},
	})
	require.Len(t, legacy, 1)
	require.Len(t, legacy[0].ToolCalls, 1)
	assert.Equal(t, "Edit", legacy[0].ToolCalls[0].ToolName)

	annotated := GetPhaseGroups(&session.AgentSession{
		ToolCalls: calls,
		PhaseAnnotations: []session.PhaseAnnotation{
			{AnnotationID: "a1", PhaseType: session.PhaseExecute, ToolCallRange: session.CallRange{StartCallID: "d2", EndCallID: "d1"}},
		},
	})
	require.Len(t, annotated, 1)
	assert.Equal(t, []string{"d2", "d1"}, callIDs(annotated[0].ToolCalls))
	assert.Equal(t, "Edit", annotated[0].ToolCalls[1].ToolName)
}
