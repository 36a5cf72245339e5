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

	"agent-studio/internal/runtime/session"
)

// tryAnnotations 从 v3 phase_annotations 转换
//
// 起点找不到时取 0，终点找不到时取最后一个；起点在终点之后得到空分组。
func tryAnnotations(s *session.AgentSession) ([]Group, bool) {
	if len(s.PhaseAnnotations) == 0 {
		return nil, false
	}

	index := callIndex(s.ToolCalls)
	groups := make([]Group, 0, len(s.PhaseAnnotations))
	for i := range s.PhaseAnnotations {
		ann := &s.PhaseAnnotations[i]

		start, ok := index[ann.ToolCallRange.StartCallID]
		if !ok {
			start = 0
		}
		end, ok := index[ann.ToolCallRange.EndCallID]
		if !ok {
			end = len(s.ToolCalls) - 1
		}

		calls := make([]*session.ToolCall, 0)
		for j := start; j <= end; j++ {
			calls = append(calls, &s.ToolCalls[j])
		}

		groups = append(groups, Group{
			GroupID:     ann.AnnotationID,
			PhaseType:   ann.PhaseType,
			Label:       Label(ann.PhaseType),
			ToolCount:   len(calls),
			DurationMs:  totalDuration(calls),
			HasErrors:   anyFailed(calls),
			ToolCalls:   calls,
			Decisions:   orEmptyDecisions(ann.Decisions),
			ContextUsed: orEmptyContext(ann.ContextUsed),
			Description: ann.Description,
			Source:      SourceAnnotations,
			Confidence:  ann.Confidence,
		})
	}
	return groups, true
}

// callIndex call_id 到下标；重复 id 取最后一次出现
func callIndex(calls []session.ToolCall) map[string]int {
	index := make(map[string]int, len(calls))
	for i := range calls {
		index[calls[i].CallID] = i
	}
	return index
}

// AnnotationsFromPhases 返回会话的阶段标注；v2 会话由 phases 转换得到
//
// 会话带有 phase_annotations 字段（即使为空）时原样返回。
func AnnotationsFromPhases(s *session.AgentSession) []session.PhaseAnnotation {
	if s.PhaseAnnotations != nil {
		return s.PhaseAnnotations
	}
	out := make([]session.PhaseAnnotation, 0, len(s.Phases))
	for i := range s.Phases {
		p := &s.Phases[i]
		var r session.CallRange
		if n := len(p.ToolCallIDs); n > 0 {
			r.StartCallID = p.ToolCallIDs[0]
			r.EndCallID = p.ToolCallIDs[n-1]
		}
		out = append(out, session.PhaseAnnotation{
			AnnotationID:  fmt.Sprintf("ann-%d", i+1),
			PhaseType:     p.PhaseType,
			ToolCallRange: r,
			AnnotatedBy:   session.AnnotatedByAuto,
			AnnotatedAt:   p.EndedAt,
			Confidence:    session.ConfidenceMedium,
			Description:   Label(p.PhaseType) + "阶段",
			Decisions:     p.Decisions,
			ContextUsed:   p.ContextUsed,
		})
	}
	return out
}
