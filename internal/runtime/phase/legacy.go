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

// tryLegacy 从 v2 phases 转换；悬空的 tool_call_id 直接丢弃
func tryLegacy(s *session.AgentSession) ([]Group, bool) {
	if len(s.Phases) == 0 {
		return nil, false
	}

	byID := make(map[string]*session.ToolCall, len(s.ToolCalls))
	for i := range s.ToolCalls {
		tc := &s.ToolCalls[i]
		byID[tc.CallID] = tc // 重复 id 取最后一次出现
	}

	groups := make([]Group, 0, len(s.Phases))
	for i := range s.Phases {
		p := &s.Phases[i]
		calls := make([]*session.ToolCall, 0, len(p.ToolCallIDs))
		for _, id := range p.ToolCallIDs {
			if tc, ok := byID[id]; ok {
				calls = append(calls, tc)
			}
		}

		id := p.PhaseID
		if id == "" {
			id = fmt.Sprintf("phase-%d", i)
		}
		duration := p.DurationMs
		if duration == 0 {
			duration = totalDuration(calls)
		}

		groups = append(groups, Group{
			GroupID:     id,
			PhaseType:   p.PhaseType,
			Label:       Label(p.PhaseType),
			ToolCount:   len(calls),
			DurationMs:  duration,
			HasErrors:   anyFailed(calls),
			ToolCalls:   calls,
			Decisions:   orEmptyDecisions(p.Decisions),
			ContextUsed: orEmptyContext(p.ContextUsed),
			Source:      SourcePhases,
			Confidence:  session.ConfidenceHigh,
		})
	}
	return groups, true
}
