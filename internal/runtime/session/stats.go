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

package session

import "fmt"

// Stats 会话执行进度与统计
type Stats struct {
	Completed       int       `json:"completed"`
	Total           int       `json:"total"`
	Percentage      int       `json:"percentage"`
	CurrentPhase    PhaseType `json:"current_phase,omitempty"`
	TotalDurationMs int64     `json:"total_duration_ms"`
	ToolCallsCount  int       `json:"tool_calls_count"`
	ContextCount    int       `json:"context_count"`
	PerceptionCalls int       `json:"perception_calls"`
	ActionCalls     int       `json:"action_calls"`
	FailedCalls     int       `json:"failed_calls"`
}

// ComputeStats 统计会话进度；success 与 skipped 阶段视为已完成
func ComputeStats(s *AgentSession) Stats {
	var st Stats
	for i := range s.Phases {
		p := &s.Phases[i]
		if p.Status == PhaseSuccess || p.Status == PhaseSkipped {
			st.Completed++
		}
		if st.CurrentPhase == "" && p.Status == PhaseRunning {
			st.CurrentPhase = p.PhaseType
		}
		st.ContextCount += len(p.ContextUsed)
	}
	for i := range s.PhaseAnnotations {
		st.ContextCount += len(s.PhaseAnnotations[i].ContextUsed)
	}
	st.Total = len(s.Phases)
	if st.Total == 0 {
		st.Total = 1
	}
	st.Percentage = (st.Completed*100 + st.Total/2) / st.Total

	var sum int64
	for i := range s.ToolCalls {
		tc := &s.ToolCalls[i]
		sum += tc.DurationMs
		switch tc.ToolCategory {
		case CategoryPerception:
			st.PerceptionCalls++
		case CategoryAction:
			st.ActionCalls++
		}
		if tc.Failed() {
			st.FailedCalls++
		}
	}

	st.TotalDurationMs = s.Summary.TotalDurationMs
	if st.TotalDurationMs == 0 {
		st.TotalDurationMs = sum
	}
	st.ToolCallsCount = s.Summary.ToolCallsCount
	if st.ToolCallsCount == 0 {
		st.ToolCallsCount = len(s.ToolCalls)
	}
	return st
}

// FormatDuration 格式化毫秒：<1s 显示 ms，<1min 显示一位小数秒，否则一位小数分钟
func FormatDuration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		return fmt.Sprintf("%.1fmin", float64(ms)/60000)
	}
}
