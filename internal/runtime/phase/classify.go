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
	"strings"

	"agent-studio/internal/runtime/session"
)

// verifyWindow 验证类 perception 调用需落在序列最后几个位置内
const verifyWindow = 3

// AutoGroup 启发式自动分组：单遍扫描，连续同阶段的调用合并为一组
func AutoGroup(calls []session.ToolCall) []Group {
	groups := make([]Group, 0)
	run := make([]*session.ToolCall, 0)
	current := session.PhaseUnclassified

	flush := func() {
		if len(run) == 0 {
			return
		}
		groups = append(groups, Group{
			GroupID:     fmt.Sprintf("auto-%d", len(groups)+1),
			PhaseType:   current,
			Label:       Label(current),
			ToolCount:   len(run),
			DurationMs:  totalDuration(run),
			HasErrors:   anyFailed(run),
			ToolCalls:   run,
			Decisions:   []session.Decision{},
			ContextUsed: ExtractContext(run),
			Source:      SourceAuto,
			Confidence:  session.ConfidenceLow,
		})
		run = make([]*session.ToolCall, 0)
	}

	n := len(calls)
	for i := range calls {
		tc := &calls[i]
		inferred := InferPhase(tc, i, n)
		if len(run) > 0 && inferred != current {
			flush()
		}
		current = inferred
		run = append(run, tc)
	}
	flush()
	return groups
}

// InferPhase 按固定规则表推断单个调用的阶段，先匹配者生效
func InferPhase(tc *session.ToolCall, index, total int) session.PhaseType {
	name := strings.ToLower(tc.ToolName)

	switch {
	case tc.ToolCategory == session.CategoryPlanning || strings.Contains(name, "plan"):
		return session.PhasePlan
	case tc.ToolCategory == session.CategoryTaskManagement:
		return session.PhasePlan
	case tc.ToolCategory == session.CategoryInteraction:
		return session.PhasePlan
	case tc.ToolCategory == session.CategoryPerception:
		if isVerification(tc, name) && total-index <= verifyWindow {
			return session.PhaseVerify
		}
		return session.PhaseExplore
	case tc.ToolCategory == session.CategoryAction:
		return session.PhaseExecute
	default:
		return session.PhaseMixed
	}
}

func isVerification(tc *session.ToolCall, lowerName string) bool {
	for _, kw := range []string{"tsc", "test", "check"} {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	desc := tc.Input.Description
	return strings.Contains(desc, "验证") || strings.Contains(desc, "检查")
}
