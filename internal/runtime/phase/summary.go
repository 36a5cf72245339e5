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

import "agent-studio/internal/runtime/session"

// PhaseSummary 按阶段类型汇总的统计
type PhaseSummary struct {
	PhaseType  session.PhaseType `json:"phase_type"`
	Label      string            `json:"label"`
	Color      string            `json:"color"`
	Groups     int               `json:"groups"`
	ToolCount  int               `json:"tool_count"`
	DurationMs int64             `json:"duration_ms"`
	HasErrors  bool              `json:"has_errors"`
}

// Summarize 汇总分组：先按规范五阶段顺序，再 mixed、unclassified，其余未知类型按首次出现顺序
func Summarize(groups []Group) []PhaseSummary {
	byType := make(map[session.PhaseType]*PhaseSummary)
	unknown := make([]session.PhaseType, 0)
	for i := range groups {
		g := &groups[i]
		ps, ok := byType[g.PhaseType]
		if !ok {
			ps = &PhaseSummary{PhaseType: g.PhaseType, Label: Label(g.PhaseType), Color: Color(g.PhaseType)}
			byType[g.PhaseType] = ps
			if !g.PhaseType.Known() {
				unknown = append(unknown, g.PhaseType)
			}
		}
		ps.Groups++
		ps.ToolCount += g.ToolCount
		ps.DurationMs += g.DurationMs
		ps.HasErrors = ps.HasErrors || g.HasErrors
	}

	order := append(PhaseOrder(), session.PhaseMixed, session.PhaseUnclassified)
	order = append(order, unknown...)
	out := make([]PhaseSummary, 0, len(byType))
	for _, t := range order {
		if ps, ok := byType[t]; ok {
			out = append(out, *ps)
		}
	}
	return out
}
