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

// Segment 工具调用流中连续、被同一标注覆盖（或均未覆盖）的一段
type Segment struct {
	Annotation *session.PhaseAnnotation `json:"annotation,omitempty"`
	PhaseType  session.PhaseType        `json:"phase_type"`
	Label      string                   `json:"label"`
	Color      string                   `json:"color"`
	ToolCalls  []*session.ToolCall      `json:"tool_calls"`
}

// FlowSegments 按覆盖标注把调用序列切成连续段
//
// 起止 id 任一无法解析的标注不覆盖任何调用；重叠时后出现的标注生效。
func FlowSegments(calls []session.ToolCall, anns []session.PhaseAnnotation) []Segment {
	cover := make([]*session.PhaseAnnotation, len(calls))
	index := callIndex(calls)
	for i := range anns {
		ann := &anns[i]
		start, ok1 := index[ann.ToolCallRange.StartCallID]
		end, ok2 := index[ann.ToolCallRange.EndCallID]
		if !ok1 || !ok2 {
			continue
		}
		for j := start; j <= end; j++ {
			cover[j] = ann
		}
	}

	segs := make([]Segment, 0)
	for i := range calls {
		ann := cover[i]
		if n := len(segs); n > 0 && segs[n-1].Annotation == ann {
			segs[n-1].ToolCalls = append(segs[n-1].ToolCalls, &calls[i])
			continue
		}
		pt := session.PhaseUnclassified
		if ann != nil {
			pt = ann.PhaseType
		}
		segs = append(segs, Segment{
			Annotation: ann,
			PhaseType:  pt,
			Label:      Label(pt),
			Color:      Color(pt),
			ToolCalls:  []*session.ToolCall{&calls[i]},
		})
	}
	return segs
}
