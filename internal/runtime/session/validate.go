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

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "agent-studio/pkg/errors"
)

// FieldError 单个字段的校验问题
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 导入校验失败，收集全部问题而非遇错即停
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "会话校验失败: " + strings.Join(parts, "; ")
}

// Unwrap 使 errors.Is(err, ErrInvalidArg) 成立
func (e *ValidationError) Unwrap() error {
	return pkgerrors.ErrInvalidArg
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// Validate 校验导入的会话 JSON 结构，通过后返回解析结果
func Validate(raw []byte) (*AgentSession, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "file", Message: fmt.Sprintf("JSON 解析失败: %v", err)}}}
	}
	if obj == nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "root", Message: "无效的 JSON 对象"}}}
	}

	verr := &ValidationError{}
	requireString(verr, obj, "session_id", "session_id 必填且必须是字符串")
	requireString(verr, obj, "task_title", "task_title 必填")
	requireString(verr, obj, "created_at", "created_at 必填")

	if _, ok := obj["tool_calls"].([]any); !ok {
		verr.add("tool_calls", "tool_calls 必须是数组")
	}
	if v, present := obj["summary"]; present {
		if _, ok := v.(map[string]any); !ok {
			verr.add("summary", "summary 必须是对象")
		}
	}

	if v, present := obj["phases"]; present && v != nil {
		phases, ok := v.([]any)
		if !ok {
			verr.add("phases", "phases 必须是数组")
		} else {
			for i, p := range phases {
				validatePhase(verr, p, i)
			}
		}
	}

	if v, present := obj["phase_annotations"]; present && v != nil {
		anns, ok := v.([]any)
		if !ok {
			verr.add("phase_annotations", "phase_annotations 必须是数组")
		} else {
			for i, a := range anns {
				validateAnnotation(verr, a, i)
			}
		}
	}

	if len(verr.Errors) > 0 {
		return nil, verr
	}

	s, err := Parse(raw)
	if err != nil {
		// 结构通过但字段类型不符，例如 duration_ms 为字符串
		return nil, &ValidationError{Errors: []FieldError{{Field: "root", Message: err.Error()}}}
	}
	return s, nil
}

func requireString(verr *ValidationError, obj map[string]any, key, msg string) {
	if v, ok := obj[key].(string); !ok || v == "" {
		verr.add(key, msg)
	}
}

func validatePhase(verr *ValidationError, v any, index int) {
	prefix := fmt.Sprintf("phases[%d]", index)
	p, ok := v.(map[string]any)
	if !ok {
		verr.add(prefix, "阶段必须是对象")
		return
	}
	if id, ok := p["phase_id"].(string); !ok || id == "" {
		verr.add(prefix+".phase_id", "phase_id 必填")
	}
	if pt, _ := p["phase_type"].(string); !PhaseType(pt).Canonical() {
		verr.add(prefix+".phase_type", fmt.Sprintf("phase_type 必须是以下之一: %s", joinPhaseTypes(canonicalPhaseTypes)))
	}
	if st, _ := p["status"].(string); !PhaseStatus(st).Known() {
		verr.add(prefix+".status", "status 必须是 pending/running/success/failed/skipped 之一")
	}
	if ids, present := p["tool_call_ids"]; present && ids != nil {
		if _, ok := ids.([]any); !ok {
			verr.add(prefix+".tool_call_ids", "tool_call_ids 必须是数组")
		}
	}
	for _, key := range []string{"context_used", "decisions"} {
		if x, present := p[key]; present && x != nil {
			if _, ok := x.([]any); !ok {
				verr.add(prefix+"."+key, key+" 必须是数组")
			}
		}
	}
}

func validateAnnotation(verr *ValidationError, v any, index int) {
	prefix := fmt.Sprintf("phase_annotations[%d]", index)
	a, ok := v.(map[string]any)
	if !ok {
		verr.add(prefix, "标注必须是对象")
		return
	}
	if id, ok := a["annotation_id"].(string); !ok || id == "" {
		verr.add(prefix+".annotation_id", "annotation_id 必填")
	}
	if pt, _ := a["phase_type"].(string); !PhaseType(pt).Known() {
		verr.add(prefix+".phase_type", "phase_type 无效")
	}
	r, ok := a["tool_call_range"].(map[string]any)
	if !ok {
		verr.add(prefix+".tool_call_range", "tool_call_range 必填且必须是对象")
		return
	}
	for _, key := range []string{"start_call_id", "end_call_id"} {
		if id, ok := r[key].(string); !ok || id == "" {
			verr.add(prefix+".tool_call_range."+key, key+" 必填")
		}
	}
}

var canonicalPhaseTypes = []PhaseType{PhaseUnderstand, PhaseExplore, PhasePlan, PhaseExecute, PhaseVerify}

func joinPhaseTypes(ts []PhaseType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
