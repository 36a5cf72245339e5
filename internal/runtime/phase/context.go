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
	"strings"

	"agent-studio/internal/runtime/session"
)

// pathParams 按顺序查找的文件路径参数名
var pathParams = [...]string{"file_path", "notebook_path"}

// ExtractContext 从一组工具调用中提取去重后的上下文引用，保持首次出现顺序
//
// perception 调用记为 read；action 调用记为 modified；
// 已出现过的路径再被 action 调用时一律升级为 read_then_modified。
func ExtractContext(calls []*session.ToolCall) []session.ContextReference {
	order := make([]string, 0)
	refs := make(map[string]*session.ContextReference)

	for _, tc := range calls {
		var relevance string
		var mode session.UsageMode
		switch tc.ToolCategory {
		case session.CategoryPerception:
			relevance, mode = "medium", session.UsageRead
		case session.CategoryAction:
			relevance, mode = "high", session.UsageModified
		default:
			continue
		}

		path := filePath(tc)
		if path == "" {
			continue
		}
		if existing, seen := refs[path]; seen {
			if mode == session.UsageModified {
				existing.UsageMode = session.UsageReadThenModified
			}
			continue
		}
		refs[path] = &session.ContextReference{
			Type:      InferContextType(path),
			Source:    path,
			Relevance: relevance,
			UsageMode: mode,
		}
		order = append(order, path)
	}

	out := make([]session.ContextReference, 0, len(order))
	for _, p := range order {
		out = append(out, *refs[p])
	}
	return out
}

func filePath(tc *session.ToolCall) string {
	for _, key := range pathParams {
		if v, ok := tc.StringParam(key); ok && v != "" {
			return v
		}
	}
	return ""
}

type typeRule struct {
	needles []string
	typ     session.ContextType
}

// contextTypeRules 按优先级排列，先匹配者生效
var contextTypeRules = []typeRule{
	{[]string{"claude.md"}, session.ContextClaudeMD},
	{[]string{"/rules/", `\rules\`}, session.ContextRule},
	{[]string{"/standards/", `\standards\`}, session.ContextStandard},
	{[]string{"/skills/", `\skills\`}, session.ContextSkill},
	{[]string{"/specs/", `\specs\`}, session.ContextSpec},
	{[]string{"capability"}, session.ContextCapability},
}

// InferContextType 根据路径粗略推断上下文类型，大小写不敏感
func InferContextType(path string) session.ContextType {
	lower := strings.ToLower(path)
	for _, r := range contextTypeRules {
		for _, n := range r.needles {
			if strings.Contains(lower, n) {
				return r.typ
			}
		}
	}
	return session.ContextFile
}
