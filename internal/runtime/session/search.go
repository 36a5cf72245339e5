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
	"regexp"
	"sort"
	"strings"
)

// Query 解析后的会话搜索条件
type Query struct {
	Keywords     []string
	ExactPhrases []string
	ToolFilter   string
	StatusFilter string
}

// Empty 是否没有任何条件
func (q Query) Empty() bool {
	return len(q.Keywords) == 0 && len(q.ExactPhrases) == 0 && q.ToolFilter == "" && q.StatusFilter == ""
}

var (
	phraseRe = regexp.MustCompile(`"([^"]+)"`)
	toolRe   = regexp.MustCompile(`(?i)tool:(\S+)`)
	statusRe = regexp.MustCompile(`(?i)status:(\S+)`)
)

// ParseQuery 解析搜索串：支持 "精确短语"、tool:<name>、status:<status>，其余为关键词
func ParseQuery(q string) Query {
	var out Query
	for _, m := range phraseRe.FindAllStringSubmatch(q, -1) {
		out.ExactPhrases = append(out.ExactPhrases, strings.ToLower(m[1]))
	}
	rest := phraseRe.ReplaceAllString(q, "")

	if m := toolRe.FindStringSubmatchIndex(rest); m != nil {
		out.ToolFilter = strings.ToLower(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := statusRe.FindStringSubmatchIndex(rest); m != nil {
		out.StatusFilter = strings.ToLower(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}

	for _, k := range strings.Fields(rest) {
		out.Keywords = append(out.Keywords, strings.ToLower(k))
	}
	return out
}

// Match 判断列表项是否满足全部条件（关键词之间为 AND）
func Match(item ListItem, q Query) bool {
	name := strings.ToLower(item.Name)
	desc := strings.ToLower(item.Description)
	id := strings.ToLower(item.SessionID)

	for _, p := range q.ExactPhrases {
		if !strings.Contains(name, p) && !strings.Contains(desc, p) {
			return false
		}
	}
	if q.StatusFilter != "" && strings.ToLower(string(item.Status)) != q.StatusFilter {
		return false
	}
	if q.ToolFilter != "" {
		found := false
		for _, t := range item.ToolNames {
			if strings.Contains(strings.ToLower(t), q.ToolFilter) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, k := range q.Keywords {
		if !strings.Contains(name, k) && !strings.Contains(desc, k) && !strings.Contains(id, k) {
			return false
		}
	}
	return true
}

// Filter 返回满足条件的列表项，保持原顺序
func Filter(items []ListItem, q Query) []ListItem {
	out := make([]ListItem, 0, len(items))
	for _, it := range items {
		if Match(it, q) {
			out = append(out, it)
		}
	}
	return out
}

// 排序字段与方向
const (
	SortByName      = "name"
	SortBySessionID = "session_id"
	SortByStatus    = "status"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortItems 原地稳定排序；未知字段按 session_id，未知方向按 desc
func SortItems(items []ListItem, field, dir string) {
	key := func(it ListItem) string {
		switch field {
		case SortByName:
			return it.Name
		case SortByStatus:
			return string(it.Status)
		default:
			return it.SessionID
		}
	}
	asc := dir == SortAsc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if asc {
			return a < b
		}
		return a > b
	})
}
