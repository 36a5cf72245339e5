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

	pkgerrors "agent-studio/pkg/errors"
)

// Parse 解析会话 JSON，不做结构校验（校验见 Validate）
func Parse(data []byte) (*AgentSession, error) {
	var s AgentSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: 解析会话 JSON 失败: %v", pkgerrors.ErrInvalidArg, err)
	}
	if s.ToolCalls == nil {
		s.ToolCalls = []ToolCall{}
	}
	return &s, nil
}

// ListItem 会话列表摘要
type ListItem struct {
	SessionID     string        `json:"session_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Status        SessionStatus `json:"status"`
	CreatedAt     string        `json:"created_at"`
	ToolCallCount int           `json:"tool_call_count"`
	ToolNames     []string      `json:"tool_names"`
	HasPhases     bool          `json:"has_phases"`
	Annotated     bool          `json:"annotated"`
}

// Item 投影出列表摘要；ToolNames 按首次出现顺序去重
func (s *AgentSession) Item() ListItem {
	seen := make(map[string]struct{}, len(s.ToolCalls))
	names := make([]string, 0)
	for i := range s.ToolCalls {
		n := s.ToolCalls[i].ToolName
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return ListItem{
		SessionID:     s.SessionID,
		Name:          s.TaskTitle,
		Description:   s.TaskDescription,
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
		ToolCallCount: len(s.ToolCalls),
		ToolNames:     names,
		HasPhases:     len(s.Phases) > 0,
		Annotated:     len(s.PhaseAnnotations) > 0,
	}
}
