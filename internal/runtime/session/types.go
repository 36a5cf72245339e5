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

// Package session 定义 Agent 执行会话日志的数据模型
//
// tool_calls 是第一公民（真实执行流），phase_annotations 是可选的事后标注，
// phases 为 v2 旧格式兼容字段。
package session

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionSuccess    SessionStatus = "success"
	SessionFailed     SessionStatus = "failed"
	SessionInProgress SessionStatus = "in_progress"
)

// Known 是否为已知会话状态
func (s SessionStatus) Known() bool {
	switch s {
	case SessionSuccess, SessionFailed, SessionInProgress:
		return true
	}
	return false
}

// PhaseStatus 旧版阶段状态
type PhaseStatus string

const (
	PhasePending PhaseStatus = "pending"
	PhaseRunning PhaseStatus = "running"
	PhaseSuccess PhaseStatus = "success"
	PhaseFailed  PhaseStatus = "failed"
	PhaseSkipped PhaseStatus = "skipped"
)

// Known 是否为已知阶段状态
func (s PhaseStatus) Known() bool {
	switch s {
	case PhasePending, PhaseRunning, PhaseSuccess, PhaseFailed, PhaseSkipped:
		return true
	}
	return false
}

// PhaseType 五阶段分析框架（事后标注，不是执行约束）外加 mixed / unclassified
type PhaseType string

const (
	PhaseUnderstand   PhaseType = "understand"
	PhaseExplore      PhaseType = "explore"
	PhasePlan         PhaseType = "plan"
	PhaseExecute      PhaseType = "execute"
	PhaseVerify       PhaseType = "verify"
	PhaseMixed        PhaseType = "mixed"
	PhaseUnclassified PhaseType = "unclassified"
)

// Known 是否为七个已知阶段类型之一
func (p PhaseType) Known() bool {
	switch p {
	case PhaseUnderstand, PhaseExplore, PhasePlan, PhaseExecute, PhaseVerify, PhaseMixed, PhaseUnclassified:
		return true
	}
	return false
}

// Canonical 是否属于五个规范阶段（导入校验只接受这五个）
func (p PhaseType) Canonical() bool {
	switch p {
	case PhaseUnderstand, PhaseExplore, PhasePlan, PhaseExecute, PhaseVerify:
		return true
	}
	return false
}

// Confidence 标注置信度
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Known 是否为已知置信度
func (c Confidence) Known() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// AnnotationSource 标注来源
type AnnotationSource string

const (
	AnnotatedByAgent AnnotationSource = "agent"
	AnnotatedByHuman AnnotationSource = "human"
	AnnotatedByAuto  AnnotationSource = "auto"
)

// ToolCategory 工具类别
type ToolCategory string

const (
	CategoryPerception     ToolCategory = "perception"      // Read, Glob, Grep, LSP
	CategoryAction         ToolCategory = "action"          // Write, Edit, Bash
	CategoryInteraction    ToolCategory = "interaction"     // Task, AskUserQuestion
	CategoryPlanning       ToolCategory = "planning"        // EnterPlanMode, ExitPlanMode
	CategoryTaskManagement ToolCategory = "task_management" // TaskCreate, TaskUpdate
)

// Known 是否为已知工具类别
func (c ToolCategory) Known() bool {
	switch c {
	case CategoryPerception, CategoryAction, CategoryInteraction, CategoryPlanning, CategoryTaskManagement:
		return true
	}
	return false
}

// ContextType 上下文引用类型；引用中的 type 允许任意字符串，这里只列已知值
type ContextType string

const (
	ContextClaudeMD    ContextType = "claude_md"
	ContextRule        ContextType = "rule"
	ContextStandard    ContextType = "standard"
	ContextSkill       ContextType = "skill"
	ContextSpec        ContextType = "spec"
	ContextFile        ContextType = "file"
	ContextUserMessage ContextType = "user_message"
	ContextToolResult  ContextType = "tool_result"
	ContextCapability  ContextType = "capability"
)

// Known 是否为已知上下文类型
func (t ContextType) Known() bool {
	switch t {
	case ContextClaudeMD, ContextRule, ContextStandard, ContextSkill, ContextSpec,
		ContextFile, ContextUserMessage, ContextToolResult, ContextCapability:
		return true
	}
	return false
}

// UsageMode 上下文使用方式
type UsageMode string

const (
	UsageRead             UsageMode = "read"
	UsageModified         UsageMode = "modified"
	UsageReadThenModified UsageMode = "read_then_modified"
)

// Known 是否为已知使用方式
func (m UsageMode) Known() bool {
	switch m {
	case UsageRead, UsageModified, UsageReadThenModified:
		return true
	}
	return false
}

// CallStatus 工具调用结果状态
type CallStatus string

const (
	CallSuccess CallStatus = "success"
	CallFailed  CallStatus = "failed"
)

// ContextReference 上下文引用
type ContextReference struct {
	Type          ContextType `json:"type"`
	Source        string      `json:"source"`
	Relevance     string      `json:"relevance,omitempty"`
	Summary       string      `json:"summary,omitempty"`
	QuotedContent string      `json:"quoted_content,omitempty"`
	UsageMode     UsageMode   `json:"usage_mode,omitempty"`
}

// Decision 决策记录
type Decision struct {
	DecisionID             string   `json:"decision_id"`
	Type                   string   `json:"type"`
	Description            string   `json:"description"`
	Reasoning              string   `json:"reasoning,omitempty"`
	AlternativesConsidered []string `json:"alternatives_considered,omitempty"`
}

// ToolUsage 子代理按工具统计
type ToolUsage struct {
	ToolName string `json:"tool_name"`
	Count    int    `json:"count"`
}

// SubagentInfo 子代理统计信息（Task 工具）
type SubagentInfo struct {
	SubagentType   string      `json:"subagent_type"`
	ToolUses       int         `json:"tool_uses"`
	TokensUsed     int64       `json:"tokens_used,omitempty"`
	ToolsBreakdown []ToolUsage `json:"tools_breakdown,omitempty"`
}

// ToolInput 工具调用输入
type ToolInput struct {
	Params      map[string]any `json:"params"`
	Description string         `json:"description,omitempty"`
	RawCommand  string         `json:"raw_command,omitempty"`
}

// ToolOutput 工具调用输出
type ToolOutput struct {
	Status    CallStatus     `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

// ContextContribution 本次调用为工作上下文增加的内容
type ContextContribution struct {
	Type        string `json:"type"`
	Summary     string `json:"summary"`
	FullContent string `json:"full_content,omitempty"`
}

// ToolCall 工具调用记录，入库后不再修改
type ToolCall struct {
	CallID       string       `json:"call_id"`
	ToolName     string       `json:"tool_name"`
	ToolCategory ToolCategory `json:"tool_category"`

	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at"`
	DurationMs int64  `json:"duration_ms"`

	Input  ToolInput  `json:"input"`
	Output ToolOutput `json:"output"`

	ContextContribution *ContextContribution `json:"context_contribution,omitempty"`
	SubagentInfo        *SubagentInfo        `json:"subagent_info,omitempty"`
}

// Failed 调用是否失败
func (tc *ToolCall) Failed() bool {
	return tc.Output.Status == CallFailed
}

// StringParam 读取字符串类型的输入参数
func (tc *ToolCall) StringParam(key string) (string, bool) {
	if tc.Input.Params == nil {
		return "", false
	}
	v, ok := tc.Input.Params[key].(string)
	return v, ok
}

// CallRange 标注覆盖的工具调用范围（首尾 call_id，含两端）
type CallRange struct {
	StartCallID string `json:"start_call_id"`
	EndCallID   string `json:"end_call_id"`
}

// PhaseAnnotation 阶段标注（v3 格式）
type PhaseAnnotation struct {
	AnnotationID  string             `json:"annotation_id"`
	PhaseType     PhaseType          `json:"phase_type"`
	ToolCallRange CallRange          `json:"tool_call_range"`
	AnnotatedBy   AnnotationSource   `json:"annotated_by"`
	AnnotatedAt   string             `json:"annotated_at"`
	Confidence    Confidence         `json:"confidence"`
	Description   string             `json:"description,omitempty"`
	Decisions     []Decision         `json:"decisions,omitempty"`
	ContextUsed   []ContextReference `json:"context_used,omitempty"`
}

// LoopInfo 循环执行信息（v2 兼容）
type LoopInfo struct {
	AttemptNumber     int    `json:"attempt_number"`
	MaxAttempts       int    `json:"max_attempts"`
	IsRetry           bool   `json:"is_retry"`
	PreviousAttemptID string `json:"previous_attempt_id,omitempty"`
}

// ConsideredFile 探索时考虑过的文件
type ConsideredFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Used   bool   `json:"used"`
}

// FileExplorationRecord 文件探索记录（v2 兼容）
type FileExplorationRecord struct {
	FilesConsidered    []ConsideredFile `json:"files_considered"`
	SelectionReasoning string           `json:"selection_reasoning"`
}

// LegacyPhase 旧版执行阶段（v2 格式），阶段本身即记录单元
type LegacyPhase struct {
	PhaseID           string                 `json:"phase_id"`
	PhaseType         PhaseType              `json:"phase_type"`
	Status            PhaseStatus            `json:"status"`
	StartedAt         string                 `json:"started_at"`
	EndedAt           string                 `json:"ended_at"`
	DurationMs        int64                  `json:"duration_ms"`
	Input             map[string]any         `json:"input,omitempty"`
	Output            map[string]any         `json:"output,omitempty"`
	ToolCallIDs       []string               `json:"tool_call_ids"`
	ContextUsed       []ContextReference     `json:"context_used"`
	Decisions         []Decision             `json:"decisions"`
	LoopInfo          *LoopInfo              `json:"loop_info,omitempty"`
	ExplorationRecord *FileExplorationRecord `json:"exploration_record,omitempty"`
}

// AgentInfo Agent 信息
type AgentInfo struct {
	ModelID            string `json:"model_id"`
	CapabilitySnapshot string `json:"capability_snapshot,omitempty"`
}

// Summary 会话摘要
type Summary struct {
	TotalDurationMs   int64    `json:"total_duration_ms"`
	ToolCallsCount    int      `json:"tool_calls_count"`
	FilesCreated      []string `json:"files_created"`
	FilesModified     []string `json:"files_modified"`
	ErrorsEncountered int      `json:"errors_encountered,omitempty"`
}

// AgentSession 一次完整的 Agent 执行会话
//
// PhaseAnnotations 与 Phases 为 nil 表示字段缺失；JSON 中的空数组解码为非 nil 空切片。
type AgentSession struct {
	SessionID       string        `json:"session_id"`
	TaskTitle       string        `json:"task_title"`
	TaskDescription string        `json:"task_description,omitempty"`
	UserPrompt      string        `json:"user_prompt"`
	CreatedAt       string        `json:"created_at"`
	CompletedAt     string        `json:"completed_at,omitempty"`
	UpdatedAt       string        `json:"updated_at,omitempty"`
	Status          SessionStatus `json:"status"`
	Agent           AgentInfo     `json:"agent"`

	ToolCalls        []ToolCall        `json:"tool_calls"`
	PhaseAnnotations []PhaseAnnotation `json:"phase_annotations,omitempty"`
	Summary          Summary           `json:"summary"`

	// Deprecated: 使用 PhaseAnnotations
	Phases []LegacyPhase `json:"phases,omitempty"`
}

// IsLegacy 是否为 v2 旧格式会话：有 phases 且没有 phase_annotations 字段
func (s *AgentSession) IsLegacy() bool {
	return len(s.Phases) > 0 && s.PhaseAnnotations == nil
}
