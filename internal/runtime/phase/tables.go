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

// Style 展示用颜色与标签
type Style struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// UsageStyle 使用方式的展示样式
type UsageStyle struct {
	Color   string `json:"color"`
	BgColor string `json:"bg_color"`
	Label   string `json:"label"`
}

// 以下查表均为只读静态配置，通过函数访问

// Label 阶段显示名；未知类型原样返回
func Label(t session.PhaseType) string {
	switch t {
	case session.PhaseUnderstand:
		return "理解"
	case session.PhaseExplore:
		return "探索"
	case session.PhasePlan:
		return "规划"
	case session.PhaseExecute:
		return "执行"
	case session.PhaseVerify:
		return "验证"
	case session.PhaseMixed:
		return "混合"
	case session.PhaseUnclassified:
		return "未标注"
	default:
		return string(t)
	}
}

// Color 阶段颜色；未知类型使用 unclassified 的颜色
func Color(t session.PhaseType) string {
	switch t {
	case session.PhaseUnderstand:
		return "#8b5cf6"
	case session.PhaseExplore:
		return "#3b82f6"
	case session.PhasePlan:
		return "#22c55e"
	case session.PhaseExecute:
		return "#f97316"
	case session.PhaseVerify:
		return "#ec4899"
	case session.PhaseMixed:
		return "#6b7280"
	default:
		return "#4b5563"
	}
}

// PhaseOrder 五阶段规范顺序，每次返回新切片
func PhaseOrder() []session.PhaseType {
	return []session.PhaseType{
		session.PhaseUnderstand,
		session.PhaseExplore,
		session.PhasePlan,
		session.PhaseExecute,
		session.PhaseVerify,
	}
}

// CategoryInfo 工具类别样式
func CategoryInfo(c session.ToolCategory) Style {
	switch c {
	case session.CategoryPerception:
		return Style{Color: "#3b82f6", Label: "感知"}
	case session.CategoryAction:
		return Style{Color: "#f97316", Label: "行动"}
	case session.CategoryInteraction:
		return Style{Color: "#a855f7", Label: "交互"}
	case session.CategoryPlanning:
		return Style{Color: "#22c55e", Label: "规划"}
	case session.CategoryTaskManagement:
		return Style{Color: "#6b7280", Label: "任务管理"}
	default:
		return Style{Color: "#8b949e", Label: string(c)}
	}
}

// ContextTypeInfo 上下文类型样式；未知类型按 file 处理
func ContextTypeInfo(t session.ContextType) Style {
	switch t {
	case session.ContextClaudeMD:
		return Style{Color: "#f97316", Label: "CLAUDE.md"}
	case session.ContextRule:
		return Style{Color: "#3b82f6", Label: "规则"}
	case session.ContextStandard:
		return Style{Color: "#22c55e", Label: "标准"}
	case session.ContextSkill:
		return Style{Color: "#f97316", Label: "技能"}
	case session.ContextSpec:
		return Style{Color: "#a855f7", Label: "规格"}
	case session.ContextUserMessage:
		return Style{Color: "#58a6ff", Label: "用户消息"}
	case session.ContextToolResult:
		return Style{Color: "#6b7280", Label: "工具结果"}
	case session.ContextCapability:
		return Style{Color: "#ec4899", Label: "能力"}
	default:
		return Style{Color: "#8b949e", Label: "文件"}
	}
}

// UsageModeInfo 上下文使用方式样式；未知值按 read 处理
func UsageModeInfo(m session.UsageMode) UsageStyle {
	switch m {
	case session.UsageModified:
		return UsageStyle{Color: "#92400e", BgColor: "#fef3c7", Label: "已修改"}
	case session.UsageReadThenModified:
		return UsageStyle{Color: "#166534", BgColor: "#dcfce7", Label: "读取并修改"}
	default:
		return UsageStyle{Color: "#0369a1", BgColor: "#e0f2fe", Label: "仅读取"}
	}
}
