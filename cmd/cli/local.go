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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group <file>",
		Short: "离线对会话文件做阶段分组",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			s, err := readSession(args[0])
			if err != nil {
				return err
			}
			res := phase.Result{
				SessionID: s.SessionID,
				Source:    phase.DetectSource(s),
				Groups:    phase.GetPhaseGroups(s),
			}
			return writeResult(cmd.OutOrStdout(), output, res)
		},
	}
	cmd.Flags().StringP("output", "o", outputTable, "输出格式: table|json|yaml")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "校验会话文件能否导入",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取文件失败: %w", err)
			}
			out := cmd.OutOrStdout()
			s, err := session.Validate(data)
			var verr *session.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(out, "%s: 无效 (%d 处错误)\n", args[0], len(verr.Errors))
				for _, fe := range verr.Errors {
					fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
				}
				return errors.New("校验未通过")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: 有效 (session_id=%s, tool_calls=%d)\n", args[0], s.SessionID, len(s.ToolCalls))
			return nil
		},
	}
}

func readSession(path string) (*session.AgentSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return session.Validate(data)
}

func writeResult(w io.Writer, format string, res phase.Result) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		// 先经 JSON 转成通用结构，沿用 json 标签里的字段名
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		var generic map[string]interface{}
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case outputTable, "":
		fmt.Fprintf(w, "session: %s  source: %s\n", res.SessionID, res.Source)
		renderGroups(w, res.Groups)
		return nil
	default:
		return fmt.Errorf("不支持的输出格式: %s", format)
	}
}

func renderGroups(w io.Writer, groups []phase.Group) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Phase", "Tools", "Duration(ms)", "Errors", "Source"})
	for i, g := range groups {
		errMark := ""
		if g.HasErrors {
			errMark = "yes"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			g.Label,
			strconv.Itoa(g.ToolCount),
			strconv.FormatInt(g.DurationMs, 10),
			errMark,
			string(g.Source),
		})
	}
	table.Render()
}
