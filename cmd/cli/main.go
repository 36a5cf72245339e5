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

// studio 命令行：离线分组、导入校验、远程查询与 MCP 服务
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "studio",
		Short: "Agent session phase grouping toolkit",
		Long: `studio 把 Agent 会话日志中的工具调用整理为阶段分组。

离线命令直接读取会话 JSON 文件；sessions/groups 通过 HTTP API 查询
（地址取 --api 或环境变量 STUDIO_API_URL）。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("api", apiBaseURL(), "API 服务地址")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGroupCmd(),
		newValidateCmd(),
		newSessionsCmd(),
		newGroupsCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "studio version %s\n", version)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "以 JSON 输出")
	return cmd
}
