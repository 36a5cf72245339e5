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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agent-studio/internal/mcp"
	"agent-studio/pkg/log"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "以 MCP stdio 服务运行",
		Long: `在 stdin/stdout 上提供 MCP (Model Context Protocol) 服务，工具包括：

  session_phase_groups  - 返回会话阶段分组
  session_validate      - 校验会话文件
  session_list          - 列出已加载的会话

日志写到 stderr，stdout 只承载协议消息。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server, err := mcp.NewServer(ctx, &mcp.Config{
				Name:    "studio",
				Version: version,
				Dir:     dir,
				Logger:  log.NewWithWriter(os.Stderr, "info", "text"),
			})
			if err != nil {
				return fmt.Errorf("创建 MCP 服务失败: %w", err)
			}
			defer server.Close()

			if err := server.Run(ctx); err != nil {
				return fmt.Errorf("MCP 服务异常: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "", "启动时加载的会话目录")
	return cmd
}
