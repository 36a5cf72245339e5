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
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
)

func apiBaseURL() string {
	if u := os.Getenv("STUDIO_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
}

type listResponse struct {
	Sessions []session.ListItem `json:"sessions"`
	Total    int                `json:"total"`
}

func listSessions(baseURL, query string) (*listResponse, error) {
	var out listResponse
	req := newClient(baseURL).R().SetResult(&out)
	if query != "" {
		req.SetQueryParam("q", query)
	}
	resp, err := req.Get("/api/v1/sessions")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/v1/sessions: %s", resp.String())
	}
	return &out, nil
}

func getPhaseGroups(baseURL, sessionID string) (*phase.Result, error) {
	var out phase.Result
	resp, err := newClient(baseURL).R().
		SetResult(&out).
		Get("/api/v1/sessions/" + url.PathEscape(sessionID) + "/phase-groups")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET phase-groups %s: %s", sessionID, resp.String())
	}
	return &out, nil
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [query]",
		Short: "列出服务端会话",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("api")
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			out, err := listSessions(base, query)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Session", "Title", "Status", "Tools", "Created"})
			for _, it := range out.Sessions {
				table.Append([]string{it.SessionID, it.Name, string(it.Status), strconv.Itoa(it.ToolCallCount), it.CreatedAt})
			}
			table.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "共 %d 条\n", out.Total)
			return nil
		},
	}
}

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups <session_id>",
		Short: "查询服务端会话的阶段分组",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("api")
			output, _ := cmd.Flags().GetString("output")
			res, err := getPhaseGroups(base, args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), output, *res)
		},
	}
	cmd.Flags().StringP("output", "o", outputTable, "输出格式: table|json|yaml")
	return cmd
}
