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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Worker 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		PhaseGroupingTotal, PhaseGroupingDuration,
		PhaseGroupCacheTotal,
		SessionsLoaded, SessionLoadErrorsTotal,
		HTTPRequestsTotal,
	)
}

// PhaseGroupingTotal 阶段分组次数（按策略来源）
var PhaseGroupingTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_phase_grouping_total",
		Help: "阶段分组次数（按策略来源）",
	},
	[]string{"source"}, // phases | annotations | auto
)

// PhaseGroupingDuration 阶段分组耗时（秒）
var PhaseGroupingDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "studio_phase_grouping_duration_seconds",
		Help:    "阶段分组耗时（秒）",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	},
	[]string{"source"},
)

// PhaseGroupCacheTotal 分组缓存命中情况
var PhaseGroupCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_phase_group_cache_total",
		Help: "阶段分组缓存访问次数",
	},
	[]string{"result"}, // hit | miss
)

// SessionsLoaded 当前存储中的会话数
var SessionsLoaded = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "studio_sessions_loaded",
		Help: "当前已加载的会话数",
	},
)

// SessionLoadErrorsTotal 会话文件加载/校验失败数
var SessionLoadErrorsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "studio_session_load_errors_total",
		Help: "会话文件加载或校验失败总数",
	},
)

// HTTPRequestsTotal API 请求数（按路由与状态码）
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studio_http_requests_total",
		Help: "API 请求总数",
	},
	[]string{"route", "code"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
