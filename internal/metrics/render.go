package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	renderRegisterOnce sync.Once

	renderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "服务端渲染总次数，按结果分类。",
		},
		[]string{"outcome"},
	)

	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "magicyan",
			Subsystem: "render",
			Name:      "render_duration_seconds",
			Help:      "单次服务端渲染耗时分布（秒）。",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90},
		},
	)

	probeVerdict = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "render",
			Name:      "probe_verdicts_total",
			Help:      "渲染通道可用性探测结论总数。",
		},
		[]string{"verdict"},
	)
)

func registerRenderMetrics() {
	renderRegisterOnce.Do(func() {
		prometheus.MustRegister(renderTotal, renderDuration, probeVerdict)
	})
}

// ObserveRender 记录一次服务端渲染的结果与耗时。
// outcome 取 success、failure 或 fallback。
func ObserveRender(outcome string, elapsed time.Duration) {
	registerRenderMetrics()
	renderTotal.WithLabelValues(outcome).Inc()
	renderDuration.Observe(elapsed.Seconds())
}

// ObserveProbe 记录一次可用性探测结论。
func ObserveProbe(available bool) {
	registerRenderMetrics()
	verdict := "unavailable"
	if available {
		verdict = "available"
	}
	probeVerdict.WithLabelValues(verdict).Inc()
}
