package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cubedash_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cubedash_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cubedash_empty_results_total",
		Help: "Total number of responses with nothing to render",
	}, []string{"route"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cubedash_cache_hits_total",
		Help: "Total summary cache hits by query",
	}, []string{"query"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cubedash_cache_misses_total",
		Help: "Total summary cache misses by query",
	}, []string{"query"})
	ComputeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cubedash_compute_duration_ms",
		Help:    "Duration of cache-miss computations in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"query"})
	ReprojectDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cubedash_footprint_reproject_duration_ms",
		Help:    "Footprint reprojection duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	RegionGenDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cubedash_region_gen_duration_ms",
		Help:    "Region clipping and assembly duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ComputeDurationMs)
	prometheus.MustRegister(ReprojectDurationMs)
	prometheus.MustRegister(RegionGenDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
