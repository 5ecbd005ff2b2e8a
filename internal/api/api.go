// 包 api：集中注册 HTTP API 路由，便于在主入口挂载到 API_BASE 前缀
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cubedash/internal/logger"
	"cubedash/internal/metrics"
	"cubedash/internal/model"
	"cubedash/internal/summary"

	json "github.com/goccy/go-json"
)

var errBadRequest = errors.New("bad request")

// timeSpecFrom：从路径参数解析时间分桶；未出现的层级保持为空
func timeSpecFrom(r *http.Request) (summary.TimeSpec, error) {
	var t summary.TimeSpec
	parse := func(name string) (*int, error) {
		s := r.PathValue(name)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errBadRequest
		}
		return &n, nil
	}
	var err error
	if t.Year, err = parse("year"); err != nil {
		return t, err
	}
	if t.Month, err = parse("month"); err != nil {
		return t, err
	}
	if t.Day, err = parse("day"); err != nil {
		return t, err
	}
	return t, t.Validate()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError：非法输入 400，其余 500；错误详情只写日志
func writeError(w http.ResponseWriter, r *http.Request, route string, err error) {
	if errors.Is(err, errBadRequest) || errors.Is(err, summary.ErrInvalidTimeSpec) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L().Error("api_error", "route", route, "path", r.URL.Path, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// handle：统一计时、计数与空结果处理（空结果返回 404）
func handle(mux *http.ServeMux, route string, patterns []string, fn func(r *http.Request) (any, bool, error)) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		defer func() {
			metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		}()
		v, ok, err := fn(r)
		if err != nil {
			writeError(w, r, route, err)
			return
		}
		if !ok {
			metrics.EmptyResultsTotal.WithLabelValues(route).Inc()
			http.NotFound(w, r)
			return
		}
		writeJSON(w, v)
	})
	for _, p := range patterns {
		mux.Handle("GET "+p, h)
	}
}

func periodPatterns(prefix string) []string {
	return []string{
		prefix + "/{product}",
		prefix + "/{product}/{year}",
		prefix + "/{product}/{year}/{month}",
		prefix + "/{product}/{year}/{month}/{day}",
	}
}

// BuildRoutes：构建 API 路由
func BuildRoutes(svc *model.Service) *http.ServeMux {
	mux := http.NewServeMux()

	handle(mux, "footprint", periodPatterns("/footprint"), func(r *http.Request) (any, bool, error) {
		t, err := timeSpecFrom(r)
		if err != nil {
			return nil, false, err
		}
		f, err := svc.GetFootprintGeoJSON(r.Context(), r.PathValue("product"), t)
		return f, f != nil, err
	})

	handle(mux, "regions", periodPatterns("/regions"), func(r *http.Request) (any, bool, error) {
		t, err := timeSpecFrom(r)
		if err != nil {
			return nil, false, err
		}
		fc, err := svc.GetRegionsGeoJSON(r.Context(), r.PathValue("product"), t)
		return fc, fc != nil, err
	})

	handle(mux, "datasets", periodPatterns("/datasets"), func(r *http.Request) (any, bool, error) {
		t, err := timeSpecFrom(r)
		if err != nil {
			return nil, false, err
		}
		limit := model.DefaultDatasetLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, false, errBadRequest
			}
			limit = n
		}
		fc, err := svc.GetDatasetsGeoJSON(r.Context(), r.PathValue("product"), t, limit)
		return fc, fc != nil, err
	})

	handle(mux, "summary", periodPatterns("/summary"), func(r *http.Request) (any, bool, error) {
		t, err := timeSpecFrom(r)
		if err != nil {
			return nil, false, err
		}
		p, err := svc.GetSummary(r.Context(), r.PathValue("product"), t)
		return p, p != nil, err
	})

	handle(mux, "products", []string{"/products"}, func(r *http.Request) (any, bool, error) {
		ps, err := svc.GetProductsWithSummaries(r.Context())
		return ps, err == nil, err
	})

	handle(mux, "last_updated", []string{"/last-updated"}, func(r *http.Request) (any, bool, error) {
		t, err := svc.GetLastUpdated(r.Context())
		if err != nil || t == nil {
			return nil, false, err
		}
		return map[string]any{"last_updated": t.UTC().Format(time.RFC3339)}, true, nil
	})

	return mux
}
