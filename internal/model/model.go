// 包 model：页面所需的六个查询；每个查询由纯函数与缓存在调用点组合而成
package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cubedash/internal/cache"
	"cubedash/internal/geojsonout"
	"cubedash/internal/logger"
	"cubedash/internal/metrics"
	"cubedash/internal/region"
	"cubedash/internal/reproject"
	"cubedash/internal/summary"

	"github.com/araddon/dateparse"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	SummaryTTL     = 60 * time.Second
	LastUpdatedTTL = 120 * time.Second

	DefaultDatasetLimit = 500

	// 放置该文件可覆盖“更新时间”，例如已知数据库为旧克隆时
	GeneratedOverrideFile = "generated.txt"
)

var ErrNoSummaries = errors.New("no product reports: run the summary generation step (generate --all) to generate some")

// RegionResolver：按产品解析区域目录
type RegionResolver interface {
	ForProduct(p *summary.Product) (*region.Catalog, error)
}

// 文档注释：查询服务
// 背景：进程级状态集中在此处，启动时在任何并发工作之前构造一次；后端与缓存以依赖注入，不使用包级单例。
// 约束：后端连接按需建立，构造本身不发起数据库或网络请求。
type Service struct {
	backend    summary.Backend
	cache      *cache.Cache
	reproj     *reproject.Reprojector
	regions    RegionResolver
	summaryDir string
}

func NewService(backend summary.Backend, c *cache.Cache, reproj *reproject.Reprojector, regions RegionResolver, summaryDir string) *Service {
	return &Service{backend: backend, cache: c, reproj: reproj, regions: regions, summaryDir: summaryDir}
}

func key(query, product string, t summary.TimeSpec) cache.Key {
	return cache.Key{Query: query, Product: product, Year: t.Year, Month: t.Month, Day: t.Day}
}

// 文档注释：获取时段概览
// 背景：日粒度重算开销小，允许后端同步更新后返回；其余粒度只读。
func (s *Service) GetSummary(ctx context.Context, product string, t summary.TimeSpec) (*summary.PeriodSummary, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	v, _, err := cache.GetOrCompute(ctx, s.cache, key("summary", product, t), SummaryTTL,
		func(ctx context.Context) (*summary.PeriodSummary, bool, error) {
			var p *summary.PeriodSummary
			var err error
			if t.Day != nil {
				p, err = s.backend.GetOrUpdate(ctx, product, t)
			} else {
				p, err = s.backend.Get(ctx, product, t)
			}
			return p, p != nil, err
		})
	return v, err
}

// GetDatasetsGeoJSON：数据集足迹列表，limit<=0 时取默认 500
func (s *Service) GetDatasetsGeoJSON(ctx context.Context, product string, t summary.TimeSpec, limit int) (*geojson.FeatureCollection, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultDatasetLimit
	}
	k := key("datasets", product, t)
	k.Limit = limit
	v, _, err := cache.GetOrCompute(ctx, s.cache, k, SummaryTTL,
		func(ctx context.Context) (*geojson.FeatureCollection, bool, error) {
			fc, err := s.backend.GetDatasetFootprints(ctx, product, t, limit)
			return fc, fc != nil, err
		})
	return v, err
}

// 文档注释：获取最近更新时间
// 背景：汇总目录下存在 generated.txt 时以其内容为准；内容无法解析时记录告警并回退到后端时间。
func (s *Service) GetLastUpdated(ctx context.Context) (*time.Time, error) {
	v, _, err := cache.GetOrCompute(ctx, s.cache, cache.Key{Query: "last_updated"}, LastUpdatedTTL,
		func(ctx context.Context) (*time.Time, bool, error) {
			if t, ok := s.overrideTime(); ok {
				return &t, true, nil
			}
			t, err := s.backend.GetLastUpdated(ctx)
			return t, t != nil, err
		})
	return v, err
}

func (s *Service) overrideTime() (time.Time, bool) {
	if s.summaryDir == "" {
		return time.Time{}, false
	}
	path := filepath.Join(s.summaryDir, GeneratedOverrideFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.L().Warn("summary.generated.txt_unreadable", "path", path, "err", err)
		}
		return time.Time{}, false
	}
	text := string(b)
	t, err := dateparse.ParseAny(strings.TrimSpace(text))
	if err != nil {
		logger.L().Warn("invalid.summary.generated.txt", "text", text, "path", path)
		return time.Time{}, false
	}
	return t, true
}

// 文档注释：已生成报告的产品列表
// 约束：完成列表中的产品必须能在目录中解析，否则视为后端一致性错误；列表为空时返回 ErrNoSummaries。
func (s *Service) GetProductsWithSummaries(ctx context.Context) ([]summary.ProductSummary, error) {
	v, _, err := cache.GetOrCompute(ctx, s.cache, cache.Key{Query: "products"}, LastUpdatedTTL,
		func(ctx context.Context) ([]summary.ProductSummary, bool, error) {
			all, err := s.backend.ListProducts(ctx)
			if err != nil {
				return nil, false, err
			}
			index := make(map[string]summary.Product, len(all))
			for _, p := range all {
				index[p.Name] = p
			}
			names, err := s.backend.ListCompleteProducts(ctx)
			if err != nil {
				return nil, false, err
			}
			out := make([]summary.ProductSummary, 0, len(names))
			for _, name := range names {
				p, ok := index[name]
				if !ok {
					return nil, false, fmt.Errorf("%w: %s", summary.ErrUnknownProduct, name)
				}
				sum, err := s.GetSummary(ctx, name, summary.TimeSpec{})
				if err != nil {
					return nil, false, err
				}
				out = append(out, summary.ProductSummary{Product: p, Summary: sum})
			}
			if len(out) == 0 {
				return nil, false, ErrNoSummaries
			}
			return out, true, nil
		})
	return v, err
}

// GetFootprintGeoJSON：展示坐标系下的足迹 Feature；无概览或无足迹时返回 nil
func (s *Service) GetFootprintGeoJSON(ctx context.Context, product string, t summary.TimeSpec) (*geojson.Feature, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	v, _, err := cache.GetOrCompute(ctx, s.cache, key("footprint", product, t), SummaryTTL,
		func(ctx context.Context) (*geojson.Feature, bool, error) {
			period, err := s.GetSummary(ctx, product, t)
			if err != nil || period == nil {
				return nil, false, err
			}
			fp, ok, err := s.reproj.Footprint(period)
			if err != nil || !ok {
				return nil, false, err
			}
			f := geojsonout.FootprintFeature(product, t, period, fp)
			return f, f != nil, nil
		})
	return v, err
}

// 文档注释：区域 FeatureCollection
// 背景：足迹只重投影一次，随后对每个有计数的区域裁剪或直通。
// 约束：有概览但目录中找不到产品时返回 ErrUnknownProduct；计数为空或无区域目录时返回 nil。
func (s *Service) GetRegionsGeoJSON(ctx context.Context, product string, t summary.TimeSpec) (*geojson.FeatureCollection, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	v, _, err := cache.GetOrCompute(ctx, s.cache, key("regions", product, t), SummaryTTL,
		func(ctx context.Context) (*geojson.FeatureCollection, bool, error) {
			period, err := s.GetSummary(ctx, product, t)
			if err != nil || period == nil {
				return nil, false, err
			}
			p, err := s.backend.GetProduct(ctx, product)
			if err != nil {
				return nil, false, err
			}
			if p == nil {
				return nil, false, fmt.Errorf("%w: %s", summary.ErrUnknownProduct, product)
			}
			if len(period.RegionDatasetCounts) == 0 {
				return nil, false, nil
			}
			if s.regions == nil {
				return nil, false, nil
			}
			cat, err := s.regions.ForProduct(p)
			if err != nil || cat == nil {
				return nil, false, err
			}
			fp, _, err := s.reproj.Footprint(period)
			if err != nil {
				return nil, false, err
			}
			start := time.Now()
			fc := regionsGeoJSON(period.RegionDatasetCounts, fp, cat)
			d := time.Since(start)
			metrics.RegionGenDurationMs.Observe(float64(d.Milliseconds()))
			logger.L().Debug("overview.region_gen", "product", product, "period", t.String(), "time_sec", d.Seconds())
			return fc, fc != nil, nil
		})
	return v, err
}

func regionsGeoJSON(counts map[string]int, footprint orb.Geometry, cat *region.Catalog) *geojson.FeatureCollection {
	geoms, ok := region.Clipped(counts, footprint, cat)
	if !ok {
		return nil
	}
	return geojsonout.RegionCollection(counts, geoms, cat)
}
