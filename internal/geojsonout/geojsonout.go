// 包 geojsonout：组装足迹 Feature 与区域 FeatureCollection；字段名为对外契约
package geojsonout

import (
	"cubedash/internal/region"
	"cubedash/internal/summary"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：足迹 Feature
// 约束：properties 固定为 dataset_count / product_name / time_spec；time_spec 为 [year, month, day]，未设置为 null。
// 返回：概览或足迹缺失时返回 nil。
func FootprintFeature(product string, t summary.TimeSpec, period *summary.PeriodSummary, footprint orb.Geometry) *geojson.Feature {
	if period == nil || footprint == nil {
		return nil
	}
	f := geojson.NewFeature(footprint)
	f.Properties = geojson.Properties{
		"dataset_count": period.FootprintCount,
		"product_name":  product,
		"time_spec":     t.Triple(),
	}
	return f
}

// 文档注释：区域 FeatureCollection
// 背景：每个计数表中的区域编号输出一个 Feature（缺少几何的编号除外），按编号排序保证输出稳定。
// 约束：集合级 properties 包含 region_type / region_unit_label / min_count / max_count，最值取自整个计数表。
// 返回：目录、几何表缺失或计数表为空时返回 nil。
func RegionCollection(counts map[string]int, geoms map[string]orb.Geometry, cat *region.Catalog) *geojson.FeatureCollection {
	if cat == nil || geoms == nil || len(counts) == 0 {
		return nil
	}
	low, high := MinMax(counts)
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"properties": map[string]any{
			"region_type":       cat.Name,
			"region_unit_label": cat.UnitLabel,
			"min_count":         low,
			"max_count":         high,
		},
	}
	for _, code := range region.SortedCodes(counts) {
		g, ok := geoms[code]
		if !ok || g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.Properties = geojson.Properties{
			"region_code": code,
			"label":       cat.RegionLabel(code),
			"count":       counts[code],
		}
		fc.Append(f)
	}
	return fc
}

// MinMax：计数表的最小与最大值；空表返回 (0, 0)
func MinMax(counts map[string]int) (int, int) {
	first := true
	var low, high int
	for _, v := range counts {
		if first {
			low, high = v, v
			first = false
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
