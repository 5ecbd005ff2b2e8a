package region

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"cubedash/internal/logger"
	"cubedash/internal/summary"
)

// 分区方案对应的计数单位
var unitLabels = map[string]string{
	"wrs2": "scenes",
	"mgrs": "tiles",
}

// 文档注释：按产品解析区域目录
// 背景：形状目录从 dataDir/<scheme>.geojson 懒加载并在进程内复用；grid 方案由产品元数据中的网格参数计算。
// 约束：产品未声明方案或形状文件不存在时返回 nil（无区域目录）；文件损坏返回 error。grid 默认坐标系为 EPSG:3577（澳洲 Albers）。
type Resolver struct {
	dataDir string
	project Project

	mu     sync.Mutex
	shapes map[string]*Catalog
}

func NewResolver(dataDir string, project Project) *Resolver {
	return &Resolver{dataDir: dataDir, project: project, shapes: make(map[string]*Catalog)}
}

func (r *Resolver) ForProduct(p *summary.Product) (*Catalog, error) {
	if p == nil || p.RegionScheme == "" {
		return nil, nil
	}
	if p.RegionScheme == "grid" {
		spec, ok := gridSpecFromMetadata(p.Metadata)
		if !ok || r.project == nil {
			return nil, nil
		}
		return GridCatalog(spec, r.project), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.shapes[p.RegionScheme]; ok && c != nil {
		return c, nil
	}
	path := filepath.Join(r.dataDir, p.RegionScheme+".geojson")
	shapes, labels, err := LoadShapes(path)
	if errors.Is(err, fs.ErrNotExist) {
		// 不缓存缺失：文件部署后下一次解析即可生效
		logger.L().Warn("region.catalog_missing", "scheme", p.RegionScheme, "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	unit := unitLabels[p.RegionScheme]
	if unit == "" {
		unit = "regions"
	}
	c := ShapeCatalog(p.RegionScheme, unit, shapes, labels)
	r.shapes[p.RegionScheme] = c
	logger.L().Info("region.catalog_loaded", "scheme", p.RegionScheme, "regions", len(shapes))
	return c, nil
}

func gridSpecFromMetadata(md map[string]any) (GridSpec, bool) {
	spec := GridSpec{CRS: "EPSG:3577", Densify: 4}
	if v, ok := md["grid_crs"].(string); ok && v != "" {
		spec.CRS = v
	}
	size, ok := number(md["grid_tile_size"])
	if !ok || size <= 0 {
		return spec, false
	}
	spec.TileSize = size
	if o, ok := md["grid_origin"].([]any); ok && len(o) == 2 {
		spec.OriginX, _ = number(o[0])
		spec.OriginY, _ = number(o[1])
	}
	if d, ok := number(md["grid_densify"]); ok && d >= 0 {
		spec.Densify = int(d)
	}
	return spec, true
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
