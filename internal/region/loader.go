package region

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：从 GeoJSON 文件加载区域几何表
// 背景：WRS2 条带、MGRS 瓦片等方案以 FeatureCollection 发布；编号取自 region_code 属性（兼容 path/row 属性）。
// 约束：仅保留 Polygon/MultiPolygon；坐标须为 EPSG:4326；编号重复时后者覆盖前者。
func LoadShapes(path string) (map[string]orb.Geometry, map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	shapes := make(map[string]orb.Geometry, len(fc.Features))
	labels := make(map[string]string)
	for _, f := range fc.Features {
		code := featureCode(f.Properties)
		if code == "" || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		shapes[code] = f.Geometry
		if l := f.Properties.MustString("label", ""); l != "" {
			labels[code] = l
		}
	}
	return shapes, labels, nil
}

func featureCode(p geojson.Properties) string {
	if s := strings.TrimSpace(p.MustString("region_code", "")); s != "" {
		return s
	}
	path, okP := p["path"]
	row, okR := p["row"]
	if okP && okR {
		return fmt.Sprintf("%v_%v", toInt(path), toInt(row))
	}
	return ""
}

func toInt(v any) any {
	switch x := v.(type) {
	case float64:
		return int(x)
	case float32:
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case string:
		return x
	default:
		return v
	}
}
