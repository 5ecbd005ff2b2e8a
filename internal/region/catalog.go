// 包 region：区域目录（瓦片/条带编号 → 几何）与按足迹边界裁剪区域几何
package region

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// 文档注释：区域目录
// 背景：每个产品按其分区方案派生一次；请求期间只读。
// 约束：Geometry 返回展示坐标系（EPSG:4326）几何；Geometry 为 nil 表示目录无法提供几何函数。
type Catalog struct {
	Name      string
	UnitLabel string
	Geometry  func(code string) (orb.Geometry, bool)
	Label     func(code string) string
}

// RegionLabel：未配置标签函数时回退到编号本身
func (c *Catalog) RegionLabel(code string) string {
	if c == nil || c.Label == nil {
		return code
	}
	return c.Label(code)
}

// ShapeCatalog：基于预先加载的几何表的目录（如 WRS2 条带、MGRS 瓦片）
func ShapeCatalog(name, unitLabel string, shapes map[string]orb.Geometry, labels map[string]string) *Catalog {
	return &Catalog{
		Name:      name,
		UnitLabel: unitLabel,
		Geometry: func(code string) (orb.Geometry, bool) {
			g, ok := shapes[code]
			return g, ok && g != nil
		},
		Label: func(code string) string {
			if l, ok := labels[code]; ok && l != "" {
				return l
			}
			return defaultLabel(name, code)
		},
	}
}

// 编号形如 "90_84" 的方案按 "Path 90, Row 84" 展示
func defaultLabel(scheme, code string) string {
	parts := strings.Split(code, "_")
	if len(parts) != 2 {
		return code
	}
	switch scheme {
	case "wrs2":
		return fmt.Sprintf("Path %s, Row %s", parts[0], parts[1])
	case "grid":
		return fmt.Sprintf("Tile %s, %s", parts[0], parts[1])
	}
	return code
}

// SortedCodes：按编号排序，保证输出顺序稳定
func SortedCodes(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
