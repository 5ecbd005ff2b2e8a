package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Project：将投影坐标系几何变换到展示坐标系
type Project func(g orb.Geometry, crs string) (orb.Geometry, error)

// GridSpec：规则网格（编号 "x_y"，瓦片边长与原点以网格 CRS 单位表示）
type GridSpec struct {
	CRS      string
	TileSize float64
	OriginX  float64
	OriginY  float64
	// 每条边插入的顶点数，使投影后的瓦片边沿保持弯曲
	Densify int
}

// ParseGridCode："15_-40" → (15, -40)
func ParseGridCode(code string) (int, int, error) {
	parts := strings.Split(code, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad grid code %q", code)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad grid code %q", code)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad grid code %q", code)
	}
	return x, y, nil
}

// TileRing：网格 CRS 下瓦片的闭合外环（逆时针）
func (g GridSpec) TileRing(x, y int) orb.Ring {
	minX := g.OriginX + float64(x)*g.TileSize
	minY := g.OriginY + float64(y)*g.TileSize
	maxX, maxY := minX+g.TileSize, minY+g.TileSize
	corners := []orb.Point{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
	n := g.Densify + 1
	ring := make(orb.Ring, 0, 4*n+1)
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		for k := 0; k < n; k++ {
			t := float64(k) / float64(n)
			ring = append(ring, orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t})
		}
	}
	return append(ring, ring[0])
}

// GridCatalog：瓦片几何按需计算并投影到展示坐标系；投影失败的编号视为缺失
func GridCatalog(spec GridSpec, project Project) *Catalog {
	return &Catalog{
		Name:      "grid",
		UnitLabel: "tiles",
		Geometry: func(code string) (orb.Geometry, bool) {
			x, y, err := ParseGridCode(code)
			if err != nil {
				return nil, false
			}
			g, err := project(orb.Polygon{spec.TileRing(x, y)}, spec.CRS)
			if err != nil {
				return nil, false
			}
			return g, true
		},
		Label: func(code string) string { return defaultLabel("grid", code) },
	}
}
