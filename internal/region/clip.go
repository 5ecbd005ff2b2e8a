package region

import (
	"sort"

	"cubedash/internal/logger"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
)

// 文档注释：区域裁剪器（裁剪或直通）
// 背景：只有与足迹边界（含洞）相交的区域才执行代价较高的多边形求交；完全位于足迹内部的瓦片直接返回完整几何。
// 约束：完全位于足迹外部的区域在计数表中不应出现，同样走直通路径；足迹为空时全部直通。
type Clipper struct {
	footprint orb.Geometry
	boundary  *PreparedBoundary
}

// NewClipper：足迹边界在此处预处理一次
func NewClipper(footprint orb.Geometry) *Clipper {
	if footprint == nil {
		return &Clipper{}
	}
	return &Clipper{footprint: footprint, boundary: PrepareBoundary(footprint)}
}

// Clip：返回裁剪后的区域几何
func (c *Clipper) Clip(extent orb.Geometry) orb.Geometry {
	if c.boundary == nil || extent == nil {
		return extent
	}
	if !c.boundary.Intersects(extent) {
		return extent
	}
	return Intersection(c.footprint, extent)
}

// 文档注释：按计数表生成区域几何
// 返回：区域编号 → 几何；目录无法提供几何函数时 ok=false。目录中缺少几何的编号被跳过并记录告警。
func Clipped(counts map[string]int, footprint orb.Geometry, cat *Catalog) (map[string]orb.Geometry, bool) {
	if cat == nil || cat.Geometry == nil {
		return nil, false
	}
	clipper := NewClipper(footprint)
	out := make(map[string]orb.Geometry, len(counts))
	for code := range counts {
		extent, ok := cat.Geometry(code)
		if !ok {
			logger.L().Warn("region.geometry_missing", "region_type", cat.Name, "region_code", code)
			continue
		}
		out[code] = clipper.Clip(extent)
	}
	return out, true
}

// 文档注释：面几何求交
// 背景：使用 Martinez 多边形布尔运算；输入环按奇偶规则处理，输出轮廓重新归类为外环与洞。
// 返回：单个外环返回 Polygon，多个返回 MultiPolygon，无交集返回空 MultiPolygon。
func Intersection(subject, clip orb.Geometry) orb.Geometry {
	cb := clip.Bound()
	subj := toClipPolygon(subject, &cb)
	cl := toClipPolygon(clip, nil)
	if len(subj) == 0 || len(cl) == 0 {
		return orb.MultiPolygon{}
	}
	res := subj.Construct(polyclip.INTERSECTION, cl)
	return fromContours(res)
}

// 包围盒与裁剪区域不相交的轮廓不影响其内部的奇偶性，可提前剔除
func toClipPolygon(g orb.Geometry, within *orb.Bound) polyclip.Polygon {
	var rings []orb.Ring
	switch v := g.(type) {
	case orb.Polygon:
		rings = v
	case orb.MultiPolygon:
		for _, p := range v {
			rings = append(rings, p...)
		}
	case orb.Bound:
		rings = []orb.Ring{v.ToRing()}
	case orb.Ring:
		rings = []orb.Ring{v}
	}
	var out polyclip.Polygon
	for _, r := range rings {
		if within != nil && !r.Bound().Intersects(*within) {
			continue
		}
		n := len(r)
		if n > 1 && r[0] == r[n-1] {
			n--
		}
		if n < 3 {
			continue
		}
		c := make(polyclip.Contour, n)
		for i := 0; i < n; i++ {
			c[i] = polyclip.Point{X: r[i][0], Y: r[i][1]}
		}
		out = append(out, c)
	}
	return out
}

type shell struct {
	ring  orb.Ring
	area  float64
	holes []orb.Ring
}

// 文档注释：轮廓归类
// 约束：嵌套深度为偶数的轮廓是外环（逆时针），奇数的是洞（顺时针），洞挂到包含它的最小外环。
func fromContours(p polyclip.Polygon) orb.Geometry {
	rings := make([]orb.Ring, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		r = append(r, r[0])
		if ringArea(r) == 0 {
			continue
		}
		rings = append(rings, r)
	}
	depth := make([]int, len(rings))
	for i := range rings {
		for j := range rings {
			if i != j && ringInside(rings[i], rings[j]) {
				depth[i]++
			}
		}
	}
	var shells []*shell
	idx := make(map[int]*shell)
	for i, r := range rings {
		if depth[i]%2 == 0 {
			s := &shell{ring: orient(r, true), area: absArea(r)}
			shells = append(shells, s)
			idx[i] = s
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		var best *shell
		for j, s := range idx {
			if depth[j] == depth[i]-1 && ringInside(r, rings[j]) && (best == nil || s.area < best.area) {
				best = s
			}
		}
		if best != nil {
			best.holes = append(best.holes, orient(r, false))
		}
	}
	if len(shells) == 0 {
		return orb.MultiPolygon{}
	}
	sort.SliceStable(shells, func(a, b int) bool { return shells[a].area > shells[b].area })
	mp := make(orb.MultiPolygon, 0, len(shells))
	for _, s := range shells {
		poly := orb.Polygon{s.ring}
		poly = append(poly, s.holes...)
		mp = append(mp, poly)
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

// ringInside：a 的某个顶点严格位于 b 内部（输出轮廓互不交叉，一个顶点即可判定）
func ringInside(a, b orb.Ring) bool {
	for _, pt := range a {
		switch locateInRing(pt, b) {
		case inside:
			return true
		case outside:
			return false
		}
	}
	return false
}

func ringArea(r orb.Ring) float64 {
	var s float64
	for i := 0; i+1 < len(r); i++ {
		s += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return s / 2
}

func absArea(r orb.Ring) float64 { return abs(ringArea(r)) }

func orient(r orb.Ring, ccw bool) orb.Ring {
	if (ringArea(r) > 0) == ccw {
		return r
	}
	out := make(orb.Ring, len(r))
	for i := range r {
		out[i] = r[len(r)-1-i]
	}
	return out
}
