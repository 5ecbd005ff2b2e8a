package region

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

type segment struct{ a, b orb.Point }

// 文档注释：预处理后的足迹边界
// 背景：足迹边界（外环与所有洞）按线段建立 R-Tree，每个足迹只构建一次，之后对每个区域做廉价的边界相交判定。
// 约束：只读；可在同一请求的所有区域间复用。
type PreparedBoundary struct {
	tree  rtree.RTreeG[segment]
	count int
}

// PrepareBoundary：足迹为空或不是面几何时返回 nil
func PrepareBoundary(footprint orb.Geometry) *PreparedBoundary {
	var rings []orb.Ring
	switch v := footprint.(type) {
	case orb.Polygon:
		rings = append(rings, v...)
	case orb.MultiPolygon:
		for _, p := range v {
			rings = append(rings, p...)
		}
	case orb.Bound:
		rings = append(rings, v.ToRing())
	default:
		return nil
	}
	pb := &PreparedBoundary{}
	for _, r := range rings {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			if a == b {
				continue
			}
			min, max := segBound(a, b)
			pb.tree.Insert(min, max, segment{a: a, b: b})
			pb.count++
		}
	}
	if pb.count == 0 {
		return nil
	}
	return pb
}

func segBound(a, b orb.Point) ([2]float64, [2]float64) {
	return [2]float64{minf(a[0], b[0]), minf(a[1], b[1])}, [2]float64{maxf(a[0], b[0]), maxf(a[1], b[1])}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Segments：边界线段数量
func (pb *PreparedBoundary) Segments() int { return pb.count }

// 文档注释：边界相交判定
// 背景：候选线段由 R-Tree 按包围盒筛选；线段端点落在区域内或与区域任一边相交即视为相交。
// 约束：区域需为面几何（Polygon/MultiPolygon/Bound）；接触也视为相交。
func (pb *PreparedBoundary) Intersects(extent orb.Geometry) bool {
	if pb == nil || extent == nil {
		return false
	}
	edges := extentEdges(extent)
	if len(edges) == 0 {
		return false
	}
	b := extent.Bound()
	hit := false
	pb.tree.Search([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]},
		func(_, _ [2]float64, s segment) bool {
			if locate(s.a, extent) != outside || locate(s.b, extent) != outside {
				hit = true
				return false
			}
			for _, e := range edges {
				if segmentsIntersect(s.a, s.b, e.a, e.b) {
					hit = true
					return false
				}
			}
			return true
		})
	return hit
}

func extentEdges(g orb.Geometry) []segment {
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
	var out []segment
	for _, r := range rings {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			if a != b {
				out = append(out, segment{a: a, b: b})
			}
		}
	}
	return out
}
