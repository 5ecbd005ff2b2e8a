package region

import "github.com/paulmach/orb"

type location int

const (
	outside location = iota
	inside
	onBoundary
)

const eps = 1e-12

// 文档注释：点与环的位置关系（Even-Odd）
// 约束：区分边界与内部；环可闭合也可不闭合。
func locateInRing(pt orb.Point, ring orb.Ring) location {
	n := len(ring)
	if n < 3 {
		return outside
	}
	in := false
	x, y := pt[0], pt[1]
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[j], ring[i]
		if onSegment(pt, a, b) {
			return onBoundary
		}
		xi, yi := b[0], b[1]
		xj, yj := a[0], a[1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	if in {
		return inside
	}
	return outside
}

// 外环内且不在洞内视为在多边形内；落在任一环上视为边界
func locateInPolygon(pt orb.Point, poly orb.Polygon) location {
	if len(poly) == 0 {
		return outside
	}
	loc := locateInRing(pt, poly[0])
	if loc != inside {
		return loc
	}
	for _, hole := range poly[1:] {
		switch locateInRing(pt, hole) {
		case inside:
			return outside
		case onBoundary:
			return onBoundary
		}
	}
	return inside
}

func locate(pt orb.Point, g orb.Geometry) location {
	switch v := g.(type) {
	case orb.Polygon:
		return locateInPolygon(pt, v)
	case orb.MultiPolygon:
		best := outside
		for _, p := range v {
			if l := locateInPolygon(pt, p); l == inside {
				return inside
			} else if l == onBoundary {
				best = onBoundary
			}
		}
		return best
	case orb.Bound:
		return locateInPolygon(pt, v.ToPolygon())
	case orb.Ring:
		return locateInRing(pt, v)
	}
	return outside
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(p, a, b orb.Point) bool {
	if abs(cross(a, b, p)) > eps*(1+abs(b[0]-a[0])+abs(b[1]-a[1])) {
		return false
	}
	return p[0] >= minf(a[0], b[0])-eps && p[0] <= maxf(a[0], b[0])+eps &&
		p[1] >= minf(a[1], b[1])-eps && p[1] <= maxf(a[1], b[1])+eps
}

// segmentsIntersect：闭线段相交（含端点接触与共线重叠）
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(p1, q1, q2) || onSegment(p2, q1, q2) || onSegment(q1, p1, p2) || onSegment(q2, p1, p2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
