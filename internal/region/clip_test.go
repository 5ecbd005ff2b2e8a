package region

import (
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 0..10 的正方形足迹，4..6 处有洞
func squareWithHole() orb.Polygon {
	return orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	}
}

func tile(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func area(g orb.Geometry) float64 { return math.Abs(planar.Area(g)) }

func within(g orb.Geometry, b orb.Bound) bool {
	gb := g.Bound()
	const tol = 1e-9
	return gb.Min[0] >= b.Min[0]-tol && gb.Min[1] >= b.Min[1]-tol && gb.Max[0] <= b.Max[0]+tol && gb.Max[1] <= b.Max[1]+tol
}

func TestPreparedBoundaryIntersects(t *testing.T) {
	pb := PrepareBoundary(squareWithHole())
	if pb == nil || pb.Segments() != 8 {
		t.Fatalf("expected 8 boundary segments, got %v", pb)
	}
	cases := []struct {
		name string
		g    orb.Geometry
		want bool
	}{
		{"interior", tile(1, 1, 2, 2), false},
		{"inside hole", tile(4.5, 4.5, 5.5, 5.5), false},
		{"outside", tile(20, 20, 21, 21), false},
		{"straddles outer edge", tile(9, 1, 11, 3), true},
		{"straddles hole", tile(3, 3, 7, 7), true},
		{"covers footprint", tile(-1, -1, 11, 11), true},
		{"touches edge", tile(10, 1, 11, 2), true},
		{"bound", orb.Bound{Min: orb.Point{9.5, 9.5}, Max: orb.Point{12, 12}}, true},
	}
	for _, c := range cases {
		if got := pb.Intersects(c.g); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestPrepareBoundaryNonAreal(t *testing.T) {
	if PrepareBoundary(orb.Point{1, 1}) != nil {
		t.Fatalf("expected nil for point")
	}
	if PrepareBoundary(nil) != nil {
		t.Fatalf("expected nil for nil geometry")
	}
}

func TestClipPassThrough(t *testing.T) {
	c := NewClipper(squareWithHole())
	for _, ext := range []orb.Polygon{tile(1, 1, 2, 2), tile(4.5, 4.5, 5.5, 5.5), tile(20, 20, 21, 21)} {
		got := c.Clip(ext)
		if !reflect.DeepEqual(got, ext) {
			t.Fatalf("expected unmodified extent %v, got %v", ext, got)
		}
	}
}

func TestClipNoFootprint(t *testing.T) {
	ext := tile(9, 1, 11, 3)
	if got := NewClipper(nil).Clip(ext); !reflect.DeepEqual(got, ext) {
		t.Fatalf("expected pass through without footprint, got %v", got)
	}
}

func TestClipEdgeTile(t *testing.T) {
	c := NewClipper(squareWithHole())
	ext := tile(9, 1, 11, 3)
	got := c.Clip(ext)
	if !within(got, ext.Bound()) {
		t.Fatalf("clipped geometry %v escapes extent", got)
	}
	if a := area(got); math.Abs(a-2) > 1e-9 {
		t.Fatalf("area: got %f want 2", a)
	}
	if _, ok := got.(orb.Polygon); !ok {
		t.Fatalf("expected Polygon, got %T", got)
	}
}

func TestClipHoleTile(t *testing.T) {
	c := NewClipper(squareWithHole())
	ext := tile(3, 3, 7, 7)
	got := c.Clip(ext)
	poly, ok := got.(orb.Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", got)
	}
	if len(poly) != 2 {
		t.Fatalf("expected shell and hole, got %d rings", len(poly))
	}
	if poly[0].Orientation() != orb.CCW || poly[1].Orientation() != orb.CW {
		t.Fatalf("unexpected ring orientation")
	}
	if a := area(got); math.Abs(a-12) > 1e-9 {
		t.Fatalf("area: got %f want 12", a)
	}
	if !within(got, ext.Bound()) {
		t.Fatalf("clipped geometry escapes extent")
	}
}

func TestClipMultiPart(t *testing.T) {
	fp := orb.MultiPolygon{tile(0, 0, 2, 2), tile(3, 0, 5, 2)}
	got := NewClipper(fp).Clip(tile(1, 0.5, 4, 1.5))
	mp, ok := got.(orb.MultiPolygon)
	if !ok || len(mp) != 2 {
		t.Fatalf("expected two parts, got %T %v", got, got)
	}
	if a := area(got); math.Abs(a-2) > 1e-9 {
		t.Fatalf("area: got %f want 2", a)
	}
}

func TestClipped(t *testing.T) {
	shapes := map[string]orb.Geometry{
		"inner": tile(1, 1, 2, 2),
		"edge":  tile(9, 1, 11, 3),
	}
	cat := ShapeCatalog("wrs2", "scenes", shapes, nil)
	counts := map[string]int{"inner": 1, "edge": 2, "unknown": 3}
	got, ok := Clipped(counts, squareWithHole(), cat)
	if !ok {
		t.Fatalf("expected geometries")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 geometries, got %d", len(got))
	}
	if !reflect.DeepEqual(got["inner"], shapes["inner"]) {
		t.Fatalf("inner tile should pass through")
	}
	if a := area(got["edge"]); math.Abs(a-2) > 1e-9 {
		t.Fatalf("edge tile area %f", a)
	}

	if _, ok := Clipped(counts, nil, &Catalog{Name: "x"}); ok {
		t.Fatalf("expected absence without geometry function")
	}
	if _, ok := Clipped(counts, nil, nil); ok {
		t.Fatalf("expected absence without catalog")
	}
}
