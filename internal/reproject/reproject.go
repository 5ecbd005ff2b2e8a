// 包 reproject：将概览足迹从记录的坐标参考系转换到展示坐标系（EPSG:4326，经纬度）
package reproject

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"cubedash/internal/logger"
	"cubedash/internal/metrics"
	"cubedash/internal/summary"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// DisplayCode：展示坐标系 EPSG 编码
const DisplayCode = 4326

var (
	ErrUnsupportedCRS = errors.New("unsupported crs")
	ErrOutOfDomain    = errors.New("coordinate outside projection domain")
)

// Transform：逐点坐标变换
type Transform func(x, y float64) (float64, float64)

// 文档注释：重投影器
// 背景：按源 CRS 构建到展示坐标系的变换并在进程内复用；变换本身为纯函数，可跨请求共享。
// 约束：进程级构造一次；不持有连接或文件句柄，fork 前后均可安全使用。
type Reprojector struct {
	mu    sync.Mutex
	epsg  *wgs84.Repository
	funcs map[int]Transform
}

func New() *Reprojector {
	repo := wgs84.EPSG()
	registerAustralia(repo)
	return &Reprojector{epsg: repo, funcs: make(map[int]Transform)}
}

// 澳洲产品常用的 GDA94 坐标系：地理坐标、Albers 等积圆锥（澳洲网格默认）与 MGA 各带
// GDA94 与 WGS84 的差异在米级，按零参数基准处理
func registerAustralia(repo *wgs84.Repository) {
	gda94 := wgs84.Datum{Spheroid: wgs84.GRS80{}}
	repo.Add(4283, gda94.LonLat())
	repo.Add(3577, gda94.AlbersEqualAreaConic(132, 0, -18, -36, 0, 0))
	for zone := 48; zone <= 58; zone++ {
		repo.Add(28300+zone, gda94.TransverseMercator(float64(zone*6-183), 0, 0.9996, 500000, 10000000))
	}
}

// ParseCRS：解析 "EPSG:32755" / "epsg:4326" / "32755" 形式的标识
func ParseCRS(s string) (int, error) {
	v := strings.TrimSpace(s)
	if i := strings.LastIndex(v, ":"); i >= 0 {
		if !strings.EqualFold(v[:i], "epsg") {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, s)
		}
		v = v[i+1:]
	}
	code, err := strconv.Atoi(v)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, s)
	}
	return code, nil
}

// TransformFor：返回 crs → EPSG:4326 的变换；同一 CRS 只构建一次
func (r *Reprojector) TransformFor(crs string) (Transform, error) {
	code, err := ParseCRS(crs)
	if err != nil {
		return nil, err
	}
	if code == DisplayCode {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.funcs[code]; ok {
		return f, nil
	}
	ref := r.epsg.Code(code)
	if ref == nil {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, code)
	}
	// 不按坐标系适用范围截断：跨带足迹的边缘顶点照常换算
	fn := wgs84.Transform(ref, wgs84.LonLat())
	f := Transform(func(x, y float64) (float64, float64) {
		lon, lat, _ := fn(x, y, 0)
		return lon, lat
	})
	r.funcs[code] = f
	return f, nil
}

// Geometry：将几何从 crs 变换到展示坐标系；换算结果出现非有限值或超出经纬度范围时返回 ErrOutOfDomain
func (r *Reprojector) Geometry(g orb.Geometry, crs string) (orb.Geometry, error) {
	f, err := r.TransformFor(crs)
	if err != nil {
		return nil, err
	}
	out := Apply(g, f)
	if p, ok := firstInvalid(out); ok {
		return nil, fmt.Errorf("%w: %s -> %v", ErrOutOfDomain, crs, p)
	}
	return out, nil
}

func firstInvalid(g orb.Geometry) (orb.Point, bool) {
	var bad orb.Point
	found := false
	Apply(g, func(x, y float64) (float64, float64) {
		if !found && !validLonLat(x, y) {
			bad, found = orb.Point{x, y}, true
		}
		return x, y
	})
	return bad, found
}

func validLonLat(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return math.Abs(lon) <= 180 && math.Abs(lat) <= 90
}

// 文档注释：获取展示坐标系下的足迹
// 背景：每次缓存未命中只执行一次，不按区域重复；大 MultiPolygon 的点数可达数万。
// 返回：概览为空、数据集数为 0 或没有足迹几何时 ok=false；CRS 不支持返回 error。
func (r *Reprojector) Footprint(p *summary.PeriodSummary) (orb.Geometry, bool, error) {
	if p == nil || p.DatasetCount == 0 || p.FootprintGeometry == nil {
		return nil, false, nil
	}
	start := time.Now()
	out, err := r.Geometry(p.FootprintGeometry, p.FootprintCRS)
	if err != nil {
		return nil, false, err
	}
	logger.L().Info("overview.footprint_size_diff",
		"from_points", pointCount(p.FootprintGeometry),
		"to_points", pointCount(out),
		"crs", p.FootprintCRS,
	)
	d := time.Since(start)
	metrics.ReprojectDurationMs.Observe(float64(d.Milliseconds()))
	logger.L().Debug("overview.footprint_proj", "time_sec", d.Seconds())
	return out, true, nil
}

// 文档注释：逐点应用变换
// 约束：保持几何结构、环数量、每环点数与环顺序不变；不修改输入几何。
func Apply(g orb.Geometry, f Transform) orb.Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Point:
		x, y := f(v[0], v[1])
		return orb.Point{x, y}
	case orb.MultiPoint:
		return orb.MultiPoint(applyPoints(v, f))
	case orb.LineString:
		return orb.LineString(applyPoints(v, f))
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(v))
		for i, ls := range v {
			out[i] = orb.LineString(applyPoints(ls, f))
		}
		return out
	case orb.Ring:
		return applyRing(v, f)
	case orb.Polygon:
		return applyPolygon(v, f)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, p := range v {
			out[i] = applyPolygon(p, f)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(v))
		for i, c := range v {
			out[i] = Apply(c, f)
		}
		return out
	case orb.Bound:
		return applyPolygon(v.ToPolygon(), f)
	}
	return g
}

func applyPoints(pts []orb.Point, f Transform) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		x, y := f(p[0], p[1])
		out[i] = orb.Point{x, y}
	}
	return out
}

func applyRing(r orb.Ring, f Transform) orb.Ring { return orb.Ring(applyPoints(r, f)) }

func applyPolygon(p orb.Polygon, f Transform) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = applyRing(r, f)
	}
	return out
}

func pointCount(g orb.Geometry) int {
	switch v := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(v)
	case orb.LineString:
		return len(v)
	case orb.Ring:
		return len(v)
	case orb.MultiLineString:
		n := 0
		for _, ls := range v {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range v {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range v {
			n += pointCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range v {
			n += pointCount(c)
		}
		return n
	}
	return 0
}
