// 包 summary：产品时段概览的数据模型与后端契约；几何统一使用 orb 类型
package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrInvalidTimeSpec = errors.New("invalid time spec")
	ErrUnknownProduct  = errors.New("unknown product despite having a summary")
)

// TimeSpec：时间分桶（年/月/日均可缺省）
// 约束：月必须伴随年，日必须伴随月
type TimeSpec struct {
	Year  *int
	Month *int
	Day   *int
}

func Year(y int) TimeSpec { return TimeSpec{Year: &y} }

func Month(y, m int) TimeSpec { return TimeSpec{Year: &y, Month: &m} }

func Day(y, m, d int) TimeSpec { return TimeSpec{Year: &y, Month: &m, Day: &d} }

func (t TimeSpec) Validate() error {
	if t.Month != nil && t.Year == nil {
		return fmt.Errorf("%w: month without year", ErrInvalidTimeSpec)
	}
	if t.Day != nil && t.Month == nil {
		return fmt.Errorf("%w: day without month", ErrInvalidTimeSpec)
	}
	if t.Month != nil && (*t.Month < 1 || *t.Month > 12) {
		return fmt.Errorf("%w: month %d", ErrInvalidTimeSpec, *t.Month)
	}
	if t.Day != nil && (*t.Day < 1 || *t.Day > 31) {
		return fmt.Errorf("%w: day %d", ErrInvalidTimeSpec, *t.Day)
	}
	// 日历校验：2019-02-31 之类的日期会被 time.Date 归一化到下月
	if t.Day != nil {
		d := time.Date(*t.Year, time.Month(*t.Month), *t.Day, 0, 0, 0, 0, time.UTC)
		if d.Day() != *t.Day {
			return fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidTimeSpec, *t.Year, *t.Month, *t.Day)
		}
	}
	return nil
}

// Triple：按 [year, month, day] 输出，未设置的层级为 nil（JSON null）
func (t TimeSpec) Triple() []any {
	out := make([]any, 3)
	for i, v := range []*int{t.Year, t.Month, t.Day} {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func (t TimeSpec) String() string {
	f := func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}
	return f(t.Year) + ":" + f(t.Month) + ":" + f(t.Day)
}

// 文档注释：产品时段概览
// 背景：由外部汇总后端生成，进入本层后只读；重投影与裁剪只产生派生视图。
// 约束：FootprintGeometry 仅在 DatasetCount > 0 时存在；RegionDatasetCounts 仅在产品有区域目录时非空。
type PeriodSummary struct {
	DatasetCount        int
	FootprintGeometry   orb.Geometry
	FootprintCRS        string
	FootprintCount      int
	RegionDatasetCounts map[string]int
	TimeEarliest        *time.Time
	TimeLatest          *time.Time
	GeneratedAt         *time.Time
}

type periodSummaryJSON struct {
	DatasetCount        int               `json:"dataset_count"`
	Footprint           *geojson.Geometry `json:"footprint_geometry,omitempty"`
	FootprintCRS        string            `json:"footprint_crs,omitempty"`
	FootprintCount      int               `json:"footprint_count"`
	RegionDatasetCounts map[string]int    `json:"region_dataset_counts,omitempty"`
	TimeEarliest        *time.Time        `json:"time_earliest,omitempty"`
	TimeLatest          *time.Time        `json:"time_latest,omitempty"`
	GeneratedAt         *time.Time        `json:"generated_at,omitempty"`
}

// MarshalJSON：几何以 GeoJSON 形式编码，便于共享缓存跨进程传递
func (p PeriodSummary) MarshalJSON() ([]byte, error) {
	out := periodSummaryJSON{
		DatasetCount:        p.DatasetCount,
		FootprintCRS:        p.FootprintCRS,
		FootprintCount:      p.FootprintCount,
		RegionDatasetCounts: p.RegionDatasetCounts,
		TimeEarliest:        p.TimeEarliest,
		TimeLatest:          p.TimeLatest,
		GeneratedAt:         p.GeneratedAt,
	}
	if p.FootprintGeometry != nil {
		out.Footprint = geojson.NewGeometry(p.FootprintGeometry)
	}
	return json.Marshal(out)
}

func (p *PeriodSummary) UnmarshalJSON(b []byte) error {
	var in periodSummaryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = PeriodSummary{
		DatasetCount:        in.DatasetCount,
		FootprintCRS:        in.FootprintCRS,
		FootprintCount:      in.FootprintCount,
		RegionDatasetCounts: in.RegionDatasetCounts,
		TimeEarliest:        in.TimeEarliest,
		TimeLatest:          in.TimeLatest,
		GeneratedAt:         in.GeneratedAt,
	}
	if in.Footprint != nil {
		p.FootprintGeometry = in.Footprint.Geometry()
	}
	return nil
}

// Product：目录中的产品定义；RegionScheme 决定区域目录类型
type Product struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	RegionScheme string         `json:"region_scheme,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ProductSummary：已生成概览的产品与其全时段概览
type ProductSummary struct {
	Product Product        `json:"product"`
	Summary *PeriodSummary `json:"summary,omitempty"`
}

// 文档注释：汇总后端契约
// 背景：概览的计算与持久化由外部后端负责，本层只读取；日粒度允许同步重算。
// 约束：未找到时返回 (nil, nil)；后端故障原样返回 error。
type Backend interface {
	Get(ctx context.Context, product string, t TimeSpec) (*PeriodSummary, error)
	GetOrUpdate(ctx context.Context, product string, t TimeSpec) (*PeriodSummary, error)
	GetDatasetFootprints(ctx context.Context, product string, t TimeSpec, limit int) (*geojson.FeatureCollection, error)
	ListCompleteProducts(ctx context.Context) ([]string, error)
	GetLastUpdated(ctx context.Context) (*time.Time, error)
	GetProduct(ctx context.Context, name string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}
