// 包 store: PostgreSQL/PostGIS 汇总后端，读取预生成的时段概览并支持日粒度同步重算
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cubedash/internal/logger"
	"cubedash/internal/summary"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
)

// Store: 数据库访问入口，持有连接池；实现 summary.Backend
type Store struct {
	db *sql.DB
}

var _ summary.Backend = (*Store)(nil)

// 全时段概览的固定起始日
var allTimeStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开连接池；sql.Open 不建立连接，可在 fork 前调用
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// periodOf: 时间分桶 → (period_type, start_day, [from, to))
func periodOf(t summary.TimeSpec) (string, time.Time, *time.Time, *time.Time) {
	switch {
	case t.Day != nil:
		from := time.Date(*t.Year, time.Month(*t.Month), *t.Day, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		return "day", from, &from, &to
	case t.Month != nil:
		from := time.Date(*t.Year, time.Month(*t.Month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		return "month", from, &from, &to
	case t.Year != nil:
		from := time.Date(*t.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		return "year", from, &from, &to
	}
	return "all", allTimeStart, nil, nil
}

const selectOverview = `SELECT o.dataset_count, o.footprint_count, ST_AsBinary(o.footprint_geometry), ST_SRID(o.footprint_geometry),
       o.regions, o.time_earliest, o.time_latest, o.generated
FROM cubedash.time_overview o
JOIN cubedash.product p ON p.id = o.product_ref
WHERE p.name = $1 AND o.period_type = $2 AND o.start_day = $3`

// Get: 读取已存储的时段概览；不存在返回 (nil, nil)
func (s *Store) Get(ctx context.Context, product string, t summary.TimeSpec) (*summary.PeriodSummary, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	period, start, _, _ := periodOf(t)
	row := s.db.QueryRowContext(ctx, selectOverview, product, period, start)
	var (
		out      summary.PeriodSummary
		fpWKB    []byte
		srid     sql.NullInt64
		regions  []byte
		earliest sql.NullTime
		latest   sql.NullTime
		gen      sql.NullTime
	)
	err := row.Scan(&out.DatasetCount, &out.FootprintCount, &fpWKB, &srid, &regions, &earliest, &latest, &gen)
	if errors.Is(err, sql.ErrNoRows) {
		logger.L().Debug("overview_miss", "product", product, "period", period, "start", start.Format("2006-01-02"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(fpWKB) > 0 && out.DatasetCount > 0 {
		g, err := wkb.Unmarshal(fpWKB)
		if err != nil {
			return nil, fmt.Errorf("decode footprint of %s: %w", product, err)
		}
		out.FootprintGeometry = g
		out.FootprintCRS = fmt.Sprintf("EPSG:%d", srid.Int64)
	}
	if len(regions) > 0 {
		if err := json.Unmarshal(regions, &out.RegionDatasetCounts); err != nil {
			return nil, fmt.Errorf("decode regions of %s: %w", product, err)
		}
	}
	if earliest.Valid {
		out.TimeEarliest = &earliest.Time
	}
	if latest.Valid {
		out.TimeLatest = &latest.Time
	}
	if gen.Valid {
		out.GeneratedAt = &gen.Time
	}
	return &out, nil
}

const refreshDay = `INSERT INTO cubedash.time_overview
    (product_ref, period_type, start_day, dataset_count, footprint_count, footprint_geometry, regions, time_earliest, time_latest, generated)
SELECT p.id, 'day', $2::date, count(d.id), count(d.footprint),
       ST_Union(ST_Transform(d.footprint, COALESCE((p.metadata->>'footprint_srid')::int, 4326))),
       COALESCE((SELECT jsonb_object_agg(r.region_code, r.n) FROM (
           SELECT x.region_code, count(*) AS n FROM cubedash.dataset_spatial x
           WHERE x.product_ref = p.id AND x.center_time >= $3 AND x.center_time < $4 AND x.region_code IS NOT NULL
           GROUP BY x.region_code) r), '{}'::jsonb),
       min(d.center_time), max(d.center_time), now()
FROM cubedash.product p
LEFT JOIN cubedash.dataset_spatial d ON d.product_ref = p.id AND d.center_time >= $3 AND d.center_time < $4
WHERE p.name = $1
GROUP BY p.id, p.metadata
ON CONFLICT (product_ref, period_type, start_day) DO UPDATE SET
    dataset_count = EXCLUDED.dataset_count,
    footprint_count = EXCLUDED.footprint_count,
    footprint_geometry = EXCLUDED.footprint_geometry,
    regions = EXCLUDED.regions,
    time_earliest = EXCLUDED.time_earliest,
    time_latest = EXCLUDED.time_latest,
    generated = EXCLUDED.generated`

// 文档注释：日粒度概览同步重算后读取
// 背景：单日数据量小，重算开销可接受；其他粒度不支持，回退为只读。
func (s *Store) GetOrUpdate(ctx context.Context, product string, t summary.TimeSpec) (*summary.PeriodSummary, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Day == nil {
		return s.Get(ctx, product, t)
	}
	_, start, from, to := periodOf(t)
	res, err := s.db.ExecContext(ctx, refreshDay, product, start, *from, *to)
	if err != nil {
		return nil, fmt.Errorf("refresh %s %s: %w", product, start.Format("2006-01-02"), err)
	}
	n, _ := res.RowsAffected()
	logger.L().Debug("overview_day_refresh", "product", product, "day", start.Format("2006-01-02"), "rows", n)
	return s.Get(ctx, product, t)
}

const selectFootprints = `SELECT d.id, d.center_time, COALESCE(d.region_code, ''), ST_AsBinary(ST_Transform(d.footprint, 4326))
FROM cubedash.dataset_spatial d
JOIN cubedash.product p ON p.id = d.product_ref
WHERE p.name = $1
  AND ($2::timestamptz IS NULL OR d.center_time >= $2)
  AND ($3::timestamptz IS NULL OR d.center_time < $3)
  AND d.footprint IS NOT NULL
ORDER BY d.center_time DESC
LIMIT $4`

// GetDatasetFootprints: 时段内数据集足迹（EPSG:4326），按时间倒序至多 limit 个
func (s *Store) GetDatasetFootprints(ctx context.Context, product string, t summary.TimeSpec, limit int) (*geojson.FeatureCollection, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	_, _, from, to := periodOf(t)
	rows, err := s.db.QueryContext(ctx, selectFootprints, product, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var (
			id     string
			center time.Time
			code   string
			b      []byte
		)
		if err := rows.Scan(&id, &center, &code, &b); err != nil {
			return nil, err
		}
		g, err := wkb.Unmarshal(b)
		if err != nil {
			logger.L().Warn("dataset_footprint_decode_error", "id", id, "err", err)
			continue
		}
		f := geojson.NewFeature(g)
		f.ID = id
		f.Properties = geojson.Properties{
			"id":          id,
			"center_time": center.UTC().Format(time.RFC3339),
		}
		if code != "" {
			f.Properties["region_code"] = code
		}
		fc.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fc, nil
}

// ListCompleteProducts: 已完成汇总的产品名（按名称排序）
func (s *Store) ListCompleteProducts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cubedash.product WHERE summary_complete ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetLastUpdated: 最近一次生成概览的时间；尚无概览返回 nil
func (s *Store) GetLastUpdated(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT max(generated) FROM cubedash.time_overview`).Scan(&t); err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

const selectProduct = `SELECT name, description, region_scheme, metadata FROM cubedash.product`

func scanProduct(sc interface{ Scan(...any) error }) (summary.Product, error) {
	var p summary.Product
	var md []byte
	if err := sc.Scan(&p.Name, &p.Description, &p.RegionScheme, &md); err != nil {
		return p, err
	}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &p.Metadata); err != nil {
			return p, fmt.Errorf("decode metadata of %s: %w", p.Name, err)
		}
	}
	return p, nil
}

// GetProduct: 按名称解析产品；不存在返回 (nil, nil)
func (s *Store) GetProduct(ctx context.Context, name string) (*summary.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, selectProduct+` WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts: 目录中的全部产品
func (s *Store) ListProducts(ctx context.Context) ([]summary.Product, error) {
	rows, err := s.db.QueryContext(ctx, selectProduct+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []summary.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
