package migrate

import (
	"database/sql"

	"cubedash/internal/logger"
)

// 背景：首次运行创建汇总后端所需的 schema、表与索引（依赖 PostGIS 扩展）
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；概览内容由外部汇总步骤写入
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE SCHEMA IF NOT EXISTS cubedash`,
		`CREATE TABLE IF NOT EXISTS cubedash.product (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            region_scheme TEXT NOT NULL DEFAULT '',
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
            summary_complete BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS cubedash.dataset_spatial (
            id TEXT PRIMARY KEY,
            product_ref INT NOT NULL REFERENCES cubedash.product(id),
            center_time TIMESTAMPTZ NOT NULL,
            region_code TEXT,
            footprint GEOMETRY
        )`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_spatial_product_time ON cubedash.dataset_spatial(product_ref, center_time)`,
		`CREATE TABLE IF NOT EXISTS cubedash.time_overview (
            product_ref INT NOT NULL REFERENCES cubedash.product(id),
            period_type TEXT NOT NULL,
            start_day DATE NOT NULL,
            dataset_count INT NOT NULL DEFAULT 0,
            footprint_count INT NOT NULL DEFAULT 0,
            footprint_geometry GEOMETRY,
            regions JSONB NOT NULL DEFAULT '{}'::jsonb,
            time_earliest TIMESTAMPTZ,
            time_latest TIMESTAMPTZ,
            generated TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (product_ref, period_type, start_day)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_time_overview_generated ON cubedash.time_overview(generated)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
