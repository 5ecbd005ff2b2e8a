package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cubedash/internal/cache"
	"cubedash/internal/logger"
	"cubedash/internal/model"
	"cubedash/internal/reproject"
	"cubedash/internal/store"
	"cubedash/internal/utils"

	"github.com/joho/godotenv"
)

// 文档注释：列出已生成概览的产品
// 背景：部署后检查汇总是否就绪；没有任何产品时以非零状态退出并提示运行汇总生成步骤。
// 约束：只读；不使用区域目录。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	st, err := store.Open(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	svc := model.NewService(st, cache.New(cache.NewMemoryStore(64), ""), reproject.New(), nil,
		utils.EnvString("SUMMARIES_DIR", "product-summaries"))
	ctx := context.Background()
	products, err := svc.GetProductsWithSummaries(ctx)
	if errors.Is(err, model.ErrNoSummaries) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		l.Error("products_error", "err", err)
		os.Exit(1)
	}
	for _, p := range products {
		count := 0
		if p.Summary != nil {
			count = p.Summary.DatasetCount
		}
		fmt.Printf("%s\t%d\t%s\n", p.Product.Name, count, p.Product.RegionScheme)
	}
	if t, err := svc.GetLastUpdated(ctx); err == nil && t != nil {
		l.Info("last_updated", "time", t.Format("2006-01-02T15:04:05Z07:00"))
	}
}
