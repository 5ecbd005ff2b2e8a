// 程序入口：读取配置、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"net/http"
	"os"
	"path/filepath"

	"cubedash/internal/api"
	"cubedash/internal/cache"
	"cubedash/internal/logger"
	"cubedash/internal/metrics"
	"cubedash/internal/middleware"
	"cubedash/internal/migrate"
	"cubedash/internal/model"
	"cubedash/internal/region"
	"cubedash/internal/reproject"
	"cubedash/internal/store"
	"cubedash/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.EnvString("API_BASE", "/api")

	// 只创建连接池；首次查询发生在请求处理内，保证多进程部署时不在 fork 前建立连接
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if os.Getenv("ENSURE_SCHEMA") == "true" {
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		l.Info("schema_ok")
	}
	st := store.AttachDB(db)

	var cs cache.Store
	if rc := utils.OpenRedisFromEnv(); rc != nil {
		cs = cache.NewRedisStore(rc)
		l.Info("cache_store", "kind", "redis")
	} else {
		cs = cache.NewMemoryStore(utils.EnvInt("CACHE_CAPACITY", 4096))
		l.Info("cache_store", "kind", "memory")
	}

	reproj := reproject.New()
	regions := region.NewResolver(utils.EnvString("REGION_DATA_DIR", filepath.Join("data", "regions")), reproj.Geometry)
	svc := model.NewService(st, cache.New(cs, "cubedash:"), reproj, regions, utils.EnvString("SUMMARIES_DIR", "product-summaries"))

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(svc)))
	mux.Handle("/metrics", metrics.Handler())

	addr := utils.EnvString("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "cubedash.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath, "api_base", apiBase)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr, "api_base", apiBase)
		err = s.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}
