package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/api"
	"github.com/guttosm/nsepulse/internal/service"
	"github.com/guttosm/nsepulse/internal/storage"
)

// redisOpener is an indirection used by InitializeApp; overridden in tests.
var redisOpener = InitRedis

// InitializeApp sets up the run history API and returns a configured Gin
// router, a cleanup function for graceful shutdown, and any error encountered
// during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL and applies migrations.
//   - Wires repository, service and handler layers.
//   - Registers health and readiness probes (postgres, and redis when configured).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := migrator(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	rdb, err := redisOpener(cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	repo := storage.NewRunsRepository(db)
	svc := service.NewRunService(repo)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	api.NewHealthHandler(map[string]func() error{
		"postgres": db.Ping,
		"redis":    redisPing(rdb),
	}).Register(router)

	cleanup := func() {
		_ = db.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	return router, cleanup, nil
}
