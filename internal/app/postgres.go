package app

import (
	"database/sql"
	"fmt"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// migrator applies the run history schema; overridden in tests.
var migrator = storage.Migrate

// InitPostgres opens the run history database described by cfg.Postgres and
// pings it. cfg.Postgres.URL wins over the individual fields when set.
//
// Example usage:
//
//	db, err := app.InitPostgres(config.AppConfig)
//	if err != nil {
//	    log.Fatalf("❌ failed to connect: %v", err)
//	}
//	defer db.Close()
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	dsn := cfg.Postgres.URL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.DBName,
			cfg.Postgres.SSLMode,
		)
	}

	db, err := sqlOpener("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener is an indirection used by InitializeApp and InitHistory;
// overridden in tests to avoid real connections.
var postgresOpener = InitPostgres

// InitHistory opens and migrates the run history database and returns a
// repository to record runs into, plus its cleanup.
func InitHistory(cfg config.Config) (storage.RunsRepository, func(), error) {
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := migrator(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return storage.NewRunsRepository(db), func() { _ = db.Close() }, nil
}
