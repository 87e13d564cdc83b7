//go:build integration
// +build integration

package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/storage"
)

func startPG(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "nsepulse",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=nsepulse sslmode=disable", h, p.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/nsepulse?sslmode=disable", h, mp.Port())
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db, func() {
		_ = db.Close()
		_ = c.Terminate(context.Background())
	}
}

func TestRunsRepository_RoundTrip(t *testing.T) {
	db, done := startPG(t)
	defer done()

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Second run is a no-op.
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	repo := storage.NewRunsRepository(db)

	if got, err := repo.GetLatestRun(); err != nil || got != nil {
		t.Fatalf("empty history: got=%+v err=%v", got, err)
	}

	start := time.Now().UTC().Truncate(time.Second)
	report := models.NewRunReport(start)
	report.FinishedAt = start.Add(2 * time.Second)
	report.Universe = 2
	report.Eligible = []models.EligibleEquity{{Symbol: "TCS", LastPrice: 500}}
	report.Volatility = []models.VolatilityResult{{Symbol: "TCS", Status: models.StatusVolatile, Range: 60}}
	report.Failures = []models.SymbolFailure{{Symbol: "BAD", Stage: models.StagePrice, Kind: models.FailureFetch, Err: errors.New("timeout")}}

	if err := repo.SaveRun(report); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := repo.GetLatestRun()
	if err != nil || latest == nil {
		t.Fatalf("latest: got=%+v err=%v", latest, err)
	}
	if latest.ID != report.ID || latest.Volatile != 1 || latest.Failures != 1 {
		t.Fatalf("unexpected summary %+v", latest)
	}

	rows, err := repo.ListResults(report.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(rows) != len(report.Results()) {
		t.Fatalf("want %d rows, got %d", len(report.Results()), len(rows))
	}
}
