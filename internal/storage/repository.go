package storage

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// RunsRepository defines contract for run history persistence.
type RunsRepository interface {
	SaveRun(report *models.RunReport) error
	GetLatestRun() (*models.RunSummary, error)
	GetRun(id uuid.UUID) (*models.RunSummary, error)
	ListResults(id uuid.UUID) ([]models.ScreeningResult, error)
}

type runsRepository struct {
	db *sql.DB
}

func NewRunsRepository(db *sql.DB) RunsRepository {
	return &runsRepository{db: db}
}

const runColumns = `id, started_at, finished_at, universe, price_eligible, eligible, volatile, failures`

// SaveRun stores the run summary and bulk-loads its per-symbol rows in a single transaction.
func (r *runsRepository) SaveRun(report *models.RunReport) error {
	s := report.Summary()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO screening_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.StartedAt, s.FinishedAt, s.Universe, s.PriceEligible, s.Eligible, s.Volatile, s.Failures); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn(
		"screening_results",
		"run_id",
		"symbol",
		"stage",
		"outcome",
		"price_range",
		"deltas",
		"detail",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, row := range report.Results() {
		if _, err := stmt.Exec(
			row.RunID,
			row.Symbol,
			string(row.Stage),
			row.Outcome,
			row.Range,
			pq.Array(row.Deltas),
			row.Detail,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetLatestRun returns the most recently started run, or nil when none exists.
func (r *runsRepository) GetLatestRun() (*models.RunSummary, error) {
	row := r.db.QueryRow(`SELECT ` + runColumns + ` FROM screening_runs ORDER BY started_at DESC LIMIT 1`)
	return scanRun(row)
}

// GetRun returns the run with the given id, or nil when it does not exist.
func (r *runsRepository) GetRun(id uuid.UUID) (*models.RunSummary, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM screening_runs WHERE id = $1`, id)
	return scanRun(row)
}

// ListResults returns the per-symbol rows of a run ordered by stage then symbol.
func (r *runsRepository) ListResults(id uuid.UUID) ([]models.ScreeningResult, error) {
	rows, err := r.db.Query(`
		SELECT run_id, symbol, stage, outcome, price_range, deltas, detail
		FROM screening_results
		WHERE run_id = $1
		ORDER BY stage, symbol
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ScreeningResult
	for rows.Next() {
		var (
			res    models.ScreeningResult
			stage  string
			deltas []string
			detail sql.NullString
		)
		if err := rows.Scan(&res.RunID, &res.Symbol, &stage, &res.Outcome, &res.Range, pq.Array(&deltas), &detail); err != nil {
			return nil, err
		}
		res.Stage = models.Stage(stage)
		res.Deltas = deltas
		res.Detail = detail.String
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanRun(row *sql.Row) (*models.RunSummary, error) {
	var s models.RunSummary
	err := row.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Universe, &s.PriceEligible, &s.Eligible, &s.Volatile, &s.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
