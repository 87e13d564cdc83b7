package dto

import (
	"time"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// RunResponse represents the JSON structure returned by the
// GET /api/v1/runs endpoints.
//
// Fields match the API contract and may differ from internal domain models.
type RunResponse struct {
	ID            string           `json:"id"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Universe      int              `json:"universe"`
	PriceEligible int              `json:"price_eligible"`
	Eligible      int              `json:"eligible"`
	Volatile      int              `json:"volatile"`
	Failures      int              `json:"failures"`
	Results       []ResultResponse `json:"results"`
}

// ResultResponse is one per-symbol row of a run.
type ResultResponse struct {
	Symbol  string   `json:"symbol"`
	Stage   string   `json:"stage"`
	Outcome string   `json:"outcome"`
	Range   float64  `json:"range,omitempty"`
	Deltas  []string `json:"deltas,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// NewRunResponse maps a stored run to its API shape.
func NewRunResponse(sum models.RunSummary, rows []models.ScreeningResult) RunResponse {
	out := RunResponse{
		ID:            sum.ID.String(),
		StartedAt:     sum.StartedAt,
		FinishedAt:    sum.FinishedAt,
		Universe:      sum.Universe,
		PriceEligible: sum.PriceEligible,
		Eligible:      sum.Eligible,
		Volatile:      sum.Volatile,
		Failures:      sum.Failures,
		Results:       make([]ResultResponse, 0, len(rows)),
	}
	for _, r := range rows {
		out.Results = append(out.Results, ResultResponse{
			Symbol:  r.Symbol,
			Stage:   string(r.Stage),
			Outcome: r.Outcome,
			Range:   r.Range,
			Deltas:  r.Deltas,
			Detail:  r.Detail,
		})
	}
	return out
}
