package dto

import (
	"testing"

	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

func TestNewRunResponse(t *testing.T) {
	id := uuid.New()
	sum := models.RunSummary{ID: id, Universe: 3, Eligible: 1, Volatile: 1}
	rows := []models.ScreeningResult{{RunID: id, Symbol: "TCS", Stage: models.StageVolatility, Outcome: "volatile", Deltas: []string{"20"}}}

	got := NewRunResponse(sum, rows)
	if got.ID != id.String() || got.Universe != 3 || got.Volatile != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if len(got.Results) != 1 || got.Results[0].Stage != "volatility" || got.Results[0].Deltas[0] != "20" {
		t.Fatalf("unexpected results %+v", got.Results)
	}

	empty := NewRunResponse(sum, nil)
	if empty.Results == nil || len(empty.Results) != 0 {
		t.Fatalf("results must be an empty slice, got %#v", empty.Results)
	}
}
