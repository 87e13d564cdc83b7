package screener

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/report"
)

type recordingRecorder struct {
	saved []*models.RunReport
	err   error
}

func (r *recordingRecorder) SaveRun(rep *models.RunReport) error {
	r.saved = append(r.saved, rep)
	return r.err
}

// failingWriter fails delta writes for selected symbols and the eligibility file on demand.
type failingWriter struct {
	*report.FileWriter
	failEligible bool
	failDeltas   map[string]bool
}

func (w *failingWriter) WriteEligible(e []models.EligibleEquity) (string, error) {
	if w.failEligible {
		return w.EligiblePath, errors.New("disk full")
	}
	return w.FileWriter.WriteEligible(e)
}

func (w *failingWriter) WriteDeltas(symbol string, s models.PriceDeltaSeries) (string, error) {
	if w.failDeltas[symbol] {
		return "", errors.New("disk full")
	}
	return w.FileWriter.WriteDeltas(symbol, s)
}

func endToEndGateway() *fakeGateway {
	return &fakeGateway{
		symbols: []string{"WIDE", "NARROW", "CHEAP", "DOWN", ""},
		prices:  map[string]float64{"WIDE": 1500, "NARROW": 2500, "CHEAP": 10},
		trade: map[string]models.TradeInfo{
			"WIDE":   {FFMC: 6000, TotalMarketCap: 10000},
			"NARROW": {FFMC: 7000, TotalMarketCap: 10000},
		},
		fail: map[string]bool{"DOWN": true},
		bars: map[string][]models.HistoricalBar{
			"WIDE":   barsOf([]float64{1000, 1400}, []float64{200, 150}, []float64{500, 900}, []float64{480, 500}),
			"NARROW": barsOf([]float64{100, 150, 120}, []float64{80, 90, 85}, []float64{1, 2, 3}, []float64{0, 0, 0}),
		},
	}
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	w := report.NewFileWriter(filepath.Join(dir, "marketCapEligibleEquities.csv"), filepath.Join(dir, "stock_data"))
	rec := &recordingRecorder{}

	p := NewPipeline(endToEndGateway(), DefaultCriteria(window), 4, w, rec)
	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Universe)
	assert.Len(t, rep.PriceEligible, 2)
	assert.Len(t, rep.Eligible, 2)
	assert.Equal(t, []string{"WIDE"}, rep.VolatileSymbols())
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))

	kinds := models.CountByKind(rep.Failures)
	assert.Equal(t, 1, kinds[models.FailureInvalidSymbol])
	assert.Equal(t, 1, kinds[models.FailureFetch])

	b, err := os.ReadFile(w.EligiblePath)
	require.NoError(t, err)
	assert.Equal(t, "symbol\nWIDE\nNARROW", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "stock_data", "WIDE.csv"))
	require.NoError(t, err)
	assert.Equal(t, "20\n400", string(b))

	_, err = os.Stat(filepath.Join(dir, "stock_data", "NARROW.csv"))
	assert.True(t, os.IsNotExist(err), "below-range symbol must not be written")

	require.Len(t, rec.saved, 1)
	assert.Equal(t, rep.ID, rec.saved[0].ID)
}

func TestPipeline_Run_ListFailureIsFatal(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("outage")}
	p := NewPipeline(gw, DefaultCriteria(window), 1, report.NewFileWriter(filepath.Join(t.TempDir(), "e.csv"), t.TempDir()), nil)

	rep, err := p.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, rep)
}

func TestPipeline_Run_WriteFailuresAreContained(t *testing.T) {
	dir := t.TempDir()
	w := &failingWriter{
		FileWriter:   report.NewFileWriter(filepath.Join(dir, "e.csv"), filepath.Join(dir, "stock_data")),
		failEligible: true,
		failDeltas:   map[string]bool{"WIDE": true},
	}
	rec := &recordingRecorder{err: errors.New("db down")}

	rep, err := NewPipeline(endToEndGateway(), DefaultCriteria(window), 2, w, rec).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"WIDE"}, rep.VolatileSymbols(), "screening continues after the eligibility write fails")
	assert.Equal(t, 2, models.CountByKind(rep.Failures)[models.FailureWrite])
	var reportRow *models.ScreeningResult
	for _, row := range rep.Results() {
		if row.Stage == models.StageReport {
			reportRow = &row
		}
	}
	require.NotNil(t, reportRow)
	assert.Equal(t, w.EligiblePath, reportRow.Symbol, "eligibility write failure is keyed by the report path")
	assert.Len(t, rec.saved, 1, "recorder failure is logged, not fatal")
}

func TestPipeline_ScreenFile(t *testing.T) {
	dir := t.TempDir()
	w := report.NewFileWriter(filepath.Join(dir, "eligible.csv"), filepath.Join(dir, "stock_data"))
	require.NoError(t, os.WriteFile(w.EligiblePath, []byte("symbol\nWIDE\nNARROW\n"), 0o644))

	rep, err := NewPipeline(endToEndGateway(), DefaultCriteria(window), 2, w, nil).ScreenFile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Universe)
	assert.Empty(t, rep.Eligible)
	require.Len(t, rep.Volatility, 2)
	assert.Equal(t, []string{"WIDE"}, rep.VolatileSymbols())
	assert.FileExists(t, filepath.Join(dir, "stock_data", "WIDE.csv"))
}

func TestPipeline_ScreenFile_MissingReport(t *testing.T) {
	w := report.NewFileWriter(filepath.Join(t.TempDir(), "missing.csv"), t.TempDir())
	_, err := NewPipeline(endToEndGateway(), DefaultCriteria(window), 1, w, nil).ScreenFile(context.Background())
	assert.Error(t, err)
}

func TestPipeline_Eligibility(t *testing.T) {
	dir := t.TempDir()
	gw := endToEndGateway()
	w := report.NewFileWriter(filepath.Join(dir, "eligible.csv"), filepath.Join(dir, "stock_data"))
	rec := &recordingRecorder{}

	rep, err := NewPipeline(gw, DefaultCriteria(window), 2, w, rec).Eligibility(context.Background())
	require.NoError(t, err)

	assert.Len(t, rep.Eligible, 2)
	assert.Empty(t, rep.Volatility)
	assert.Zero(t, gw.calls("WIDE")+gw.calls("NARROW"), "eligibility mode must not fetch bars")

	b, err := os.ReadFile(w.EligiblePath)
	require.NoError(t, err)
	assert.Equal(t, "symbol\nWIDE\nNARROW", string(b))
	assert.NoDirExists(t, filepath.Join(dir, "stock_data"))
	require.Len(t, rec.saved, 1)
}
