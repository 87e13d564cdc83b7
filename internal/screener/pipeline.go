package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/gateway"
	"github.com/guttosm/nsepulse/internal/logger"
)

// ReportWriter persists the two report sinks.
type ReportWriter interface {
	WriteEligible(equities []models.EligibleEquity) (string, error)
	WriteDeltas(symbol string, series models.PriceDeltaSeries) (string, error)
	ReadEligible() ([]string, error)
}

// RunRecorder stores a finished run. Optional.
type RunRecorder interface {
	SaveRun(report *models.RunReport) error
}

// Pipeline wires Gateway → EligibilityFilter → VolatilityScreener → ReportWriter.
type Pipeline struct {
	gw          gateway.Gateway
	eligibility *EligibilityFilter
	volatility  *VolatilityScreener
	writer      ReportWriter
	recorder    RunRecorder
	now         func() time.Time
}

// NewPipeline creates a pipeline. recorder may be nil.
func NewPipeline(gw gateway.Gateway, criteria Criteria, parallel int, writer ReportWriter, recorder RunRecorder) *Pipeline {
	return &Pipeline{
		gw:          gw,
		eligibility: NewEligibilityFilter(gw, criteria, parallel),
		volatility:  NewVolatilityScreener(gw, criteria, parallel),
		writer:      writer,
		recorder:    recorder,
		now:         time.Now,
	}
}

// Run executes a full screening run. The only fatal error is failing to list
// the symbol universe; every per-symbol problem, report write failures
// included, ends up in RunReport.Failures.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	report, symbols, err := p.start(ctx)
	if err != nil {
		return nil, err
	}

	p.RunEligibility(ctx, report, symbols)

	candidates := make([]string, len(report.Eligible))
	for i, e := range report.Eligible {
		candidates[i] = e.Symbol
	}
	p.RunVolatility(ctx, report, candidates)

	p.finish(report)
	return report, nil
}

// Eligibility lists the universe and runs only the two eligibility stages,
// writing the eligibility CSV.
func (p *Pipeline) Eligibility(ctx context.Context) (*models.RunReport, error) {
	report, symbols, err := p.start(ctx)
	if err != nil {
		return nil, err
	}
	p.RunEligibility(ctx, report, symbols)
	p.finish(report)
	return report, nil
}

func (p *Pipeline) start(ctx context.Context) (*models.RunReport, []string, error) {
	report := models.NewRunReport(p.now())
	log := logger.L().With().Str("run_id", report.ID.String()).Logger()

	log.Info().Msg("fetching all stock symbols")
	symbols, err := p.gw.ListSymbols(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list symbols: %w", err)
	}
	report.Universe = len(symbols)
	log.Info().Int("symbols", len(symbols)).Msg("symbols fetched")
	return report, symbols, nil
}

// RunEligibility runs both eligibility stages for symbols into report and
// writes the eligibility CSV. A write failure is recorded, not returned.
func (p *Pipeline) RunEligibility(ctx context.Context, report *models.RunReport, symbols []string) {
	res := p.eligibility.Run(ctx, symbols)
	report.PriceEligible = res.PriceEligible
	report.Eligible = res.Eligible
	report.Failures = append(report.Failures, res.Failures...)

	path, err := p.writer.WriteEligible(res.Eligible)
	if err != nil {
		logger.L().Error().Err(err).Msg("eligibility report write failed")
		report.Failures = append(report.Failures, models.SymbolFailure{
			Symbol: path, Stage: models.StageReport, Kind: models.FailureWrite, Err: err,
		})
		return
	}
	logger.L().Info().Str("path", path).Int("eligible", len(res.Eligible)).Msg("eligibility report saved")
}

// RunVolatility screens symbols into report and writes one delta file per
// volatile symbol. Write failures affect only that symbol's file.
func (p *Pipeline) RunVolatility(ctx context.Context, report *models.RunReport, symbols []string) {
	results, failures := p.volatility.ScreenAll(ctx, symbols)
	report.Volatility = append(report.Volatility, results...)
	report.Failures = append(report.Failures, failures...)

	for _, r := range results {
		if !r.Volatile() {
			continue
		}
		path, err := p.writer.WriteDeltas(r.Symbol, r.Deltas)
		if err != nil {
			logger.L().Error().Str("symbol", r.Symbol).Err(err).Msg("delta report write failed")
			report.Failures = append(report.Failures, models.SymbolFailure{
				Symbol: r.Symbol, Stage: models.StageReport, Kind: models.FailureWrite, Err: err,
			})
			continue
		}
		logger.L().Info().Str("symbol", r.Symbol).Str("path", path).Msg("delta report saved")
	}
}

// ScreenFile re-runs only the volatility stage over the symbols of an existing
// eligibility report.
func (p *Pipeline) ScreenFile(ctx context.Context) (*models.RunReport, error) {
	symbols, err := p.writer.ReadEligible()
	if err != nil {
		return nil, fmt.Errorf("read eligibility report: %w", err)
	}

	report := models.NewRunReport(p.now())
	report.Universe = len(symbols)

	valid := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym, ok := NormalizeSymbol(s)
		if !ok {
			report.Failures = append(report.Failures, models.SymbolFailure{Symbol: s, Stage: models.StageVolatility, Kind: models.FailureInvalidSymbol})
			continue
		}
		valid = append(valid, sym)
	}

	p.RunVolatility(ctx, report, valid)
	p.finish(report)
	logger.L().Info().Int("symbols", len(valid)).Msg("eligibility file processed")
	return report, nil
}

func (p *Pipeline) finish(report *models.RunReport) {
	report.FinishedAt = p.now()
	s := report.Summary()
	kinds := models.CountByKind(report.Failures)
	logger.L().Info().
		Str("run_id", report.ID.String()).
		Int("universe", s.Universe).
		Int("price_eligible", s.PriceEligible).
		Int("eligible", s.Eligible).
		Int("volatile", s.Volatile).
		Int("invalid_symbols", kinds[models.FailureInvalidSymbol]).
		Int("fetch_errors", kinds[models.FailureFetch]).
		Int("no_data", kinds[models.FailureNoData]).
		Int("write_errors", kinds[models.FailureWrite]).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("screening run finished")

	if p.recorder == nil {
		return
	}
	if err := p.recorder.SaveRun(report); err != nil {
		logger.L().Error().Str("run_id", report.ID.String()).Err(err).Msg("failed to record run")
	}
}
