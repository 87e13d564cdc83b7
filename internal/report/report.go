// Package report writes and reads the CSV artifacts of a screening run.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// eligibleHeader is the single column of the eligibility report.
const eligibleHeader = "symbol"

// ErrEmptySymbol is returned when a delta report is requested for an empty symbol.
var ErrEmptySymbol = errors.New("empty symbol")

// WriteEligible overwrites path with a "symbol" header followed by one symbol
// per line. Lines are separated by "\n" with no trailing newline.
func WriteEligible(path string, equities []models.EligibleEquity) error {
	lines := make([]string, 0, len(equities)+1)
	lines = append(lines, eligibleHeader)
	for _, e := range equities {
		lines = append(lines, e.Symbol)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write eligibility report: %w", err)
	}
	return nil
}

// WriteDeltas writes series to <dir>/<symbol>.csv, one value per line and no
// header, creating dir when absent. It returns the file path.
func WriteDeltas(dir, symbol string, series models.PriceDeltaSeries) (string, error) {
	name := FileName(symbol)
	if name == "" {
		return "", ErrEmptySymbol
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create stock dir: %w", err)
	}
	path := filepath.Join(dir, name+".csv")
	if err := os.WriteFile(path, []byte(series.String()), 0o644); err != nil {
		return "", fmt.Errorf("write delta report %s: %w", symbol, err)
	}
	return path, nil
}

// FileName maps a symbol to a safe base file name.
func FileName(symbol string) string {
	s := strings.TrimSpace(symbol)
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}

// ReadEligible parses an eligibility report and returns its symbols in file
// order. A leading "symbol" header is skipped, blank rows are ignored and only
// the first column is used.
func ReadEligible(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parseEligible(f)
}

func parseEligible(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []string
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++
		if len(rec) == 0 {
			continue
		}
		v := strings.TrimSpace(rec[0])
		if v == "" {
			continue
		}
		if line == 1 && strings.EqualFold(v, eligibleHeader) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// FileWriter bundles both sinks at fixed locations.
type FileWriter struct {
	EligiblePath string
	StockDir     string
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(eligiblePath, stockDir string) *FileWriter {
	return &FileWriter{EligiblePath: eligiblePath, StockDir: stockDir}
}

// WriteEligible writes the eligibility report and returns its path.
func (w *FileWriter) WriteEligible(equities []models.EligibleEquity) (string, error) {
	return w.EligiblePath, WriteEligible(w.EligiblePath, equities)
}

// WriteDeltas writes one symbol's delta report and returns its path.
func (w *FileWriter) WriteDeltas(symbol string, series models.PriceDeltaSeries) (string, error) {
	return WriteDeltas(w.StockDir, symbol, series)
}

// ReadEligible reads back the eligibility report.
func (w *FileWriter) ReadEligible() ([]string, error) {
	return ReadEligible(w.EligiblePath)
}
