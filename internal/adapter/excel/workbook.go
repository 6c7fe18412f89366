// Package excel writes and reads the Sources workbook produced by the
// historical flattener.
package excel

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the Sources workbook.
const (
	SheetSources         = "Sources"
	SheetSourcesBySeason = "Sources by Season"

	defaultSheet = "Sheet1"
)

// Writer builds the Sources workbook.
type Writer struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a workbook writer. The clock stamps the document's
// creation time.
func NewWriter(clock clockwork.Clock, logger *slog.Logger) *Writer {
	return &Writer{clock: clock, logger: logger}
}

// WriteSources writes the Sources and Sources by Season sheets to path.
// Both sheets are written even when they have no data rows.
func (w *Writer) WriteSources(path string, sources []domain.SourceRow, coverage []domain.CoverageRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Snowtistics sources",
		Creator: "snowtistics-etl",
		Created: w.clock.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("set document properties: %w", err)
	}

	if err := writeSheet(f, SheetSources, domain.SourceColumns, sourceRows(sources)); err != nil {
		return fmt.Errorf("write %s sheet: %w", SheetSources, err)
	}
	if err := writeSheet(f, SheetSourcesBySeason, domain.CoverageColumns(), coverageRows(coverage)); err != nil {
		return fmt.Errorf("write %s sheet: %w", SheetSourcesBySeason, err)
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(SheetSources)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}

	w.logger.Info("workbook written", "path", path,
		"sources", len(sources), "coverage", len(coverage))
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func sourceRows(sources []domain.SourceRow) [][]any {
	rows := make([][]any, 0, len(sources))
	for _, s := range sources {
		rows = append(rows, []any{
			cellValue(s.Source),
			s.CSTLocationID,
			cellValue(s.SourceLocationID),
			cellValue(s.City),
			cellValue(s.State),
			cellValue(s.Zipcode),
		})
	}
	return rows
}

func coverageRows(coverage []domain.CoverageRow) [][]any {
	rows := make([][]any, 0, len(coverage))
	for _, c := range coverage {
		row := make([]any, 0, len(c.Seasons)+1)
		row = append(row, c.LocationID)
		for _, v := range c.Seasons {
			row = append(row, cellValue(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// cellValue types a rendered value for the sheet. Empty values become blank
// cells. Numbers are stored as numbers only when they print back identically,
// so zipcodes with leading zeros stay text.
func cellValue(s string) any {
	switch s {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) &&
		strconv.FormatFloat(v, 'f', -1, 64) == s {
		return v
	}
	return s
}
