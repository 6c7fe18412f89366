package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/snowtistics-etl/internal/adapter/excel"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/tabular"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodOutputs(t *testing.T) outputs {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sources.xlsx")
	w := excel.NewWriter(clockwork.NewFakeClock(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.WriteSources(path,
		[]domain.SourceRow{{Source: "NOAA", CSTLocationID: 42, SourceLocationID: "7"}},
		[]domain.CoverageRow{
			{LocationID: 42, Seasons: make([]string, 17)},
			{LocationID: 43, Seasons: make([]string, 17)},
		},
	))
	wb, err := excel.ReadWorkbook(path)
	require.NoError(t, err)

	return outputs{
		input: tabular.Table{
			Header: []string{"City", "location_id"},
			Rows:   [][]string{{"Reno", "42"}, {"Truckee", "43.0"}, {"Nowhere", ""}},
		},
		events: tabular.Table{
			Header: domain.EventColumns,
			Rows:   [][]string{domain.EventRow{LocationID: 42, Source: "NOAA"}.Record()},
		},
		workbook: wb,
	}
}

func failures(phases []*phase) map[string][]string {
	out := make(map[string][]string)
	for _, p := range phases {
		if !p.passed() {
			out[p.name] = p.errors
		}
	}
	return out
}

func TestValidate_AllPass(t *testing.T) {
	assert.Empty(t, failures(validate(goodOutputs(t))))
}

func TestValidate_UntracedEvent(t *testing.T) {
	o := goodOutputs(t)
	o.events.Rows = append(o.events.Rows, domain.EventRow{LocationID: 99}.Record())

	f := failures(validate(o))

	require.Len(t, f, 1)
	errs := f["Every output row traces to an input id"]
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "events line 3")
	assert.Contains(t, errs[0], "99")
}

func TestValidate_BadEventHeader(t *testing.T) {
	o := goodOutputs(t)
	o.events.Header = domain.EventColumns[:11]

	f := failures(validate(o))
	assert.Contains(t, f, "Events CSV has 12 fixed columns")
}

func TestValidate_MissingCoverageRow(t *testing.T) {
	o := goodOutputs(t)
	o.input.Rows = append(o.input.Rows, []string{"Tahoe", "44"})

	f := failures(validate(o))

	require.Contains(t, f, "One coverage row per input location")
	assert.Equal(t, []string{"location_id 44: 0 coverage rows, want 1"}, f["One coverage row per input location"])
}

func TestValidate_WorkbookLayout(t *testing.T) {
	o := goodOutputs(t)
	o.workbook = excel.Workbook{
		Sheets: []string{excel.SheetSources},
		Rows:   map[string][][]string{excel.SheetSources: {{"source"}}},
	}

	f := failures(validate(o))

	errs := f["Workbook sheets and headers"]
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], `missing sheet "Sources by Season"`)
}

func TestValidate_InputWithoutLocationID(t *testing.T) {
	o := goodOutputs(t)
	o.input.Header = []string{"City", "id"}

	f := failures(validate(o))
	assert.Contains(t, f, "Input has location_id column")
}
