package excel

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func testWriter() *Writer {
	return NewWriter(clockwork.NewFakeClockAt(fixedNow), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWriteSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sources.xlsx")

	sources := []domain.SourceRow{
		{Source: "NOAA", CSTLocationID: 1234, SourceLocationID: "7", City: "Tahoe", State: "CA", Zipcode: "96150"},
		{Source: "GHCN", CSTLocationID: 1234, SourceLocationID: "USC00049043", City: "Truckee", State: "CA", Zipcode: "01234"},
	}
	seasons := make([]string, 17)
	seasons[0] = "true"
	seasons[9] = "NOAA"
	coverage := []domain.CoverageRow{{LocationID: 1234, Seasons: seasons}}

	require.NoError(t, testWriter().WriteSources(path, sources, coverage))

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, []string{SheetSources, SheetSourcesBySeason}, wb.Sheets)

	src := wb.Rows[SheetSources]
	require.Len(t, src, 3)
	assert.Equal(t, domain.SourceColumns, src[0])
	assert.Equal(t, []string{"NOAA", "1234", "7", "Tahoe", "CA", "96150"}, src[1])
	assert.Equal(t, "01234", wb.Cell(SheetSources, 2, 5), "leading zeros survive")

	cov := wb.Rows[SheetSourcesBySeason]
	require.Len(t, cov, 2)
	assert.Equal(t, domain.CoverageColumns(), cov[0])
	assert.Equal(t, "1234", wb.Cell(SheetSourcesBySeason, 1, 0))
	assert.Equal(t, "TRUE", wb.Cell(SheetSourcesBySeason, 1, 1))
	assert.Empty(t, wb.Cell(SheetSourcesBySeason, 1, 2))
	assert.Equal(t, "NOAA", wb.Cell(SheetSourcesBySeason, 1, 10))
}

func TestWriteSources_EmptyInputStillHasHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.xlsx")

	require.NoError(t, testWriter().WriteSources(path, nil, nil))

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{domain.SourceColumns}, wb.Rows[SheetSources])
	assert.Equal(t, [][]string{domain.CoverageColumns()}, wb.Rows[SheetSourcesBySeason])
	require.Len(t, wb.Rows[SheetSourcesBySeason][0], 18)
}

func TestWriteSources_DocumentCreatedFromClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.xlsx")
	require.NoError(t, testWriter().WriteSources(path, nil, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z", props.Created)
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"true", true},
		{"false", false},
		{"7", int64(7)},
		{"-1", int64(-1)},
		{"14.5", 14.5},
		{"01234", "01234"},
		{"14.50", "14.50"},
		{"1e3", "1e3"},
		{"NOAA", "NOAA"},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.in))
		})
	}
}

func TestWorkbookCell_OutOfRange(t *testing.T) {
	wb := Workbook{Rows: map[string][][]string{"s": {{"a"}}}}
	assert.Equal(t, "a", wb.Cell("s", 0, 0))
	assert.Empty(t, wb.Cell("s", 0, 5))
	assert.Empty(t, wb.Cell("s", 3, 0))
	assert.Empty(t, wb.Cell("missing", 0, 0))
}
