package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseLocationID coerces a location_id cell to an integer. Spreadsheet tools
// often write ids as floats ("42.0"), so whole-valued floats are accepted.
// Empty cells, NaN markers, and anything else unparseable report ok=false.
func ParseLocationID(s string) (id int64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// LocationIDRecord is one flattener input row: its file line and the raw
// location_id cell.
type LocationIDRecord struct {
	Line int
	Raw  string
}

// LocationIDRecords extracts the location_id cell of every row. The header
// must carry a location_id column. firstLine is the file line of rows[0].
func LocationIDRecords(header []string, rows [][]string, firstLine int) ([]LocationIDRecord, error) {
	idx, err := ColumnIndex(header, ColumnLocationID)
	if err != nil {
		return nil, err
	}

	records := make([]LocationIDRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, LocationIDRecord{Line: firstLine + i, Raw: cell(row, idx)})
	}
	return records, nil
}
