package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Input columns the resolver reads and the columns it appends.
const (
	ColumnCity    = "City"
	ColumnState   = "State"
	ColumnZipcode = "Zipcode"

	ColumnLocationID = "location_id"
	ColumnAPICity    = "api_city"
	ColumnAPIState   = "api_state"
	ColumnAPIZipcode = "api_zipcode"
)

// EnrichedColumns are appended, in order, to the resolver's input header.
var EnrichedColumns = []string{ColumnLocationID, ColumnAPICity, ColumnAPIState, ColumnAPIZipcode}

// ErrMissingColumn is returned when an input table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// LocationQuery is a name-match lookup. Empty fields are omitted from the request.
type LocationQuery struct {
	City    string
	State   string
	Zipcode string
}

// ZipOnly returns the zipcode-only fallback for q.
func (q LocationQuery) ZipOnly() LocationQuery {
	return LocationQuery{Zipcode: q.Zipcode}
}

// IsEmpty reports whether the query carries no filters at all.
func (q LocationQuery) IsEmpty() bool {
	return q.City == "" && q.State == "" && q.Zipcode == ""
}

// String renders the query for diagnostics, e.g. "Reno, NV 89501".
func (q LocationQuery) String() string {
	return fmt.Sprintf("%s, %s %s", q.City, q.State, q.Zipcode)
}

// ResolvedLocation is a canonical CST location candidate.
type ResolvedLocation struct {
	LocationID Text `json:"location_id"`
	City       Text `json:"city"`
	State      Text `json:"state"`
	Zipcode    Text `json:"zipcode"`
}

// LocationResolver looks up CST locations by name.
type LocationResolver interface {
	// Resolve returns every candidate for q, in API order.
	Resolve(ctx context.Context, q LocationQuery) ([]ResolvedLocation, error)
}

// AddressRecord is one resolver input row. Fields holds every input cell,
// aligned with the input header, so the row can be passed through unchanged.
type AddressRecord struct {
	Line    int
	Fields  []string
	City    string
	State   string
	Zipcode string
}

// Query builds the combined lookup for the record. Surrounding whitespace is
// trimmed for the lookup only; Fields keeps the original cells.
func (r AddressRecord) Query() LocationQuery {
	return LocationQuery{
		City:    strings.TrimSpace(r.City),
		State:   strings.TrimSpace(r.State),
		Zipcode: strings.TrimSpace(r.Zipcode),
	}
}

// Enrich returns the output row: the input cells followed by EnrichedColumns.
func (r AddressRecord) Enrich(loc ResolvedLocation) []string {
	row := make([]string, 0, len(r.Fields)+len(EnrichedColumns))
	row = append(row, r.Fields...)
	return append(row,
		loc.LocationID.String(),
		loc.City.String(),
		loc.State.String(),
		loc.Zipcode.String(),
	)
}

// ColumnIndex returns the position of name in header.
func ColumnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

// AddressRecords maps input rows onto AddressRecords. The header must carry
// City, State, and Zipcode. firstLine is the file line number of rows[0].
func AddressRecords(header []string, rows [][]string, firstLine int) ([]AddressRecord, error) {
	cityIdx, err := ColumnIndex(header, ColumnCity)
	if err != nil {
		return nil, err
	}
	stateIdx, err := ColumnIndex(header, ColumnState)
	if err != nil {
		return nil, err
	}
	zipIdx, err := ColumnIndex(header, ColumnZipcode)
	if err != nil {
		return nil, err
	}

	records := make([]AddressRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, AddressRecord{
			Line:    firstLine + i,
			Fields:  row,
			City:    cell(row, cityIdx),
			State:   cell(row, stateIdx),
			Zipcode: cell(row, zipIdx),
		})
	}
	return records, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
