package domain

import "strconv"

// EventColumns is the fixed header of the events table.
var EventColumns = []string{
	"location_id", "City", "State", "Zipcode", "source", "start_date", "start", "end",
	"snow_amount", "snow_amount_formatted", "freezing_rain_amount", "freezing_rain_amount_formatted",
}

// SourceColumns is the header of the Sources sheet.
var SourceColumns = []string{"source", "cst_location_id", "source_location_id", "city", "state", "zipcode"}

// EventRow is one flattened event, tagged with the CST location it was fetched for.
type EventRow struct {
	LocationID                  int64  `json:"location_id"`
	City                        string `json:"City"`
	State                       string `json:"State"`
	Zipcode                     string `json:"Zipcode"`
	Source                      string `json:"source"`
	StartDate                   string `json:"start_date"`
	Start                       string `json:"start"`
	End                         string `json:"end"`
	SnowAmount                  string `json:"snow_amount"`
	SnowAmountFormatted         string `json:"snow_amount_formatted"`
	FreezingRainAmount          string `json:"freezing_rain_amount"`
	FreezingRainAmountFormatted string `json:"freezing_rain_amount_formatted"`
}

// Record renders the row in EventColumns order.
func (r EventRow) Record() []string {
	return []string{
		strconv.FormatInt(r.LocationID, 10),
		r.City, r.State, r.Zipcode,
		r.Source, r.StartDate, r.Start, r.End,
		r.SnowAmount, r.SnowAmountFormatted,
		r.FreezingRainAmount, r.FreezingRainAmountFormatted,
	}
}

// SourceRow is one provider location, tagged with the CST location.
type SourceRow struct {
	Source           string
	CSTLocationID    int64
	SourceLocationID string
	City             string
	State            string
	Zipcode          string
}

// CoverageRow is one location's per-season coverage. Seasons is aligned with
// CoverageSeasons(); absent years are empty strings.
type CoverageRow struct {
	LocationID int64
	Seasons    []string
}

// CoverageSeasons returns the season years of the coverage table.
func CoverageSeasons() []int {
	years := make([]int, 0, LastCoverageSeason-FirstSeason+1)
	for y := FirstSeason; y <= LastCoverageSeason; y++ {
		years = append(years, y)
	}
	return years
}

// CoverageColumns is the header of the Sources by Season sheet.
func CoverageColumns() []string {
	cols := []string{"location_id"}
	for _, y := range CoverageSeasons() {
		cols = append(cols, strconv.Itoa(y))
	}
	return cols
}

// FlattenSources emits one row per source in the bundle.
func FlattenSources(cstID int64, b HistoricalBundle) []SourceRow {
	rows := make([]SourceRow, 0, len(b.Sources))
	for _, s := range b.Sources {
		rows = append(rows, SourceRow{
			Source:           s.Source,
			CSTLocationID:    cstID,
			SourceLocationID: s.LocationID,
			City:             s.City,
			State:            s.State,
			Zipcode:          s.Zipcode,
		})
	}
	return rows
}

// FlattenCoverage emits the bundle's single coverage row.
func FlattenCoverage(cstID int64, b HistoricalBundle) CoverageRow {
	years := CoverageSeasons()
	row := CoverageRow{LocationID: cstID, Seasons: make([]string, len(years))}
	for i, y := range years {
		row.Seasons[i] = b.Seasons[strconv.Itoa(y)]
	}
	return row
}

// FlattenEvents emits one row per event. City, State, and Zipcode come from the
// scalar fields on the sources mapping, not from the event's own source.
func FlattenEvents(cstID int64, b HistoricalBundle) []EventRow {
	rows := make([]EventRow, 0, len(b.Events))
	for _, e := range b.Events {
		rows = append(rows, EventRow{
			LocationID:                  cstID,
			City:                        b.SourceFields["city"],
			State:                       b.SourceFields["state"],
			Zipcode:                     b.SourceFields["zipcode"],
			Source:                      e.Source.String(),
			StartDate:                   e.StartDate.String(),
			Start:                       e.Start.String(),
			End:                         e.End.String(),
			SnowAmount:                  e.Snow.Amount.String(),
			SnowAmountFormatted:         e.Snow.AmountFormatted.String(),
			FreezingRainAmount:          e.FreezingRain.Amount.String(),
			FreezingRainAmountFormatted: e.FreezingRain.AmountFormatted.String(),
		})
	}
	return rows
}
