package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Season range requested from the history endpoint and covered by the
// season coverage table.
const (
	FirstSeason        = 2006
	LastSeason         = 2023
	LastCoverageSeason = 2022
)

// Measurement is a nested amount on an event.
type Measurement struct {
	Amount          Text `json:"amount"`
	AmountFormatted Text `json:"amount_formatted"`
}

// Event is a single historical snow or freezing-rain event.
type Event struct {
	Source       Text        `json:"source"`
	StartDate    Text        `json:"start_date"`
	Start        Text        `json:"start"`
	End          Text        `json:"end"`
	Snow         Measurement `json:"snow"`
	FreezingRain Measurement `json:"freezing_rain"`
}

// SourceLocation is a weather-data provider's own view of a CST location.
type SourceLocation struct {
	Source     string
	LocationID string // "-1" when the provider reports none
	City       string
	State      string
	Zipcode    string
}

// HistoricalBundle is the history payload for one CST location.
type HistoricalBundle struct {
	Events  []Event
	Sources []SourceLocation // in payload order

	// SourceFields holds scalar members found directly on the sources mapping
	// (e.g. "city"), which are not themselves sources.
	SourceFields map[string]string

	// Seasons holds sourcesBySeason members keyed by season year.
	Seasons map[string]string
}

// IsEmpty reports whether the bundle has no events, sources, or season data.
func (b HistoricalBundle) IsEmpty() bool {
	return len(b.Events) == 0 && len(b.Sources) == 0 && len(b.SourceFields) == 0 && len(b.Seasons) == 0
}

// HistoryFetcher retrieves historical event bundles.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, locationID int64, startSeason, endSeason int) (HistoricalBundle, error)
}

type historyPayload struct {
	Events          []Event         `json:"events"`
	Sources         json.RawMessage `json:"sources"`
	SourcesBySeason json.RawMessage `json:"sourcesBySeason"`
}

type sourcePayload struct {
	LocationID json.RawMessage `json:"location_id"`
	City       Text            `json:"city"`
	State      Text            `json:"state"`
	Zipcode    Text            `json:"zipcode"`
}

// ParseHistoricalBundle decodes the "data" member of a history response.
// An absent or null payload yields an empty bundle.
func ParseHistoricalBundle(data json.RawMessage) (HistoricalBundle, error) {
	var bundle HistoricalBundle
	if len(data) == 0 || string(data) == "null" {
		return bundle, nil
	}

	var payload historyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return HistoricalBundle{}, fmt.Errorf("parse history payload: %w", err)
	}
	bundle.Events = payload.Events

	err := decodeObject(payload.Sources, func(key string, value json.RawMessage) error {
		if !isObject(value) {
			text, err := textFromRaw(value, "")
			if err != nil {
				return err
			}
			if bundle.SourceFields == nil {
				bundle.SourceFields = make(map[string]string)
			}
			bundle.SourceFields[key] = text
			return nil
		}

		var src sourcePayload
		if err := json.Unmarshal(value, &src); err != nil {
			return fmt.Errorf("source %q: %w", key, err)
		}
		locationID, err := textFromRaw(src.LocationID, "-1")
		if err != nil {
			return fmt.Errorf("source %q location_id: %w", key, err)
		}
		bundle.Sources = append(bundle.Sources, SourceLocation{
			Source:     key,
			LocationID: locationID,
			City:       src.City.String(),
			State:      src.State.String(),
			Zipcode:    src.Zipcode.String(),
		})
		return nil
	})
	if err != nil {
		return HistoricalBundle{}, fmt.Errorf("parse sources: %w", err)
	}

	err = decodeObject(payload.SourcesBySeason, func(key string, value json.RawMessage) error {
		text, err := textFromRaw(value, "")
		if err != nil {
			return err
		}
		if bundle.Seasons == nil {
			bundle.Seasons = make(map[string]string)
		}
		bundle.Seasons[key] = text
		return nil
	})
	if err != nil {
		return HistoricalBundle{}, fmt.Errorf("parse sourcesBySeason: %w", err)
	}

	return bundle, nil
}
