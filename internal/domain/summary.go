package domain

// RunSummary counts what a pipeline run did with its input rows.
type RunSummary struct {
	Pipeline      string `json:"pipeline"`
	RowsRead      int    `json:"rows_read"`
	RowsSkipped   int    `json:"rows_skipped"`
	FallbackHits  int    `json:"fallback_hits,omitempty"`
	FetchFailures int    `json:"fetch_failures,omitempty"`
	RowsWritten   int    `json:"rows_written"`
	Done          bool   `json:"done"`
}
