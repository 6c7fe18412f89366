// Command validate checks the outputs of a snowhistory run against its
// input: the events CSV schema, the workbook layout, and that every output
// row traces back to a CST location_id present in the input.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -in data/outputs/NAMEMATCH_addresses.csv \
//	  -events data/outputs/addresses_events.csv \
//	  -sources data/outputs/addresses_sources.xlsx
package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/couchcryptid/snowtistics-etl/internal/adapter/excel"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/tabular"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// outputs is everything validate reads.
type outputs struct {
	input    tabular.Table
	events   tabular.Table
	workbook excel.Workbook
}

func main() {
	in := flag.String("in", "", "snowhistory input CSV (name-match output)")
	events := flag.String("events", "", "events CSV written by snowhistory")
	sources := flag.String("sources", "", "Sources workbook written by snowhistory")
	flag.Parse()

	if *in == "" || *events == "" || *sources == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*in, *events, *sources); code != 0 {
		os.Exit(code)
	}
}

func run(inPath, eventsPath, sourcesPath string) int {
	fmt.Println("=== Snowtistics Output Validation ===")
	fmt.Println()

	var (
		o   outputs
		err error
	)
	if o.input, err = tabular.ReadFile(inPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load input: %v\n", err)
		return 1
	}
	if o.events, err = tabular.ReadFile(eventsPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		return 1
	}
	if o.workbook, err = excel.ReadWorkbook(sourcesPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load workbook: %v\n", err)
		return 1
	}

	phases := validate(o)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d input, %d events, %d sources, %d coverage\n",
		len(o.input.Rows), len(o.events.Rows),
		dataRows(o.workbook, excel.SheetSources), dataRows(o.workbook, excel.SheetSourcesBySeason))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(o outputs) []*phase {
	ids, inputPhase := inputLocationIDs(o.input)
	return []*phase{
		inputPhase,
		validateEventSchema(o.events),
		validateWorkbookLayout(o.workbook),
		validateTraceability(ids, o.events, o.workbook),
		validateCoverage(ids, o.workbook),
	}
}

// ── Input ──

// inputLocationIDs collects the parseable location_ids of the input, with
// how often each occurs.
func inputLocationIDs(input tabular.Table) (map[int64]int, *phase) {
	p := &phase{name: "Input has location_id column"}
	ids := make(map[int64]int)

	records, err := domain.LocationIDRecords(input.Header, input.Rows, tabular.FirstDataLine)
	if err != nil {
		p.errorf("%v", err)
		return ids, p
	}
	for _, rec := range records {
		if id, ok := domain.ParseLocationID(rec.Raw); ok {
			ids[id]++
		}
	}
	return ids, p
}

// ── Events CSV ──

func validateEventSchema(events tabular.Table) *phase {
	p := &phase{name: "Events CSV has 12 fixed columns"}
	if !slices.Equal(events.Header, domain.EventColumns) {
		p.errorf("header = %v, want %v", events.Header, domain.EventColumns)
	}
	return p
}

// ── Workbook ──

func validateWorkbookLayout(wb excel.Workbook) *phase {
	p := &phase{name: "Workbook sheets and headers"}

	for _, sheet := range []string{excel.SheetSources, excel.SheetSourcesBySeason} {
		if !slices.Contains(wb.Sheets, sheet) {
			p.errorf("missing sheet %q", sheet)
		}
	}
	checkHeader(p, wb, excel.SheetSources, domain.SourceColumns)
	checkHeader(p, wb, excel.SheetSourcesBySeason, domain.CoverageColumns())
	return p
}

func checkHeader(p *phase, wb excel.Workbook, sheet string, want []string) {
	rows := wb.Rows[sheet]
	if len(rows) == 0 {
		p.errorf("%s: no header row", sheet)
		return
	}
	if !slices.Equal(rows[0], want) {
		p.errorf("%s: header = %v, want %v", sheet, rows[0], want)
	}
}

// ── Cross-checks ──

func validateTraceability(ids map[int64]int, events tabular.Table, wb excel.Workbook) *phase {
	p := &phase{name: "Every output row traces to an input id"}

	if col := slices.Index(events.Header, domain.ColumnLocationID); col >= 0 {
		for i, row := range events.Rows {
			checkTraced(p, ids, fmt.Sprintf("events line %d", i+tabular.FirstDataLine), row[col])
		}
	}

	for i := 1; i < len(wb.Rows[excel.SheetSources]); i++ {
		checkTraced(p, ids, fmt.Sprintf("%s row %d", excel.SheetSources, i+1), wb.Cell(excel.SheetSources, i, 1))
	}
	for i := 1; i < len(wb.Rows[excel.SheetSourcesBySeason]); i++ {
		checkTraced(p, ids, fmt.Sprintf("%s row %d", excel.SheetSourcesBySeason, i+1), wb.Cell(excel.SheetSourcesBySeason, i, 0))
	}
	return p
}

func checkTraced(p *phase, ids map[int64]int, where, raw string) {
	id, ok := domain.ParseLocationID(raw)
	if !ok {
		p.errorf("%s: location_id %q is not an integer", where, raw)
		return
	}
	if ids[id] == 0 {
		p.errorf("%s: location_id %d not in input", where, id)
	}
}

// validateCoverage checks that each input row with a location_id produced
// exactly one coverage row, failed fetches included.
func validateCoverage(ids map[int64]int, wb excel.Workbook) *phase {
	p := &phase{name: "One coverage row per input location"}

	got := make(map[int64]int)
	for i := 1; i < len(wb.Rows[excel.SheetSourcesBySeason]); i++ {
		if id, ok := domain.ParseLocationID(wb.Cell(excel.SheetSourcesBySeason, i, 0)); ok {
			got[id]++
		}
	}
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		if want := ids[id]; got[id] != want {
			p.errorf("location_id %d: %d coverage rows, want %d", id, got[id], want)
		}
	}
	return p
}

func dataRows(wb excel.Workbook, sheet string) int {
	return max(len(wb.Rows[sheet])-1, 0)
}
