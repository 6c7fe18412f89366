// Package tabular reads and writes the CSV files exchanged between pipelines.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmptyInput is returned when a CSV file has no header row.
var ErrEmptyInput = errors.New("empty input")

// Table is a header plus data rows. Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// FirstDataLine is the file line of Rows[0] when no cell spans lines.
const FirstDataLine = 2

// ReadFile reads a CSV file into a Table.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("csv: read %q: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. A leading UTF-8 BOM is dropped and invalid UTF-8
// sequences are replaced with U+FFFD. Short rows are padded with empty
// cells; rows wider than the header are an error.
func Read(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("�"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyInput
	}
	if err != nil {
		return Table{}, fmt.Errorf("header: %w", err)
	}

	t := Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return Table{}, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
