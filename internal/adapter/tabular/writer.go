package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Writer streams rows to a CSV file. Rows written before a failure stay in
// the file once Close is called.
type Writer struct {
	file   *os.File
	writer *csv.Writer
	rows   int
}

// Create creates (or truncates) the CSV file at path and writes the header
// row. Intermediate directories are created automatically.
func Create(path string, header []string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	return &Writer{file: f, writer: w}, nil
}

// Write appends one row.
func (w *Writer) Write(record []string) error {
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int { return w.rows }

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return w.file.Close()
}
