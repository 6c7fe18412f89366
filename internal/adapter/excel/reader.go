package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook is the sheet contents of an xlsx file, as rendered text.
type Workbook struct {
	Sheets []string
	Rows   map[string][][]string
}

// ReadWorkbook loads every sheet of the workbook at path.
func ReadWorkbook(path string) (Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Workbook{}, fmt.Errorf("open workbook %q: %w", path, err)
	}
	defer f.Close()

	wb := Workbook{Sheets: f.GetSheetList(), Rows: make(map[string][][]string)}
	for _, sheet := range wb.Sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Workbook{}, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		wb.Rows[sheet] = rows
	}
	return wb, nil
}

// Cell returns the text at (row, col) of sheet, or "" when the cell is
// blank or out of range.
func (wb Workbook) Cell(sheet string, row, col int) string {
	rows := wb.Rows[sheet]
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}
