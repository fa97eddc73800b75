package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

const (
	darkGreen  = "006400"
	green      = "008000"
	lightGreen = "90EE90"
	white      = "FFFFFF"
	black      = "000000"
)

type styles struct {
	title, header, body, id int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)

	mk := func(fill, font string) int {
		if err != nil {
			return 0
		}
		s := &excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border: []excelize.Border{
				{Type: "left", Color: black, Style: 1},
				{Type: "top", Color: black, Style: 1},
				{Type: "right", Color: black, Style: 1},
				{Type: "bottom", Color: black, Style: 1},
			},
		}
		if font != "" {
			s.Font = &excelize.Font{Color: font}
		}
		var id int
		id, err = f.NewStyle(s)
		return id
	}

	st.title = mk(darkGreen, white)
	st.header = mk(green, white)
	st.body = mk(lightGreen, "")
	st.id = mk(lightGreen, "")
	if err != nil {
		return styles{}, fmt.Errorf("spreadsheet: new style: %w", err)
	}
	return st, nil
}

// sheetWriter writes into one sheet and keeps the first error, so a render
// can be written as a straight sequence of calls.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) cell(cell string, v any, style int) {
	if w.err != nil {
		return
	}
	if w.err = w.f.SetCellValue(w.sheet, cell, v); w.err != nil {
		return
	}
	w.style(cell, cell, style)
}

func (w *sheetWriter) row(row, style int, vs ...any) {
	for i, v := range vs {
		name, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			w.err = err
			return
		}
		w.cell(name, v, style)
	}
}

func (w *sheetWriter) title(row int, from, to, text string, style int) {
	first, last := fmt.Sprintf("%s%d", from, row), fmt.Sprintf("%s%d", to, row)
	w.cell(first, text, style)
	if from != to && w.err == nil {
		w.err = w.f.MergeCell(w.sheet, first, last)
	}
	w.style(first, last, style)
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, from, to, style)
}

func (w *sheetWriter) widths(from, to string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(w.sheet, from, to, width)
}
