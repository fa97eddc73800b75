// Package spreadsheet renders and reads the xlsx workbooks exchanged with the
// catalog editors and the statistics export.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"github.com/victornm/ecoquest/internal/domain"
)

// Product sheet layout. The product row and the first question row are fixed;
// questions run until the first empty row.
const (
	productRow       = 3
	firstQuestionRow = 7

	maxSheetName = 31
)

var (
	productHeader  = []string{"Product ID", "Name", "Colour", "Logo", "Round"}
	questionHeader = []string{"Product ID", "Question ID", "Type", "Short text", "Text", "Answers", "Media", "Last edited"}

	questionTypesLegend = []string{
		domain.QuestionTypeText + " - open answer",
		domain.QuestionTypeTextWithAnswers + " - choice of answers",
		domain.QuestionTypeAuction + " - auction question",
		domain.QuestionTypeMedia + " - question with a media fragment",
	}
	answersLegend = "[Wrong answer];[(*)Right answer];[Wrong answer]"
)

// WriteProducts renders one sheet per product with its questions and writes
// the workbook to w.
func WriteProducts(w io.Writer, ps []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	names := make(map[string]bool)
	for i, p := range ps {
		sheet := sheetName(p.Name, p.ProductID, names)
		if i == 0 {
			err = f.SetSheetName(defaultSheet, sheet)
		} else {
			_, err = f.NewSheet(sheet)
		}
		if err != nil {
			return fmt.Errorf("spreadsheet: add sheet %q: %w", sheet, err)
		}

		if err := writeProduct(f, st, sheet, p); err != nil {
			return fmt.Errorf("spreadsheet: product %d: %w", p.ProductID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}

func writeProduct(f *excelize.File, st styles, sheet string, p domain.Product) error {
	sw := sheetWriter{f: f, sheet: sheet}

	sw.title(1, "A", "E", "Product", st.title)
	sw.row(2, st.header, toAny(productHeader)...)
	sw.row(productRow, st.body, p.ProductID, p.Name, p.Colour, deref(p.Logo), p.Round)

	sw.title(5, "A", "H", "Questions", st.title)
	sw.row(6, st.header, toAny(questionHeader)...)

	r := firstQuestionRow
	for _, q := range p.Questions {
		sw.row(r, st.body,
			q.ProductID,
			q.QuestionID,
			deref(q.Type),
			deref(q.ShortText),
			deref(q.Text),
			FormatAnswers(q.Answers),
			deref(q.Media),
			q.LastEditDate,
		)
		r++
	}

	sw.title(1, "J", "J", "Question types", st.title)
	sw.style("J2", "J2", st.header)
	for i, s := range questionTypesLegend {
		sw.cell(fmt.Sprintf("J%d", 3+i), s, st.body)
	}

	sw.title(8, "J", "J", "Answers template", st.title)
	sw.style("J9", "J9", st.header)
	sw.cell("J10", answersLegend, st.body)

	sw.widths("A", "H", 18)
	sw.widths("J", "J", 40)

	return sw.err
}

// ReadProducts parses every sheet of a product workbook. Cells that do not
// parse default to zero or empty; sheets are returned in workbook order and
// are not validated.
func ReadProducts(r io.Reader) ([]domain.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer f.Close()

	var ps []domain.Product
	for _, sheet := range f.GetSheetList() {
		sr := sheetReader{f: f, sheet: sheet}

		p := domain.Product{
			ProductID: sr.int64(fmt.Sprintf("A%d", productRow)),
			Name:      sr.string(fmt.Sprintf("B%d", productRow)),
			Colour:    sr.string(fmt.Sprintf("C%d", productRow)),
			Logo:      sr.optional(fmt.Sprintf("D%d", productRow)),
			Round:     int(sr.int64(fmt.Sprintf("E%d", productRow))),
			Questions: []domain.Question{},
		}

		for row := firstQuestionRow; !sr.emptyRow(row); row++ {
			cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

			answers := ParseAnswers(sr.string(cell("F")))
			p.Questions = append(p.Questions, domain.Question{
				ProductID:    sr.int64(cell("A")),
				QuestionID:   sr.int64(cell("B")),
				Type:         sr.optional(cell("C")),
				ShortText:    sr.optional(cell("D")),
				Text:         sr.optional(cell("E")),
				Answers:      &answers,
				Media:        sr.optional(cell("G")),
				LastEditDate: sr.string(cell("H")),
			})
		}

		if sr.err != nil {
			return nil, fmt.Errorf("spreadsheet: sheet %q: %w", sheet, sr.err)
		}
		ps = append(ps, p)
	}

	return ps, nil
}

// sheetName makes a valid and unique sheet name out of a product name.
func sheetName(name string, id int64, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Product %d", id)
	}
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}

	base, n := name, 2
	for used[strings.ToLower(name)] {
		suffix := fmt.Sprintf(" (%d)", n)
		name = base
		for utf8.RuneCountInString(name)+len(suffix) > maxSheetName {
			_, size := utf8.DecodeLastRuneInString(name)
			name = name[:len(name)-size]
		}
		name += suffix
		n++
	}
	used[strings.ToLower(name)] = true
	return name
}

type sheetReader struct {
	f     *excelize.File
	sheet string
	err   error
}

func (r *sheetReader) string(cell string) string {
	if r.err != nil {
		return ""
	}
	v, err := r.f.GetCellValue(r.sheet, cell)
	if err != nil {
		r.err = err
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *sheetReader) optional(cell string) *string {
	v := r.string(cell)
	if v == "" {
		return nil
	}
	return &v
}

func (r *sheetReader) int64(cell string) int64 {
	return cast.ToInt64(r.string(cell))
}

func (r *sheetReader) emptyRow(row int) bool {
	for _, col := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		if r.string(fmt.Sprintf("%s%d", col, row)) != "" {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
