package spreadsheet

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const statisticsSheet = "Statistics"

var statisticsHeader = []string{"Date", "Duration", "Host", "Host login", "Team", "Player", "Score", "Place"}

// StatisticRow is one player of one team of a finished game.
type StatisticRow struct {
	RecordID int64
	Date     string
	Duration string
	Host     string
	Login    string
	Team     string
	Player   string
	Score    decimal.Decimal
	Place    int
}

// WriteStatistics renders rows as a single sheet and writes the workbook to w.
func WriteStatistics(w io.Writer, rows []StatisticRow) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName(defaultSheet, statisticsSheet); err != nil {
		return fmt.Errorf("spreadsheet: rename sheet: %w", err)
	}

	sw := sheetWriter{f: f, sheet: statisticsSheet}
	for i, h := range statisticsHeader {
		name, err := excelize.CoordinatesToCellName(i+2, 1)
		if err != nil {
			return err
		}
		sw.cell(name, h, st.title)
	}

	for i, r := range rows {
		row := i + 2
		sw.cell(fmt.Sprintf("A%d", row), r.RecordID, st.id)
		sw.cell(fmt.Sprintf("B%d", row), r.Date, st.header)
		sw.cell(fmt.Sprintf("C%d", row), r.Duration, st.header)
		sw.cell(fmt.Sprintf("D%d", row), r.Host, st.header)
		sw.cell(fmt.Sprintf("E%d", row), r.Login, st.header)
		sw.cell(fmt.Sprintf("F%d", row), r.Team, st.header)
		sw.cell(fmt.Sprintf("G%d", row), r.Player, st.header)
		sw.cell(fmt.Sprintf("H%d", row), r.Score.InexactFloat64(), st.header)
		sw.cell(fmt.Sprintf("I%d", row), r.Place, st.header)
	}

	sw.widths("A", "A", 8)
	sw.widths("B", "I", 22)
	if sw.err != nil {
		return fmt.Errorf("spreadsheet: render statistics: %w", sw.err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}
