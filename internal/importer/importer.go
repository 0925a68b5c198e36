// Package importer converts a tabular workbook into competition rounds.
// Each sheet becomes one round, each non-empty header column one category,
// and every following row one climber name per column. An import either
// succeeds wholesale or is rejected with a descriptive reason; no partial
// result ever escapes.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/blocclock/blocclock/internal/models"
)

// Sheet is one named table of string cells.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is an ordered sequence of sheets.
type Workbook struct {
	Sheets []Sheet
}

// Rounds converts the workbook into rounds. Category ids are left zero; the
// registry assigns them on install.
func (w Workbook) Rounds() ([]*models.Round, error) {
	if len(w.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rounds := make([]*models.Round, 0, len(w.Sheets))
	for _, sheet := range w.Sheets {
		round, err := sheetToRound(sheet)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func sheetToRound(sheet Sheet) (*models.Round, error) {
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}

	header := sheet.Rows[0]
	type column struct {
		idx  int
		name string
	}
	var columns []column
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		columns = append(columns, column{idx: i, name: name})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("sheet %q has no category columns", sheet.Name)
	}
	if len(columns) > models.MaxCategoriesPerRound {
		return nil, fmt.Errorf("sheet %q has %d categories, at most %d are allowed",
			sheet.Name, len(columns), models.MaxCategoriesPerRound)
	}

	round := &models.Round{Name: sheet.Name}
	for _, col := range columns {
		var climbers []string
		for _, row := range sheet.Rows[1:] {
			if col.idx >= len(row) {
				continue
			}
			name := strings.TrimSpace(row[col.idx])
			if name == "" {
				continue
			}
			climbers = append(climbers, name)
		}
		round.Categories = append(round.Categories, models.NewCategory(0, col.name, climbers))
	}
	return round, nil
}

// ParseCSVWorkbook builds a workbook from named CSV documents, preserving
// the given order. Ragged rows are allowed; the header row decides the
// columns.
func ParseCSVWorkbook(sheets []NamedCSV) (Workbook, error) {
	var wb Workbook
	for _, s := range sheets {
		reader := csv.NewReader(bytes.NewReader(s.Data))
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return Workbook{}, fmt.Errorf("sheet %q is not valid CSV: %w", s.Name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: s.Name, Rows: rows})
	}
	return wb, nil
}

// NamedCSV is one uploaded CSV document with its sheet name.
type NamedCSV struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}
