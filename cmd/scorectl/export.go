package main

import (
	"fmt"
	"time"

	scores "scorebot/pkg/tracker"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "trackers"

var exportHeader = []any{"Channel", "Victories", "Defeats", "Games", "Win rate", "Last modified"}

// writeWorkbook saves trackers as one row each below a header row.
func writeWorkbook(path string, trackers []*scores.Tracker) (err error) {
	workbook := excelize.NewFile()
	defer func() {
		if closeErr := workbook.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	if err := workbook.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := workbook.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for index, t := range trackers {
		cell, err := excelize.CoordinatesToCellName(1, index+2)
		if err != nil {
			return fmt.Errorf("locate row %d: %w", index+2, err)
		}
		score := t.Score()
		row := []any{
			t.ID(),
			score.Victories(),
			score.Defeats(),
			score.Total(),
			score.WinRatePercent(),
			t.LastModified().UTC().Format(time.RFC3339),
		}
		if err := workbook.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write tracker %s: %w", t.ID(), err)
		}
	}

	if err := workbook.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}

	return nil
}
