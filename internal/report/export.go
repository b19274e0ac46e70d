package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders a built report as a spreadsheet: a summary block
// followed by one row per roster member.
func ExportXLSX(rep Report) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Attendance"
	f.SetSheetName("Sheet1", sheet)

	summary := [][]interface{}{
		{"Period", rep.StartDate + " to " + rep.EndDate},
		{"Total students", rep.TotalStudents},
		{"Present", rep.TotalPresent},
		{"Absent", rep.TotalAbsent},
		{"Girls present / absent", fmt.Sprintf("%d / %d", rep.GirlsPresent, rep.GirlsAbsent)},
		{"Boys present / absent", fmt.Sprintf("%d / %d", rep.BoysPresent, rep.BoysAbsent)},
	}
	for i, pair := range summary {
		row := i + 1
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), pair[0])
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), pair[1])
	}

	headerRow := len(summary) + 2
	headers := []string{"Student", "Gender", "Present Days", "Total Days", "Percentage"}
	for i, h := range headers {
		cell := fmt.Sprintf("%s%d", string(rune('A'+i)), headerRow)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, s := range rep.Students {
		row := headerRow + 1 + i
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), s.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), s.Gender)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.PresentDays)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), s.TotalDays)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), s.Percentage)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
