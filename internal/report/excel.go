// Package report renders printable artifacts from schedule data.
package report

import (
	"fmt"
	"strings"

	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/mru-images/immune-child-tracker-app-final/internal/schedule"
	"github.com/xuri/excelize/v2"
)

// scheduleHeader is the column layout of the exported schedule sheet.
var scheduleHeader = []string{
	"Vaccine",
	"Description",
	"Recommended Age",
	"Due Date",
	"Status",
	"Date Given",
	"Administered By",
	"Location",
	"Batch Number",
}

// ScheduleWorkbook builds an XLSX workbook with one row per schedule item
// for a child, plus a short header block with the child's name, birth date
// and age. Items are written in the order given.
func ScheduleWorkbook(child *models.Child, age string, items []models.ScheduleItem) ([]byte, error) {
	f := excelize.NewFile()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	f.SetCellValue(sheetName, "A1", "Vaccination Schedule")
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("%s %s", child.FirstName, child.LastName))
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Date of Birth: %s", child.DateOfBirth))
	f.SetCellValue(sheetName, "A4", fmt.Sprintf("Age: %s", age))

	const headerRow = 6
	for col, title := range scheduleHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.SetCellValue(sheetName, cell, title)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, item := range items {
		row := headerRow + 1 + i
		values := []interface{}{
			item.VaccineName,
			item.VaccineDescription,
			item.AgeText,
			item.DueDate.String(),
			statusLabel(item.Status),
			dateGiven(item),
			stringOr(item.AdministeredBy, ""),
			stringOr(item.Location, ""),
			stringOr(item.BatchNumber, ""),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, err
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetColWidth(sheetName, "A", "B", 32)
	f.SetColWidth(sheetName, "C", "I", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func statusLabel(status schedule.Status) string {
	if status == "" {
		return "PENDING"
	}
	return strings.ToUpper(string(status))
}

func dateGiven(item models.ScheduleItem) string {
	if item.Completed && item.DateCompleted != nil {
		return item.DateCompleted.String()
	}
	return "Not given"
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
