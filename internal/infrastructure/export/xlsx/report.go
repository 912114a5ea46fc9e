// Package xlsx renders batch classification reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const sheetName = "Classifications"

var headers = []string{"#", "Filename", "Document Type", "Year", "Size (MB)", "Strategy", "Error"}

// WriteReport writes one row per batch item, in input order.
func WriteReport(w io.Writer, report domain.BatchReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, bold)
	}

	for i, item := range report.Items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, item.Index+1)
		switch {
		case item.Result != nil:
			res := item.Result
			write(2, res.Filename)
			write(3, string(res.DocumentType))
			if res.Year != nil {
				write(4, *res.Year)
			}
			write(5, res.FileSizeMB)
			write(6, string(res.SourceStrategy))
		case item.Error != nil:
			write(2, item.Error.Filename)
			write(7, item.Error.Detail)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 6)
	_ = f.SetColWidth(sheetName, "B", "B", 40)
	_ = f.SetColWidth(sheetName, "C", "C", 18)
	_ = f.SetColWidth(sheetName, "D", "E", 10)
	_ = f.SetColWidth(sheetName, "F", "F", 22)
	_ = f.SetColWidth(sheetName, "G", "G", 60)
	_ = f.AutoFilter(sheetName, fmt.Sprintf("A1:G%d", len(report.Items)+1), nil)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
