package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// XLSXExporter renders documents into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the title in A1, summary fields below it and the table last.
func (e *XLSXExporter) Render(doc Document) ([]byte, error) {
	if err := doc.Table.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	row := 1
	if doc.Title != "" {
		if err := setCell(f, 1, row, doc.Title, bold); err != nil {
			return nil, err
		}
		row += 2
	}
	for _, field := range doc.Summary {
		if err := setCell(f, 1, row, field.Label, bold); err != nil {
			return nil, err
		}
		if err := setCell(f, 2, row, field.Value, 0); err != nil {
			return nil, err
		}
		row++
	}
	if len(doc.Summary) > 0 {
		row++
	}

	for i, header := range doc.Table.Headers {
		if err := setCell(f, i+1, row, header, headerStyle); err != nil {
			return nil, err
		}
	}
	for _, record := range doc.Table.Rows {
		row++
		for i, header := range doc.Table.Headers {
			if err := setCell(f, i+1, row, record[header], 0); err != nil {
				return nil, err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(doc.Table.Headers))
	if err != nil {
		return nil, fmt.Errorf("resolve column: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", last, 18); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value string, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return fmt.Errorf("style cell %s: %w", cell, err)
		}
	}
	return nil
}
