package backup

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/graycup/leads-admin/internal/core"
)

// maxSheetName is the hard limit Excel places on worksheet names.
const maxSheetName = 31

// Excel renders records into a single-worksheet XLSX workbook. The
// worksheet is named after the table label, truncated to Excel's
// 31-character limit.
func (f *Formatter) Excel(t core.Table, recs []core.Record, title string) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := title
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := f.Headers(t)
	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := file.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for start := 0; start < len(recs); start += f.ChunkSize {
		end := min(start+f.ChunkSize, len(recs))
		for i, row := range f.FormatRecords(t, recs[start:end]) {
			cell, err := excelize.CoordinatesToCellName(1, start+i+2)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := file.SetSheetRow(sheet, cell, &values); err != nil {
				return nil, fmt.Errorf("write row %d: %w", start+i+1, err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
