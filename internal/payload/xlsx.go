package payload

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX reads one worksheet (the first when sheet is empty) with a header row
func decodeXLSX(data []byte, sheet string) ([]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return []any{}, nil
	}

	columns := cleanHeader(records[0])
	rows := make([]any, 0, len(records)-1)
	for _, record := range records[1:] {
		if row := recordToRow(columns, record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
