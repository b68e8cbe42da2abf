package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteTable writes a plain header plus rows workbook.
func WriteTable(path string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	const sh = "Sheet1"
	hdr := make([]any, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if err := setRow(f, sh, 1, hdr...); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	st := newStyles(f)
	if len(headers) > 0 {
		if err := st.apply(sh, "A1", cell(len(headers), 1), "header", &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Border: thinBorder,
		}); err != nil {
			return err
		}
	}
	for i, r := range rows {
		if err := setRow(f, sh, i+2, r...); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return save(f, path)
}
