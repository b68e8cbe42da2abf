// Package sheet writes and reads the expense and procurement workbooks.
package sheet

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrNoRows is returned when there is nothing to write.
var ErrNoRows = errors.New("no rows to write")

// ErrNoHeader is returned when a workbook lacks the expected header row.
var ErrNoHeader = errors.New("header row not found")

const fontName = "微软雅黑"

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

var centered = &excelize.Alignment{Horizontal: "center", Vertical: "center"}

// styles caches the style ids of one workbook.
type styles struct {
	f   *excelize.File
	ids map[string]int
}

func newStyles(f *excelize.File) *styles {
	return &styles{f: f, ids: make(map[string]int)}
}

func (s *styles) get(name string, style *excelize.Style) (int, error) {
	if id, ok := s.ids[name]; ok {
		return id, nil
	}
	id, err := s.f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s style: %w", name, err)
	}
	s.ids[name] = id
	return id, nil
}

// apply sets a named style on the range from..to.
func (s *styles) apply(sheet, from, to, name string, style *excelize.Style) error {
	id, err := s.get(name, style)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(sheet, from, to, id)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// setRow writes values into consecutive cells starting at column 1.
func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	return f.SetSheetRow(sheet, cell(1, row), &values)
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// addList restricts sqref to the given options.
func addList(f *excelize.File, sheet, sqref, errMsg string, options []string) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetDropList(options); err != nil {
		return fmt.Errorf("invalid option list for %s: %w", sqref, err)
	}
	if errMsg != "" {
		dv.SetError(excelize.DataValidationErrorStyleStop, "输入错误", errMsg)
	}
	return f.AddDataValidation(sheet, dv)
}

// newBook returns a workbook whose only sheet is called name.
func newBook(name string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
