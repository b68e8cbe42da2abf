package sheet

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/procurement"
)

// Sheet names of the procurement workbooks.
const (
	RequestSheet = "采购申请表"
	DetailSheet  = "明细表1"
)

var (
	requestHeaders = []any{"序号", "采购类型", "物品名称", "规格型号", "单位", "数量", "单价(元)", "金额(元)", "二级分类", "备注"}
	requestWidths  = []float64{15, 20, 25, 15, 10, 12, 12, 15, 15, 20}

	// DetailHeaders are the column titles of the detail template, row 2.
	DetailHeaders = []string{"物资二级分类", "物资名称", "规格型号", "单位", "数量", "估算单价-元", "估算总价-元"}
)

// RequestName is the default file name of a procurement request.
func RequestName(t time.Time) string {
	return t.Format("20060102") + "_采购申请.xlsx"
}

// DetailName is the default output for a converted expense report.
func DetailName(expensePath string, t time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(expensePath), filepath.Ext(expensePath))
	return filepath.Join(filepath.Dir(expensePath), t.Format("20060102_150405")+"_采购申请_"+stem+".xlsx")
}

// WriteProcurementRequest writes the full request form with header block,
// item table, total and signature lines.
func WriteProcurementRequest(req procurement.Request, path string) error {
	if len(req.Items) == 0 {
		return ErrNoRows
	}

	f, err := newBook(RequestSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeRequest(f, req); err != nil {
		return fmt.Errorf("failed to build procurement request: %w", err)
	}
	return save(f, path)
}

func writeRequest(f *excelize.File, req procurement.Request) error {
	st := newStyles(f)
	sh := RequestSheet
	headerStyle := &excelize.Style{
		Font:      &excelize.Font{Family: fontName, Size: 12, Bold: true},
		Alignment: centered,
		Border:    thinBorder,
	}

	if err := setWidths(f, sh, requestWidths); err != nil {
		return err
	}

	if err := f.SetCellValue(sh, "A1", RequestSheet); err != nil {
		return err
	}
	if err := f.MergeCell(sh, "A1", "J1"); err != nil {
		return err
	}
	if err := st.apply(sh, "A1", "J1", "title", &excelize.Style{
		Font:      &excelize.Font{Family: fontName, Size: 16, Bold: true},
		Alignment: centered,
	}); err != nil {
		return err
	}

	info := map[string]any{
		"A3": "申请日期:", "B3": req.Date.Format("2006-01-02"),
		"D3": "申请人:", "E3": req.Applicant,
		"G3": "部门:", "H3": req.Department,
	}
	for c, v := range info {
		if err := f.SetCellValue(sh, c, v); err != nil {
			return err
		}
	}

	if err := setRow(f, sh, 5, requestHeaders...); err != nil {
		return err
	}
	if err := st.apply(sh, "A5", "J5", "header", headerStyle); err != nil {
		return err
	}

	first := 6
	for i, it := range req.Items {
		index := it.Index
		if index == 0 {
			index = i + 1
		}
		if err := setRow(f, sh, first+i,
			index, it.Type, it.Name, it.Specification, it.Unit, it.Quantity,
			money.Float(it.UnitPrice), money.Float(it.Total), it.Category, it.Remark,
		); err != nil {
			return err
		}
	}
	last := first + len(req.Items) - 1
	if err := st.apply(sh, "A6", cell(10, last), "body", &excelize.Style{
		Font:      &excelize.Font{Family: fontName, Size: 10},
		Alignment: centered,
		Border:    thinBorder,
	}); err != nil {
		return err
	}
	if err := st.apply(sh, "G6", cell(8, last), "money", &excelize.Style{
		Font:      &excelize.Font{Family: fontName, Size: 10},
		Alignment: centered,
		Border:    thinBorder,
		NumFmt:    2,
	}); err != nil {
		return err
	}

	if err := addList(f, sh, fmt.Sprintf("B6:B%d", last), "", procurement.Types); err != nil {
		return err
	}
	if err := addList(f, sh, fmt.Sprintf("I6:I%d", last), "", procurement.SecondaryCategories); err != nil {
		return err
	}

	total := last + 2
	if err := f.MergeCell(sh, cell(1, total), cell(7, total)); err != nil {
		return err
	}
	if err := f.SetCellValue(sh, cell(1, total), "合计金额"); err != nil {
		return err
	}
	if err := f.SetCellValue(sh, cell(8, total), money.Float(req.Total())); err != nil {
		return err
	}
	totalStyle := *headerStyle
	totalStyle.Border = nil
	totalStyle.NumFmt = 2
	if err := st.apply(sh, cell(1, total), cell(8, total), "total", &totalStyle); err != nil {
		return err
	}

	approval := total + 3
	lines := []struct {
		row  int
		cols map[int]string
	}{
		{approval, map[int]string{1: "申请人签字:", 4: "部门负责人:", 7: "财务审核:"}},
		{approval + 2, map[int]string{1: "日期:", 4: "日期:", 7: "日期:"}},
	}
	for _, l := range lines {
		for col, v := range l.cols {
			if err := f.SetCellValue(sh, cell(col, l.row), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteProcurementDetail writes items in the institute's detail template.
func WriteProcurementDetail(items []procurement.Item, path string) error {
	if len(items) == 0 {
		return ErrNoRows
	}

	f, err := newBook(DetailSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	sh := DetailSheet
	if err := f.SetCellValue(sh, "A1", DetailSheet); err != nil {
		return err
	}
	if err := f.MergeCell(sh, "A1", "G1"); err != nil {
		return err
	}
	headers := make([]any, len(DetailHeaders))
	for i, h := range DetailHeaders {
		headers[i] = h
	}
	if err := setRow(f, sh, 2, headers...); err != nil {
		return err
	}
	for i, it := range items {
		if err := setRow(f, sh, i+3,
			it.Category, it.Name, it.Specification, it.Unit, it.Quantity,
			money.Float(it.UnitPrice), money.Float(it.Total),
		); err != nil {
			return err
		}
	}
	return save(f, path)
}
