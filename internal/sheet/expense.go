package sheet

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/money"
)

// ExpenseSheet is the sheet name of the expense report.
const ExpenseSheet = "报销明细"

// ExpenseHeaders are the column titles of the expense report, row 2.
var ExpenseHeaders = []string{"付款明细原因", "项目负责人", "发票类型", "发票号码", "付款类型", "科目明细", "金额"}

var expenseWidths = []float64{30, 15, 20, 20, 15, 15, 12}

// WriteExpenseReport writes rows as the reimbursement detail table. Remarks
// are left out of the workbook; they only show up in logs and CSV.
func WriteExpenseReport(rows []invoice.Row, path string) error {
	if len(rows) == 0 {
		return ErrNoRows
	}

	f, err := newBook(ExpenseSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeExpense(f, rows); err != nil {
		return fmt.Errorf("failed to build expense report: %w", err)
	}
	return save(f, path)
}

func writeExpense(f *excelize.File, rows []invoice.Row) error {
	st := newStyles(f)
	sh := ExpenseSheet
	last := len(rows) + 2

	if err := f.SetCellValue(sh, "A1", "明细表1"); err != nil {
		return err
	}
	if err := f.MergeCell(sh, "A1", "G1"); err != nil {
		return err
	}
	if err := st.apply(sh, "A1", "G1", "title", &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: centered,
		Border:    thinBorder,
	}); err != nil {
		return err
	}

	headers := make([]any, len(ExpenseHeaders))
	for i, h := range ExpenseHeaders {
		headers[i] = h
	}
	if err := setRow(f, sh, 2, headers...); err != nil {
		return err
	}
	if err := st.apply(sh, "A2", "G2", "header", &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: centered,
		Border:    thinBorder,
	}); err != nil {
		return err
	}

	for i, r := range rows {
		n := i + 3
		if err := setRow(f, sh, n,
			r.Reason, r.ProjectManager, r.InvoiceType, r.InvoiceNumber,
			r.PaymentType, r.SubjectDetail, amountCell(r.Amount),
		); err != nil {
			return err
		}
	}

	if err := st.apply(sh, "A3", cell(6, last), "body", &excelize.Style{Border: thinBorder}); err != nil {
		return err
	}
	if err := st.apply(sh, "G3", cell(7, last), "amount", &excelize.Style{
		Border:    thinBorder,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		NumFmt:    2,
	}); err != nil {
		return err
	}

	if err := setWidths(f, sh, expenseWidths); err != nil {
		return err
	}

	lists := []struct {
		col     string
		msg     string
		options []string
	}{
		{"C", "请选择有效的发票类型", invoice.InvoiceTypes},
		{"E", "请选择有效的付款类型", invoice.PaymentTypes},
		{"F", "请选择有效的科目明细", invoice.SubjectDetails},
	}
	for _, l := range lists {
		sqref := fmt.Sprintf("%s3:%s%d", l.col, l.col, last)
		if err := addList(f, sh, sqref, l.msg, l.options); err != nil {
			return err
		}
	}
	return nil
}

// amountCell writes parseable amounts as numbers and anything else verbatim.
func amountCell(s string) any {
	d, err := money.Parse(s)
	if err != nil {
		return s
	}
	return money.Float(d)
}

// WriteExpenseCSV writes rows, remarks included, as CSV.
func WriteExpenseCSV(rows []invoice.Row, w io.Writer) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	return gocsv.Marshal(&rows, w)
}
