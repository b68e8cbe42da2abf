package invoice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/a3tai/pdf-clerk/internal/extract"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

// mapExtractor returns canned text by file name; missing names have no text.
type mapExtractor map[string]string

func (m mapExtractor) Extract(_ context.Context, path string) (*extract.Result, error) {
	text, ok := m[filepath.Base(path)]
	if !ok {
		return nil, extract.ErrEmptyText
	}
	if text == "boom" {
		return nil, errors.New("disk on fire")
	}
	return &extract.Result{Path: path, Text: text, Method: extract.MethodNative}, nil
}

var testDefaults = Defaults{
	ProjectManager: "马晓健",
	InvoiceType:    "增值税电子普通发票",
	PaymentType:    "科研费用",
	SubjectDetail:  "科研耗材",
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0o644))
	}
}

func newTestProcessor(ex TextExtractor, logger *zap.Logger) *Processor {
	return NewProcessor(ex, NewParser(1000000, 100000), pdf.NewSearch(1024*1024), testDefaults, logger)
}

func TestProcessor_Process(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "c_scan.pdf", "a_tools.pdf", "b_cable.pdf", "d_dup.pdf", "e_big.pdf", "f_broken.pdf", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	touch(t, filepath.Join(dir, "sub"), "nested.pdf")

	ex := mapExtractor{
		"a_tools.pdf":  "发票号码:11111111\n价税合计（大写）（小写）¥120.00",
		"b_cable.pdf":  "发票号码:22222222\n无金额",
		"d_dup.pdf":    "发票号码:11111111\n合计 ¥30.00",
		"e_big.pdf":    "发票号码:33333333\n小写 ¥150,000.00",
		"f_broken.pdf": "boom",
		"nested.pdf":   "发票号码:44444444\n合计 ¥1.00",
	}

	core, logs := observer.New(zap.WarnLevel)
	rows, err := newTestProcessor(ex, zap.New(core)).Process(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, rows, 6, "top level PDFs only")

	byReason := make(map[string]Row)
	var order []string
	for _, r := range rows {
		byReason[r.Reason] = r
		order = append(order, r.Reason)
	}
	assert.Equal(t, []string{"a_tools", "b_cable", "c_scan", "d_dup", "e_big", "f_broken"}, order)

	a := byReason["a_tools"]
	assert.Equal(t, "11111111", a.InvoiceNumber)
	assert.Equal(t, "120.00", a.Amount)
	assert.Empty(t, a.Remark)
	assert.Equal(t, "native", a.Method)

	assert.Equal(t, "金额验证: 未识别到金额; ", byReason["b_cable"].Remark)

	c := byReason["c_scan"]
	assert.Equal(t, FailedNumber, c.InvoiceNumber)
	assert.Equal(t, FailedAmount, c.Amount)
	assert.Equal(t, FailedRemark, c.Remark)
	assert.Equal(t, "马晓健", c.ProjectManager)

	assert.Equal(t, "重复发票号码: 11111111; ", byReason["d_dup"].Remark)
	assert.Equal(t, "金额验证: 金额过大(150000.00元)，请确认; ", byReason["e_big"].Remark)
	assert.Equal(t, FailedNumber, byReason["f_broken"].InvoiceNumber)

	assert.NotZero(t, logs.FilterMessage("duplicate invoice number").Len())
}

func TestProcessor_DuplicateAndAmountRemarksAccumulate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.pdf", "2.pdf")
	ex := mapExtractor{
		"1.pdf": "发票号码:12345678 合计 ¥10.00",
		"2.pdf": "发票号码:12345678",
	}

	rows, err := newTestProcessor(ex, nil).Process(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "重复发票号码: 12345678; 金额验证: 未识别到金额; ", rows[1].Remark)
}

func TestProcessor_UnreadableFilesKeepTheirRow(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a_ok.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_empty.pdf"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_huge.pdf"), make([]byte, 2*1024*1024), 0o644))

	ex := mapExtractor{
		"a_ok.pdf":    "发票号码:11111111 合计 ¥10.00",
		"b_empty.pdf": "发票号码:22222222 合计 ¥20.00",
		"c_huge.pdf":  "发票号码:33333333 合计 ¥30.00",
	}
	core, logs := observer.New(zap.ErrorLevel)
	rows, err := newTestProcessor(ex, zap.New(core)).Process(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "11111111", rows[0].InvoiceNumber)
	for _, r := range rows[1:] {
		assert.Equal(t, FailedNumber, r.InvoiceNumber, r.Reason)
		assert.Equal(t, FailedAmount, r.Amount)
		assert.Equal(t, FailedRemark, r.Remark)
		assert.Equal(t, "马晓健", r.ProjectManager)
	}
	assert.Equal(t, []string{"b_empty", "c_huge"}, []string{rows[1].Reason, rows[2].Reason})
	assert.Equal(t, 2, logs.FilterMessage("unreadable PDF file").Len())
}

func TestProcessor_ProcessFileValidatesAmount(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "big.pdf", "none.pdf")
	p := newTestProcessor(mapExtractor{
		"big.pdf":  "发票号码:11111111 小写 ¥150,000.00",
		"none.pdf": "发票号码:22222222",
	}, nil)

	row := p.ProcessFile(context.Background(), filepath.Join(dir, "big.pdf"))
	assert.Equal(t, "金额验证: 金额过大(150000.00元)，请确认; ", row.Remark)

	row = p.ProcessFile(context.Background(), filepath.Join(dir, "none.pdf"))
	assert.Equal(t, "金额验证: 未识别到金额; ", row.Remark)

	row = p.ProcessFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Equal(t, FailedRemark, row.Remark)
}

func TestProcessor_EmptyAndMissingFolder(t *testing.T) {
	p := newTestProcessor(mapExtractor{}, nil)

	rows, err := p.Process(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = p.Process(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestProcessor_Cancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProcessor(mapExtractor{}, nil).Process(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	rows := []Row{
		{Reason: "a", Amount: "120.00"},
		{Reason: "b", Amount: "0.50"},
		{Reason: "c", Amount: FailedAmount, Remark: FailedRemark},
		{Reason: "d", Amount: "", Remark: "金额验证: 未识别到金额; "},
	}

	s := Summarize(rows)
	assert.Equal(t, 4, s.Count)
	assert.True(t, s.Total.Equal(decimal.RequireFromString("120.50")), s.Total.String())
	require.Len(t, s.Problems, 2)
	assert.Equal(t, "c", s.Problems[0].Reason)

	core, logs := observer.New(zap.InfoLevel)
	LogSummary(zap.New(core), s, "out.xlsx")
	assert.Equal(t, 1, logs.FilterMessage("expense report written").Len())
	assert.Equal(t, 2, logs.FilterMessage("review").Len())
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "20240627_报销.xlsx", ReportName(time.Date(2024, 6, 27, 15, 0, 0, 0, time.Local)))
}
