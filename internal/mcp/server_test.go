package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-clerk/internal/archive"
	"github.com/a3tai/pdf-clerk/internal/config"
	"github.com/a3tai/pdf-clerk/internal/extract"
	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/pdf"
	"github.com/a3tai/pdf-clerk/internal/pdf/pdftest"
	"github.com/a3tai/pdf-clerk/internal/procurement"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

type fakeExtractor map[string]string

func (f fakeExtractor) Extract(_ context.Context, path string) (*extract.Result, error) {
	text, ok := f[filepath.Base(path)]
	if !ok {
		return nil, extract.ErrEmptyText
	}
	return &extract.Result{Path: path, Text: text, Method: extract.MethodNative}, nil
}

type fakeReceipts struct{ item procurement.Item }

func (f fakeReceipts) FromImage(context.Context, string) procurement.Item { return f.item }

type fakeIndex map[string][]string

func (f fakeIndex) Check(_ context.Context, number string, includePending bool) (*archive.CheckResult, error) {
	if number == "boom" {
		return nil, errors.New("index unavailable")
	}
	files := f[number]
	return &archive.CheckResult{Number: number, Exists: len(files) > 0, Files: files, IncludePending: includePending}, nil
}

func newTestServer(t *testing.T, svc Services) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server.Directory = dir
	cfg.Procurement.Applicant = "张三"

	if svc.Extractor == nil {
		svc.Extractor = fakeExtractor{
			"优信电子_杜邦线.pdf": "发票号码:24442000000123456789\n价税合计(大写) 壹拾贰元伍角 (小写)￥12.50",
			"得力_订书机.pdf":   "发票号码:87654321\n合计 ￥36.00",
			"大额_服务器.pdf":   "发票号码:99999999\n小写 ¥150,000.00",
		}
	}
	svc.Parser = invoice.NewParser(config.DefaultAmountCeiling, config.DefaultReviewLimit)
	svc.Search = pdf.NewSearch(config.DefaultMaxFileSize)
	svc.Defaults = invoice.Defaults{ProjectManager: "李四", InvoiceType: config.DefaultInvoiceType}

	s, err := NewServer(cfg, svc, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 7, 18, 10, 0, 0, 0, time.Local) }
	return s, dir
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Directory = t.TempDir()

	_, err := NewServer(nil, Services{}, nil)
	assert.Error(t, err)

	_, err = NewServer(cfg, Services{}, nil)
	assert.Error(t, err)

	s, _ := newTestServer(t, Services{})
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.processor)
}

func TestServer_InvoiceExtract(t *testing.T) {
	s, dir := newTestServer(t, Services{})
	pdftest.Write(t, dir, "优信电子_杜邦线.pdf", "x")

	res, err := s.handleInvoiceExtract(context.Background(), call(map[string]any{"path": "优信电子_杜邦线.pdf"}))
	require.NoError(t, err)
	require.False(t, res.IsError, extractTextFromResult(res))
	text := extractTextFromResult(res)
	assert.Contains(t, text, "Reason: 优信电子_杜邦线")
	assert.Contains(t, text, "Invoice number: 24442000000123456789")
	assert.Contains(t, text, "Amount: 12.50")
	assert.Contains(t, text, "Method: native")
	assert.NotContains(t, text, "Remark:")

	pdftest.Write(t, dir, "大额_服务器.pdf", "x")
	res, err = s.handleInvoiceExtract(context.Background(), call(map[string]any{"path": "大额_服务器.pdf"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, extractTextFromResult(res), "Remark: 金额验证: 金额过大(150000.00元)，请确认; ")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing path", map[string]any{}},
		{"outside root", map[string]any{"path": "/etc/passwd.pdf"}},
		{"not a pdf", map[string]any{"path": "notes.txt"}},
		{"missing file", map[string]any{"path": "gone.pdf"}},
		{"empty file", map[string]any{"path": "empty.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleInvoiceExtract(context.Background(), call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestServer_InvoiceCheckNumber(t *testing.T) {
	s, _ := newTestServer(t, Services{})
	res, err := s.handleInvoiceCheckNumber(context.Background(), call(map[string]any{"number": "87654321"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, extractTextFromResult(res), "not configured")

	s, _ = newTestServer(t, Services{Index: fakeIndex{"87654321": {"/archive/2024/a.pdf"}}})

	res, err = s.handleInvoiceCheckNumber(context.Background(), call(map[string]any{"number": "87654321"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(res), "already in the archive (1 file(s))")
	assert.Contains(t, extractTextFromResult(res), "/archive/2024/a.pdf")

	res, err = s.handleInvoiceCheckNumber(context.Background(), call(map[string]any{"number": "11112222", "include_pending": true}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(res), "has not been reimbursed")

	res, err = s.handleInvoiceCheckNumber(context.Background(), call(map[string]any{"number": "boom"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ExpenseReport(t *testing.T) {
	s, dir := newTestServer(t, Services{})
	invoices := filepath.Join(dir, "tbd")
	pdftest.Write(t, invoices, "优信电子_杜邦线.pdf", "x")
	pdftest.Write(t, invoices, "得力_订书机.pdf", "x")
	pdftest.Write(t, invoices, "模糊扫描.pdf", "x")

	res, err := s.handleExpenseReport(context.Background(), call(map[string]any{"directory": "tbd"}))
	require.NoError(t, err)
	require.False(t, res.IsError, extractTextFromResult(res))

	output := filepath.Join(invoices, "20250718_报销.xlsx")
	text := extractTextFromResult(res)
	assert.Contains(t, text, output)
	assert.Contains(t, text, "Invoices: 3")
	assert.Contains(t, text, "1 invoice(s) need manual review")
	assert.Contains(t, text, invoice.FailedRemark)

	entries, err := sheet.ReadExpenseReport(output, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	res, err = s.handleExpenseReport(context.Background(), call(map[string]any{"directory": "empty"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleExpenseReport(context.Background(), call(map[string]any{"directory": "tbd", "output": "../out.xlsx"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ProcurementFromImage(t *testing.T) {
	item := procurement.Item{
		Index: 1, Type: "电子元器件", Name: "舵机", Specification: "MG996R", Unit: "个",
		Quantity: 2, UnitPrice: decimal.RequireFromString("45"), Total: decimal.RequireFromString("90"),
	}
	s, dir := newTestServer(t, Services{Receipts: fakeReceipts{item: item}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "receipt.jpg"), []byte("img"), 0o644))

	res, err := s.handleProcurementFromImage(context.Background(), call(map[string]any{"path": "receipt.jpg"}))
	require.NoError(t, err)
	require.False(t, res.IsError, extractTextFromResult(res))
	text := extractTextFromResult(res)
	assert.Contains(t, text, filepath.Join(dir, "20250718_采购申请.xlsx"))
	assert.Contains(t, text, "Name: 舵机")
	assert.Contains(t, text, "Quantity: 2 个")
	assert.FileExists(t, filepath.Join(dir, "20250718_采购申请.xlsx"))

	s, _ = newTestServer(t, Services{Receipts: fakeReceipts{item: procurement.EmptyItem()}})
	res, err = s.handleProcurementFromImage(context.Background(), call(map[string]any{"path": "x.jpg"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(res), "fill the item in by hand")

	s, _ = newTestServer(t, Services{})
	res, err = s.handleProcurementFromImage(context.Background(), call(map[string]any{"path": "x.jpg"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_PDFReadText(t *testing.T) {
	s, _ := newTestServer(t, Services{})

	res, err := s.handlePDFReadText(context.Background(), call(map[string]any{"path": "得力_订书机.pdf"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(res), "Method: native")
	assert.Contains(t, extractTextFromResult(res), "合计 ￥36.00")

	res, err = s.handlePDFReadText(context.Background(), call(map[string]any{"path": "scan.pdf"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_PDFSearchDirectory(t *testing.T) {
	s, dir := newTestServer(t, Services{})
	pdftest.Write(t, dir, "invoice_jd.pdf", "a")
	pdftest.Write(t, dir, "report.pdf", "b")
	pdftest.Write(t, dir, filepath.Join("sub", "invoice_tb.pdf"), "c")

	tests := []struct {
		name     string
		args     map[string]any
		contains []string
		excludes []string
	}{
		{
			name:     "default directory",
			args:     map[string]any{},
			contains: []string{"Found 2 PDF file(s)", "invoice_jd.pdf", "report.pdf"},
			excludes: []string{"invoice_tb.pdf"},
		},
		{
			name:     "recursive query",
			args:     map[string]any{"query": "invoice", "recursive": true},
			contains: []string{"Found 2 PDF file(s)", "Search query: invoice", "invoice_tb.pdf"},
			excludes: []string{"report.pdf"},
		},
		{
			name:     "no match",
			args:     map[string]any{"query": "zzz"},
			contains: []string{"No PDF files found", "(searched for: zzz)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handlePDFSearchDirectory(context.Background(), call(tt.args))
			require.NoError(t, err)
			text := extractTextFromResult(res)
			for _, c := range tt.contains {
				assert.Contains(t, text, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, text, e)
			}
		})
	}

	res, err := s.handlePDFSearchDirectory(context.Background(), call(map[string]any{"directory": "/"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
