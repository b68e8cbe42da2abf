package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/sheet"
	"github.com/a3tai/pdf-clerk/internal/summarize"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{out: &out}
	root := newRootCmd(a)
	root.SetArgs(append(args, "--archive", t.TempDir(), "--log-level", "error"))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = "1.2.3", "2025-07-18_10:30:00", "abc123"
	defer func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit }()

	var buf bytes.Buffer
	printVersion(&buf)
	out := buf.String()

	for _, want := range []string{"pdf-clerk", "Version: 1.2.3", "Build Time: 2025-07-18_10:30:00", "Git Commit: abc123", runtime.Version()} {
		assert.Contains(t, out, want)
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd(&app{})
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"expense", "check", "reconcile", "dedupe", "procure", "convert",
		"ocr-images", "orders", "summarize", "serve", "version",
	} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("archive"))
	assert.NotNil(t, root.PersistentFlags().Lookup("provider"))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: ")
}

func TestDetectCheckInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0o644))

	tests := []struct {
		input string
		want  checkKind
	}{
		{dir, checkFolder},
		{file, checkFile},
		{filepath.Join(dir, "missing.PDF"), checkFile},
		{"24442000000123456789", checkNumber},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectCheckInput(tt.input), tt.input)
	}
}

func TestCheckCommandNeedsInput(t *testing.T) {
	_, err := execute(t, "check")
	assert.ErrorContains(t, err, "nothing to check")
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "20250718_报销.xlsx")
	require.NoError(t, sheet.WriteExpenseReport([]invoice.Row{
		{Reason: "优信电子_杜邦线", InvoiceNumber: "87654321", Amount: "12.50"},
		{Reason: "得力_螺丝", InvoiceNumber: "11112222", Amount: "1500.00"},
	}, report))

	output := filepath.Join(dir, "detail.xlsx")
	out, err := execute(t, "convert", report, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "2 items")
	assert.FileExists(t, output)
}

func TestOrdersCommand(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	rows := [][]any{
		{"店铺名称", "商品名称", "数量", "实付金额", "订单状态"},
		{"优信电子", "杜邦线", "2", "￥12.50", "交易成功"},
		{"优信电子", "舵机", "1", "￥45.00", "交易关闭"},
	}
	for i, row := range rows {
		r := row
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &r))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "taobao.xlsx")))
	require.NoError(t, f.Close())

	out, err := execute(t, "orders", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 1`)
	assert.Contains(t, out, "batch_output")

	_, err = execute(t, "orders", t.TempDir())
	assert.ErrorContains(t, err, "no successful orders")
}

func TestSummarizeFromReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdf_analysis_20250718_100000.json")
	report := summarize.Report{
		TotalFiles: 2,
		Results: []summarize.FileResult{
			{FileName: "a.pdf", Status: summarize.StatusSuccess,
				Analysis: &summarize.Analysis{Status: summarize.StatusSuccess, Response: "研究了舵机控制", TokensUsed: 42}},
			{FileName: "b.pdf", Status: summarize.StatusSkipped, Reason: summarize.ReasonNoText},
		},
	}
	data, err := json.Marshal(report)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out, err := execute(t, "summarize", "--from", path, "--html")
	require.NoError(t, err)
	assert.Contains(t, out, "rendered 2 results")

	md, err := os.ReadFile(filepath.Join(dir, "pdf_analysis_20250718_100000.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "研究了舵机控制")
	assert.FileExists(t, filepath.Join(dir, "pdf_analysis_20250718_100000.html"))

	_, err = execute(t, "summarize", "--from", path, dir)
	assert.Error(t, err, "a folder is not accepted with --from")

	_, err = execute(t, "summarize", "--from", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
