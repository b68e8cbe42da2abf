package summarize

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// Markdown renders the report as a markdown document.
func Markdown(r *Report, generated time.Time) string {
	var b strings.Builder
	b.WriteString("# PDF批量分析报告\n\n")
	fmt.Fprintf(&b, "生成时间: %s\n\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "总计分析: %d 个PDF文件\n\n", len(r.Results))
	b.WriteString("---\n\n")

	for i, res := range r.Results {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, res.FileName)
		switch {
		case res.Skipped():
			b.WriteString("**状态**: 跳过\n\n")
			fmt.Fprintf(&b, "**原因**: %s\n\n", orDefault(res.Reason, "未知"))
		case res.Analysis != nil && res.Analysis.Status == StatusSuccess:
			b.WriteString("**分析结果**:\n\n")
			fmt.Fprintf(&b, "%s\n\n", orDefault(res.Analysis.Response, "无结果"))
			fmt.Fprintf(&b, "*Token使用: %d*\n\n", res.Analysis.TokensUsed)
		default:
			msg := "未知错误"
			if res.Analysis != nil && res.Analysis.Error != "" {
				msg = res.Analysis.Error
			}
			fmt.Fprintf(&b, "**错误**: %s\n\n", msg)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// RenderHTML converts a markdown report into a standalone HTML page.
func RenderHTML(markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>PDF批量分析报告</title>\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// WriteReports writes the markdown report to mdPath and, when htmlPath is
// not empty, its HTML rendering.
func WriteReports(r *Report, mdPath, htmlPath string, generated time.Time) error {
	md := Markdown(r, generated)
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	if htmlPath == "" {
		return nil
	}
	html, err := RenderHTML(md)
	if err != nil {
		return err
	}
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	return nil
}

// SiblingPath swaps the extension of path, e.g. report.json -> report.md.
func SiblingPath(path, ext string) string {
	if strings.HasSuffix(path, ".json") {
		return strings.TrimSuffix(path, ".json") + ext
	}
	return path + ext
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
