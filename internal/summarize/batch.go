package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/config"
	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

const (
	SystemPrompt = "你是一个专业的学术论文分析助手，擅长提取论文的关键信息。请用中文回答。"

	DefaultPrompt = `请分析这篇论文，回答以下问题：

1. 这篇论文做了什么？主要贡献是什么？
2. 使用了什么评估指标（metrics）？比较了什么能力？
3. 进行了什么实验？在什么场景下测试？
4. 主要结论是什么？

请用简洁的中文回答，每个问题用一段话概括。`

	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	ReasonNoText = "无法提取文本内容"
)

// ErrNoPDFs is returned when the folder holds no PDF files.
var ErrNoPDFs = errors.New("no PDF files found")

// Analysis is the model's answer for one file.
type Analysis struct {
	Status     string `json:"status"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// FileResult is one entry of a batch report.
type FileResult struct {
	FilePath   string    `json:"file_path"`
	FileName   string    `json:"file_name"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	PagesRead  int       `json:"pages_read,omitempty"`
	TextLength int       `json:"text_length,omitempty"`
	Analysis   *Analysis `json:"analysis,omitempty"`
}

// Skipped reports whether no text could be sent for the file.
func (r FileResult) Skipped() bool { return r.Status == StatusSkipped }

// Report is the JSON document written after every file.
type Report struct {
	Timestamp       time.Time    `json:"timestamp"`
	RunID           string       `json:"run_id"`
	Folder          string       `json:"folder"`
	TotalFiles      int          `json:"total_files"`
	TotalTokensUsed int          `json:"total_tokens_used"`
	Results         []FileResult `json:"results"`
}

// Options controls one batch run.
type Options struct {
	Prompt   string
	MaxPages int
	// Output is the JSON report path; empty picks DefaultOutputName.
	Output string
}

// TextReader reads the native text of a PDF.
type TextReader interface {
	ExtractText(path string, maxPages int) (*pdf.Text, error)
}

// PageCounter reports a document's page count.
type PageCounter interface {
	Inspect(path string) (*pdf.DocumentInfo, error)
}

// Analyzer runs a prompt over every PDF of a folder.
type Analyzer struct {
	client    Client
	reader    TextReader
	inspector PageCounter
	search    *pdf.Search
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyzer wires an analyzer. inspector may be nil.
func NewAnalyzer(client Client, reader TextReader, inspector PageCounter, search *pdf.Search, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		client:    client,
		reader:    reader,
		inspector: inspector,
		search:    search,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// DefaultOutputName is the report name used when none is given.
func DefaultOutputName(t time.Time) string {
	return "pdf_analysis_" + t.Format("20060102_150405") + ".json"
}

// Run analyzes every PDF below dir. The report is saved after each file so
// an interrupted run keeps what it has done. A failing model call is
// recorded and the batch continues.
func (a *Analyzer) Run(ctx context.Context, dir string, opts Options) (*Report, string, error) {
	files, err := a.search.FindPDFs(dir, pdf.SearchOptions{Recursive: true})
	if err != nil {
		return nil, "", err
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("%w in %s", ErrNoPDFs, dir)
	}

	prompt := opts.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = config.DefaultLLMMaxPages
	}
	output := opts.Output
	if output == "" {
		output = DefaultOutputName(a.now())
	}

	report := &Report{RunID: uuid.NewString(), Folder: dir}
	a.logger.Info("Starting batch analysis",
		zap.String("run_id", report.RunID),
		zap.String("folder", dir),
		zap.Int("files", len(files)))

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return report, output, err
		}
		a.logger.Info("Analyzing PDF",
			zap.Int("index", i+1),
			zap.Int("of", len(files)),
			zap.String("file", f.Name))

		res := a.analyzeFile(ctx, f, prompt, maxPages)
		report.Results = append(report.Results, res)
		if res.Analysis != nil {
			report.TotalTokensUsed += res.Analysis.TokensUsed
		}
		if err := a.save(report, output); err != nil {
			return report, output, err
		}
	}

	a.logger.Info("Batch analysis finished",
		zap.Int("files", len(report.Results)),
		zap.Int("tokens", report.TotalTokensUsed),
		zap.String("output", output))
	return report, output, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, f pdf.FileInfo, prompt string, maxPages int) FileResult {
	res := FileResult{FilePath: f.Path, FileName: f.Name}

	text, err := a.reader.ExtractText(f.Path, maxPages)
	if err != nil {
		a.logger.Warn("Failed to read PDF", zap.String("file", f.Name), zap.Error(err))
	}
	if err != nil || strings.TrimSpace(text.Content) == "" {
		a.logger.Warn("Skipping PDF without text", zap.String("file", f.Name))
		res.Status = StatusSkipped
		res.Reason = ReasonNoText
		return res
	}

	res.Pages, res.PagesRead = a.pageCount(f.Path, text), text.PagesRead
	if res.PagesRead < res.Pages {
		a.logger.Warn("Only the first pages were read",
			zap.String("file", f.Name),
			zap.Int("pages_read", res.PagesRead),
			zap.Int("pages", res.Pages))
	}
	res.TextLength = len([]rune(text.Content))

	user := fmt.Sprintf("以下是PDF文件《%s》的内容：\n\n%s\n\n%s", f.Name, text.Content, prompt)
	comp, err := a.client.Complete(ctx, SystemPrompt, user)
	if err != nil {
		a.logger.Error("LLM request failed", zap.String("file", f.Name), zap.Error(err))
		res.Analysis = &Analysis{Status: StatusError, Error: err.Error()}
		return res
	}
	res.Analysis = &Analysis{Status: StatusSuccess, Response: comp.Text, TokensUsed: comp.Tokens}
	return res
}

// pageCount prefers the inspector's count, which also covers pages the
// text reader never opened.
func (a *Analyzer) pageCount(path string, text *pdf.Text) int {
	if a.inspector != nil {
		if info, err := a.inspector.Inspect(path); err == nil && info.PageCount > 0 {
			return info.PageCount
		}
	}
	return text.Pages
}

// save writes the report next to a temporary file and renames it in place.
func (a *Analyzer) save(report *Report, path string) error {
	report.Timestamp = a.now()
	report.TotalFiles = len(report.Results)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report folder: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by Run.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}
