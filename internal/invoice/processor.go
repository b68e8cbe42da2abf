package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/extract"
	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

// TextExtractor produces the text of a PDF.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*extract.Result, error)
}

// Processor turns a folder of invoices into report rows.
type Processor struct {
	extractor TextExtractor
	parser    *Parser
	search    *pdf.Search
	defaults  Defaults
	logger    *zap.Logger
}

// NewProcessor wires a processor.
func NewProcessor(extractor TextExtractor, parser *Parser, search *pdf.Search, defaults Defaults, logger *zap.Logger) *Processor {
	return &Processor{
		extractor: extractor,
		parser:    parser,
		search:    search,
		defaults:  defaults,
		logger:    logging.OrNop(logger),
	}
}

// Process reads every PDF directly inside dir in name order. Empty and
// oversized files still get a failure row. A folder without PDFs yields no
// rows and no error.
func (p *Processor) Process(ctx context.Context, dir string) ([]Row, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("invoice folder %s: %w", dir, err)
	}

	files, err := p.search.FindPDFs(dir, pdf.SearchOptions{KeepInvalid: true})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.Warn("no PDF files found", zap.String("folder", dir))
		return nil, nil
	}
	p.logger.Info("found PDF files", zap.Int("count", len(files)))

	seen := make(map[string]bool)
	rows := make([]Row, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var row Row
		if f.Invalid != "" {
			p.logger.Error("unreadable PDF file", zap.String("file", f.Name), zap.String("reason", f.Invalid))
			row = p.failedRow(f.Path)
		} else {
			row = p.ProcessFile(ctx, f.Path)
		}

		if n := row.InvoiceNumber; n != "" && n != FailedNumber {
			if seen[n] {
				p.logger.Warn("duplicate invoice number", zap.String("number", n), zap.String("file", f.Name))
				row.Remark = fmt.Sprintf("重复发票号码: %s; ", n) + row.Remark
			}
			seen[n] = true
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// ProcessFile extracts, parses and checks the amount of one invoice. Files
// without any text become a placeholder row to be completed by hand.
func (p *Processor) ProcessFile(ctx context.Context, path string) Row {
	name := filepath.Base(path)
	p.logger.Info("processing file", zap.String("file", name))

	res, err := p.extractor.Extract(ctx, path)
	if err != nil {
		if !errors.Is(err, extract.ErrEmptyText) {
			p.logger.Error("text extraction failed", zap.String("file", name), zap.Error(err))
		} else {
			p.logger.Error("no text in file", zap.String("file", name))
		}
		return p.failedRow(path)
	}

	row := p.parser.Parse(res.Text, name, p.defaults)
	row.SourceFile = path
	row.Method = string(res.Method)
	if ok, msg := p.parser.ValidateAmount(row.Amount); !ok {
		p.logger.Warn("amount validation failed", zap.String("file", name), zap.String("reason", msg))
		row.Remark += fmt.Sprintf("金额验证: %s; ", msg)
	}
	p.logger.Info("processed file",
		zap.String("file", name), zap.String("method", row.Method),
		zap.String("number", row.InvoiceNumber), zap.String("amount", row.Amount))
	return row
}

func (p *Processor) failedRow(path string) Row {
	return Row{
		Reason:         Reason(filepath.Base(path)),
		ProjectManager: p.defaults.ProjectManager,
		InvoiceType:    p.defaults.InvoiceType,
		InvoiceNumber:  FailedNumber,
		PaymentType:    p.defaults.PaymentType,
		SubjectDetail:  p.defaults.SubjectDetail,
		Amount:         FailedAmount,
		Remark:         FailedRemark,
		SourceFile:     path,
	}
}

// Summary totals a batch of rows.
type Summary struct {
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Problems []Row           `json:"problems,omitempty"`
}

// Summarize adds up the non-zero amounts and collects rows needing review.
func Summarize(rows []Row) Summary {
	s := Summary{Count: len(rows), Total: decimal.Zero}
	for _, r := range rows {
		if r.Amount != "" && r.Amount != FailedAmount {
			if d, err := money.Parse(r.Amount); err == nil {
				s.Total = s.Total.Add(d)
			}
		}
		if r.NeedsReview() {
			s.Problems = append(s.Problems, r)
		}
	}
	return s
}

// LogSummary writes the batch totals and every row needing review.
func LogSummary(logger *zap.Logger, s Summary, output string) {
	logger = logging.OrNop(logger)
	logger.Info("expense report written",
		zap.Int("invoices", s.Count),
		zap.String("total", money.Display(s.Total)),
		zap.String("output", output))
	if len(s.Problems) > 0 {
		logger.Warn("invoices need manual review", zap.Int("count", len(s.Problems)))
		for _, r := range s.Problems {
			logger.Warn("review", zap.String("reason", r.Reason), zap.String("remark", r.Remark))
		}
	}
}

// ReportName is the default expense report file name for day t.
func ReportName(t time.Time) string {
	return t.Format("20060102") + "_报销.xlsx"
}
