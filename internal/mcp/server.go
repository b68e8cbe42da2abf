// Package mcp exposes the invoice and procurement helpers as MCP tools over
// stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/archive"
	"github.com/a3tai/pdf-clerk/internal/config"
	"github.com/a3tai/pdf-clerk/internal/descriptions"
	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/pathguard"
	"github.com/a3tai/pdf-clerk/internal/pdf"
	"github.com/a3tai/pdf-clerk/internal/procurement"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

// ReceiptReader turns a receipt photo into a procurement item.
type ReceiptReader interface {
	FromImage(ctx context.Context, path string) procurement.Item
}

// NumberChecker looks invoice numbers up in the archive.
type NumberChecker interface {
	Check(ctx context.Context, number string, includePending bool) (*archive.CheckResult, error)
}

// Services are the components the tools call into. Index may be nil when
// no archive is configured.
type Services struct {
	Extractor invoice.TextExtractor
	Parser    *invoice.Parser
	Defaults  invoice.Defaults
	Search    *pdf.Search
	Receipts  ReceiptReader
	Index     NumberChecker
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	services  Services
	processor *invoice.Processor
	guard     *pathguard.Guard
	mcpServer *server.MCPServer
	logger    *zap.Logger
	now       func() time.Time
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc Services, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if svc.Extractor == nil || svc.Parser == nil || svc.Search == nil {
		return nil, errors.New("extractor, parser and search are required")
	}

	guard, err := pathguard.New(cfg.Server.Directory)
	if err != nil {
		return nil, fmt.Errorf("invalid server directory: %w", err)
	}

	logger = logging.OrNop(logger)
	s := &Server{
		config:    cfg,
		services:  svc,
		processor: invoice.NewProcessor(svc.Extractor, svc.Parser, svc.Search, svc.Defaults, logger),
		guard:     guard,
		mcpServer: server.NewMCPServer(
			cfg.Server.Name,
			cfg.Server.Version,
			server.WithToolCapabilities(false),
		),
		logger: logger,
		now:    time.Now,
	}

	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(descriptions.InvoiceExtract,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.InvoiceExtract)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the invoice PDF")),
	), s.handleInvoiceExtract)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.InvoiceCheckNumber,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.InvoiceCheckNumber)),
		mcp.WithString("number", mcp.Required(), mcp.Description("Invoice number")),
		mcp.WithBoolean("include_pending", mcp.Description("Also count files in the pending folder")),
	), s.handleInvoiceCheckNumber)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ExpenseReport,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ExpenseReport)),
		mcp.WithString("directory", mcp.Required(), mcp.Description("Folder holding the invoice PDFs")),
		mcp.WithString("output", mcp.Description("Workbook path (default <directory>/YYYYMMDD_报销.xlsx)")),
	), s.handleExpenseReport)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ProcurementFromImage,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ProcurementFromImage)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the receipt image")),
		mcp.WithString("output", mcp.Description("Workbook path (default next to the image)")),
	), s.handleProcurementFromImage)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.PDFReadText,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.PDFReadText)),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
	), s.handlePDFReadText)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.PDFSearchDirectory,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.PDFSearchDirectory)),
		mcp.WithString("directory", mcp.Description("Directory path to search (uses default if empty)")),
		mcp.WithString("query", mcp.Description("Optional search query for fuzzy matching")),
		mcp.WithBoolean("recursive", mcp.Description("Include subdirectories")),
	), s.handlePDFSearchDirectory)
}

// Handler functions
func (s *Server) handleInvoiceExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.requirePath(request, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !pdf.IsPDFName(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a PDF file: %s", path)), nil
	}
	if err := s.services.Search.Validate(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	row := s.processor.ProcessFile(ctx, path)
	return mcp.NewToolResultText(formatRow(row)), nil
}

func (s *Server) handleInvoiceCheckNumber(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := request.RequireString("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.services.Index == nil {
		return mcp.NewToolResultError("invoice archive is not configured"), nil
	}

	res, err := s.services.Index.Check(ctx, number, boolArg(request, "include_pending"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !res.Exists {
		return mcp.NewToolResultText(fmt.Sprintf("Invoice %s has not been reimbursed", res.Number)), nil
	}
	text := fmt.Sprintf("Invoice %s is already in the archive (%d file(s)):\n", res.Number, len(res.Files))
	for _, f := range res.Files {
		text += fmt.Sprintf("  - %s\n", f)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExpenseReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dirArg, err := request.RequireString("directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := s.guard.ResolveDir(dirArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output := filepath.Join(dir, invoice.ReportName(s.now()))
	if out := stringArg(request, "output"); out != "" {
		if output, err = s.guard.Resolve(out); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	rows, err := s.processor.Process(ctx, dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("No PDF files found in directory: %s", dir)), nil
	}
	if err := sheet.WriteExpenseReport(rows, output); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sum := invoice.Summarize(rows)
	text := fmt.Sprintf("Expense report written: %s\n", output)
	text += fmt.Sprintf("Invoices: %d\n", sum.Count)
	text += fmt.Sprintf("Total amount: %s\n", money.Display(sum.Total))
	if len(sum.Problems) > 0 {
		text += fmt.Sprintf("\n%d invoice(s) need manual review:\n", len(sum.Problems))
		for _, r := range sum.Problems {
			text += fmt.Sprintf("  - %s: %s\n", r.Reason, r.Remark)
		}
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProcurementFromImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.services.Receipts == nil {
		return mcp.NewToolResultError("image OCR is not available"), nil
	}
	path, err := s.requirePath(request, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := s.now()
	output := filepath.Join(filepath.Dir(path), sheet.RequestName(now))
	if out := stringArg(request, "output"); out != "" {
		if output, err = s.guard.Resolve(out); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	item := s.services.Receipts.FromImage(ctx, path)
	req := procurement.Request{
		Date:       now,
		Applicant:  s.config.Procurement.Applicant,
		Department: s.config.Procurement.Department,
		Items:      []procurement.Item{item},
	}
	if err := sheet.WriteProcurementRequest(req, output); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Procurement request written: %s\n", output)
	text += formatItem(item)
	if item.Empty() {
		text += "\nNothing could be recognized in the image; please fill the item in by hand.\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFReadText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.requirePath(request, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.services.Extractor.Extract(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Successfully read PDF: %s\n", res.Path)
	text += fmt.Sprintf("Method: %s\n", res.Method)
	if res.Images > 0 {
		text += fmt.Sprintf("Embedded images: %d\n", res.Images)
	}
	for _, w := range res.Warnings {
		text += fmt.Sprintf("Warning: %s\n", w)
	}
	text += "\nContent:\n" + res.Text
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFSearchDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	directory := s.guard.Root()
	if dir := stringArg(request, "directory"); dir != "" {
		directory = dir
	}
	dir, err := s.guard.ResolveDir(directory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := stringArg(request, "query")
	files, err := s.services.Search.FindPDFs(dir, pdf.SearchOptions{
		Query:     query,
		Recursive: boolArg(request, "recursive"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", dir)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultText(formatFiles(dir, query, files)), nil
}

// requirePath reads a required path argument and keeps it inside the
// server directory.
func (s *Server) requirePath(request mcp.CallToolRequest, key string) (string, error) {
	raw, err := request.RequireString(key)
	if err != nil {
		return "", err
	}
	return s.guard.Resolve(raw)
}

func stringArg(request mcp.CallToolRequest, key string) string {
	if v, ok := request.GetArguments()[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolArg(request mcp.CallToolRequest, key string) bool {
	v, _ := request.GetArguments()[key].(bool)
	return v
}

// Formatting functions
func formatRow(row invoice.Row) string {
	text := fmt.Sprintf("Invoice: %s\n", filepath.Base(row.SourceFile))
	text += fmt.Sprintf("Reason: %s\n", row.Reason)
	text += fmt.Sprintf("Invoice number: %s\n", orPlaceholder(row.InvoiceNumber))
	text += fmt.Sprintf("Amount: %s\n", orPlaceholder(row.Amount))
	if row.Method != "" {
		text += fmt.Sprintf("Method: %s\n", row.Method)
	}
	if row.NeedsReview() {
		text += fmt.Sprintf("Remark: %s\n", row.Remark)
	}
	return text
}

func formatItem(item procurement.Item) string {
	text := fmt.Sprintf("Name: %s\n", orPlaceholder(item.Name))
	text += fmt.Sprintf("Specification: %s\n", orPlaceholder(item.Specification))
	text += fmt.Sprintf("Type: %s\n", item.Type)
	text += fmt.Sprintf("Quantity: %d %s\n", item.Quantity, item.Unit)
	text += fmt.Sprintf("Unit price: %s\n", money.Display(item.UnitPrice))
	text += fmt.Sprintf("Total: %s\n", money.Display(item.Total))
	return text
}

func formatFiles(dir, query string, files []pdf.FileInfo) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", len(files), dir)
	if query != "" {
		text += fmt.Sprintf("Search query: %s\n", query)
	}
	text += "\nFiles:\n"

	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime.Format(time.RFC3339))
		if i < len(files)-1 {
			text += "\n"
		}
	}
	return text
}

func orPlaceholder(s string) string {
	if s == "" {
		return "(not found)"
	}
	return s
}

// Run serves MCP over stdio until the client disconnects.
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("Starting MCP server in stdio mode",
		zap.String("name", s.config.Server.Name),
		zap.String("directory", s.guard.Root()))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
