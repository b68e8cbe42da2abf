package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/mcp"
	"github.com/a3tai/pdf-clerk/internal/orders"
	"github.com/a3tai/pdf-clerk/internal/pdf"
	"github.com/a3tai/pdf-clerk/internal/summarize"
)

func newOrdersCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "orders <export-folder>",
		Short: "Collect successful orders from e-commerce xlsx exports",
		Long: `Reads every xlsx below the folder, keeps the rows whose status is 交易成功 and
writes a merged workbook plus one per source file. Statistics are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			list, err := orders.NewReader(a.logger).ReadDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no successful orders found in %s", dir)
			}

			if output == "" {
				output = filepath.Join(dir, "batch_output")
			}
			exported, err := orders.Export(list, output, time.Now())
			if err != nil {
				return err
			}
			return a.printJSON(struct {
				Stats  orders.Stats         `json:"stats"`
				Output *orders.ExportResult `json:"output"`
			}{orders.Summarize(list), exported})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output folder (default <folder>/batch_output)")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		prompt   string
		output   string
		markdown bool
		html     bool
		from     string
	)

	cmd := &cobra.Command{
		Use:   "summarize <pdf-folder>",
		Short: "Ask an LLM about every PDF in a folder",
		Long: `Sends the text of the first pages of every PDF below the folder to the
configured LLM together with a prompt and saves the answers as JSON after each
file. --markdown also writes a readable report and --html renders it.

With --from no folder is read: the reports are rendered from an existing JSON
result file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				return renderReports(a, from, html)
			}

			ctx := cmd.Context()
			client, err := summarize.NewClient(ctx, a.cfg.LLM)
			if err != nil {
				return err
			}

			analyzer := summarize.NewAnalyzer(client,
				pdf.NewReader(a.cfg.MaxFileSize),
				pdf.NewInspector(a.cfg.MaxFileSize),
				a.search(), a.logger)
			report, out, err := analyzer.Run(ctx, args[0], summarize.Options{
				Prompt:   prompt,
				MaxPages: a.cfg.LLM.MaxPages,
				Output:   output,
			})
			if err != nil {
				return err
			}

			if markdown || html {
				md := summarize.SiblingPath(out, ".md")
				htmlPath := ""
				if html {
					htmlPath = summarize.SiblingPath(out, ".html")
				}
				if err := summarize.WriteReports(report, md, htmlPath, time.Now()); err != nil {
					return err
				}
				a.logger.Info("markdown report written", zap.String("path", md))
			}
			fmt.Fprintf(a.out, "analyzed %d PDF files, %d tokens used, results in %s\n",
				report.TotalFiles, report.TotalTokensUsed, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Question to ask about every PDF (default: paper summary)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "JSON output path (default pdf_analysis_YYYYMMDD_HHMMSS.json)")
	cmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "Also write a markdown report")
	cmd.Flags().BoolVar(&html, "html", false, "Also write an HTML rendering of the report")
	cmd.Flags().StringVar(&from, "from", "", "Render the markdown report from this JSON result file instead of analyzing")
	return cmd
}

// renderReports writes the markdown (and optionally HTML) report next to an
// existing JSON result file.
func renderReports(a *app, jsonPath string, html bool) error {
	report, err := summarize.LoadReport(jsonPath)
	if err != nil {
		return err
	}
	md := summarize.SiblingPath(jsonPath, ".md")
	htmlPath := ""
	if html {
		htmlPath = summarize.SiblingPath(jsonPath, ".html")
	}
	if err := summarize.WriteReports(report, md, htmlPath, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "rendered %d results to %s\n", len(report.Results), md)
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serves the invoice tools to an MCP client over stdin/stdout. Tool paths are
confined to --dir. When --archive is given the invoice index is built first
so invoice_check_number can answer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := mcp.Services{
				Extractor: a.extractor(),
				Parser:    a.parser(),
				Defaults:  a.defaults(),
				Search:    a.search(),
				Receipts:  a.receipts(),
			}

			if cmd.Flags().Changed("archive") {
				index, err := a.openIndex()
				if err != nil {
					return err
				}
				defer index.Close()
				if _, err := index.Build(ctx, false); err != nil {
					return err
				}
				svc.Index = index
			}

			server, err := mcp.NewServer(a.cfg, svc, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			if err := server.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}
}
