package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/archive"
	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

func newExpenseCmd(a *app) *cobra.Command {
	var output string
	var csvOut bool

	cmd := &cobra.Command{
		Use:   "expense <invoice-folder>",
		Short: "Build the expense reimbursement workbook from invoice PDFs",
		Long: `Reads every PDF directly inside the folder, extracts the invoice number and
amount (OCR for scans) and writes the 报销明细 workbook. Rows that need a
second look carry a remark.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			processor := invoice.NewProcessor(a.extractor(), a.parser(), a.search(), a.defaults(), a.logger)
			rows, err := processor.Process(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("%w in %s", invoice.ErrNoFiles, dir)
			}

			if output == "" {
				output = filepath.Join(dir, invoice.ReportName(time.Now()))
			}
			if err := sheet.WriteExpenseReport(rows, output); err != nil {
				return err
			}
			if csvOut {
				if err := writeCSV(rows, strings.TrimSuffix(output, filepath.Ext(output))+".csv"); err != nil {
					return err
				}
			}

			sum := invoice.Summarize(rows)
			invoice.LogSummary(a.logger, sum, output)
			fmt.Fprintf(a.out, "%s: %d invoices, total %s\n", output, sum.Count, money.Display(sum.Total))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Workbook path (default <folder>/YYYYMMDD_报销.xlsx)")
	cmd.Flags().BoolVar(&csvOut, "csv", false, "Also write the rows as CSV next to the workbook")
	return cmd
}

func writeCSV(rows []invoice.Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return sheet.WriteExpenseCSV(rows, f)
}

type checkKind int

const (
	checkNumber checkKind = iota
	checkFile
	checkFolder
)

// detectCheckInput decides whether input names a folder, a file or an
// invoice number.
func detectCheckInput(input string) checkKind {
	info, err := os.Stat(input)
	switch {
	case err == nil && info.IsDir():
		return checkFolder
	case err == nil:
		return checkFile
	case strings.HasSuffix(strings.ToLower(input), ".pdf"):
		return checkFile
	default:
		return checkNumber
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		refresh        bool
		stats          bool
		export         string
		includePending bool
	)

	cmd := &cobra.Command{
		Use:   "check [invoice-number | pdf | folder]",
		Short: "Check invoices against the archive of reimbursed invoices",
		Long: `Looks invoice numbers up in the archive index. The input may be an invoice
number, a PDF (every number in it is checked) or a folder of PDFs. The index
is built on first use; --refresh rebuilds it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !stats && export == "" && !refresh {
				return errors.New("nothing to check: give an input or one of --stats, --export, --refresh")
			}
			ctx := cmd.Context()

			index, err := a.openIndex()
			if err != nil {
				return err
			}
			defer index.Close()

			built, err := index.Build(ctx, refresh)
			if err != nil {
				return err
			}
			a.logger.Info("invoice index ready",
				zap.Int("files", built.Files), zap.Int("numbers", built.Numbers), zap.Bool("reused", built.Reused))

			if stats {
				st, err := index.Stats(ctx)
				if err != nil {
					return err
				}
				if err := a.printJSON(st); err != nil {
					return err
				}
			}
			if export != "" {
				if err := exportIndex(cmd, index, export); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "index exported to %s\n", export)
			}
			if len(args) == 0 {
				return nil
			}

			input := args[0]
			switch detectCheckInput(input) {
			case checkFolder:
				res, err := index.CheckFolder(ctx, input, includePending)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			case checkFile:
				res, err := index.CheckFile(ctx, input, includePending)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			default:
				res, err := index.Check(ctx, input, includePending)
				if err != nil {
					return err
				}
				return a.printJSON(res)
			}
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Rebuild the index before checking")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print index statistics")
	cmd.Flags().StringVar(&export, "export", "", "Write every indexed number and its files to this text file")
	cmd.Flags().BoolVar(&includePending, "include-pending", false, "Also count files in the pending folder")
	return cmd
}

func exportIndex(cmd *cobra.Command, index *archive.Index, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return index.Export(cmd.Context(), f)
}

func newReconcileCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Move already reimbursed invoices out of the pending folder",
		Long: `Checks every PDF in the pending folder against the archive index. Files whose
invoice numbers were already reimbursed elsewhere in the archive are moved to
the done folder together with a short _info.txt record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := a.openIndex()
			if err != nil {
				return err
			}
			defer index.Close()

			r := archive.NewReconciler(index, a.numbers(), a.search(), a.layout(), a.logger)
			res, err := r.Run(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would move without moving anything")
	return cmd
}

func newDedupeCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Move duplicate invoices out of the pending folder",
		Long: `Finds pending PDFs that share an invoice number or are byte-identical, keeps
the newest copy and moves the others to the duplicates folder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := archive.NewDeduplicator(a.numbers(), a.search(), a.layout(), a.logger)
			res, err := d.Run(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report duplicates without moving anything")
	return cmd
}
