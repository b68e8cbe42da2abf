package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/ocr"
	"github.com/a3tai/pdf-clerk/internal/procurement"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

func newProcureCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "procure <receipt-image>",
		Short: "Build a procurement request from a receipt photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image := args[0]
			t := time.Now()
			item := a.receipts().FromImage(cmd.Context(), image)
			if item.Empty() {
				a.logger.Warn("nothing recognized in image, writing an empty item", zap.String("image", image))
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(image), sheet.RequestName(t))
			}
			req := procurement.Request{
				Date:       t,
				Applicant:  a.cfg.Procurement.Applicant,
				Department: a.cfg.Procurement.Department,
				Items:      []procurement.Item{item},
			}
			if err := sheet.WriteProcurementRequest(req, output); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s x%d, total %s\n", output, item.Name, item.Quantity, money.Display(req.Total()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Workbook path (default next to the image)")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <expense-report.xlsx>",
		Short: "Turn an expense report into a procurement detail sheet",
		Long: `Reads the rows of an expense workbook and writes one procurement item per
row, classified by keyword. Large amounts are split into an estimated quantity
and unit price.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			entries, err := sheet.ReadExpenseReport(input, a.logger)
			if err != nil {
				return err
			}
			items, err := procurement.NewClassifier().ConvertExpenses(entries)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			if output == "" {
				output = sheet.DetailName(input, time.Now())
			}
			if err := sheet.WriteProcurementDetail(items, output); err != nil {
				return err
			}
			req := procurement.Request{Items: items}
			fmt.Fprintf(a.out, "%s: %d items, total %s\n", output, len(items), money.Display(req.Total()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Workbook path (default next to the input)")
	return cmd
}

func newOCRImagesCmd(a *app) *cobra.Command {
	var (
		merge  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "ocr-images <image-folder>",
		Short: "Extract the text of every photo in a folder",
		Long: `Runs OCR over the images directly inside the folder. Each image gets a
<name>_extracted_text.txt beside it, or with --merge one combined file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.imageReader().BatchImages(cmd.Context(), args[0], ocr.BatchOptions{
				Merge:      merge,
				MergedPath: output,
			})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "Write one merged text file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Merged file path (default <folder>/"+ocr.DefaultMergedName+")")
	return cmd
}
