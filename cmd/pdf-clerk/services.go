package main

import (
	"encoding/json"
	"fmt"

	"github.com/a3tai/pdf-clerk/internal/archive"
	"github.com/a3tai/pdf-clerk/internal/extract"
	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/ocr"
	"github.com/a3tai/pdf-clerk/internal/ocr/mupdf"
	"github.com/a3tai/pdf-clerk/internal/ocr/tesseract"
	"github.com/a3tai/pdf-clerk/internal/pdf"
	"github.com/a3tai/pdf-clerk/internal/procurement"
)

// extractor builds the native -> MuPDF -> Tesseract chain.
func (a *app) extractor() *extract.Extractor {
	ex := a.cfg.Extraction
	raster := mupdf.New()
	recognizer := ocr.NewPDFRecognizer(tesseract.New(int(ex.RenderDPI)), raster, ex.RenderDPI, ex.PDFLanguages, a.logger)
	return extract.New(pdf.NewReader(a.cfg.MaxFileSize), recognizer, ex.MinTextLength,
		extract.WithTextLayer(raster),
		extract.WithLogger(a.logger))
}

func (a *app) search() *pdf.Search {
	return pdf.NewSearch(a.cfg.MaxFileSize)
}

func (a *app) parser() *invoice.Parser {
	return invoice.NewParser(a.cfg.Expense.AmountCeiling, a.cfg.Expense.ReviewLimit)
}

func (a *app) defaults() invoice.Defaults {
	e := a.cfg.Expense
	return invoice.Defaults{
		ProjectManager: e.ProjectManager,
		InvoiceType:    e.InvoiceType,
		PaymentType:    e.PaymentType,
		SubjectDetail:  e.SubjectDetail,
	}
}

func (a *app) imageReader() *ocr.ImageReader {
	return ocr.NewImageReader(tesseract.New(0), a.cfg.Extraction.ImageLanguage, a.logger)
}

func (a *app) receipts() *procurement.ReceiptReader {
	return procurement.NewReceiptReader(a.imageReader(), procurement.NewClassifier(), a.logger)
}

func (a *app) layout() archive.Layout {
	ar := a.cfg.Archive
	return archive.NewLayout(ar.BasePath, ar.PendingFolder, ar.DoneFolder, ar.DuplicatesFolder)
}

func (a *app) numbers() *archive.NumberReader {
	return archive.NewNumberReader(a.extractor(), a.logger)
}

// openIndex opens the archive index database. The caller closes it.
func (a *app) openIndex() (*archive.Index, error) {
	return archive.OpenIndex(a.cfg.Archive.IndexPath, a.layout(), a.numbers(), a.search(), a.logger)
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}
