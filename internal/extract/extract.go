// Package extract picks the best available text for a PDF: the native text
// layer when it is substantial, OCR of the rendered pages otherwise.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

// ErrEmptyText is returned when no method produced any text.
var ErrEmptyText = errors.New("no text extracted")

// Method records where the text came from.
type Method string

const (
	MethodNative Method = "native"
	MethodMuPDF  Method = "mupdf"
	MethodOCR    Method = "ocr"
)

// NativeReader reads a PDF's own text layer.
type NativeReader interface {
	ExtractText(path string, maxPages int) (*pdf.Text, error)
}

// TextLayer is a second text layer reader, tried before OCR.
type TextLayer interface {
	PageText(ctx context.Context, path string) (string, error)
}

// Recognizer OCRs a whole PDF.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Result is the text chosen for one file.
type Result struct {
	Path     string   `json:"path"`
	Text     string   `json:"text"`
	Method   Method   `json:"method"`
	Images   int      `json:"images,omitempty"` // embedded images seen by the native reader
	Warnings []string `json:"warnings,omitempty"`
}

// Extractor runs the fallback chain.
type Extractor struct {
	native        NativeReader
	layer         TextLayer
	ocr           Recognizer
	minTextLength int
	logger        *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTextLayer adds a second native reader consulted before OCR.
func WithTextLayer(layer TextLayer) Option {
	return func(e *Extractor) { e.layer = layer }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = logging.OrNop(l) }
}

// New returns an extractor that falls back to OCR when the trimmed native
// text has fewer than minTextLength characters. ocr may be nil.
func New(native NativeReader, ocr Recognizer, minTextLength int, opts ...Option) *Extractor {
	e := &Extractor{
		native:        native,
		ocr:           ocr,
		minTextLength: minTextLength,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of path. When OCR is configured and fails on a
// file whose text layers are too short, the file has no usable text and
// ErrEmptyText is returned along with the partial result. Without OCR, short
// text is returned with a warning.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	res := &Result{Path: path, Method: MethodNative}

	native := ""
	if text, err := e.native.ExtractText(path, 0); err != nil {
		res.warn("native text extraction failed: %v", err)
	} else {
		native = strings.TrimSpace(text.Content)
		res.Images = text.ImageCount
	}
	res.Text = native

	if e.sufficient(native) {
		e.logger.Debug("native text accepted", zap.String("file", path), zap.Int("length", length(native)))
		return res, nil
	}
	e.logger.Info("native text too short, falling back",
		zap.String("file", path), zap.Int("length", length(native)),
		zap.Int("min", e.minTextLength), zap.Int("images", res.Images))
	if res.Images > 0 {
		res.warn("scanned pages: %d images and %d characters of text", res.Images, length(native))
	}

	if e.layer != nil {
		text, err := e.layer.PageText(ctx, path)
		if err != nil {
			res.warn("mupdf text extraction failed: %v", err)
		} else if text = strings.TrimSpace(text); e.sufficient(text) {
			res.Text, res.Method = text, MethodMuPDF
			return res, nil
		} else if length(text) > length(res.Text) {
			res.Text, res.Method = text, MethodMuPDF
		}
	}

	if e.ocr != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.ocr.Recognize(ctx, path)
		if err != nil {
			res.warn("OCR failed: %v", err)
		} else if text = strings.TrimSpace(text); text != "" {
			res.Text, res.Method = text, MethodOCR
			return res, nil
		}
		return res, fmt.Errorf("%s: %w", path, ErrEmptyText)
	}

	if res.Text == "" {
		return res, fmt.Errorf("%s: %w", path, ErrEmptyText)
	}
	res.warn("using short %s text (%d characters)", res.Method, length(res.Text))
	return res, nil
}

func (e *Extractor) sufficient(text string) bool {
	return text != "" && length(text) >= e.minTextLength
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
