package ocr

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
)

// PDFRecognizer OCRs every page of a PDF.
type PDFRecognizer struct {
	engine     Engine
	rasterizer Rasterizer
	dpi        float64
	languages  []string
	logger     *zap.Logger
}

// NewPDFRecognizer returns a recognizer rendering pages at dpi and reading
// them with languages.
func NewPDFRecognizer(engine Engine, rasterizer Rasterizer, dpi float64, languages []string, logger *zap.Logger) *PDFRecognizer {
	return &PDFRecognizer{
		engine:     engine,
		rasterizer: rasterizer,
		dpi:        dpi,
		languages:  languages,
		logger:     logging.OrNop(logger),
	}
}

// Recognize renders path and returns the page texts joined by newlines.
// Pages that fail recognition are skipped.
func (r *PDFRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	pages, err := r.rasterizer.RenderPages(ctx, path, r.dpi)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}

	texts := make([]string, 0, len(pages))
	for i, img := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := r.engine.Recognize(ctx, img, r.languages)
		if err != nil {
			r.logger.Warn("OCR failed for page",
				zap.String("file", path), zap.Int("page", i+1), zap.Error(err))
			continue
		}
		texts = append(texts, text)
	}

	joined := strings.Join(texts, "\n")
	if strings.TrimSpace(joined) == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return joined, nil
}
