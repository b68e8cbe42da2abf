// Package mupdf renders PDF pages with MuPDF through go-fitz.
package mupdf

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer implements ocr.Rasterizer.
type Rasterizer struct{}

// New returns a MuPDF rasterizer.
func New() *Rasterizer {
	return &Rasterizer{}
}

// RenderPages returns one PNG per page of path rendered at dpi.
func (r *Rasterizer) RenderPages(ctx context.Context, path string, dpi float64) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// PageText returns MuPDF's own text layer for every page. It reads some
// documents whose fonts the pure Go reader cannot decode.
func (r *Rasterizer) PageText(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var text string
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := doc.Text(i)
		if err != nil {
			continue
		}
		text += page
	}
	return text, nil
}
