// Package ocr turns scanned PDF pages and photos into text.
package ocr

import (
	"context"
	"errors"
)

// ErrNoText is returned when recognition ran but produced nothing.
var ErrNoText = errors.New("no text recognized")

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}

// Rasterizer renders PDF pages to PNG images.
type Rasterizer interface {
	RenderPages(ctx context.Context, path string, dpi float64) ([][]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, image []byte, languages []string) (string, error)

// Recognize calls f.
func (f EngineFunc) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	return f(ctx, image, languages)
}
