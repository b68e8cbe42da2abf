// Package archive keeps track of invoices that were already reimbursed.
//
// The archive is a folder tree of invoice PDFs. A pending folder inside it
// holds invoices not yet submitted; its done and duplicates subfolders
// receive files moved out by Reconciler and Deduplicator.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/extract"
	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pathguard"
)

// Layout locates the folders of an archive.
type Layout struct {
	Base       string
	Pending    string
	Done       string
	Duplicates string
}

// NewLayout builds a layout from the base path and the folder names used
// below it.
func NewLayout(base, pending, done, duplicates string) Layout {
	p := filepath.Join(base, pending)
	return Layout{
		Base:       base,
		Pending:    p,
		Done:       filepath.Join(p, done),
		Duplicates: filepath.Join(p, duplicates),
	}
}

// InPending reports whether path lies inside the pending folder.
func (l Layout) InPending(path string) bool {
	g, err := pathguard.New(l.Pending)
	if err != nil {
		return false
	}
	ok, err := g.Contains(path)
	return err == nil && ok
}

// TextExtractor produces the text of a PDF.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*extract.Result, error)
}

// NumberReader pulls invoice numbers out of PDFs.
type NumberReader struct {
	extractor TextExtractor
	logger    *zap.Logger
}

// NewNumberReader returns a reader using extractor for text.
func NewNumberReader(extractor TextExtractor, logger *zap.Logger) *NumberReader {
	return &NumberReader{extractor: extractor, logger: logging.OrNop(logger)}
}

// Numbers returns every invoice number found in the PDF at path. A file
// without any text yields no numbers and no error.
func (r *NumberReader) Numbers(ctx context.Context, path string) ([]string, error) {
	res, err := r.extractor.Extract(ctx, path)
	if errors.Is(err, extract.ErrEmptyText) {
		r.logger.Warn("no text extracted", zap.String("file", filepath.Base(path)))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invoice.ExtractNumbers(res.Text), nil
}

// MovedFile records one file moved out of the pending folder.
type MovedFile struct {
	Original string   `json:"original_path"`
	Target   string   `json:"target_path"`
	Numbers  []string `json:"invoice_numbers,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// move renames src into dir, picking a free name based on name.
func move(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	target := freePath(filepath.Join(dir, name))
	if err := os.Rename(src, target); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", filepath.Base(src), err)
	}
	return target, nil
}

// freePath returns path, or path with a numeric suffix when it is taken.
func freePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := stem + "_" + strconv.Itoa(i) + ext
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
