package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pageSeparator = "\n\n"

// Reader extracts the native text layer of PDF files
type Reader struct {
	validator   *Validator
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ExtractText returns the plain text of the first maxPages pages of path.
// maxPages <= 0 reads every page. Pages without a text layer contribute
// nothing, so a scanned document yields an empty Content rather than an error.
func (r *Reader) ExtractText(path string, maxPages int) (text *Text, err error) {
	info, err := r.validator.stat(path)
	if err != nil {
		return nil, err
	}
	if err := r.validator.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			text = nil
			err = fmt.Errorf("failed to parse PDF %s: %v", path, rec)
		}
	}()

	total := pdfReader.NumPage()
	limit := total
	if maxPages > 0 && maxPages < total {
		limit = maxPages
	}

	content := r.extractTextContent(pdfReader, limit)

	return &Text{
		Path:       path,
		Content:    content,
		Pages:      total,
		PagesRead:  limit,
		Truncated:  limit < total,
		ImageCount: r.countImages(pdfReader, limit),
	}, nil
}

// extractTextContent joins the text of pages 1..limit
func (r *Reader) extractTextContent(pdfReader *pdf.Reader, limit int) string {
	var builder strings.Builder

	for pageNum := 1; pageNum <= limit; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString(pageSeparator)
		}

		if builder.Len()+len(content) > r.maxTextSize {
			remaining := r.maxTextSize - builder.Len()
			if remaining > 0 {
				builder.WriteString(strings.ToValidUTF8(content[:remaining], ""))
			}
			break
		}
		builder.WriteString(content)
	}

	return builder.String()
}

// countImages counts image XObjects on pages 1..limit
func (r *Reader) countImages(pdfReader *pdf.Reader, limit int) int {
	count := 0
	for pageNum := 1; pageNum <= limit; pageNum++ {
		count += r.countImagesOnPage(pdfReader, pageNum)
	}
	return count
}

func (r *Reader) countImagesOnPage(pdfReader *pdf.Reader, pageNum int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return 0
	}

	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		if xObjects.Key(key).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
