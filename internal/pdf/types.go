// Package pdf reads native PDF text and discovers PDF files on disk.
package pdf

import "time"

// FileInfo describes a PDF found on disk.
type FileInfo struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	Score        int       `json:"score,omitempty"` // fuzzy rank distance, lower is closer
	// Invalid holds the validation failure of a file listed with KeepInvalid.
	Invalid string `json:"invalid,omitempty"`
}

// Text is the native text layer of a PDF.
type Text struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	Pages      int    `json:"pages"`
	PagesRead  int    `json:"pages_read"`
	Truncated  bool   `json:"truncated"`
	ImageCount int    `json:"image_count"`
}

// DocumentInfo is structural information read by pdfcpu.
type DocumentInfo struct {
	Path      string `json:"path"`
	PageCount int    `json:"page_count"`
	Encrypted bool   `json:"encrypted"`
	Version   string `json:"version"`
}

// SearchOptions narrows FindPDFs.
type SearchOptions struct {
	Recursive bool
	// Exclude lists directories whose contents are skipped.
	Exclude []string
	// Query keeps only files whose name fuzzily matches.
	Query string
	Limit int
	// KeepInvalid also lists empty and oversized files, with Invalid set.
	KeepInvalid bool
}
