package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF    = errors.New("not a PDF file")
	ErrNotExist  = errors.New("file does not exist")
	ErrEmptyFile = errors.New("file is empty")
	ErrTooLarge  = errors.New("file too large")
)

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile checks that path is an openable PDF within the size limit.
func (v *Validator) ValidateFile(path string) error {
	info, err := v.stat(path)
	if err != nil {
		return err
	}
	if err := v.ValidateFileInfo(path, info); err != nil {
		return err
	}

	f, _, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !IsPDFName(path) {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, info.Size(), v.maxFileSize)
	}

	return nil
}

func (v *Validator) stat(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	return info, nil
}

// IsPDFName reports whether name has a .pdf extension, ignoring case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
