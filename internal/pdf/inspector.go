package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Inspector reads PDF structure with pdfcpu. It is more tolerant of broken
// cross reference tables than the text reader and reports the true page
// count even for image-only documents.
type Inspector struct {
	validator *Validator
}

// NewInspector creates an inspector with the given file size limit
func NewInspector(maxFileSize int64) *Inspector {
	return &Inspector{validator: NewValidator(maxFileSize)}
}

// Inspect returns page count, encryption state and header version of path.
func (i *Inspector) Inspect(path string) (*DocumentInfo, error) {
	info, err := i.validator.stat(path)
	if err != nil {
		return nil, err
	}
	if err := i.validator.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	return &DocumentInfo{
		Path:      path,
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
		Version:   ctx.HeaderVersion.String(),
	}, nil
}
