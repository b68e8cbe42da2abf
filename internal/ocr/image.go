package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
)

// ImageExtensions lists the photo formats accepted by BatchImages.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"}

const (
	// DefaultMergedName is the merged output file written into the image folder.
	DefaultMergedName = "merged_extracted_text.txt"
	perFileSuffix     = "_extracted_text.txt"
	separator         = "=================================================="
)

// ImageReader OCRs photos.
type ImageReader struct {
	engine    Engine
	languages []string
	logger    *zap.Logger
	now       func() time.Time
}

// NewImageReader returns a reader using languages for every photo.
func NewImageReader(engine Engine, languages []string, logger *zap.Logger) *ImageReader {
	return &ImageReader{
		engine:    engine,
		languages: languages,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Text returns the trimmed text of the image at path.
func (r *ImageReader) Text(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	text, err := r.engine.Recognize(ctx, data, r.languages)
	if err != nil {
		return "", fmt.Errorf("failed to recognize %s: %w", path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return text, nil
}

// BatchOptions selects how BatchImages writes its output.
type BatchOptions struct {
	// Merge writes one combined file instead of one file per image.
	Merge bool
	// MergedPath overrides the merged file location.
	MergedPath string
}

// ImageText is the text read from one photo.
type ImageText struct {
	Path   string `json:"path"`
	Text   string `json:"text,omitempty"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes BatchImages.
type BatchResult struct {
	Total      int         `json:"total"`
	Success    int         `json:"success"`
	Failed     int         `json:"failed"`
	Files      []ImageText `json:"files"`
	MergedFile string      `json:"merged_file,omitempty"`
}

// FindImages returns the photos directly inside dir in name order.
func FindImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsImageName(e.Name()) {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// IsImageName reports whether name has a supported photo extension.
func IsImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// BatchImages OCRs every photo in dir. Without Merge each photo gets a
// <stem>_extracted_text.txt beside it; with Merge a single file holds a
// summary header and one block per recognized photo.
func (r *ImageReader) BatchImages(ctx context.Context, dir string, opts BatchOptions) (*BatchResult, error) {
	images, err := FindImages(dir)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(images)}
	if len(images) == 0 {
		r.logger.Warn("no images found", zap.String("folder", dir))
		return result, nil
	}

	for i, path := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.logger.Info("recognizing image",
			zap.Int("index", i+1), zap.Int("total", len(images)), zap.String("file", filepath.Base(path)))

		item := ImageText{Path: path}
		text, err := r.Text(ctx, path)
		if err != nil {
			item.Error = err.Error()
			result.Failed++
			result.Files = append(result.Files, item)
			r.logger.Warn("image OCR failed", zap.String("file", path), zap.Error(err))
			continue
		}
		item.Text = text

		if !opts.Merge {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			item.Output = filepath.Join(dir, stem+perFileSuffix)
			if err := os.WriteFile(item.Output, []byte(text), 0o644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", item.Output, err)
			}
		}

		result.Success++
		result.Files = append(result.Files, item)
	}

	if opts.Merge {
		merged := opts.MergedPath
		if merged == "" {
			merged = filepath.Join(dir, DefaultMergedName)
		}
		if err := os.WriteFile(merged, []byte(r.mergedReport(dir, result)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", merged, err)
		}
		result.MergedFile = merged
	}

	return result, nil
}

func (r *ImageReader) mergedReport(dir string, result *BatchResult) string {
	var b strings.Builder
	b.WriteString("图片文字提取结果合并文件\n")
	fmt.Fprintf(&b, "处理时间: %s\n", r.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "源文件夹: %s\n", dir)
	fmt.Fprintf(&b, "总计图片: %d 个\n", result.Total)
	fmt.Fprintf(&b, "成功提取: %d 个\n", result.Success)
	fmt.Fprintf(&b, "处理失败: %d 个\n", result.Failed)
	b.WriteString("\n" + strings.Repeat("=", 80) + "\n")

	blocks := 0
	for _, f := range result.Files {
		if f.Text == "" {
			continue
		}
		if blocks > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n%s\n文件: %s\n%s\n%s", separator, filepath.Base(f.Path), separator, f.Text)
		blocks++
	}
	if blocks == 0 {
		b.WriteString("\n未提取到任何文字内容")
	}
	return b.String()
}
