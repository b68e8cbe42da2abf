package procurement

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/money"
)

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\[([^\]]+)\]\s*([^¥\n]+?)(?:\s*¥|\n|$)`),
		regexp.MustCompile(`【([^】]+)】\s*([^¥\n]+?)(?:\s*¥|\n|$)`),
		regexp.MustCompile(`([\p{L}\p{N}_]+)\s*([^¥\n]*按键[^¥\n]*?)(?:\s*¥|\n|$)`),
	}
	priceSuffix = regexp.MustCompile(`\s*¥.*$`)

	specPatterns = []*regexp.Regexp{
		regexp.MustCompile(`红色`),
		regexp.MustCompile(`蓝色`),
		regexp.MustCompile(`绿色`),
		regexp.MustCompile(`黄色`),
		regexp.MustCompile(`黑色`),
		regexp.MustCompile(`白色`),
		regexp.MustCompile(`型号[：:](\S+)`),
		regexp.MustCompile(`规格[：:](\S+)`),
	}

	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`¥(\d+\.?\d*)`),
		regexp.MustCompile(`(\d+\.?\d*)元`),
		regexp.MustCompile(`价格[：:]?\s*(\d+\.?\d*)`),
	}

	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`x(\d+)`),
		regexp.MustCompile(`×(\d+)`),
		regexp.MustCompile(`数量[：:]?\s*(\d+)`),
		regexp.MustCompile(`(\d+)个`),
	}
)

// ParseReceipt reads one purchased item out of the OCR text of a shop
// receipt. Fields that cannot be found stay empty or zero, except that a
// recognized item without a count is taken as bought once.
func ParseReceipt(text string) Item {
	item := EmptyItem()

	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(priceSuffix.ReplaceAllString(m[2], ""))
			item.Name = "[" + strings.TrimSpace(m[1]) + "] " + name
			break
		}
	}

	for _, re := range specPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			item.Specification = m[len(m)-1]
			break
		}
	}
	if item.Specification == "" {
		item.Specification = item.Name
	}

	for _, re := range pricePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, err := decimal.NewFromString(m[1]); err == nil {
				item.UnitPrice = d
				break
			}
		}
	}

	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				item.Quantity = n
				break
			}
		}
	}

	if item.Quantity == 0 && (item.Name != "" || !item.UnitPrice.IsZero()) {
		item.Quantity = 1
	}

	item.Total = money.Round2(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	return item
}

// TextReader returns the OCR text of an image.
type TextReader interface {
	Text(ctx context.Context, path string) (string, error)
}

// ReceiptReader turns receipt photos into items.
type ReceiptReader struct {
	images     TextReader
	classifier *Classifier
	logger     *zap.Logger
}

// NewReceiptReader returns a reader backed by images.
func NewReceiptReader(images TextReader, classifier *Classifier, logger *zap.Logger) *ReceiptReader {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &ReceiptReader{images: images, classifier: classifier, logger: logging.OrNop(logger)}
}

// FromImage reads the receipt at path. A missing photo or failed OCR gives
// an empty item so a blank form can still be produced.
func (r *ReceiptReader) FromImage(ctx context.Context, path string) Item {
	item := r.read(ctx, path)
	item.Type = r.classifier.Type(item.Name)
	item.Category = ImageCategory
	item.Remark = ImageRemark
	return item
}

func (r *ReceiptReader) read(ctx context.Context, path string) Item {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("receipt image not found, using empty item", zap.String("path", path))
		return EmptyItem()
	}

	text, err := r.images.Text(ctx, path)
	if err != nil {
		r.logger.Warn("receipt OCR failed, using empty item", zap.String("path", path), zap.Error(err))
		return EmptyItem()
	}
	r.logger.Debug("receipt text", zap.String("path", path), zap.String("text", text))
	return ParseReceipt(text)
}
