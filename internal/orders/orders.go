// Package orders pulls successful orders out of e-commerce order exports.
package orders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

// StatusSuccess is the order status that is kept.
const StatusSuccess = "交易成功"

// ErrNoStatusColumn is returned for workbooks without an order status column.
var ErrNoStatusColumn = errors.New("order status column not found")

// Column titles of exported orders.
const (
	FieldSource   = "文件来源"
	FieldShop     = "店铺名称"
	FieldProduct  = "商品名称"
	FieldSpec     = "型号规格"
	FieldQuantity = "商品数量"
	FieldAmount   = "金额"
)

// Headers lists the exported columns in order.
var Headers = []string{FieldSource, FieldShop, FieldProduct, FieldSpec, FieldQuantity, FieldAmount}

// aliases are the column titles used by different shops, in preference order.
var aliases = map[string][]string{
	FieldShop:     {"店铺名称", "商家", "店铺", "卖家"},
	FieldProduct:  {"商品名称", "商品", "产品名称", "标题"},
	FieldSpec:     {"型号规格", "规格", "型号", "规格型号", "型号款式"},
	FieldQuantity: {"商品数量", "数量", "购买数量"},
	FieldAmount:   {"金额", "商品金额", "价格", "总价", "实付金额"},
}

// Order is one successful order line.
type Order struct {
	Source   string `json:"source"`
	Shop     string `json:"shop,omitempty"`
	Product  string `json:"product,omitempty"`
	Spec     string `json:"spec,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

func (o Order) row() []any {
	return []any{o.Source, o.Shop, o.Product, o.Spec, o.Quantity, o.Amount}
}

// Reader reads order exports.
type Reader struct {
	logger *zap.Logger
}

// NewReader returns a reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logging.OrNop(logger)}
}

// FindWorkbooks lists every .xlsx below dir in path order. Office lock
// files are skipped.
func FindWorkbooks(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, "~$") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile returns the successful orders of one workbook. The first row
// is the header.
func (r *Reader) ReadFile(path string) ([]Order, error) {
	rows, err := sheet.ReadSheetRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	status := -1
	for i, h := range header {
		if strings.Contains(h, "状态") || strings.Contains(strings.ToLower(h), "status") {
			status = i
			break
		}
	}
	if status < 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoStatusColumn)
	}

	cols := make(map[string]int)
	for field, names := range aliases {
		if i := indexOf(header, names); i >= 0 {
			cols[field] = i
		}
	}

	source := filepath.Base(path)
	var orders []Order
	for _, row := range rows[1:] {
		if value(row, status) != StatusSuccess {
			continue
		}
		get := func(field string) string {
			if i, ok := cols[field]; ok {
				return value(row, i)
			}
			return ""
		}
		orders = append(orders, Order{
			Source:   source,
			Shop:     get(FieldShop),
			Product:  get(FieldProduct),
			Spec:     get(FieldSpec),
			Quantity: get(FieldQuantity),
			Amount:   get(FieldAmount),
		})
	}
	r.logger.Info("read order export", zap.String("file", source), zap.Int("successful", len(orders)))
	return orders, nil
}

// ReadDir reads every workbook below dir. Files that cannot be read are
// logged and skipped.
func (r *Reader) ReadDir(ctx context.Context, dir string) ([]Order, error) {
	files, err := FindWorkbooks(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.logger.Warn("no xlsx files found", zap.String("folder", dir))
		return nil, nil
	}

	var all []Order
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		orders, err := r.ReadFile(f)
		if err != nil {
			r.logger.Warn("skipping workbook", zap.String("file", f), zap.Error(err))
			continue
		}
		all = append(all, orders...)
	}
	return all, nil
}

// indexOf returns the column of the first name present in header.
func indexOf(header, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
	}
	return -1
}

func value(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
