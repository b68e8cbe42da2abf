// Package procurement builds procurement request items from receipt photos
// and from finished expense reports.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnit is used when nothing in the name suggests another unit.
const DefaultUnit = "个"

// SecondaryCategory is written on every converted item.
const SecondaryCategory = "低值易耗品"

// Receipt photos are filed as research consumables.
const (
	ImageCategory = "科研耗材"
	ImageRemark   = "根据图片信息自动生成"
)

// ErrNoEntries is returned when there is nothing to convert.
var ErrNoEntries = errors.New("no expense entries to convert")

// Option lists for the procurement request dropdowns.
var (
	Types               = []string{"科研设备", "办公设备", "耗材用品", "软件许可", "服务外包", "其他"}
	SecondaryCategories = []string{"科研耗材", "办公用品", "设备采购", "软件服务", "咨询服务", "其他"}
	Urgencies           = []string{"一般", "紧急", "特急"}
	BudgetSubjects      = []string{"科研经费", "办公经费", "设备经费", "培训经费", "差旅经费", "其他"}
)

// Item is one line of a procurement request.
type Item struct {
	Index         int             `json:"index"`
	Type          string          `json:"type,omitempty"`
	Name          string          `json:"name"`
	Specification string          `json:"specification"`
	Unit          string          `json:"unit"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Total         decimal.Decimal `json:"total"`
	Category      string          `json:"category,omitempty"`
	Remark        string          `json:"remark,omitempty"`
}

// Empty reports whether nothing was recognized for the item.
func (i Item) Empty() bool {
	return i.Name == "" && i.Quantity == 0 && i.UnitPrice.IsZero()
}

// EmptyItem is written when a receipt cannot be read.
func EmptyItem() Item {
	return Item{Index: 1, Unit: DefaultUnit}
}

// Request is a whole procurement request form.
type Request struct {
	Date       time.Time
	Applicant  string
	Department string
	Items      []Item
}

// Total sums the item totals.
func (r Request) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.Total)
	}
	return total
}
