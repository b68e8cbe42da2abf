package procurement

import (
	"github.com/shopspring/decimal"

	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/money"
)

var bulkThreshold = decimal.NewFromInt(1000)

// ConvertExpenses maps expense report entries onto procurement items, one
// item per entry. Purchases above 1000 yuan are split into an estimated
// quantity at the derived unit price.
func (c *Classifier) ConvertExpenses(entries []invoice.Entry) ([]Item, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		number := e.InvoiceNumber
		if number == "" {
			number = "未知"
		}
		item := Item{
			Index:         i + 1,
			Type:          c.Type(e.Reason),
			Name:          e.Reason,
			Specification: e.Reason,
			Unit:          c.Unit(e.Reason),
			Quantity:      1,
			UnitPrice:     e.Amount,
			Total:         e.Amount,
			Category:      c.Category(e.Reason),
			Remark:        "来源：支出申请表，发票号码：" + number,
		}
		if e.Amount.GreaterThan(bulkThreshold) {
			item.Quantity = c.EstimateQuantity(e.Reason)
			item.UnitPrice = money.Round2(e.Amount.Div(decimal.NewFromInt(int64(item.Quantity))))
		}
		items = append(items, item)
	}
	return items, nil
}
