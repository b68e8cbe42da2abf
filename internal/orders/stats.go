package orders

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/a3tai/pdf-clerk/internal/money"
	"github.com/a3tai/pdf-clerk/internal/sheet"
)

// topShops is how many shops Summarize ranks.
const topShops = 10

// Count pairs a name with a number of orders.
type Count struct {
	Name   string `json:"name"`
	Orders int    `json:"orders"`
}

// AmountStats summarizes the readable order amounts.
type AmountStats struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
	Max     decimal.Decimal `json:"max"`
	Min     decimal.Decimal `json:"min"`
}

// Stats summarizes a set of orders.
type Stats struct {
	Total    int          `json:"total"`
	PerFile  []Count      `json:"per_file"`
	TopShops []Count      `json:"top_shops"`
	Amounts  *AmountStats `json:"amounts,omitempty"`
}

// Summarize counts orders per file and shop and totals their amounts.
// Amounts that do not parse are left out.
func Summarize(orders []Order) Stats {
	st := Stats{Total: len(orders)}

	files := make(map[string]int)
	shops := make(map[string]int)
	var amounts []decimal.Decimal
	for _, o := range orders {
		files[o.Source]++
		if o.Shop != "" {
			shops[o.Shop]++
		}
		if d, err := money.Parse(o.Amount); err == nil {
			amounts = append(amounts, d)
		}
	}

	st.PerFile = counts(files)
	sort.Slice(st.PerFile, func(i, j int) bool { return st.PerFile[i].Name < st.PerFile[j].Name })

	st.TopShops = counts(shops)
	sort.SliceStable(st.TopShops, func(i, j int) bool {
		a, b := st.TopShops[i], st.TopShops[j]
		if a.Orders != b.Orders {
			return a.Orders > b.Orders
		}
		return a.Name < b.Name
	})
	if len(st.TopShops) > topShops {
		st.TopShops = st.TopShops[:topShops]
	}

	if len(amounts) > 0 {
		total := money.Sum(amounts...)
		st.Amounts = &AmountStats{
			Count:   len(amounts),
			Total:   total,
			Average: money.Round2(total.Div(decimal.NewFromInt(int64(len(amounts))))),
			Max:     decimal.Max(amounts[0], amounts[1:]...),
			Min:     decimal.Min(amounts[0], amounts[1:]...),
		}
	}
	return st
}

func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Orders: n})
	}
	return out
}

// ExportResult lists the workbooks written by Export.
type ExportResult struct {
	Merged  string   `json:"merged"`
	PerFile []string `json:"per_file"`
}

// Export writes all orders into one workbook and each source file's
// orders into its own, all stamped with t.
func Export(orders []Order, dir string, t time.Time) (*ExportResult, error) {
	if len(orders) == 0 {
		return nil, sheet.ErrNoRows
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}
	stamp := t.Format("20060102_150405")

	res := &ExportResult{Merged: filepath.Join(dir, "批量提取_交易成功订单_"+stamp+".xlsx")}
	if err := sheet.WriteTable(res.Merged, Headers, tableRows(orders)); err != nil {
		return nil, err
	}

	groups := make(map[string][]Order)
	var sources []string
	for _, o := range orders {
		if _, ok := groups[o.Source]; !ok {
			sources = append(sources, o.Source)
		}
		groups[o.Source] = append(groups[o.Source], o)
	}
	for _, src := range sources {
		name := strings.TrimSuffix(src, filepath.Ext(src)) + "_交易成功_" + stamp + ".xlsx"
		path := filepath.Join(dir, name)
		if err := sheet.WriteTable(path, Headers, tableRows(groups[src])); err != nil {
			return nil, err
		}
		res.PerFile = append(res.PerFile, path)
	}
	return res, nil
}

func tableRows(orders []Order) [][]any {
	rows := make([][]any, len(orders))
	for i, o := range orders {
		rows[i] = o.row()
	}
	return rows
}
