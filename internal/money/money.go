// Package money parses and formats renminbi amounts. Arithmetic is done in
// shopspring/decimal; display goes through go-money so totals print with
// the currency's own grouping and symbol.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CNY is the ISO-4217 code of every amount handled here.
const CNY = "CNY"

// ErrEmpty is returned by Parse for blank input.
var ErrEmpty = errors.New("empty amount")

var symbolReplacer = strings.NewReplacer("￥", "", "¥", "", "元", "", ",", "", "，", "", " ", "")

// Parse reads amounts like "1,234.50", "￥88" or "12.5元".
func Parse(s string) (decimal.Decimal, error) {
	clean := symbolReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, ErrEmpty
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// Fixed formats d with exactly two decimals, "1234.50".
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Display formats d with thousands grouping and the yuan symbol.
func Display(d decimal.Decimal) string {
	return toMoney(d).Display()
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}

// Float returns d as float64 for spreadsheet cells.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toMoney(d decimal.Decimal) *gomoney.Money {
	currency := gomoney.GetCurrency(CNY)
	cents := d.Mul(decimal.New(1, int32(currency.Fraction))).Round(0).IntPart()
	return gomoney.New(cents, CNY)
}
