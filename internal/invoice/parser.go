package invoice

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/a3tai/pdf-clerk/internal/money"
)

// Invoice number patterns, most specific first. The first pattern that
// matches decides the number.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`发票号码[：:](\d{8,})`),
	regexp.MustCompile(`发票代码[：:]?(\d{10,12})`),
	regexp.MustCompile(`No[.:]?\s*(\d{8,})`),
	regexp.MustCompile(`(\d{20,})`),
}

// Amount patterns in priority order: the lower case total, the tax inclusive
// total, a bare currency figure closing a line, then generic totals.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)小写[）)]?[：:\s]*[￥¥]?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?mi)\(小写\)[：:\s]*[￥¥]?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?mi)价税合计[（(]大写[）)]?[：:\s]*[^\d]*?[￥¥]?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?mi)[￥¥]([\d,]+\.\d{2})(?:\s*$|\s*元)`),
	regexp.MustCompile(`(?mi)合计[：:\s]*[￥¥]?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?mi)应付[：:\s]*[￥¥]?([\d,]+\.\d{2})`),
}

const minNumberLength = 8

// Parser extracts fields from invoice text.
type Parser struct {
	ceiling     decimal.Decimal
	reviewLimit decimal.Decimal
}

// NewParser returns a parser accepting amounts in (0, ceiling) and flagging
// those above reviewLimit.
func NewParser(ceiling, reviewLimit float64) *Parser {
	return &Parser{
		ceiling:     decimal.NewFromFloat(ceiling),
		reviewLimit: decimal.NewFromFloat(reviewLimit),
	}
}

// Number returns the invoice number, or "" when no pattern matches.
func (p *Parser) Number(text string) string {
	for _, re := range numberPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// Amount returns the invoice total formatted with two decimals, or "".
// Each pattern contributes only its first match; an out of range or
// unparsable first match moves on to the next pattern.
func (p *Parser) Amount(text string) string {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if amount.IsPositive() && amount.LessThan(p.ceiling) {
			return money.Fixed(amount)
		}
	}
	return ""
}

// Parse builds a report row from the text of filename.
func (p *Parser) Parse(text, filename string, d Defaults) Row {
	return Row{
		Reason:         Reason(filename),
		ProjectManager: d.ProjectManager,
		InvoiceType:    d.InvoiceType,
		InvoiceNumber:  p.Number(text),
		PaymentType:    d.PaymentType,
		SubjectDetail:  d.SubjectDetail,
		Amount:         p.Amount(text),
		SourceFile:     filename,
	}
}

// ValidateAmount checks a row amount and returns a message for the remark
// column.
func (p *Parser) ValidateAmount(s string) (bool, string) {
	if strings.TrimSpace(s) == "" {
		return false, "未识别到金额"
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return false, "金额格式错误"
	}
	if !amount.IsPositive() {
		return false, "金额不能为零或负数"
	}
	if amount.GreaterThan(p.reviewLimit) {
		return false, "金额过大(" + money.Fixed(amount) + "元)，请确认"
	}
	return true, "金额正常"
}

// ExtractNumbers returns every candidate invoice number in text, in pattern
// order, without duplicates. Used to index archived invoices, where a file
// may carry both an invoice code and an invoice number.
func ExtractNumbers(text string) []string {
	seen := make(map[string]bool)
	var numbers []string
	for _, re := range numberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n := m[1]
			if len(n) < minNumberLength || seen[n] {
				continue
			}
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	return numbers
}

// Reason is the payment reason for a file: its name without extension.
func Reason(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
