// Package invoice parses invoice numbers and amounts out of extracted text
// and turns a folder of invoice PDFs into expense report rows.
package invoice

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// FailedNumber marks rows whose file yielded no text at all.
	FailedNumber = "识别失败"
	// FailedAmount is the amount written for such rows.
	FailedAmount = "0.00"
	// FailedRemark asks the reader to fill the row in by hand.
	FailedRemark = "OCR识别失败，请手动填写"
)

// ErrNoFiles is returned when a folder holds no PDFs.
var ErrNoFiles = errors.New("no PDF files found")

// Option lists for the expense report dropdowns.
var (
	InvoiceTypes   = []string{"增值税专用发票", "增值税电子普通发票", "增值税普通发票", "机动车销售统一发票", "其他"}
	PaymentTypes   = []string{"科研费用", "办公费用", "差旅费用", "会议费用", "培训费用", "其他"}
	SubjectDetails = []string{"科研耗材", "办公用品", "设备采购", "软件服务", "咨询服务", "其他"}
)

// Defaults are the fixed columns copied onto every row.
type Defaults struct {
	ProjectManager string
	InvoiceType    string
	PaymentType    string
	SubjectDetail  string
}

// Row is one line of the expense reimbursement report.
type Row struct {
	Reason         string `json:"reason" csv:"付款明细原因"`
	ProjectManager string `json:"project_manager" csv:"项目负责人"`
	InvoiceType    string `json:"invoice_type" csv:"发票类型"`
	InvoiceNumber  string `json:"invoice_number" csv:"发票号码"`
	PaymentType    string `json:"payment_type" csv:"付款类型"`
	SubjectDetail  string `json:"subject_detail" csv:"科目明细"`
	Amount         string `json:"amount" csv:"金额"` // two decimals, empty when not found
	Remark         string `json:"remark,omitempty" csv:"备注"`

	SourceFile string `json:"source_file,omitempty" csv:"-"`
	Method     string `json:"method,omitempty" csv:"-"`
}

// NeedsReview reports whether the row carries a remark.
func (r Row) NeedsReview() bool {
	return r.Remark != ""
}

// Entry is one line read back from a finished expense report.
type Entry struct {
	Reason         string
	ProjectManager string
	InvoiceType    string
	InvoiceNumber  string
	Amount         decimal.Decimal
}
