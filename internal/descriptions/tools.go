// Package descriptions holds the long-form help text shown to MCP clients.
package descriptions

import "sort"

// Tool names
const (
	InvoiceExtract       = "invoice_extract"
	InvoiceCheckNumber   = "invoice_check_number"
	ExpenseReport        = "expense_report"
	ProcurementFromImage = "procurement_from_image"
	PDFReadText          = "pdf_read_text"
	PDFSearchDirectory   = "pdf_search_directory"
)

const (
	InvoiceExtractDescription = `Read one invoice PDF and return the expense row parsed from it.

**When to use:** You need the invoice number and total amount of a single Chinese VAT invoice (增值税发票).

**How it works:** The native text layer is tried first. Scanned invoices fall back to MuPDF page text and then to Tesseract OCR of the rendered pages.

**Examples:**
• "What is the invoice number of 京东_U盘.pdf?"
• "How much is the invoice in tbd/优信电子_杜邦线.pdf?"

**Response:** reason (from the file name), invoice number, amount with two decimals, the extraction method used and a remark when the row needs manual review.`

	InvoiceCheckNumberDescription = `Check whether an invoice number has already been reimbursed.

**When to use:** Before submitting an invoice, to avoid claiming it twice.

**How it works:** The number is looked up in the archive index. Files still in the pending folder only count when include_pending is true.

**Examples:**
• "Has invoice 24442000000123456789 been reimbursed?"

**Best practices:** Use the full 8 to 20 digit number exactly as printed.`

	ExpenseReportDescription = `Turn a folder of invoice PDFs into an expense reimbursement workbook.

**When to use:** You have collected a batch of invoices and want the 报销明细 sheet filled in.

**How it works:** Every PDF directly inside the folder is parsed like invoice_extract. Duplicate numbers and implausible amounts are flagged in the 备注 column. Unreadable files get a placeholder row.

**Examples:**
• "Build the expense report for tbd/"
• "Write the reimbursement sheet for invoices/2025-07 to out/报销.xlsx"

**Response:** the workbook path, invoice count, total amount and the rows needing review.`

	ProcurementFromImageDescription = `Build a procurement request from a photo of a shopping receipt or product page.

**When to use:** Someone bought lab supplies and needs the 采购申请表 for them.

**How it works:** The image is read with Tesseract, the product name, specification, quantity and price are picked out and the item is classified by keyword.

**Examples:**
• "Create a procurement request from receipts/舵机.jpg"

**Best practices:** Check the generated sheet. Fields that could not be read are left empty for manual completion.`

	PDFReadTextDescription = `Extract the text of any PDF, falling back to OCR for scans.

**When to use:** You need the words on the page and do not know whether the PDF has a text layer.

**Response:** the text, the method that produced it (native, mupdf or ocr) and any warnings from the fallback chain.`

	PDFSearchDirectoryDescription = `List PDF files in a directory, optionally fuzzy matched by name.

**When to use:** Finding a file before calling another tool, or checking what a folder contains.

**Examples:**
• "List the PDFs in tbd/"
• "Find the invoice for 杜邦线"

**Best practices:** Leave directory empty to search the server's default directory. Set recursive to include subfolders.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	InvoiceExtract:       InvoiceExtractDescription,
	InvoiceCheckNumber:   InvoiceCheckNumberDescription,
	ExpenseReport:        ExpenseReportDescription,
	ProcurementFromImage: ProcurementFromImageDescription,
	PDFReadText:          PDFReadTextDescription,
	PDFSearchDirectory:   PDFSearchDirectoryDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
