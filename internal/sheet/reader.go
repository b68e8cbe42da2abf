package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/invoice"
	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/money"
)

const (
	colReason  = "付款明细原因"
	colAmount  = "金额"
	colNumber  = "发票号码"
	colType    = "发票类型"
	colManager = "项目负责人"
)

// ReadExpenseReport reads the entries of an expense report written by
// WriteExpenseReport or filled in by hand. Rows without a reason or a
// readable amount are skipped.
func ReadExpenseReport(path string, logger *zap.Logger) ([]invoice.Entry, error) {
	logger = logging.OrNop(logger)

	rows, err := ReadSheetRows(path)
	if err != nil {
		return nil, err
	}

	header := -1
	for i, row := range rows {
		if containsCell(row, colReason) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
	}

	cols := mapExpenseColumns(rows[header])
	logger.Debug("expense report columns", zap.Any("columns", cols))

	var entries []invoice.Entry
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		get := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		reason := get(colReason)
		raw := get(colAmount)
		if reason == "" || raw == "" {
			continue
		}
		amount, err := money.Parse(raw)
		if err != nil {
			logger.Warn("invalid amount in expense report", zap.Int("row", i+1), zap.String("amount", raw))
			continue
		}
		entries = append(entries, invoice.Entry{
			Reason:         reason,
			ProjectManager: get(colManager),
			InvoiceType:    get(colType),
			InvoiceNumber:  get(colNumber),
			Amount:         amount,
		})
	}

	logger.Info("read expense report", zap.String("path", path), zap.Int("entries", len(entries)))
	return entries, nil
}

// mapExpenseColumns finds each known column by substring. A header cell
// is claimed by the first key it contains.
func mapExpenseColumns(header []string) map[string]int {
	keys := []string{colReason, colAmount, colNumber, colType, colManager}
	cols := make(map[string]int)
	for i, h := range header {
		for _, k := range keys {
			if strings.Contains(h, k) {
				cols[k] = i
				break
			}
		}
	}
	return cols
}

func containsCell(row []string, s string) bool {
	for _, c := range row {
		if strings.Contains(c, s) {
			return true
		}
	}
	return false
}

// ReadSheetRows returns the rows of the first sheet in path.
func ReadSheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
