package sheet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-clerk/internal/procurement"
)

func sampleItems() []procurement.Item {
	return []procurement.Item{
		{
			Index: 1, Type: "耗材用品", Name: "M3螺丝", Specification: "M3*10", Unit: "个", Quantity: 100,
			UnitPrice: decimal.RequireFromString("0.15"), Total: decimal.RequireFromString("15"),
			Category: "低值易耗品", Remark: "来源：支出申请表，发票号码：12345678",
		},
		{
			Index: 2, Type: "科研设备", Name: "舵机", Specification: "MG996R", Unit: "个", Quantity: 2,
			UnitPrice: decimal.RequireFromString("45.5"), Total: decimal.RequireFromString("91"),
			Category: "低值易耗品",
		},
	}
}

func TestWriteProcurementRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.xlsx")
	req := procurement.Request{
		Date:       time.Date(2025, 3, 8, 0, 0, 0, 0, time.Local),
		Applicant:  "马晓健",
		Department: "人工智能研究院",
		Items:      sampleItems(),
	}
	require.NoError(t, WriteProcurementRequest(req, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sh := RequestSheet
	want := map[string]string{
		"A1":  "采购申请表",
		"A3":  "申请日期:",
		"B3":  "2025-03-08",
		"E3":  "马晓健",
		"H3":  "人工智能研究院",
		"A5":  "序号",
		"J5":  "备注",
		"A6":  "1",
		"C6":  "M3螺丝",
		"F6":  "100",
		"G6":  "0.15",
		"H6":  "15.00",
		"C7":  "舵机",
		"H7":  "91.00",
		"A9":  "合计金额",
		"H9":  "106.00",
		"A12": "申请人签字:",
		"D12": "部门负责人:",
		"G12": "财务审核:",
		"A14": "日期:",
	}
	for axis, v := range want {
		got, err := f.GetCellValue(sh, axis)
		require.NoError(t, err)
		assert.Equal(t, v, got, axis)
	}

	merged, err := f.GetMergeCells(sh)
	require.NoError(t, err)
	ranges := make([]string, len(merged))
	for i, m := range merged {
		ranges[i] = m.GetStartAxis() + ":" + m.GetEndAxis()
	}
	assert.ElementsMatch(t, []string{"A1:J1", "A9:G9"}, ranges)

	validations, err := f.GetDataValidations(sh)
	require.NoError(t, err)
	refs := make([]string, len(validations))
	for i, dv := range validations {
		refs[i] = dv.Sqref
	}
	assert.ElementsMatch(t, []string{"B6:B7", "I6:I7"}, refs)

	width, err := f.GetColWidth(sh, "C")
	require.NoError(t, err)
	assert.Equal(t, 25.0, width)
}

func TestWriteProcurementRequest_NoItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.xlsx")
	assert.ErrorIs(t, WriteProcurementRequest(procurement.Request{}, path), ErrNoRows)
}

func TestWriteProcurementDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detail.xlsx")
	require.NoError(t, WriteProcurementDetail(sampleItems(), path))

	rows, err := ReadSheetRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"明细表1"}, rows[0])
	assert.Equal(t, DetailHeaders, rows[1])
	assert.Equal(t, []string{"低值易耗品", "M3螺丝", "M3*10", "个", "100", "0.15", "15"}, rows[2])

	assert.ErrorIs(t, WriteProcurementDetail(nil, path), ErrNoRows)
}

func TestNames(t *testing.T) {
	ts := time.Date(2025, 3, 8, 14, 5, 9, 0, time.Local)
	assert.Equal(t, "20250308_采购申请.xlsx", RequestName(ts))
	assert.Equal(t,
		filepath.Join("reports", "20250308_140509_采购申请_20250301_报销.xlsx"),
		DetailName(filepath.Join("reports", "20250301_报销.xlsx"), ts))
}
