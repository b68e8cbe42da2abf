package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-clerk/internal/invoice"
)

func TestClassifier_Type(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		name string
		want string
	}{
		{"深沟球轴承", "科研设备"},
		{"舵机支架螺丝", "科研设备"}, // equipment keywords win over consumables
		{"M3螺丝", "耗材用品"},
		{"3M双面胶", "耗材用品"},
		{"焊锡丝", "耗材用品"},
		{"操作系统授权", "软件许可"},
		{"A4打印纸", "办公设备"},
		{"办公椅", "办公设备"},
		{"示波器探头", "科研设备"},
		{"", "科研设备"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Type(tt.name))
		})
	}
}

func TestClassifier_Unit(t *testing.T) {
	c := NewClassifier()
	tests := map[string]string{
		"M3螺丝":    "个",
		"轴承":      "个",
		"电机线":     "米",
		"网线":      "米",
		"同轴电缆":    "米",
		"透明胶带":    "卷",
		"充电器":     "台",
		"测试设备":    "台",
		"砝码":      "套",
		"平板推车":    "辆",
		"杜邦线螺丝套装": "个", // screws are checked before cables
		"键盘":      "个",
	}
	for name, want := range tests {
		assert.Equal(t, want, c.Unit(name), name)
	}
}

func TestClassifier_EstimateQuantity(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		name string
		want int
	}{
		{"M3螺丝", 100},
		{"M2.5螺丝", 100},
		{"M8螺丝", 50},
		{"法兰轴承", 10},
		{"绝缘胶带", 5},
		{"USB集线器", 5},
		{"Type-C转接头", 5},
		{"航空连接器", 5},
		{"3D打印机", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.EstimateQuantity(tt.name))
		})
	}
}

func TestClassifier_ConvertExpenses(t *testing.T) {
	c := NewClassifier()

	_, err := c.ConvertExpenses(nil)
	require.ErrorIs(t, err, ErrNoEntries)

	items, err := c.ConvertExpenses([]invoice.Entry{
		{Reason: "M3螺丝", Amount: decimal.RequireFromString("1500.00"), InvoiceNumber: "12345678"},
		{Reason: "打印纸", Amount: decimal.RequireFromString("88.50")},
		{Reason: "3D打印机", Amount: decimal.RequireFromString("2999.99"), InvoiceNumber: "87654321"},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	screws := items[0]
	assert.Equal(t, 1, screws.Index)
	assert.Equal(t, "耗材用品", screws.Type)
	assert.Equal(t, "M3螺丝", screws.Name)
	assert.Equal(t, "M3螺丝", screws.Specification)
	assert.Equal(t, "个", screws.Unit)
	assert.Equal(t, 100, screws.Quantity)
	assert.Equal(t, "15.00", screws.UnitPrice.StringFixed(2))
	assert.Equal(t, "1500.00", screws.Total.StringFixed(2))
	assert.Equal(t, SecondaryCategory, screws.Category)
	assert.Equal(t, "来源：支出申请表，发票号码：12345678", screws.Remark)

	paper := items[1]
	assert.Equal(t, 2, paper.Index)
	assert.Equal(t, 1, paper.Quantity)
	assert.True(t, paper.UnitPrice.Equal(decimal.RequireFromString("88.5")))
	assert.Equal(t, "来源：支出申请表，发票号码：未知", paper.Remark)

	printer := items[2]
	assert.Equal(t, 1, printer.Quantity)
	assert.Equal(t, "2999.99", printer.UnitPrice.StringFixed(2))
}
