package procurement

import (
	"strconv"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

type rule struct {
	value    string
	keywords []string
}

// Earlier rules win when a name matches several.
var (
	typeRules = []rule{
		{"科研设备", []string{"轴承", "电机", "舵机", "充电器", "设备", "电机线", "转轴"}},
		{"耗材用品", []string{"螺丝", "胶带", "扎带", "焊", "双面胶", "热熔胶", "耗材"}},
		{"软件许可", []string{"软件", "许可", "系统"}},
		{"办公设备", []string{"办公", "纸", "笔", "桌", "椅"}},
	}
	unitRules = []rule{
		{"个", []string{"螺丝", "轴承"}},
		{"米", []string{"线", "缆"}},
		{"卷", []string{"胶带"}},
		{"台", []string{"充电器", "设备"}},
		{"套", []string{"砝码"}},
		{"辆", []string{"推车"}},
	}
	quantityRules = []rule{
		{"50", []string{"螺丝"}},
		{"10", []string{"轴承"}},
		{"5", []string{"胶带"}},
		{"5", []string{"连接器", "转接", "usb"}},
	}
	screwSizes = []string{"2.5", "3", "4", "5", "6"}
)

const defaultType = "科研设备"

// matcher finds which rule of a list fires first for a name.
type matcher struct {
	ac     *ahocorasick.Matcher
	owners []int // keyword index -> rule index
	rules  []rule
}

func newMatcher(rules []rule) *matcher {
	var (
		keywords []string
		owners   []int
	)
	for i, r := range rules {
		for _, k := range r.keywords {
			keywords = append(keywords, k)
			owners = append(owners, i)
		}
	}
	return &matcher{
		ac:     ahocorasick.NewStringMatcher(keywords),
		owners: owners,
		rules:  rules,
	}
}

// first returns the earliest rule with a keyword in name, or -1.
func (m *matcher) first(name string) int {
	best := -1
	for _, hit := range m.ac.Match([]byte(strings.ToLower(name))) {
		if owner := m.owners[hit]; best == -1 || owner < best {
			best = owner
		}
	}
	return best
}

// Classifier guesses the procurement type, unit and quantity of an item
// from its name.
type Classifier struct {
	types    *matcher
	units    *matcher
	quantity *matcher
}

// NewClassifier compiles the keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		types:    newMatcher(typeRules),
		units:    newMatcher(unitRules),
		quantity: newMatcher(quantityRules),
	}
}

// Type returns the procurement type, 科研设备 when nothing matches.
func (c *Classifier) Type(name string) string {
	if i := c.types.first(name); i >= 0 {
		return typeRules[i].value
	}
	return defaultType
}

// Unit returns the counting unit, 个 when nothing matches.
func (c *Classifier) Unit(name string) string {
	if i := c.units.first(name); i >= 0 {
		return unitRules[i].value
	}
	return DefaultUnit
}

// Category returns the secondary category.
func (c *Classifier) Category(string) string {
	return SecondaryCategory
}

// EstimateQuantity guesses how many pieces a large purchase covered.
func (c *Classifier) EstimateQuantity(name string) int {
	i := c.quantity.first(name)
	if i < 0 {
		return 1
	}
	if i == 0 {
		// screws come in boxes of 100 for the standard sizes
		for _, size := range screwSizes {
			if strings.Contains(name, size) {
				return 100
			}
		}
	}
	n, _ := strconv.Atoi(quantityRules[i].value)
	return n
}
