package views

import (
	"sort"

	"github.com/shopspring/decimal"

	"zakat-tracker/internal/models"
	"zakat-tracker/internal/zakat"
)

// Palette colours categories consistently across charts.
var Palette = map[models.Category]string{
	models.CategoryCash:        "#0088FE",
	models.CategoryGold:        "#FFBB28",
	models.CategorySilver:      "#A0AEC0",
	models.CategoryBusiness:    "#00C49F",
	models.CategoryAgriculture: "#82CA9D",
	models.CategoryOther:       "#FF8042",
}

const fallbackColor = "#8884D8"

// Slice is one category's part of the amount distribution.
type Slice struct {
	Category models.Category
	// Value is the category total; values across slices sum to the total amount.
	Value   float64
	Percent float64
	Label   string
	Color   string
	// Offset is the cumulative percent before this slice, for drawing.
	Offset float64
}

// Bar is one category's zakat owed.
type Bar struct {
	Category models.Category
	Value    float64
	Label    string
	// Width is the bar length relative to the largest bar, in percent.
	Width float64
	Color string
}

// Charts holds both chart projections of the category breakdown.
type Charts struct {
	AmountShare     []Slice
	ZakatByCategory []Bar
}

// orderedCategories returns the breakdown's categories, known ones in
// display order first, then any others alphabetically.
func orderedCategories(breakdown map[models.Category]models.CategoryStats) []models.Category {
	out := make([]models.Category, 0, len(breakdown))
	for _, c := range models.Categories {
		if _, ok := breakdown[c]; ok {
			out = append(out, c)
		}
	}
	var extra []models.Category
	for c := range breakdown {
		if !c.Valid() {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func colorOf(c models.Category) string {
	if color, ok := Palette[c]; ok {
		return color
	}
	return fallbackColor
}

// BuildCharts projects statistics into chart data. It reports false, with
// empty charts, when there are no entries.
func BuildCharts(stats models.Statistics, entryCount int) (Charts, bool) {
	if entryCount == 0 || len(stats.CategoryBreakdown) == 0 {
		return Charts{}, false
	}

	categories := orderedCategories(stats.CategoryBreakdown)
	total := decimal.NewFromFloat(stats.TotalAmount)

	var maxZakat float64
	for _, c := range categories {
		if z := stats.CategoryBreakdown[c].TotalZakat; z > maxZakat {
			maxZakat = z
		}
	}

	charts := Charts{
		AmountShare:     make([]Slice, 0, len(categories)),
		ZakatByCategory: make([]Bar, 0, len(categories)),
	}
	var offset float64
	for _, c := range categories {
		cs := stats.CategoryBreakdown[c]

		var percent float64
		if total.IsPositive() {
			percent = decimal.NewFromFloat(cs.TotalAmount).Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		charts.AmountShare = append(charts.AmountShare, Slice{
			Category: c,
			Value:    cs.TotalAmount,
			Percent:  percent,
			Label:    zakat.FormatCurrency(cs.TotalAmount),
			Color:    colorOf(c),
			Offset:   offset,
		})
		offset += percent

		var width float64
		if maxZakat > 0 {
			width = cs.TotalZakat / maxZakat * 100
		}
		charts.ZakatByCategory = append(charts.ZakatByCategory, Bar{
			Category: c,
			Value:    cs.TotalZakat,
			Label:    zakat.FormatCurrency(cs.TotalZakat),
			Width:    width,
			Color:    colorOf(c),
		})
	}
	return charts, true
}
