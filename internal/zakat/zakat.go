// Package zakat holds the zakat rate and the arithmetic derived from it.
package zakat

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"zakat-tracker/internal/models"
)

// Rate is the flat zakat rate applied to every category.
var Rate = decimal.RequireFromString("0.025")

// Compute returns the zakat owed on amount.
func Compute(amount float64) float64 {
	return decimal.NewFromFloat(amount).Mul(Rate).InexactFloat64()
}

// Summarize aggregates entries into statistics.
func Summarize(entries []models.Entry) models.Statistics {
	totalAmount := decimal.Zero
	totalZakat := decimal.Zero
	type sums struct {
		count         int
		amount, zakat decimal.Decimal
	}
	byCategory := make(map[models.Category]*sums)

	for _, e := range entries {
		amount := decimal.NewFromFloat(e.Amount)
		z := decimal.NewFromFloat(e.ZakatAmount)
		totalAmount = totalAmount.Add(amount)
		totalZakat = totalZakat.Add(z)

		s, ok := byCategory[e.Category]
		if !ok {
			s = &sums{amount: decimal.Zero, zakat: decimal.Zero}
			byCategory[e.Category] = s
		}
		s.count++
		s.amount = s.amount.Add(amount)
		s.zakat = s.zakat.Add(z)
	}

	breakdown := make(map[models.Category]models.CategoryStats, len(byCategory))
	for c, s := range byCategory {
		breakdown[c] = models.CategoryStats{
			Count:       s.count,
			TotalAmount: s.amount.InexactFloat64(),
			TotalZakat:  s.zakat.InexactFloat64(),
		}
	}

	return models.Statistics{
		TotalAmount:       totalAmount.InexactFloat64(),
		TotalZakat:        totalZakat.InexactFloat64(),
		TotalEntries:      len(entries),
		CategoryBreakdown: breakdown,
	}
}

// FormatCurrency renders v as dollars with two decimals, e.g. "$1,234.50".
func FormatCurrency(v float64) string {
	rounded := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	s := humanize.FormatFloat("#,###.##", rounded)
	if strings.HasPrefix(s, "-") {
		return "-$" + strings.TrimPrefix(s, "-")
	}
	return "$" + s
}

// HasAtMostTwoDecimals reports whether the amount text fits a cents step.
func HasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
