// Package report groups transactions for summaries.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// ShareDecimals is the precision of CategoryTotal.Share.
const ShareDecimals = 4

// DayGroup holds the transactions of a single day.
type DayGroup struct {
	Date         models.Date
	Transactions []models.Transaction
	Total        decimal.Decimal
}

// CategoryTotal aggregates the spending of one category.
type CategoryTotal struct {
	Category models.Category
	Count    int
	Total    decimal.Decimal
	Share    decimal.Decimal
}

// GroupByDay buckets transactions by date, newest day first. Order within a day is kept.
func GroupByDay(txs []models.Transaction) []DayGroup {
	index := make(map[string]int)
	var groups []DayGroup

	for _, tx := range txs {
		key := tx.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: tx.Date, Total: decimal.Zero})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
		groups[i].Total = groups[i].Total.Add(tx.Amount)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})
	return groups
}

// TotalsByCategory sums transactions per category, largest total first.
func TotalsByCategory(txs []models.Transaction) []CategoryTotal {
	index := make(map[string]int)
	var totals []CategoryTotal
	grand := decimal.Zero

	for _, tx := range txs {
		i, ok := index[tx.Category.Name]
		if !ok {
			i = len(totals)
			index[tx.Category.Name] = i
			totals = append(totals, CategoryTotal{Category: tx.Category, Total: decimal.Zero})
		}
		totals[i].Count++
		totals[i].Total = totals[i].Total.Add(tx.Amount)
		grand = grand.Add(tx.Amount)
	}

	for i := range totals {
		if grand.IsZero() {
			totals[i].Share = decimal.Zero
			continue
		}
		totals[i].Share = totals[i].Total.DivRound(grand, ShareDecimals)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category.Name < totals[j].Category.Name
	})
	return totals
}
