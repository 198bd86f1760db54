// Package aggregator computes spending figures from a snapshot of one user's
// records. Every function is pure and takes its date anchors explicitly.
package aggregator

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
)

const seriesLength = 6

var ErrNoBudget = errors.New("no budget configured")

var hundred = decimal.NewFromInt(100)

type SeriesMode int

const (
	// MatchYearMonth sums each series entry over its own calendar month.
	MatchYearMonth SeriesMode = iota
	// MatchMonthOnly sums every expense whose month index matches, whatever the year.
	MatchMonthOnly
)

type MonthSum struct {
	Label string
	Year  int
	Month time.Month
	Total decimal.Decimal
}

type CategorySum struct {
	Category expense.Category
	Total    decimal.Decimal
}

func MonthTotal(expenses []expense.Expense, p Period) decimal.Decimal {
	start, end := p.Bounds()
	total := decimal.Zero
	for _, e := range expenses {
		if !e.Date.Before(start) && e.Date.Before(end) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// BudgetPercentage returns round(spent / budget * 100). A budget that is not
// positive yields ErrNoBudget.
func BudgetPercentage(spent, budget decimal.Decimal) (int64, error) {
	if !budget.IsPositive() {
		return 0, ErrNoBudget
	}
	return spent.Mul(hundred).Div(budget).Round(0).IntPart(), nil
}

func Overspend(spent, budget decimal.Decimal) decimal.Decimal {
	if spent.LessThanOrEqual(budget) {
		return decimal.Zero
	}
	return spent.Sub(budget)
}

// RollingSixMonthSeries returns six entries, oldest first, the last one being
// the anchor's month.
func RollingSixMonthSeries(expenses []expense.Expense, anchor time.Time, mode SeriesMode) []MonthSum {
	last := PeriodOf(anchor)
	series := make([]MonthSum, 0, seriesLength)
	for i := seriesLength - 1; i >= 0; i-- {
		p := last.AddMonths(-i)

		var total decimal.Decimal
		if mode == MatchMonthOnly {
			total = monthIndexTotal(expenses, p)
		} else {
			total = MonthTotal(expenses, p)
		}

		series = append(series, MonthSum{
			Label: p.Label(),
			Year:  p.Year,
			Month: p.Month,
			Total: total,
		})
	}
	return series
}

func monthIndexTotal(expenses []expense.Expense, p Period) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Date.In(p.location()).Month() == p.Month {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// CategoryBreakdown sums the month's expenses per category id. Every known
// category is present, possibly with zero; unknown references are skipped.
func CategoryBreakdown(expenses []expense.Expense, categories []expense.Category, p Period) map[string]decimal.Decimal {
	res := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		res[c.ID] = decimal.Zero
	}

	start, end := p.Bounds()
	for _, e := range expenses {
		sum, known := res[e.Category]
		if !known || e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		res[e.Category] = sum.Add(e.Amount)
	}
	return res
}

// SortedBreakdown drops zero entries and orders the rest by amount, largest
// first, then by category name.
func SortedBreakdown(breakdown map[string]decimal.Decimal, categories []expense.Category) []CategorySum {
	idx := expense.CategoryIndex(categories)
	res := make([]CategorySum, 0, len(breakdown))
	for id, total := range breakdown {
		if total.IsZero() {
			continue
		}
		c, ok := idx[id]
		if !ok {
			c = expense.Category{ID: id, Name: id}
		}
		res = append(res, CategorySum{Category: c, Total: total})
	}
	sort.Slice(res, func(i, j int) bool {
		if c := res[i].Total.Cmp(res[j].Total); c != 0 {
			return c > 0
		}
		return res[i].Category.Name < res[j].Category.Name
	})
	return res
}

// InMonth returns the month's expenses, newest first.
func InMonth(expenses []expense.Expense, p Period) []expense.Expense {
	res := make([]expense.Expense, 0)
	for _, e := range expenses {
		if p.Contains(e.Date) {
			res = append(res, e)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date.After(res[j].Date)
	})
	return res
}

// Orphans splits off expenses whose category is not among categories.
func Orphans(expenses []expense.Expense, categories []expense.Category) (valid, orphans []expense.Expense) {
	idx := expense.CategoryIndex(categories)
	valid = make([]expense.Expense, 0, len(expenses))
	for _, e := range expenses {
		if _, ok := idx[e.Category]; ok {
			valid = append(valid, e)
		} else {
			orphans = append(orphans, e)
		}
	}
	return valid, orphans
}
