package reports

import (
	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/model/aggregator"
)

// Dashboard is the computed view of one reporting month.
type Dashboard struct {
	UserID string
	Period aggregator.Period
	// Loaded is false when the store had nothing for the user yet.
	Loaded bool

	Spent     decimal.Decimal
	Budget    decimal.Decimal
	HasBudget bool
	// Percentage is meaningful only when HasBudget is set.
	Percentage int64
	Overspend  decimal.Decimal

	Series    []aggregator.MonthSum
	Breakdown []aggregator.CategorySum
	Expenses  []expense.Expense
	Warnings  []string
}

func (d *Dashboard) OverBudget() bool {
	return d.HasBudget && d.Overspend.IsPositive()
}
