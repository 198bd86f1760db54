package reports

import (
	"fmt"
	"strings"
)

const (
	noDataMessage   = "You have no expense. Start adding your expenses!"
	noBudgetMessage = "No budget set"
)

// Render formats a dashboard the way the gauge and the trend chart read.
func Render(d *Dashboard, symbol string) string {
	monthName := d.Period.Month.String()
	res := []string{fmt.Sprintf("%s %d", monthName, d.Period.Year)}

	switch {
	case !d.HasBudget:
		res = append(res, noBudgetMessage, fmt.Sprintf("Total expenses: %s %s", symbol, d.Spent.StringFixed(2)))
	case d.OverBudget():
		res = append(res,
			fmt.Sprintf("Over spent %s %s", symbol, d.Overspend.StringFixed(2)),
			fmt.Sprintf("Total expenses: %s %s of %s %s", symbol, d.Spent.StringFixed(2), symbol, d.Budget.StringFixed(2)))
	default:
		res = append(res,
			fmt.Sprintf("%d%% spent on %s", d.Percentage, monthName),
			fmt.Sprintf("%s %s of %s %s", symbol, d.Spent.StringFixed(2), symbol, d.Budget.StringFixed(2)))
	}

	if len(d.Expenses) == 0 {
		res = append(res, "", noDataMessage)
	} else {
		res = append(res, "")
		for _, rec := range d.Breakdown {
			res = append(res, fmt.Sprintf("%s: %s", rec.Category.Name, rec.Total.StringFixed(2)))
		}
	}

	res = append(res, "", "Last six months:")
	for _, m := range d.Series {
		res = append(res, fmt.Sprintf("%s %d: %s", m.Label, m.Year, m.Total.StringFixed(2)))
	}

	if len(d.Warnings) > 0 {
		res = append(res, "", fmt.Sprintf("%d record(s) skipped as corrupt", len(d.Warnings)))
	}
	return strings.Join(res, "\n")
}
