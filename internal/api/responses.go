package api

import (
	"time"

	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/reports"
)

type expenseResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type monthResponse struct {
	Label string          `json:"label"`
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type categoryTotalResponse struct {
	Category categoryResponse `json:"category"`
	Total    decimal.Decimal  `json:"total"`
}

type dashboardResponse struct {
	UserID string `json:"userId"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Loaded bool   `json:"loaded"`

	Spent decimal.Decimal `json:"spent"`
	// Budget and Percentage are null when no budget is set.
	Budget     *decimal.Decimal `json:"budget"`
	Percentage *int64           `json:"percentage"`
	Overspend  decimal.Decimal  `json:"overspend"`
	OverBudget bool             `json:"overBudget"`

	Series    []monthResponse         `json:"series"`
	Breakdown []categoryTotalResponse `json:"breakdown"`
	Expenses  []expenseResponse       `json:"expenses"`
	Warnings  []string                `json:"warnings"`
}

type profileResponse struct {
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Budget   *decimal.Decimal `json:"budget"`
}

type corruptRecordResponse struct {
	Path   string `json:"path"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type snapshotResponse struct {
	UserID      string                  `json:"userId"`
	Loaded      bool                    `json:"loaded"`
	Profile     profileResponse         `json:"profile"`
	Categories  []categoryResponse      `json:"categories"`
	Expenses    []expenseResponse       `json:"expenses"`
	Quarantined []corruptRecordResponse `json:"quarantined"`
}

func newExpenseResponse(e expense.Expense) expenseResponse {
	return expenseResponse{
		ID:       e.ID,
		Name:     e.Name,
		Amount:   e.Amount,
		Category: e.Category,
		Date:     e.Date,
	}
}

func newCategoryResponse(c expense.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon}
}

func newExpenseResponses(expenses []expense.Expense) []expenseResponse {
	res := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		res = append(res, newExpenseResponse(e))
	}
	return res
}

func newDashboardResponse(d *reports.Dashboard) dashboardResponse {
	res := dashboardResponse{
		UserID:     d.UserID,
		Year:       d.Period.Year,
		Month:      int(d.Period.Month),
		Loaded:     d.Loaded,
		Spent:      d.Spent,
		Overspend:  d.Overspend,
		OverBudget: d.OverBudget(),
		Series:     make([]monthResponse, 0, len(d.Series)),
		Breakdown:  make([]categoryTotalResponse, 0, len(d.Breakdown)),
		Expenses:   newExpenseResponses(d.Expenses),
		Warnings:   make([]string, 0, len(d.Warnings)),
	}
	if d.HasBudget {
		budget, pct := d.Budget, d.Percentage
		res.Budget, res.Percentage = &budget, &pct
	}
	for _, m := range d.Series {
		res.Series = append(res.Series, monthResponse{Label: m.Label, Year: m.Year, Month: int(m.Month), Total: m.Total})
	}
	for _, c := range d.Breakdown {
		res.Breakdown = append(res.Breakdown, categoryTotalResponse{Category: newCategoryResponse(c.Category), Total: c.Total})
	}
	res.Warnings = append(res.Warnings, d.Warnings...)
	return res
}

func newSnapshotResponse(s gateway.Snapshot) snapshotResponse {
	res := snapshotResponse{
		UserID: s.UserID,
		Loaded: s.Loaded,
		Profile: profileResponse{
			Username: s.Profile.Username,
			Email:    s.Profile.Email,
		},
		Categories:  make([]categoryResponse, 0, len(s.Categories)),
		Expenses:    newExpenseResponses(s.Expenses),
		Quarantined: make([]corruptRecordResponse, 0, len(s.Quarantined)),
	}
	if s.Profile.HasBudget() {
		budget := s.Profile.Budget
		res.Profile.Budget = &budget
	}
	for _, c := range s.Categories {
		res.Categories = append(res.Categories, newCategoryResponse(c))
	}
	for _, q := range s.Quarantined {
		res.Quarantined = append(res.Quarantined, corruptRecordResponse{Path: q.Path, Field: q.Field, Reason: q.Reason})
	}
	return res
}
