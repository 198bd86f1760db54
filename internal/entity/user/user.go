package user

import "github.com/shopspring/decimal"

// Profile is the users/{uid} document. Identity itself lives elsewhere.
type Profile struct {
	ID       string
	Username string
	Email    string
	Budget   decimal.Decimal
}

// HasBudget reports whether a positive monthly budget is configured.
func (p *Profile) HasBudget() bool {
	return p.Budget.IsPositive()
}
