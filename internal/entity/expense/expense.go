package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID       string
	Name     string
	Amount   decimal.Decimal
	Category string
	Date     time.Time
}

type Category struct {
	ID   string
	Name string
	Icon string
}

// CategoryIndex maps category ids to categories.
func CategoryIndex(categories []Category) map[string]Category {
	idx := make(map[string]Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}
