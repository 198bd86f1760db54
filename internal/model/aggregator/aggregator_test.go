package aggregator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/spending-tracker/internal/entity/expense"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func exp(id, amount, category string, date time.Time) expense.Expense {
	return expense.Expense{ID: id, Name: id, Amount: dec(amount), Category: category, Date: date}
}

var march2024 = NewPeriod(2024, time.March, time.UTC)

func Test_MonthTotal_EmptyIsZero(t *testing.T) {
	assert.True(t, MonthTotal(nil, march2024).IsZero())
	assert.True(t, MonthTotal([]expense.Expense{}, march2024).IsZero())
}

func Test_MonthTotal_Scenario(t *testing.T) {
	expenses := []expense.Expense{
		exp("a", "100", "food", day(2024, time.March, 5)),
		exp("b", "50", "food", day(2024, time.March, 20)),
		exp("c", "30", "rent", day(2024, time.April, 1)),
	}
	budget := dec("120")

	spent := MonthTotal(expenses, march2024)
	assert.Equal(t, "150", spent.String())
	assert.Equal(t, "30", Overspend(spent, budget).String())

	pct, err := BudgetPercentage(spent, budget)
	require.NoError(t, err)
	assert.Equal(t, int64(125), pct)
}

func Test_MonthTotal_BoundariesInclusiveExclusive(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	p := NewPeriod(2024, time.March, loc)
	expenses := []expense.Expense{
		exp("first-instant", "1", "c", time.Date(2024, time.March, 1, 0, 0, 0, 0, loc)),
		exp("last-instant", "2", "c", time.Date(2024, time.March, 31, 23, 59, 59, 999999999, loc)),
		exp("next-month", "4", "c", time.Date(2024, time.April, 1, 0, 0, 0, 0, loc)),
		// still February in the user's zone
		exp("before", "8", "c", time.Date(2024, time.February, 29, 18, 0, 0, 0, time.UTC)),
	}
	assert.Equal(t, "3", MonthTotal(expenses, p).String())
}

func Test_MonthTotal_OrderIndependent(t *testing.T) {
	expenses := make([]expense.Expense, 0, 50)
	for i := 0; i < 50; i++ {
		expenses = append(expenses, exp("e", decimal.NewFromInt(int64(i)).Div(dec("7")).Round(2).String(), "c", day(2024, time.March, 1+i%28)))
	}
	want := MonthTotal(expenses, march2024)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		r.Shuffle(len(expenses), func(a, b int) { expenses[a], expenses[b] = expenses[b], expenses[a] })
		assert.True(t, want.Equal(MonthTotal(expenses, march2024)))
	}
}

func Test_BudgetPercentage(t *testing.T) {
	pct, err := BudgetPercentage(dec("100"), dec("200"))
	require.NoError(t, err)
	assert.Equal(t, int64(50), pct)

	pct, err = BudgetPercentage(dec("250"), dec("200"))
	require.NoError(t, err)
	assert.Equal(t, int64(125), pct)

	pct, err = BudgetPercentage(dec("1"), dec("3"))
	require.NoError(t, err)
	assert.Equal(t, int64(33), pct)

	pct, err = BudgetPercentage(dec("1"), dec("8"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), pct)
}

func Test_BudgetPercentage_NoBudget(t *testing.T) {
	_, err := BudgetPercentage(dec("10"), decimal.Zero)
	assert.ErrorIs(t, err, ErrNoBudget)

	_, err = BudgetPercentage(decimal.Zero, dec("-5"))
	assert.ErrorIs(t, err, ErrNoBudget)
}

func Test_Overspend(t *testing.T) {
	assert.True(t, Overspend(dec("100"), dec("200")).IsZero())
	assert.True(t, Overspend(dec("200"), dec("200")).IsZero())
	assert.Equal(t, "0.5", Overspend(dec("200.5"), dec("200")).String())
}

func Test_RollingSixMonthSeries_ShapeAndOrder(t *testing.T) {
	anchors := []time.Time{
		day(2024, time.March, 15),
		day(2024, time.December, 31),
		day(2025, time.January, 1),
		day(2024, time.June, 1),
	}
	for _, anchor := range anchors {
		for _, mode := range []SeriesMode{MatchYearMonth, MatchMonthOnly} {
			series := RollingSixMonthSeries(nil, anchor, mode)
			require.Len(t, series, 6)

			last := series[5]
			assert.Equal(t, anchor.Year(), last.Year)
			assert.Equal(t, anchor.Month(), last.Month)
			for i := 1; i < len(series); i++ {
				prev := time.Date(series[i-1].Year, series[i-1].Month, 1, 0, 0, 0, 0, time.UTC)
				cur := time.Date(series[i].Year, series[i].Month, 1, 0, 0, 0, 0, time.UTC)
				assert.Equal(t, prev.AddDate(0, 1, 0), cur)
			}
		}
	}

	labels := make([]string, 0, 6)
	for _, s := range RollingSixMonthSeries(nil, day(2024, time.March, 15), MatchYearMonth) {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}, labels)
}

func Test_RollingSixMonthSeries_Modes(t *testing.T) {
	expenses := []expense.Expense{
		exp("this-march", "100", "c", day(2024, time.March, 5)),
		exp("last-march", "40", "c", day(2023, time.March, 5)),
		exp("january", "7", "c", day(2024, time.January, 9)),
		exp("too-old", "1000", "c", day(2023, time.August, 9)),
	}
	anchor := day(2024, time.March, 31)

	yearAware := RollingSixMonthSeries(expenses, anchor, MatchYearMonth)
	assert.Equal(t, "100", yearAware[5].Total.String())
	assert.Equal(t, "7", yearAware[3].Total.String())
	assert.True(t, yearAware[0].Total.IsZero())

	monthOnly := RollingSixMonthSeries(expenses, anchor, MatchMonthOnly)
	assert.Equal(t, "140", monthOnly[5].Total.String())
	assert.Equal(t, "7", monthOnly[3].Total.String())
}

func Test_CategoryBreakdown(t *testing.T) {
	categories := []expense.Category{
		{ID: "food", Name: "Food"},
		{ID: "rent", Name: "Rent"},
		{ID: "fun", Name: "Fun"},
	}
	expenses := []expense.Expense{
		exp("a", "100", "food", day(2024, time.March, 5)),
		exp("b", "50", "food", day(2024, time.March, 20)),
		exp("c", "30", "rent", day(2024, time.March, 1)),
		exp("d", "999", "rent", day(2024, time.April, 1)),
		exp("e", "5", "gone", day(2024, time.March, 2)),
	}

	got := CategoryBreakdown(expenses, categories, march2024)
	require.Len(t, got, 3)
	assert.Equal(t, "150", got["food"].String())
	assert.Equal(t, "30", got["rent"].String())
	assert.True(t, got["fun"].IsZero())
	_, ok := got["gone"]
	assert.False(t, ok)

	sorted := SortedBreakdown(got, categories)
	require.Len(t, sorted, 2)
	assert.Equal(t, "Food", sorted[0].Category.Name)
	assert.Equal(t, "Rent", sorted[1].Category.Name)
}

func Test_CategoryBreakdown_AfterCategoryRemoved(t *testing.T) {
	categories := []expense.Category{{ID: "food", Name: "Food"}}
	expenses := []expense.Expense{exp("a", "10", "food", day(2024, time.March, 5))}

	got := CategoryBreakdown(expenses, nil, march2024)
	assert.Empty(t, got)

	got = CategoryBreakdown(expenses, categories, march2024)
	assert.Equal(t, "10", got["food"].String())
}

func Test_InMonthAndOrphans(t *testing.T) {
	categories := []expense.Category{{ID: "food"}}
	expenses := []expense.Expense{
		exp("old", "1", "food", day(2024, time.March, 1)),
		exp("new", "1", "food", day(2024, time.March, 30)),
		exp("orphan", "1", "missing", day(2024, time.March, 15)),
		exp("april", "1", "food", day(2024, time.April, 15)),
	}

	inMonth := InMonth(expenses, march2024)
	require.Len(t, inMonth, 3)
	assert.Equal(t, "new", inMonth[0].ID)
	assert.Equal(t, "old", inMonth[2].ID)

	valid, orphans := Orphans(expenses, categories)
	assert.Len(t, valid, 3)
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphan", orphans[0].ID)
}

func Test_Period(t *testing.T) {
	p := NewPeriod(2024, 13, time.UTC)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, time.January, p.Month)

	back := NewPeriod(2024, time.January, time.UTC).AddMonths(-1)
	assert.Equal(t, 2023, back.Year)
	assert.Equal(t, time.December, back.Month)
	assert.Equal(t, "12.2023", back.String())

	start, end := march2024.Bounds()
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), end)
}
