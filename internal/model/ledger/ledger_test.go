package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/storage"
)

var fixedNow = time.Date(2024, time.March, 25, 10, 0, 0, 0, time.UTC)

type recorder struct {
	changes []gateway.Change
}

func (r *recorder) Publish(c gateway.Change) {
	r.changes = append(r.changes, c)
}

func newService() (*Service, *storage.InMemStorage, *recorder) {
	store := storage.NewInMemStorage()
	rec := &recorder{}
	s := New(store, rec)
	s.clock = func() time.Time { return fixedNow }
	return s, store, rec
}

func Test_AddExpense_Validation(t *testing.T) {
	s, _, _ := newService()
	ctx := context.Background()
	food, err := s.AddCategory(ctx, "u1", "Food", "pizza")
	require.NoError(t, err)

	cases := map[string]struct {
		in      NewExpense
		message string
	}{
		"missing name":     {NewExpense{Amount: "10", Category: food.ID}, fillAllFieldsMessage},
		"missing amount":   {NewExpense{Name: "x", Category: food.ID}, fillAllFieldsMessage},
		"no category":      {NewExpense{Name: "x", Amount: "10"}, fillAllFieldsMessage},
		"text amount":      {NewExpense{Name: "x", Amount: "ten", Category: food.ID}, amountMessage},
		"zero amount":      {NewExpense{Name: "x", Amount: "0", Category: food.ID}, amountMessage},
		"long name":        {NewExpense{Name: "a very very long expense name indeed", Amount: "1", Category: food.ID}, expenseNameLongMessage},
		"future":           {NewExpense{Name: "x", Amount: "1", Category: food.ID, Date: fixedNow.AddDate(0, 0, 1)}, futureDateMessage},
		"unknown category": {NewExpense{Name: "x", Amount: "1", Category: "nope"}, unknownCategoryMessage},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.AddExpense(ctx, "u1", tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tc.message, err.Error())
		})
	}
}

func Test_AddExpense_StoresAndPublishes(t *testing.T) {
	s, store, rec := newService()
	ctx := context.Background()
	food, err := s.AddCategory(ctx, "u1", "Food", "pizza")
	require.NoError(t, err)

	e, err := s.AddExpense(ctx, "u1", NewExpense{Name: " lunch ", Amount: "12.50", Category: food.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "lunch", e.Name)
	assert.True(t, fixedNow.Equal(e.Date))

	snap, err := gateway.New(store).Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "12.5", snap.Expenses[0].Amount.String())

	require.Len(t, rec.changes, 2)
	assert.Equal(t, gateway.ExpenseChanged, rec.changes[1].Kind)
	assert.Equal(t, e.ID, rec.changes[1].DocumentID)
}

func Test_EditExpense(t *testing.T) {
	s, _, _ := newService()
	ctx := context.Background()
	food, _ := s.AddCategory(ctx, "u1", "Food", "pizza")
	rent, _ := s.AddCategory(ctx, "u1", "Rent", "home")
	e, err := s.AddExpense(ctx, "u1", NewExpense{Name: "lunch", Amount: "10", Category: food.ID})
	require.NoError(t, err)

	amount, category := "15", rent.ID
	edited, err := s.EditExpense(ctx, "u1", e.ID, ExpenseEdit{Amount: &amount, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "lunch", edited.Name)
	assert.Equal(t, "15", edited.Amount.String())
	assert.Equal(t, rent.ID, edited.Category)

	bad := "-1"
	_, err = s.EditExpense(ctx, "u1", e.ID, ExpenseEdit{Amount: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.EditExpense(ctx, "u1", "missing", ExpenseEdit{Amount: &amount})
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_DeleteExpense(t *testing.T) {
	s, _, _ := newService()
	ctx := context.Background()
	food, _ := s.AddCategory(ctx, "u1", "Food", "pizza")
	e, _ := s.AddExpense(ctx, "u1", NewExpense{Name: "lunch", Amount: "10", Category: food.ID})

	require.NoError(t, s.DeleteExpense(ctx, "u1", e.ID))
	assert.ErrorIs(t, s.DeleteExpense(ctx, "u1", e.ID), ErrNotFound)

	// deleting an expense leaves its category alone
	_, err := s.CategoryByName(ctx, "u1", "food")
	assert.NoError(t, err)
}

func Test_AddCategory_RejectsDuplicatesAndBlanks(t *testing.T) {
	s, _, _ := newService()
	ctx := context.Background()

	_, err := s.AddCategory(ctx, "u1", "Food", "pizza")
	require.NoError(t, err)

	_, err = s.AddCategory(ctx, "u1", " food ", "cart")
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = s.AddCategory(ctx, "u2", "Food", "pizza")
	assert.NoError(t, err)

	_, err = s.AddCategory(ctx, "u1", "Travel", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func Test_DeleteCategory_Cascades(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()
	food, _ := s.AddCategory(ctx, "u1", "Food", "pizza")
	rent, _ := s.AddCategory(ctx, "u1", "Rent", "home")
	march := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, amount := range []string{"100", "50"} {
		_, err := s.AddExpense(ctx, "u1", NewExpense{Name: "meal", Amount: amount, Category: food.ID, Date: march})
		require.NoError(t, err)
	}
	_, err := s.AddExpense(ctx, "u1", NewExpense{Name: "flat", Amount: "30", Category: rent.ID, Date: march})
	require.NoError(t, err)

	removed, err := s.DeleteCategory(ctx, "u1", food.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snap, err := gateway.New(store).Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Quarantined)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, rent.ID, snap.Expenses[0].Category)

	p := aggregator.NewPeriod(2024, time.March, time.UTC)
	breakdown := aggregator.CategoryBreakdown(snap.Expenses, snap.Categories, p)
	_, ok := breakdown[food.ID]
	assert.False(t, ok)
	assert.Equal(t, "30", breakdown[rent.ID].String())

	_, err = s.DeleteCategory(ctx, "u1", food.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_SetBudget(t *testing.T) {
	s, store, rec := newService()
	ctx := context.Background()

	_, err := s.SetBudget(ctx, "u1", " ")
	assert.Equal(t, enterBudgetMessage, err.Error())
	_, err = s.SetBudget(ctx, "u1", "123456789")
	assert.Equal(t, budgetDigitsMessage, err.Error())
	_, err = s.SetBudget(ctx, "u1", "abc")
	assert.Equal(t, budgetNumberMessage, err.Error())
	_, err = s.SetBudget(ctx, "u1", "-5")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.SetBudget(ctx, "u1", "1e20")
	assert.Equal(t, budgetNumberMessage, err.Error())
	_, err = s.SetBudget(ctx, "u1", "5E3")
	assert.Equal(t, budgetNumberMessage, err.Error())
	_, err = s.SetBudget(ctx, "u1", "12.")
	assert.Equal(t, budgetNumberMessage, err.Error())

	budget, err := s.SetBudget(ctx, "u1", "12000.50")
	require.NoError(t, err)
	assert.Equal(t, "12000.5", budget.String())

	snap, err := gateway.New(store).Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.Loaded)
	assert.True(t, budget.Equal(snap.Profile.Budget))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, gateway.ProfileChanged, rec.changes[0].Kind)
}

func Test_SetUsername(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()

	assert.Equal(t, enterNicknameMessage, s.SetUsername(ctx, "u1", "").Error())
	assert.Equal(t, nicknameSpacesMessage, s.SetUsername(ctx, "u1", " ann").Error())
	assert.Equal(t, nicknameTooLongMessage, s.SetUsername(ctx, "u1", "abcdefghijklmnopqrstu").Error())

	require.NoError(t, s.SetUsername(ctx, "u1", "ann"))
	_, err := s.SetBudget(ctx, "u1", "100")
	require.NoError(t, err)

	snap, err := gateway.New(store).Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ann", snap.Profile.Username)
	assert.Equal(t, "100", snap.Profile.Budget.String())
}
