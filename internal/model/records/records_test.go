package records

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/model/storage"
)

func doc(fields storage.Fields) storage.Document {
	return storage.Document{ID: "e1", Path: "users/u1/expenses/e1", Fields: fields}
}

func TestDecodeExpense_AcceptsNumericShapes(t *testing.T) {
	date := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	amounts := map[string]interface{}{
		"float":  100.0,
		"int":    100,
		"number": json.Number("100"),
		"string": " 100 ",
	}
	for name, amount := range amounts {
		t.Run(name, func(t *testing.T) {
			e, err := DecodeExpense(doc(storage.Fields{
				FieldName:     "groceries",
				FieldAmount:   amount,
				FieldCategory: "food",
				FieldDate:     date,
			}))
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(100).Equal(e.Amount))
			assert.Equal(t, "e1", e.ID)
			assert.Equal(t, "food", e.Category)
			assert.True(t, date.Equal(e.Date))
		})
	}
}

func TestDecodeExpense_ParsesDates(t *testing.T) {
	want := time.Date(2024, time.April, 1, 8, 30, 0, 0, time.UTC)
	dates := map[string]interface{}{
		"rfc3339":   "2024-04-01T08:30:00Z",
		"timestamp": map[string]interface{}{"seconds": json.Number("1711960200"), "nanoseconds": json.Number("0")},
	}
	for name, date := range dates {
		t.Run(name, func(t *testing.T) {
			e, err := DecodeExpense(doc(storage.Fields{FieldAmount: 1.5, FieldCategory: "c", FieldDate: date}))
			require.NoError(t, err)
			assert.True(t, want.Equal(e.Date))
		})
	}
}

func TestDecodeExpense_ReportsCorruptRecords(t *testing.T) {
	date := time.Now()
	cases := map[string]struct {
		fields storage.Fields
		field  string
	}{
		"non-numeric amount": {storage.Fields{FieldAmount: "ten", FieldCategory: "c", FieldDate: date}, FieldAmount},
		"missing amount":     {storage.Fields{FieldCategory: "c", FieldDate: date}, FieldAmount},
		"negative amount":    {storage.Fields{FieldAmount: -3.0, FieldCategory: "c", FieldDate: date}, FieldAmount},
		"nan amount":         {storage.Fields{FieldAmount: math.NaN(), FieldCategory: "c", FieldDate: date}, FieldAmount},
		"bool amount":        {storage.Fields{FieldAmount: true, FieldCategory: "c", FieldDate: date}, FieldAmount},
		"missing category":   {storage.Fields{FieldAmount: 3.0, FieldDate: date}, FieldCategory},
		"bad date":           {storage.Fields{FieldAmount: 3.0, FieldCategory: "c", FieldDate: "yesterday"}, FieldDate},
		"missing date":       {storage.Fields{FieldAmount: 3.0, FieldCategory: "c"}, FieldDate},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeExpense(doc(tc.fields))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptRecord)

			var cre *CorruptRecordError
			require.ErrorAs(t, err, &cre)
			assert.Equal(t, tc.field, cre.Field)
			assert.Equal(t, "users/u1/expenses/e1", cre.Path)
		})
	}
}

func TestDecodeCategory(t *testing.T) {
	c, err := DecodeCategory(storage.Document{ID: "c1", Fields: storage.Fields{FieldName: "Food", FieldIcon: "fast-food"}})
	require.NoError(t, err)
	assert.Equal(t, expense.Category{ID: "c1", Name: "Food", Icon: "fast-food"}, c)

	_, err = DecodeCategory(storage.Document{ID: "c2", Fields: storage.Fields{FieldName: "  "}})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestDecodeProfile_Budget(t *testing.T) {
	p, err := DecodeProfile(storage.Document{ID: "u1", Fields: storage.Fields{FieldUsername: "ann", FieldBudget: "1200"}})
	require.NoError(t, err)
	assert.Equal(t, "ann", p.Username)
	assert.True(t, p.HasBudget())
	assert.Equal(t, "1200", p.Budget.String())

	p, err = DecodeProfile(storage.Document{ID: "u1", Fields: storage.Fields{FieldBudget: ""}})
	require.NoError(t, err)
	assert.False(t, p.HasBudget())

	p, err = DecodeProfile(storage.Document{ID: "u1", Fields: storage.Fields{FieldUsername: "bob", FieldBudget: "lots"}})
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, "bob", p.Username)
	assert.False(t, p.HasBudget())
}

func TestEncodeExpense_RoundTripsThroughDecode(t *testing.T) {
	e := expense.Expense{
		ID:       "e1",
		Name:     "taxi",
		Amount:   decimal.RequireFromString("12.35"),
		Category: "transport",
		Date:     time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
	}
	got, err := DecodeExpense(storage.Document{ID: "e1", Fields: EncodeExpense(e)})
	require.NoError(t, err)
	assert.True(t, e.Amount.Equal(got.Amount))
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Category, got.Category)
}
