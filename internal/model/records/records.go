// Package records turns loosely typed store documents into strict entities.
// Anything that does not fit the schema is reported as a corrupt record and
// is expected to be quarantined by the caller instead of being trusted.
package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/entity/user"
	"max.ks1230/spending-tracker/internal/model/storage"
)

const (
	FieldName     = "name"
	FieldAmount   = "amount"
	FieldCategory = "category"
	FieldDate     = "date"
	FieldIcon     = "icon"
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldBudget   = "budget"
)

var ErrCorruptRecord = errors.New("corrupt record")

type CorruptRecordError struct {
	Path   string
	Field  string
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s: field %q %s", e.Path, e.Field, e.Reason)
}

func (e *CorruptRecordError) Unwrap() error {
	return ErrCorruptRecord
}

func corrupt(path, field, reason string) *CorruptRecordError {
	return &CorruptRecordError{Path: path, Field: field, Reason: reason}
}

func DecodeExpense(doc storage.Document) (expense.Expense, error) {
	amount, present, err := decimalField(doc.Fields, FieldAmount)
	if err != nil {
		return expense.Expense{}, corrupt(doc.Path, FieldAmount, err.Error())
	}
	if !present {
		return expense.Expense{}, corrupt(doc.Path, FieldAmount, "is missing")
	}
	if amount.IsNegative() {
		return expense.Expense{}, corrupt(doc.Path, FieldAmount, "is negative")
	}

	category, ok := doc.Fields[FieldCategory].(string)
	if !ok || strings.TrimSpace(category) == "" {
		return expense.Expense{}, corrupt(doc.Path, FieldCategory, "is missing")
	}

	date, err := timeField(doc.Fields, FieldDate)
	if err != nil {
		return expense.Expense{}, corrupt(doc.Path, FieldDate, err.Error())
	}

	name, _ := doc.Fields[FieldName].(string)

	return expense.Expense{
		ID:       doc.ID,
		Name:     name,
		Amount:   amount,
		Category: category,
		Date:     date,
	}, nil
}

func DecodeCategory(doc storage.Document) (expense.Category, error) {
	name, ok := doc.Fields[FieldName].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return expense.Category{}, corrupt(doc.Path, FieldName, "is missing")
	}
	icon, _ := doc.Fields[FieldIcon].(string)

	return expense.Category{ID: doc.ID, Name: name, Icon: icon}, nil
}

// DecodeProfile always returns the usable part of the profile. A malformed
// budget is reported but leaves the budget unset.
func DecodeProfile(doc storage.Document) (user.Profile, error) {
	p := user.Profile{ID: doc.ID}
	p.Username, _ = doc.Fields[FieldUsername].(string)
	p.Email, _ = doc.Fields[FieldEmail].(string)

	if s, ok := doc.Fields[FieldBudget].(string); ok && strings.TrimSpace(s) == "" {
		return p, nil
	}
	budget, _, err := decimalField(doc.Fields, FieldBudget)
	if err != nil {
		return p, corrupt(doc.Path, FieldBudget, err.Error())
	}
	if budget.IsNegative() {
		return p, corrupt(doc.Path, FieldBudget, "is negative")
	}
	p.Budget = budget
	return p, nil
}

func EncodeExpense(e expense.Expense) storage.Fields {
	return storage.Fields{
		FieldName:     e.Name,
		FieldAmount:   json.Number(e.Amount.String()),
		FieldCategory: e.Category,
		FieldDate:     e.Date,
	}
}

func EncodeCategory(c expense.Category) storage.Fields {
	return storage.Fields{
		FieldName: c.Name,
		FieldIcon: c.Icon,
	}
}

func EncodeBudget(budget decimal.Decimal) storage.Fields {
	return storage.Fields{FieldBudget: json.Number(budget.String())}
}

func decimalField(fields storage.Fields, name string) (decimal.Decimal, bool, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}

	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, true, errors.New("is not a finite number")
		}
		return decimal.NewFromFloat(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case json.Number:
		return parseDecimal(v.String())
	case string:
		return parseDecimal(v)
	}
	return decimal.Zero, true, errors.Errorf("has unsupported type %T", raw)
}

func parseDecimal(s string) (decimal.Decimal, bool, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, true, errors.Errorf("is not numeric: %q", s)
	}
	return d, true, nil
}

func timeField(fields storage.Fields, name string) (time.Time, error) {
	switch v := fields[name].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, errors.Errorf("is not a timestamp: %q", v)
		}
		return t, nil
	case map[string]interface{}:
		// {seconds, nanoseconds} as exported by hosted document stores
		secs, _, err := decimalField(v, "seconds")
		if err != nil || !secs.IsInteger() {
			return time.Time{}, errors.New("has invalid seconds")
		}
		nanos, _, err := decimalField(v, "nanoseconds")
		if err != nil {
			return time.Time{}, errors.New("has invalid nanoseconds")
		}
		return time.Unix(secs.IntPart(), nanos.IntPart()).UTC(), nil
	case nil:
		return time.Time{}, errors.New("is missing")
	}
	return time.Time{}, errors.Errorf("has unsupported type %T", fields[name])
}
