// Package ledger is the write side: every change to a user's records goes
// through it so that input rules hold and subscribers hear about it.
package ledger

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/records"
	"max.ks1230/spending-tracker/internal/model/storage"
)

const (
	maxExpenseName = 30
	maxNickname    = 20
	maxBudgetDigit = 8
)

var plainAmount = regexp.MustCompile(`^\d+(\.\d+)?$`)

type documentStore interface {
	Get(ctx context.Context, path string) (storage.Document, error)
	Set(ctx context.Context, path string, fields storage.Fields) error
	Merge(ctx context.Context, path string, fields storage.Fields) error
	Add(ctx context.Context, collection string, fields storage.Fields) (storage.Document, error)
	Delete(ctx context.Context, path string) error
	DeleteAll(ctx context.Context, paths ...string) (int, error)
	Query(ctx context.Context, q storage.Query) ([]storage.Document, error)
}

type changePublisher interface {
	Publish(c gateway.Change)
}

type NewExpense struct {
	Name     string
	Amount   string
	Category string
	// Date defaults to the current time when zero.
	Date time.Time
}

// ExpenseEdit changes only the non-nil fields.
type ExpenseEdit struct {
	Name     *string
	Amount   *string
	Category *string
	Date     *time.Time
}

type Service struct {
	store     documentStore
	publisher changePublisher
	clock     func() time.Time

	// serializes category name checks with inserts
	categoryMu sync.Mutex
}

func New(store documentStore, publisher changePublisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		clock:     time.Now,
	}
}

func (s *Service) AddExpense(ctx context.Context, userID string, in NewExpense) (expense.Expense, error) {
	if in.Date.IsZero() {
		in.Date = s.clock()
	}
	e, err := s.validExpense(ctx, userID, in.Name, in.Amount, in.Category, in.Date)
	if err != nil {
		return expense.Expense{}, err
	}

	doc, err := s.store.Add(ctx, storage.ExpensesPath(userID), records.EncodeExpense(e))
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "add expense")
	}
	e.ID = doc.ID

	logger.Info("expense added", zap.String("userID", userID), zap.String("expenseID", e.ID))
	s.publish(userID, gateway.ExpenseChanged, e.ID, false)
	return e, nil
}

func (s *Service) EditExpense(ctx context.Context, userID, expenseID string, edit ExpenseEdit) (expense.Expense, error) {
	path := storage.DocPath(storage.ExpensesPath(userID), expenseID)
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "edit expense")
	}
	current, err := records.DecodeExpense(doc)
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "edit expense")
	}

	name, amount, category, date := current.Name, current.Amount.String(), current.Category, current.Date
	if edit.Name != nil {
		name = *edit.Name
	}
	if edit.Amount != nil {
		amount = *edit.Amount
	}
	if edit.Category != nil {
		category = *edit.Category
	}
	if edit.Date != nil {
		date = *edit.Date
	}

	e, err := s.validExpense(ctx, userID, name, amount, category, date)
	if err != nil {
		return expense.Expense{}, err
	}
	e.ID = expenseID

	if err = s.store.Set(ctx, path, records.EncodeExpense(e)); err != nil {
		return expense.Expense{}, errors.Wrap(err, "edit expense")
	}
	s.publish(userID, gateway.ExpenseChanged, expenseID, false)
	return e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	err := s.store.Delete(ctx, storage.DocPath(storage.ExpensesPath(userID), expenseID))
	if err != nil {
		return errors.Wrap(err, "delete expense")
	}
	s.publish(userID, gateway.ExpenseChanged, expenseID, true)
	return nil
}

func (s *Service) AddCategory(ctx context.Context, userID, name, icon string) (expense.Category, error) {
	name, icon = strings.TrimSpace(name), strings.TrimSpace(icon)
	if name == "" || icon == "" {
		return expense.Category{}, invalid(records.FieldName, completeFieldsMessage)
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	if _, err := s.CategoryByName(ctx, userID, name); err == nil {
		return expense.Category{}, ErrCategoryExists
	} else if !errors.Is(err, ErrNotFound) {
		return expense.Category{}, errors.Wrap(err, "add category")
	}

	c := expense.Category{Name: name, Icon: icon}
	doc, err := s.store.Add(ctx, storage.CategoriesPath(userID), records.EncodeCategory(c))
	if err != nil {
		return expense.Category{}, errors.Wrap(err, "add category")
	}
	c.ID = doc.ID

	logger.Info("category added", zap.String("userID", userID), zap.String("categoryID", c.ID))
	s.publish(userID, gateway.CategoryChanged, c.ID, false)
	return c, nil
}

// DeleteCategory removes the category and every expense filed under it. It
// returns how many expenses went with it.
func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID string) (int, error) {
	err := s.store.Delete(ctx, storage.DocPath(storage.CategoriesPath(userID), categoryID))
	if err != nil {
		return 0, errors.Wrap(err, "delete category")
	}
	s.publish(userID, gateway.CategoryChanged, categoryID, true)

	docs, err := s.store.Query(ctx, storage.Query{
		Collection: storage.ExpensesPath(userID),
		Where:      []storage.Eq{{Field: records.FieldCategory, Value: categoryID}},
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete category expenses")
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}

	removed, err := s.store.DeleteAll(ctx, paths...)
	if err != nil {
		return removed, errors.Wrap(err, "delete category expenses")
	}

	logger.Info("category deleted",
		zap.String("userID", userID),
		zap.String("categoryID", categoryID),
		zap.Int("expenses", removed))
	if removed > 0 {
		s.publish(userID, gateway.ExpenseChanged, "", true)
	}
	return removed, nil
}

func (s *Service) Categories(ctx context.Context, userID string) ([]expense.Category, error) {
	docs, err := s.store.Query(ctx, storage.Query{
		Collection: storage.CategoriesPath(userID),
		OrderBy:    records.FieldName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get categories")
	}
	res := make([]expense.Category, 0, len(docs))
	for _, d := range docs {
		c, err := records.DecodeCategory(d)
		if err != nil {
			continue
		}
		res = append(res, c)
	}
	return res, nil
}

// CategoryByName matches names case-insensitively after trimming spaces.
func (s *Service) CategoryByName(ctx context.Context, userID, name string) (expense.Category, error) {
	categories, err := s.Categories(ctx, userID)
	if err != nil {
		return expense.Category{}, err
	}
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c, nil
		}
	}
	return expense.Category{}, ErrNotFound
}

func (s *Service) SetBudget(ctx context.Context, userID, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, invalid(records.FieldBudget, enterBudgetMessage)
	}
	if countDigits(raw) > maxBudgetDigit {
		return decimal.Zero, invalid(records.FieldBudget, budgetDigitsMessage)
	}
	if !plainAmount.MatchString(raw) {
		return decimal.Zero, invalid(records.FieldBudget, budgetNumberMessage)
	}
	budget, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid(records.FieldBudget, budgetNumberMessage)
	}

	if err = s.store.Merge(ctx, storage.UserPath(userID), records.EncodeBudget(budget)); err != nil {
		return decimal.Zero, errors.Wrap(err, "set budget")
	}
	s.publish(userID, gateway.ProfileChanged, userID, false)
	return budget, nil
}

func (s *Service) SetUsername(ctx context.Context, userID, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid(records.FieldUsername, enterNicknameMessage)
	}
	if name != strings.TrimSpace(name) {
		return invalid(records.FieldUsername, nicknameSpacesMessage)
	}
	if utf8.RuneCountInString(name) > maxNickname {
		return invalid(records.FieldUsername, nicknameTooLongMessage)
	}

	err := s.store.Merge(ctx, storage.UserPath(userID), storage.Fields{records.FieldUsername: name})
	if err != nil {
		return errors.Wrap(err, "set username")
	}
	s.publish(userID, gateway.ProfileChanged, userID, false)
	return nil
}

func (s *Service) validExpense(ctx context.Context, userID, name, rawAmount, categoryID string, date time.Time) (expense.Expense, error) {
	name, rawAmount = strings.TrimSpace(name), strings.TrimSpace(rawAmount)
	if name == "" || rawAmount == "" || categoryID == "" {
		return expense.Expense{}, invalid(records.FieldName, fillAllFieldsMessage)
	}
	if utf8.RuneCountInString(name) > maxExpenseName {
		return expense.Expense{}, invalid(records.FieldName, expenseNameLongMessage)
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() {
		return expense.Expense{}, invalid(records.FieldAmount, amountMessage)
	}

	if date.After(now.With(s.clock().In(date.Location())).EndOfDay()) {
		return expense.Expense{}, invalid(records.FieldDate, futureDateMessage)
	}

	_, err = s.store.Get(ctx, storage.DocPath(storage.CategoriesPath(userID), categoryID))
	if errors.Is(err, storage.ErrNotFound) {
		return expense.Expense{}, invalid(records.FieldCategory, unknownCategoryMessage)
	}
	if err != nil {
		return expense.Expense{}, errors.Wrap(err, "check category")
	}

	return expense.Expense{
		Name:     name,
		Amount:   amount,
		Category: categoryID,
		Date:     date,
	}, nil
}

func (s *Service) publish(userID string, kind gateway.ChangeKind, docID string, deleted bool) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(gateway.Change{
		UserID:     userID,
		Kind:       kind,
		DocumentID: docID,
		Deleted:    deleted,
	})
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
