package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/ledger"
	"max.ks1230/spending-tracker/internal/model/reports"
)

const (
	dontUnderstandMessage = "I don't understand you :("
	helloMessage          = "Hello! I am your spending tracker bot 🤖\n" +
		"Add a category with /category, then log expenses with /expense."
	loveToTalkMessage = "I would love to talk about it more!"
	okMessage         = "Gotcha!"
	reportQueued      = "Preparing your report, it will arrive shortly"
	noCategories      = "You have no categories yet. Add one with /category <name> [icon]"

	incorrectUsageMessage     = "That is an incorrect command usage"
	incorrectDateMessage      = "The date is incorrect. Should be dd.mm.yyyy"
	incorrectPeriodMessage    = "The period is incorrect. Should be like %s"
	unknownCategoryMessage    = "There is no such category. See /categories"
	categoryExistsMessage     = "You already have a category with this name"
	cannotGetExpensesMessage  = "Can't get your expenses atm. Try later"
	cannotSaveExpenseMessage  = "Can't save your expense atm. Try later"
	cannotSaveCategoryMessage = "Can't save your category atm. Try later"
	cannotSaveBudgetMessage   = "Can't save your budget atm. Try later"
	reportFailedMessage       = "Can't build your report atm. Try later"
)

const (
	startCommand       = "/start"
	expenseCommand     = "/expense"
	categoryCommand    = "/category"
	delCategoryCommand = "/delcategory"
	categoriesCommand  = "/categories"
	budgetCommand      = "/budget"
	reportCommand      = "/report"

	defaultCategoryIcon = "🏷"
)

type expenseLedger interface {
	AddExpense(ctx context.Context, userID string, in ledger.NewExpense) (expense.Expense, error)
	AddCategory(ctx context.Context, userID, name, icon string) (expense.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) (int, error)
	Categories(ctx context.Context, userID string) ([]expense.Category, error)
	CategoryByName(ctx context.Context, userID, name string) (expense.Category, error)
	SetBudget(ctx context.Context, userID, raw string) (decimal.Decimal, error)
}

type reportBuilder interface {
	Period(year int, month time.Month) aggregator.Period
	Report(ctx context.Context, userID string, period aggregator.Period) (string, error)
}

type reportRequester interface {
	RequestReport(ctx context.Context, req reports.ReportRequest) error
}

type config interface {
	CurrencySymbol() string
	Location() *time.Location
	MonthLayout() string
}

type handler func(ctx context.Context, arg string, userID int64) (string, error)

type handlerMap map[string]handler

type HandlerService struct {
	handlersMap handlerMap
	ledger      expenseLedger
	reports     reportBuilder
	requester   reportRequester
	config      config
}

// newHandler wires the commands. requester may be nil, then reports are built
// in place instead of going through the broker.
func newHandler(ledger expenseLedger, reports reportBuilder, requester reportRequester, config config) *HandlerService {
	res := &HandlerService{
		ledger:    ledger,
		reports:   reports,
		requester: requester,
		config:    config,
	}
	res.handlersMap = newMap(res)
	return res
}

func newMap(s *HandlerService) handlerMap {
	m := make(handlerMap)
	m[startCommand] = s.handleStart
	m[expenseCommand] = s.handleExpense
	m[categoryCommand] = s.handleCategory
	m[delCategoryCommand] = s.handleDeleteCategory
	m[categoriesCommand] = s.handleCategories
	m[budgetCommand] = s.handleBudget
	m[reportCommand] = s.handleReport

	m[""] = s.handleNoCommand

	return m
}

func (s *HandlerService) HandleMessage(ctx context.Context, text string, userID int64) (string, error) {
	cmd, arg := parseCommand(text)

	handler, ok := s.handlersMap[cmd]
	if ok {
		return handler(ctx, arg, userID)
	}
	return dontUnderstandMessage, nil
}

// commandLabel keeps metric labels bounded to the known commands.
func (s *HandlerService) commandLabel(text string) string {
	cmd, _ := parseCommand(text)
	if _, ok := s.handlersMap[cmd]; ok && cmd != "" {
		return cmd
	}
	return "other"
}

func (s *HandlerService) handleStart(_ context.Context, _ string, _ int64) (string, error) {
	return helloMessage, nil
}

// handleExpense parses "<category> <amount> [dd.mm.yyyy] [name...]". The
// category may span several words; it ends at the first number that follows
// the name of an existing category.
func (s *HandlerService) handleExpense(ctx context.Context, arg string, userID int64) (string, error) {
	args := strings.Fields(arg)
	if len(args) < 2 {
		return incorrectUsageMessage, nil
	}

	uid := userKey(userID)
	category, at, err := s.splitCategory(ctx, uid, args)
	if errors.Is(err, errNoAmount) {
		return incorrectUsageMessage, nil
	}
	if errors.Is(err, ledger.ErrNotFound) {
		return unknownCategoryMessage, nil
	}
	if err != nil {
		return cannotGetExpensesMessage, errors.Wrap(err, "handle expense")
	}

	in := ledger.NewExpense{Amount: args[at], Category: category.ID}
	rest := args[at+1:]
	if len(rest) > 0 {
		date, err := time.ParseInLocation(dateLayout, rest[0], s.config.Location())
		if err == nil {
			in.Date = date
			rest = rest[1:]
		} else if looksLikeDate(rest[0]) {
			return incorrectDateMessage, nil
		}
	}
	in.Name = strings.Join(rest, " ")
	if in.Name == "" {
		in.Name = category.Name
	}

	_, err = s.ledger.AddExpense(ctx, uid, in)
	if msg, ok := validationMessage(err); ok {
		return msg, nil
	}
	if err != nil {
		return cannotSaveExpenseMessage, errors.Wrap(err, "handle expense")
	}
	return okMessage, nil
}

var errNoAmount = errors.New("no amount given")

// splitCategory finds the category named by the words before an amount and
// returns the index of that amount in args.
func (s *HandlerService) splitCategory(ctx context.Context, userID string, args []string) (expense.Category, int, error) {
	found := false
	for i := 1; i < len(args); i++ {
		if _, err := decimal.NewFromString(args[i]); err != nil {
			continue
		}
		found = true
		category, err := s.ledger.CategoryByName(ctx, userID, strings.Join(args[:i], " "))
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		return category, i, err
	}
	if !found {
		return expense.Category{}, 0, errNoAmount
	}
	return expense.Category{}, 0, ledger.ErrNotFound
}

// hasWordRunes tells a trailing word of a category name from an icon.
func hasWordRunes(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func looksLikeDate(s string) bool {
	return strings.Count(s, ".") == 2
}

func (s *HandlerService) handleCategory(ctx context.Context, arg string, userID int64) (string, error) {
	args := strings.Fields(arg)
	if len(args) == 0 {
		return incorrectUsageMessage, nil
	}
	icon := defaultCategoryIcon
	if last := args[len(args)-1]; len(args) > 1 && !hasWordRunes(last) {
		icon = last
		args = args[:len(args)-1]
	}
	name := strings.Join(args, " ")

	_, err := s.ledger.AddCategory(ctx, userKey(userID), name, icon)
	if errors.Is(err, ledger.ErrCategoryExists) {
		return categoryExistsMessage, nil
	}
	if msg, ok := validationMessage(err); ok {
		return msg, nil
	}
	if err != nil {
		return cannotSaveCategoryMessage, errors.Wrap(err, "handle category")
	}
	return okMessage, nil
}

func (s *HandlerService) handleDeleteCategory(ctx context.Context, arg string, userID int64) (string, error) {
	if arg == "" {
		return incorrectUsageMessage, nil
	}
	uid := userKey(userID)
	category, err := s.ledger.CategoryByName(ctx, uid, arg)
	if errors.Is(err, ledger.ErrNotFound) {
		return unknownCategoryMessage, nil
	}
	if err != nil {
		return cannotSaveCategoryMessage, errors.Wrap(err, "handle delete category")
	}

	removed, err := s.ledger.DeleteCategory(ctx, uid, category.ID)
	if err != nil {
		return cannotSaveCategoryMessage, errors.Wrap(err, "handle delete category")
	}
	return fmt.Sprintf("Deleted %s %s and %d expense(s) in it", category.Icon, category.Name, removed), nil
}

func (s *HandlerService) handleCategories(ctx context.Context, _ string, userID int64) (string, error) {
	categories, err := s.ledger.Categories(ctx, userKey(userID))
	if err != nil {
		return cannotGetExpensesMessage, errors.Wrap(err, "handle categories")
	}
	if len(categories) == 0 {
		return noCategories, nil
	}
	res := make([]string, 0, len(categories))
	for _, c := range categories {
		res = append(res, c.Icon+" "+c.Name)
	}
	return strings.Join(res, "\n"), nil
}

func (s *HandlerService) handleBudget(ctx context.Context, arg string, userID int64) (string, error) {
	budget, err := s.ledger.SetBudget(ctx, userKey(userID), arg)
	if msg, ok := validationMessage(err); ok {
		return msg, nil
	}
	if err != nil {
		return cannotSaveBudgetMessage, errors.Wrap(err, "handle budget")
	}
	return fmt.Sprintf("Monthly budget set to %s %s", s.config.CurrencySymbol(), budget.StringFixed(2)), nil
}

func (s *HandlerService) handleReport(ctx context.Context, arg string, userID int64) (string, error) {
	year, month, err := parsePeriod(arg, s.config.MonthLayout(), s.config.Location())
	if err != nil {
		return fmt.Sprintf(incorrectPeriodMessage, s.config.MonthLayout()), nil
	}

	if s.requester != nil {
		err = s.requester.RequestReport(ctx, reports.ReportRequest{UserID: userKey(userID), Year: year, Month: month})
		if err != nil {
			return reportFailedMessage, errors.Wrap(err, "handle report")
		}
		return reportQueued, nil
	}

	text, err := s.reports.Report(ctx, userKey(userID), s.reports.Period(year, month))
	if err != nil {
		return reportFailedMessage, errors.Wrap(err, "handle report")
	}
	return text, nil
}

func (s *HandlerService) handleNoCommand(_ context.Context, _ string, _ int64) (string, error) {
	return loveToTalkMessage, nil
}

func validationMessage(err error) (string, bool) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		return verr.Message, true
	}
	return "", false
}
