package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"max.ks1230/spending-tracker/internal/entity/expense"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/ledger"
	"max.ks1230/spending-tracker/internal/model/reports"
)

const (
	dateLayout = "2006-01-02"

	paramUserID = "uid"
	paramID     = "id"
)

type expenseLedger interface {
	AddExpense(ctx context.Context, userID string, in ledger.NewExpense) (expense.Expense, error)
	EditExpense(ctx context.Context, userID, expenseID string, edit ledger.ExpenseEdit) (expense.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
	AddCategory(ctx context.Context, userID, name, icon string) (expense.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) (int, error)
	SetBudget(ctx context.Context, userID, raw string) (decimal.Decimal, error)
	SetUsername(ctx context.Context, userID, name string) error
}

type dashboardSource interface {
	Period(year int, month time.Month) aggregator.Period
	Dashboard(ctx context.Context, userID string, period aggregator.Period) (*reports.Dashboard, error)
}

type snapshotSource interface {
	Snapshot(ctx context.Context, userID string) (gateway.Snapshot, error)
}

type handlers struct {
	ledger     expenseLedger
	dashboards dashboardSource
	snapshots  snapshotSource
	location   *time.Location
}

type expenseRequest struct {
	Name     string      `json:"name"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

type expenseEditRequest struct {
	Name     *string      `json:"name"`
	Amount   *json.Number `json:"amount"`
	Category *string      `json:"category"`
	Date     *string      `json:"date"`
}

type categoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type budgetRequest struct {
	Budget json.Number `json:"budget"`
}

type profileRequest struct {
	Username string `json:"username"`
}

// period reads the month and year query parameters; without either the
// current month is used.
func (h *handlers) period(c *gin.Context) (aggregator.Period, error) {
	rawYear, rawMonth := c.Query("year"), c.Query("month")
	if rawYear == "" {
		if rawMonth != "" {
			return aggregator.Period{}, errors.New("month needs a year")
		}
		return h.dashboards.Period(0, 0), nil
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year <= 0 {
		return aggregator.Period{}, errors.New("year must be a positive number")
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < int(time.January) || month > int(time.December) {
		return aggregator.Period{}, errors.New("month must be between 1 and 12")
	}
	return h.dashboards.Period(year, time.Month(month)), nil
}

// parseDate accepts a calendar day or a full RFC 3339 timestamp. An empty
// value stays zero so that the ledger picks the current time.
func (h *handlers) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, h.location); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("date must look like %s", dateLayout)
	}
	return t, nil
}

func (h *handlers) getDashboard(c *gin.Context) {
	period, err := h.period(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.dashboards.Dashboard(c.Request.Context(), c.Param(paramUserID), period)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDashboardResponse(d))
}

func (h *handlers) getSnapshot(c *gin.Context) {
	snap, err := h.snapshots.Snapshot(c.Request.Context(), c.Param(paramUserID))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

func (h *handlers) addExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	e, err := h.ledger.AddExpense(c.Request.Context(), c.Param(paramUserID), ledger.NewExpense{
		Name:     req.Name,
		Amount:   req.Amount.String(),
		Category: req.Category,
		Date:     date,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExpenseResponse(e))
}

func (h *handlers) editExpense(c *gin.Context) {
	var req expenseEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	edit := ledger.ExpenseEdit{Name: req.Name, Category: req.Category}
	if req.Amount != nil {
		amount := req.Amount.String()
		edit.Amount = &amount
	}
	if req.Date != nil {
		date, err := h.parseDate(*req.Date)
		if err != nil || date.IsZero() {
			badRequest(c, "date must look like "+dateLayout)
			return
		}
		edit.Date = &date
	}

	e, err := h.ledger.EditExpense(c.Request.Context(), c.Param(paramUserID), c.Param(paramID), edit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExpenseResponse(e))
}

func (h *handlers) deleteExpense(c *gin.Context) {
	err := h.ledger.DeleteExpense(c.Request.Context(), c.Param(paramUserID), c.Param(paramID))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) addCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	category, err := h.ledger.AddCategory(c.Request.Context(), c.Param(paramUserID), req.Name, req.Icon)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(category))
}

func (h *handlers) deleteCategory(c *gin.Context) {
	removed, err := h.ledger.DeleteCategory(c.Request.Context(), c.Param(paramUserID), c.Param(paramID))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedExpenses": removed})
}

func (h *handlers) setBudget(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	budget, err := h.ledger.SetBudget(c.Request.Context(), c.Param(paramUserID), req.Budget.String())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

func (h *handlers) setProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.ledger.SetUsername(c.Request.Context(), c.Param(paramUserID), req.Username); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}
