package reports

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/gateway"
)

const seriesMonthOnly = "month-only"

type snapshotSource interface {
	Snapshot(ctx context.Context, userID string) (gateway.Snapshot, error)
}

type reportCache interface {
	ReportKey(userID string, option string) (string, error)
	GetReport(key string) (string, error)
	CacheReport(key string, report string) error
	InvalidateCache(userID string) error
}

type config interface {
	CurrencySymbol() string
	SeriesMode() string
	Location() *time.Location
}

type Generator struct {
	source   snapshotSource
	cache    reportCache
	symbol   string
	mode     aggregator.SeriesMode
	location *time.Location
}

// NewGenerator builds a generator. cache may be nil, then every report is
// computed from a fresh snapshot.
func NewGenerator(config config, source snapshotSource, cache reportCache) *Generator {
	mode := aggregator.MatchYearMonth
	if config.SeriesMode() == seriesMonthOnly {
		mode = aggregator.MatchMonthOnly
	}
	return &Generator{
		source:   source,
		cache:    cache,
		symbol:   config.CurrencySymbol(),
		mode:     mode,
		location: config.Location(),
	}
}

// Period returns the reporting month for year and month in the configured
// location. A zero year means the current month.
func (g *Generator) Period(year int, month time.Month) aggregator.Period {
	if year == 0 {
		return aggregator.PeriodOf(time.Now().In(g.location))
	}
	return aggregator.NewPeriod(year, month, g.location)
}

func (g *Generator) Dashboard(ctx context.Context, userID string, period aggregator.Period) (*Dashboard, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dashboard")
	defer span.Finish()
	span.SetTag("period", period.String())

	start := time.Now()
	snap, err := g.source.Snapshot(ctx, userID)
	if err != nil {
		ext.Error.Set(span, true)
		observeGeneration(time.Since(start), true)
		return nil, errors.Wrap(err, "dashboard")
	}

	d := Build(snap, period, g.mode)
	observeGeneration(time.Since(start), false)
	return d, nil
}

// Build computes the dashboard of a snapshot without touching any store.
func Build(snap gateway.Snapshot, period aggregator.Period, mode aggregator.SeriesMode) *Dashboard {
	d := &Dashboard{
		UserID: snap.UserID,
		Period: period,
		Loaded: snap.Loaded,
		Budget: snap.Profile.Budget,
	}
	for _, q := range snap.Quarantined {
		d.Warnings = append(d.Warnings, q.Error())
	}

	expenses := snap.Expenses
	d.Spent = aggregator.MonthTotal(expenses, period)
	d.Overspend = aggregator.Overspend(d.Spent, d.Budget)

	pct, err := aggregator.BudgetPercentage(d.Spent, d.Budget)
	if err == nil {
		d.HasBudget = true
		d.Percentage = pct
	}

	start, _ := period.Bounds()
	d.Series = aggregator.RollingSixMonthSeries(expenses, start, mode)
	d.Breakdown = aggregator.SortedBreakdown(
		aggregator.CategoryBreakdown(expenses, snap.Categories, period),
		snap.Categories,
	)
	d.Expenses = aggregator.InMonth(expenses, period)
	return d
}

// Report renders the dashboard as text, going through the cache when one is
// configured. The cache key is fixed before the snapshot is read, so a write
// landing in between leaves the stored text unreachable.
func (g *Generator) Report(ctx context.Context, userID string, period aggregator.Period) (string, error) {
	key := g.cacheKey(userID, period)
	if key != "" {
		cached, err := g.cache.GetReport(key)
		if err == nil {
			return cached, nil
		}
	}

	d, err := g.Dashboard(ctx, userID, period)
	if err != nil {
		return "", err
	}
	text := Render(d, g.symbol)

	if key != "" {
		if err = g.cache.CacheReport(key, text); err != nil {
			logger.Error("failed to cache report", zap.Error(err), zap.String("userID", userID))
		}
	}
	return text, nil
}

func (g *Generator) cacheKey(userID string, period aggregator.Period) string {
	if g.cache == nil {
		return ""
	}
	key, err := g.cache.ReportKey(userID, period.String())
	if err != nil {
		logger.Error("failed to resolve report key", zap.Error(err), zap.String("userID", userID))
		return ""
	}
	return key
}

// GenerateReport is the entry point of report requests coming from the broker.
func (g *Generator) GenerateReport(ctx context.Context, req ReportRequest) (report ReportResult, err error) {
	logger.Info("GenerateReport - start", zap.String("userID", req.UserID), zap.Int("year", req.Year), zap.Int("month", int(req.Month)))
	defer logger.Info("GenerateReport - end")

	period := g.Period(req.Year, req.Month)
	defer func() {
		report.UserID = req.UserID
		report.Period = period.String()
		report.Success = err == nil
		if err != nil {
			report.Error = err.Error()
		}
	}()

	report.Text, err = g.Report(ctx, req.UserID, period)
	return report, err
}

// WatchChanges drops cached reports of users whose records changed.
func (g *Generator) WatchChanges(ctx context.Context, changes <-chan gateway.Change) {
	if g.cache == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := g.cache.InvalidateCache(c.UserID); err != nil {
				logger.Error("failed to invalidate cache", zap.Error(err), zap.String("userID", c.UserID))
			}
		}
	}
}
