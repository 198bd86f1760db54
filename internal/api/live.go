package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/aggregator"
	"max.ks1230/spending-tracker/internal/model/gateway"
)

const (
	keyUserID = "userID"
	keyPeriod = "period"

	maxMessageSize = 1024
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
)

type changeFeed interface {
	SubscribeAll() (<-chan gateway.Change, func())
}

type watch struct {
	period   aggregator.Period
	sessions int
}

// live pushes a fresh dashboard to every websocket watching a user whenever
// that user's records change.
type live struct {
	m          *melody.Melody
	dashboards dashboardSource

	mu      sync.Mutex
	watched map[string]map[string]*watch
}

func newLive(dashboards dashboardSource) *live {
	m := melody.New()
	m.Config.MaxMessageSize = maxMessageSize
	m.Config.PingPeriod = pingPeriod
	m.Config.PongWait = pongWait

	l := &live{
		m:          m,
		dashboards: dashboards,
		watched:    make(map[string]map[string]*watch),
	}
	m.HandleConnect(l.connect)
	m.HandleDisconnect(l.disconnect)
	m.HandleError(func(s *melody.Session, err error) {
		logger.Warn("websocket error", zap.Error(err))
	})
	return l
}

func (l *live) handle(h *handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, err := h.period(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		err = l.m.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
			keyUserID: c.Param(paramUserID),
			keyPeriod: period,
		})
		if err != nil {
			logger.Error("failed to upgrade websocket", zap.Error(err))
		}
	}
}

func sessionWatch(s *melody.Session) (string, aggregator.Period, bool) {
	rawUser, ok := s.Get(keyUserID)
	if !ok {
		return "", aggregator.Period{}, false
	}
	rawPeriod, ok := s.Get(keyPeriod)
	if !ok {
		return "", aggregator.Period{}, false
	}
	userID, ok := rawUser.(string)
	if !ok {
		return "", aggregator.Period{}, false
	}
	period, ok := rawPeriod.(aggregator.Period)
	return userID, period, ok
}

func (l *live) connect(s *melody.Session) {
	userID, period, ok := sessionWatch(s)
	if !ok {
		return
	}

	l.mu.Lock()
	periods, ok := l.watched[userID]
	if !ok {
		periods = make(map[string]*watch)
		l.watched[userID] = periods
	}
	w, ok := periods[period.String()]
	if !ok {
		w = &watch{period: period}
		periods[period.String()] = w
	}
	w.sessions++
	l.mu.Unlock()

	logger.Info("live dashboard connected", zap.String("userID", userID), zap.String("period", period.String()))
	msg, err := l.render(context.Background(), userID, period)
	if err != nil {
		logger.Error("failed to render live dashboard", zap.Error(err), zap.String("userID", userID))
		return
	}
	if err = s.Write(msg); err != nil {
		logger.Warn("failed to write live dashboard", zap.Error(err))
	}
}

func (l *live) disconnect(s *melody.Session) {
	userID, period, ok := sessionWatch(s)
	if !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	periods := l.watched[userID]
	if w, ok := periods[period.String()]; ok {
		w.sessions--
		if w.sessions <= 0 {
			delete(periods, period.String())
		}
	}
	if len(periods) == 0 {
		delete(l.watched, userID)
	}
}

func (l *live) render(ctx context.Context, userID string, period aggregator.Period) ([]byte, error) {
	d, err := l.dashboards.Dashboard(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	return json.Marshal(newDashboardResponse(d))
}

func (l *live) periods(userID string) []aggregator.Period {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]aggregator.Period, 0, len(l.watched[userID]))
	for _, w := range l.watched[userID] {
		res = append(res, w.period)
	}
	return res
}

// Run rebroadcasts dashboards until ctx is done.
func (l *live) Run(ctx context.Context, feed changeFeed) {
	changes, cancel := feed.SubscribeAll()
	defer cancel()
	l.listen(ctx, changes)
}

func (l *live) listen(ctx context.Context, changes <-chan gateway.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			l.push(ctx, c.UserID)
		}
	}
}

func (l *live) push(ctx context.Context, userID string) {
	for _, period := range l.periods(userID) {
		msg, err := l.render(ctx, userID, period)
		if err != nil {
			logger.Error("failed to render live dashboard", zap.Error(err), zap.String("userID", userID))
			continue
		}
		key := period.String()
		err = l.m.BroadcastFilter(msg, func(s *melody.Session) bool {
			uid, p, ok := sessionWatch(s)
			return ok && uid == userID && p.String() == key
		})
		if err != nil {
			logger.Warn("failed to broadcast live dashboard", zap.Error(err))
		}
	}
}

func (l *live) Close() error {
	return l.m.Close()
}
