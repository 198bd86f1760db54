// Package api serves dashboards and record edits over HTTP, with a websocket
// that keeps a dashboard up to date.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	corsMaxAge        = 12 * time.Hour
)

type config interface {
	Addr() string
	AllowedOrigins() []string
}

type locationConfig interface {
	Location() *time.Location
}

type Server struct {
	engine *gin.Engine
	live   *live
	feed   changeFeed
	addr   string
}

type gatewayService interface {
	snapshotSource
	changeFeed
}

func New(config config, app locationConfig, ledger expenseLedger, dashboards dashboardSource, gw gatewayService) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), observeRequests())

	if origins := config.AllowedOrigins(); len(origins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        corsMaxAge,
		}))
	}

	h := &handlers{
		ledger:     ledger,
		dashboards: dashboards,
		snapshots:  gw,
		location:   app.Location(),
	}
	l := newLive(dashboards)

	users := engine.Group("/users/:" + paramUserID)
	{
		users.GET("/dashboard", h.getDashboard)
		users.GET("/snapshot", h.getSnapshot)
		users.GET("/live", l.handle(h))

		users.POST("/expenses", h.addExpense)
		users.PUT("/expenses/:"+paramID, h.editExpense)
		users.DELETE("/expenses/:"+paramID, h.deleteExpense)

		users.POST("/categories", h.addCategory)
		users.DELETE("/categories/:"+paramID, h.deleteCategory)

		users.PUT("/budget", h.setBudget)
		users.PUT("/profile", h.setProfile)
	}
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	return &Server{
		engine: engine,
		live:   l,
		feed:   gw,
		addr:   config.Addr(),
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go s.live.Run(ctx, s.feed)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.live.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.live.Close(); err != nil {
		logger.Warn("failed to close websockets", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	logger.Info("http server stopped")
	return nil
}
