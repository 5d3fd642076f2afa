// Package server exposes the ledger over HTTP. Callers identify
// themselves with the X-Requester header, which keys their pending
// duplicate confirmation and balance operations.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/metrics"
	"github.com/rustyeddy/tradebook/ocr"
)

const RequesterHeader = "X-Requester"

// MaxUpload bounds screenshot and batch bodies.
const MaxUpload = 16 << 20

type Server struct {
	ledger     *ledger.Ledger
	extractor  *extract.Extractor
	recognizer ocr.Recognizer
	loc        *time.Location
	engine     *gin.Engine
}

// New wires the routes. recognizer may be nil, in which case the
// screenshot endpoint answers 503.
func New(l *ledger.Ledger, ex *extract.Extractor, recognizer ocr.Recognizer, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		ledger:     l,
		extractor:  ex,
		recognizer: recognizer,
		loc:        loc,
		engine:     gin.New(),
	}
	s.engine.MaxMultipartMemory = MaxUpload
	s.engine.Use(gin.Recovery(), requestMetrics())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		trades := api.Group("/trades")
		{
			trades.GET("", s.listTrades)
			trades.POST("", requireRequester(), s.submitTrade)
			trades.DELETE("", s.clearTrades)
			trades.POST("/batch", s.importBatch)
			trades.POST("/screenshot", requireRequester(), s.submitScreenshot)
			trades.GET("/pending", requireRequester(), s.pending)
			trades.POST("/decision", requireRequester(), s.decide)
			trades.POST("/reindex", s.reindex)
			trades.GET("/:id", s.getTrade)
			trades.DELETE("/:id", s.deleteTrade)
		}

		stats := api.Group("/stats")
		{
			stats.GET("/totals", s.totals)
			stats.GET("/period", s.period)
			stats.GET("/daily", s.daily)
			stats.GET("/winrate", s.winRate)
			stats.GET("/equity", s.equity)
		}

		balance := api.Group("/balance")
		{
			balance.GET("", s.balance)
			balance.POST("/initial", requireRequester(), s.balanceOp(s.ledger.SetInitial))
			balance.POST("/deposit", requireRequester(), s.balanceOp(s.ledger.Deposit))
			balance.POST("/withdraw", requireRequester(), s.balanceOp(s.ledger.Withdraw))
		}
	}
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info(shutdownCtx, "http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
