package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/executor"
	"tradeflow/internal/strategy"
)

// Status is the run state exposed to HTTP readers. The run loop updates
// it after every bar.
type Status struct {
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Instrument string    `json:"instrument"`
	StartedAt  time.Time `json:"started_at"`
	LastBarAt  time.Time `json:"last_bar_at"`
	LastClose  float64   `json:"last_close"`
	Bars       int       `json:"bars"`
	Equity     float64   `json:"equity"`
	ProfitPct  float64   `json:"profit_pct"`
	MaxDDPct   float64   `json:"max_drawdown_pct"`
	Sharpe     float64   `json:"sharpe"`
	Side       string    `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	LastError  string    `json:"last_error,omitempty"`
}

// Server is a read-only status API for a running engine.
type Server struct {
	router *gin.Engine
	srv    *http.Server

	mu     sync.RWMutex
	status Status
}

// NewServer builds the HTTP layer.
func NewServer(sessionID, mode, instrument string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		router: r,
		status: Status{
			SessionID:  sessionID,
			Mode:       mode,
			Instrument: instrument,
			StartedAt:  time.Now().UTC(),
			Side:       strategy.Flat.String(),
		},
	}

	r.GET("/health", s.health)
	r.GET("/api/summary", s.summary)
	r.GET("/api/position", s.position)
	return s
}

// Update publishes the latest bar outcome to HTTP readers.
func (s *Server) Update(sum executor.Summary, pos strategy.Position, barTime time.Time, close float64, execErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastBarAt = barTime.UTC()
	s.status.LastClose = close
	s.status.Bars = sum.Bars
	s.status.Equity = sum.Equity
	s.status.ProfitPct = sum.ProfitPct
	s.status.MaxDDPct = sum.MaxDrawdown
	s.status.Sharpe = sum.Sharpe
	s.status.Side = pos.Side.String()
	s.status.Size = pos.Size
	s.status.EntryPrice = pos.Price
	if execErr != nil {
		s.status.LastError = execErr.Error()
	} else {
		s.status.LastError = ""
	}
}

func (s *Server) snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(s.snapshot().StartedAt).String()})
}

func (s *Server) summary(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) position(c *gin.Context) {
	st := s.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"side":        st.Side,
		"size":        st.Size,
		"entry_price": st.EntryPrice,
	})
}

// Start serves in the background until Shutdown.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{Addr: addr, Handler: s.router}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api: serve: %v", err)
		}
	}()
}

// Shutdown stops the listener, waiting briefly for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
