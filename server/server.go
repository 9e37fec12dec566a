package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeu5/qfuzz/analysis"
	"github.com/zeu5/qfuzz/store"
	"golang.org/x/exp/rand"
)

type Config struct {
	Addr string
	// Policy and Results are optional, their routes are only served when set
	Policy   *store.PolicyStore
	Results  *store.ResultsLog
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server exposes the persisted state of a trainer over HTTP. It never writes
// to the policy or results files.
type Server struct {
	config *Config
	server *http.Server
	logger *slog.Logger
}

func NewServer(config *Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	if config.Policy != nil {
		r.GET("/states", s.handleStates)
	}
	if config.Results != nil {
		r.GET("/results", s.handleResults)
	}
	if config.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	}
	s.server = &http.Server{
		Addr:              config.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in the background until ctx is done
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info("serving", slog.String("addr", s.config.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.server.Shutdown(ctx)
}

func (s *Server) handleStates(c *gin.Context) {
	top, err := strconv.Atoi(c.DefaultQuery("top", "20"))
	if err != nil || top < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a non negative integer"})
		return
	}
	space, err := s.config.Policy.Load(rand.New(rand.NewSource(0)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis.SummarizePolicy(space, top))
}

func (s *Server) handleResults(c *gin.Context) {
	records, err := s.config.Results.Read()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": analysis.SummarizeResults(records),
		"results": records,
	})
}
