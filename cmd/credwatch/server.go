package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/credwatch/credwatch/cohort"
	"github.com/credwatch/credwatch/credibility"
	"github.com/credwatch/credwatch/profile"
	"github.com/credwatch/credwatch/profile/redisprofile"
	"github.com/credwatch/credwatch/scanner"
	"github.com/credwatch/credwatch/util"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
)

type Config struct {
	APIHost           string
	BearerToken       string
	CSRFToken         string
	RedisURL          string
	CacheTTL          time.Duration
	CacheSize         int
	RatelimitCooldown time.Duration
	LookupRate        float64
	ScanDebounce      time.Duration
	ElementDelay      time.Duration
	CohortInterval    time.Duration
	StartupDelay      time.Duration
	Bind              string
	MetricsListen     string
	Logger            *slog.Logger
}

type Server struct {
	echo    *echo.Echo
	httpd   *http.Server
	logger  *slog.Logger
	source  profile.Source
	scanner *scanner.Scanner
	cfg     Config

	// latest presented signals, keyed by handle / context
	mu     sync.Mutex
	scores map[string]credibility.Result
	raids  map[string]*cohort.RaidSummary
	view   viewState
}

// current discovery state, replaced wholesale by each /scan request
type viewState struct {
	mu      sync.Mutex
	handles []string
	cohort  *scanner.CohortContext
}

func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	api := &profile.APISource{
		Host: cfg.APIHost,
		Credentials: &staticCredentials{
			Bearer: cfg.BearerToken,
			CSRF:   cfg.CSRFToken,
		},
		Limiter:    rate.NewLimiter(rate.Limit(cfg.LookupRate), 1),
		HTTPClient: util.RobustHTTPClient(),
	}

	var source profile.Source
	if cfg.RedisURL != "" {
		rs, err := redisprofile.NewRedisSource(api, cfg.RedisURL, cfg.CacheTTL, cfg.RatelimitCooldown, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("initializing redis profile cache: %w", err)
		}
		source = rs
		logger.Info("using shared redis profile cache")
	} else {
		source = profile.NewCachedSource(api, cfg.CacheSize, cfg.CacheTTL, cfg.RatelimitCooldown)
	}

	srv := &Server{
		logger: logger,
		source: source,
		cfg:    cfg,
		scores: make(map[string]credibility.Result),
		raids:  make(map[string]*cohort.RaidSummary),
	}

	sc := scanner.NewScanner(source, &srv.view, srv, logger.With("component", "scanner"))
	sc.Debounce = cfg.ScanDebounce
	sc.ElementDelay = cfg.ElementDelay
	sc.CohortInterval = cfg.CohortInterval
	srv.scanner = sc

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())

	e.GET("/_health", srv.handleHealthCheck)
	e.GET("/profile/:handle/score", srv.handleProfileScore)
	e.POST("/scan", srv.handleScan)
	e.GET("/scores", srv.handleScores)
	e.GET("/raid/:context", srv.handleRaid)
	e.POST("/cohort/analyze", srv.handleCohortAnalyze)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:      e,
		Addr:         cfg.Bind,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}
	return srv, nil
}

// RunAPI serves the HTTP API and metrics listeners until SIGINT/SIGTERM.
func (srv *Server) RunAPI() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(srv.cfg.MetricsListen, mux); err != nil {
			srv.logger.Error("metrics listener failed", "err", err)
		}
	}()

	// forced first pass after a short settle delay
	go func() {
		if err := scanner.SystemClock().Sleep(ctx, srv.cfg.StartupDelay); err != nil {
			return
		}
		srv.scanner.ScanNow(ctx, true)
	}()

	srv.logger.Info("starting server", "bind", srv.cfg.Bind)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error("http server failed", "err", err)
		}
	}()

	<-ctx.Done()
	srv.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.httpd.Shutdown(shutdownCtx)
}

func (srv *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "state": stateName(srv.scanner.CurrentState())})
}

// resolve one handle and score it on demand; absence maps to 404, never 5xx
func (srv *Server) handleProfileScore(c echo.Context) error {
	handle := c.Param("handle")
	if !scanner.ValidCandidate(handle) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid handle"})
	}
	p, err := srv.source.Lookup(c.Request().Context(), handle)
	if err != nil {
		srv.logger.Debug("profile score lookup absent", "handle", handle, "err", err)
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no profile data", "reason": reasonFor(err)})
	}
	return c.JSON(http.StatusOK, credibility.Score(p, time.Now()))
}

type scanRequest struct {
	Handles []string `json:"handles"`
	Cohort  *struct {
		ContextID string   `json:"contextId"`
		Author    string   `json:"author"`
		Handles   []string `json:"handles"`
	} `json:"cohort,omitempty"`
}

// handleScan replaces the discovery state and triggers a coalesced pass
func (srv *Server) handleScan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request body"})
	}

	srv.view.mu.Lock()
	srv.view.handles = req.Handles
	srv.view.cohort = nil
	if req.Cohort != nil {
		srv.view.cohort = &scanner.CohortContext{
			ContextID: req.Cohort.ContextID,
			Author:    req.Cohort.Author,
			Handles:   req.Cohort.Handles,
		}
	}
	srv.view.mu.Unlock()

	started := srv.scanner.Trigger(context.WithoutCancel(c.Request().Context()))
	return c.JSON(http.StatusAccepted, map[string]bool{"scheduled": started})
}

func (srv *Server) handleScores(c echo.Context) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return c.JSON(http.StatusOK, srv.scores)
}

func (srv *Server) handleRaid(c echo.Context) error {
	srv.mu.Lock()
	sum, ok := srv.raids[c.Param("context")]
	srv.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no raid summary for context"})
	}
	return c.JSON(http.StatusOK, sum)
}

type cohortAnalyzeRequest struct {
	ContextID string   `json:"contextId"`
	Author    string   `json:"author"`
	Handles   []string `json:"handles"`
}

// synchronous cohort analysis of the posted handles; 204 when the resolved
// sample is too small to say anything
func (srv *Server) handleCohortAnalyze(c echo.Context) error {
	var req cohortAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request body"})
	}

	ctx := c.Request().Context()
	sample := cohort.NewSample(req.Author)
	for _, h := range req.Handles {
		if sample.Full() {
			break
		}
		if !scanner.ValidCandidate(h) {
			continue
		}
		p, err := srv.source.Lookup(ctx, h)
		if err != nil {
			continue
		}
		sample.Add(p)
	}

	sum := cohort.Analyze(sample, time.Now())
	if sum == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, sum)
}

// Presenter implementation: keep the latest signal per handle/context for
// the read endpoints.

func (srv *Server) PresentScore(handle string, res credibility.Result) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.scores[handle] = res
}

func (srv *Server) PresentRaid(contextID string, sum *cohort.RaidSummary) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if sum == nil {
		delete(srv.raids, contextID)
		return
	}
	srv.raids[contextID] = sum
}

// Discovery implementation over the last posted view state.

func (v *viewState) CandidateHandles(ctx context.Context) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.handles...)
}

func (v *viewState) CohortCandidates(ctx context.Context) (scanner.CohortContext, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cohort == nil {
		return scanner.CohortContext{}, false
	}
	return *v.cohort, true
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, profile.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, profile.ErrNotAuthenticated):
		return "unauthenticated"
	default:
		return "unavailable"
	}
}

func stateName(s scanner.State) string {
	switch s {
	case scanner.StatePending:
		return "pending"
	case scanner.StateRunning:
		return "running"
	default:
		return "idle"
	}
}
