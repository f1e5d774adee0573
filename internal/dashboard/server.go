// Package dashboard serves the pipeline outputs as JSON.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"colnews/internal/analyzer"
	"colnews/internal/correlator"
	"colnews/internal/logger"
	"colnews/internal/store"
)

// ErrNoData is the 404 message for documents that were not produced yet.
const ErrNoData = "No data available"

const shutdownTimeout = 10 * time.Second

// Status is the body of /api/status.
type Status struct {
	Timestamp             time.Time `json:"timestamp"`
	CorrelationsAvailable bool      `json:"correlations_available"`
	NewsDataAvailable     bool      `json:"news_data_available"`
}

// Server exposes the latest correlation result and the daily counts.
type Server struct {
	echo     *echo.Echo
	results  *store.Dir
	analysis *store.Dir
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a server reading from the results and analysis directories.
func New(results, analysis *store.Dir, log *logger.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		results:  results,
		analysis: analysis,
		logger:   log,
		now:      time.Now,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("HTTP request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)

			return nil
		},
	}))
	s.echo.Use(middleware.Recover())

	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/api/correlations", s.handleDocument(results, correlator.LatestFile))
	s.echo.GET("/api/news_counts", s.handleDocument(analysis, analyzer.CountsFile))
	s.echo.GET("/api/status", s.handleStatus)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "colnews dashboard",
		"endpoints": []string{
			"/api/correlations",
			"/api/news_counts",
			"/api/status",
		},
	})
}

// handleDocument serves one JSON document verbatim.
func (s *Server) handleDocument(dir *store.Dir, name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := dir.ReadFile(name)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": ErrNoData})
		}

		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		if !json.Valid(data) {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": name + " is not valid JSON"})
		}

		return c.JSONBlob(http.StatusOK, data)
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, Status{
		Timestamp:             s.now(),
		CorrelationsAvailable: s.results.Exists(correlator.LatestFile),
		NewsDataAvailable:     s.analysis.Exists(analyzer.CountsFile),
	})
}
