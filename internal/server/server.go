// Package server assembles the HTTP surface: a publish trigger and the
// run provenance API.
package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/config"
	"github.com/shiplog-io/shiplog/internal/handler"
	"github.com/shiplog-io/shiplog/internal/publisher"
	"github.com/shiplog-io/shiplog/internal/repository"
	"github.com/shiplog-io/shiplog/internal/response"
	"github.com/shiplog-io/shiplog/internal/runs"
	"github.com/shiplog-io/shiplog/internal/sink"
)

// Server holds the Echo app and its dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
}

// New builds the Echo server and registers routes. pool may be nil;
// the /runs endpoints then answer 503 and publishes are not recorded.
func New(cfg *config.Config, s sink.Sink, pool *pgxpool.Pool, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())

	var store *repository.RunRepository
	var reader handler.RunReader
	if pool != nil {
		store = repository.NewRunRepository(pool)
		reader = store
	}

	pipeline := publisher.New(s, log)
	h := &handler.PublishHandler{
		Recorder: runs.NewRecorder(pipeline, storeOrNil(store), log),
		Runs:     reader,
		Region:   cfg.AWS.Region,
		Defaults: cfg.Publish,
	}

	e.POST("/publish", h.Publish)
	e.GET("/runs", h.ListRuns)
	e.GET("/runs/:id", h.GetRun)
	e.GET("/healthz", func(c echo.Context) error {
		return response.OK(c, map[string]string{"status": "ok"}, "")
	})

	return &Server{Echo: e, Config: cfg}
}

// storeOrNil avoids handing the recorder a typed nil.
func storeOrNil(store *repository.RunRepository) runs.Store {
	if store == nil {
		return nil
	}
	return store
}

// Start starts the HTTP server and blocks until the context is
// cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Echo.Shutdown(shutdownCtx)
	}()
	return s.Echo.Start(":" + s.Config.Server.Port)
}
