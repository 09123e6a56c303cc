// shiplog ships a build's console log to CloudWatch Logs, one stream
// per build, and optionally records each run in Postgres.
//
// One-shot mode publishes a file (or stdin) and exits; --serve starts
// the HTTP publish/provenance API instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/shiplog-io/shiplog/internal/config"
	"github.com/shiplog-io/shiplog/internal/database"
	"github.com/shiplog-io/shiplog/internal/logsource"
	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/publisher"
	"github.com/shiplog-io/shiplog/internal/repository"
	"github.com/shiplog-io/shiplog/internal/runs"
	"github.com/shiplog-io/shiplog/internal/server"
	"github.com/shiplog-io/shiplog/internal/sink"
)

func main() {
	var (
		filePath    string
		group       string
		stream      string
		headerLines []string
		serve       bool
	)
	pflag.StringVar(&filePath, "file", "", "log file to publish (default: stdin)")
	pflag.StringVar(&group, "group", "", "target log group (overrides SHIPLOG_PUBLISH_GROUP)")
	pflag.StringVar(&stream, "stream", "", "target log stream (overrides SHIPLOG_PUBLISH_STREAM)")
	pflag.StringArrayVar(&headerLines, "header", nil, "line to prepend to the log, stamped with the run start time (repeatable)")
	pflag.BoolVar(&serve, "serve", false, "run the HTTP publish API instead of a one-shot publish")
	pflag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newRelicApp(cfg, log)

	var pool *pgxpool.Pool
	if cfg.Database != nil {
		if err := database.RunMigrations(ctx, cfg.Database.URL); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		pool, err = database.NewPool(ctx, cfg.Database.URL, log, app)
		if err != nil {
			log.Fatal().Err(err).Msg("open database pool")
		}
		defer pool.Close()
	}

	cw, err := sink.NewCloudWatch(ctx, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("build cloudwatch client")
	}

	if serve {
		srv := server.New(cfg, cw, pool, log)
		if err := srv.Start(ctx); err != nil {
			log.Error().Err(err).Msg("server exited")
			os.Exit(1)
		}
		return
	}

	if group == "" {
		group = cfg.Publish.Group
	}
	if stream == "" {
		stream = cfg.Publish.Stream
	}
	if group == "" || stream == "" {
		log.Fatal().Msg("a target log group and stream are required (--group/--stream or SHIPLOG_PUBLISH_*)")
	}
	identity := model.StreamIdentity{Group: group, Stream: model.SanitizeStreamName(stream)}

	source, closeSource, err := openSource(filePath, cfg.Publish.MaxLineSize)
	if err != nil {
		log.Fatal().Err(err).Msg("open log source")
	}
	defer closeSource()

	recorder := runs.NewRecorder(publisher.New(cw, log), runStore(pool), log)
	run, err := recorder.Publish(ctx, source, identity, time.Now(), headerLines)
	if err != nil {
		// Publishing is a side effect of the build, not its result:
		// report and exit non-zero, but everything already sent stays.
		log.Error().Err(err).
			Int("events_sent", run.EventsSent).
			Int("batches_sent", run.BatchesSent).
			Msg("publish failed")
		os.Exit(1)
	}

	log.Info().
		Str("stream", run.LogStream).
		Int("events", run.EventsSent).
		Int("batches", run.BatchesSent).
		Msg("publish complete")
	fmt.Println(model.StreamURL(cfg.AWS.Region, identity))
}

func openSource(path string, maxLineSize int) (logsource.LineSource, func(), error) {
	if path == "" {
		return logsource.NewReaderSource(os.Stdin, maxLineSize), func() {}, nil
	}
	src, err := logsource.NewFileSource(path)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { _ = src.Close() }, nil
}

func runStore(pool *pgxpool.Pool) runs.Store {
	if pool == nil {
		return nil
	}
	return repository.NewRunRepository(pool)
}

func newRelicApp(cfg *config.Config, log zerolog.Logger) *newrelic.Application {
	if cfg.Observability == nil || !cfg.Observability.Enabled {
		return nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.Observability.ServiceName),
		newrelic.ConfigLicense(cfg.Observability.LicenseKey),
	)
	if err != nil {
		log.Warn().Err(err).Msg("new relic agent disabled")
		return nil
	}
	return app
}
