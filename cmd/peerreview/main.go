package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/inconshreveable/log15"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/config"
	"github.com/totegamma/peerreview/internal/infra/database"
	requester "github.com/totegamma/peerreview/internal/interface/rest/middleware"
	"github.com/totegamma/peerreview/internal/usecase"
)

const serviceName = "peerreview"

var log = log15.New("module", "main")

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "stake-weighted peer review service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "path to the YAML config", EnvVars: []string{"PEERREVIEW_CONFIG"}},
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API and the consensus sweeper", Action: serve},
			{Name: "migrate", Usage: "create or update the database schema", Action: migrate},
			{
				Name:   "assign",
				Usage:  "run one assignment pass for a paper",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "paper", Required: true}},
				Action: assign,
			},
			{Name: "sweep", Usage: "finalize papers whose reviews are complete", Action: sweep},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	lvl, err := log15.LvlFromString(conf.Server.LogLevel)
	if err != nil {
		lvl = log15.LvlInfo
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stdout, log15.LogfmtFormat())))

	if conf.Server.SentryDsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: conf.Server.SentryDsn}); err != nil {
			log.Warn("sentry init failed", "err", err)
		}
	}
	return conf, nil
}

func setupTracing(ctx context.Context, conf config.Config) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(conf.Server.TraceEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create trace exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

func serve(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTracing(ctx, conf)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	app, err := newApplication(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.sweeper.Start(); err != nil {
		return err
	}
	defer app.sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(requester.Identify)
	e.Use(requester.AccessLog)
	app.handler().RegisterRoutes(e)

	go func() {
		log.Info("listening", "addr", conf.Server.Listen)
		if err := e.Start(conf.Server.Listen); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "err", err)
			sentry.CaptureException(err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrate(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := database.Open(conf.Server.DatabaseDriver, conf.Server.PostgresDsn)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return errors.Wrap(err, "migrate")
	}
	log.Info("migration complete", "driver", conf.Server.DatabaseDriver)
	return nil
}

func assign(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	app, err := newApplication(c.Context, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	paper, err := app.papers.Get(c.Context, c.String("paper"))
	if err != nil {
		return err
	}
	result, err := app.assignment.AssignReviewers(c.Context, usecase.AssignmentRequestFor(paper))
	peerreview.JsonPrint("assignment", result)
	return err
}

func sweep(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}

	app, err := newApplication(c.Context, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	applied, err := app.publication.Sweep(c.Context, conf.Consensus.SweepBatchSize)
	if err != nil {
		return err
	}
	for _, result := range applied {
		log.Info("finalized", "paper", result.Paper.ID, "status", result.Paper.Status)
	}
	log.Info("sweep complete", "applied", len(applied))
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
