package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "gavel",
		Usage:   "moderation gateway daemon (suggestion box with a verdict)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "bot-token",
			Usage:    "chat platform bot credential",
			Required: true,
			EnvVars:  []string{"GAVEL_BOT_TOKEN", "BOT_TOKEN"},
		},
		&cli.Int64Flag{
			Name:    "review-chat-id",
			Usage:   "chat where submissions are mirrored for moderators",
			EnvVars: []string{"GAVEL_REVIEW_CHAT_ID"},
		},
		&cli.Int64Flag{
			Name:    "publish-chat-id",
			Usage:   "chat where approved submissions get published",
			EnvVars: []string{"GAVEL_PUBLISH_CHAT_ID"},
		},
		&cli.Int64Flag{
			Name:    "publish-thread-id",
			Usage:   "forum thread inside the publish chat, 0 for none",
			EnvVars: []string{"GAVEL_PUBLISH_THREAD_ID"},
		},
		&cli.StringFlag{
			Name:    "settings-path",
			Usage:   "path of the persisted runtime settings record",
			Value:   "data/gavel/settings.json",
			EnvVars: []string{"GAVEL_SETTINGS_PATH"},
		},
		&cli.Int64SliceFlag{
			Name:    "admin-ids",
			Usage:   "bootstrap admin roster, used when the settings file has none",
			EnvVars: []string{"GAVEL_ADMIN_IDS"},
		},
		&cli.Int64SliceFlag{
			Name:    "moderator-ids",
			Usage:   "bootstrap moderator roster, used when the settings file has none",
			EnvVars: []string{"GAVEL_MODERATOR_IDS"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for queue/dialog/counter state; in-memory if empty",
			EnvVars: []string{"GAVEL_REDIS_URL", "REDIS_URL"},
		},
		&cli.IntFlag{
			Name:    "send-rate-limit",
			Usage:   "max outbound transport calls per second",
			Value:   25,
			EnvVars: []string{"GAVEL_SEND_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"GAVEL_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "api-listen",
			Usage:   "IP or address, and port, to listen on for the health/stats API",
			Value:   ":3988",
			EnvVars: []string{"GAVEL_API_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("gavel"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			Logger:          logger,
			BotToken:        cctx.String("bot-token"),
			ReviewChatID:    cctx.Int64("review-chat-id"),
			PublishChatID:   cctx.Int64("publish-chat-id"),
			PublishThreadID: cctx.Int64("publish-thread-id"),
			SettingsPath:    cctx.String("settings-path"),
			AdminIDs:        cctx.Int64Slice("admin-ids"),
			ModeratorIDs:    cctx.Int64Slice("moderator-ids"),
			RedisURL:        cctx.String("redis-url"),
			SendRateLimit:   cctx.Int("send-rate-limit"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()
		go func() {
			if err := srv.RunAPI(cctx.String("api-listen")); err != nil {
				slog.Error("failed to start api endpoint", "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation gateway: %w", err)
		}
		return nil
	},
}
