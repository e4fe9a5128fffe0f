package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/youtstadi/BotShkiperaPredlozhka/dialog"
	"github.com/youtstadi/BotShkiperaPredlozhka/engine"
	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	logger   *slog.Logger
	engine   *engine.Engine
	bot      *transport.TelegramClient
	settings *settings.Store
	rdb      *redis.Client

	// written by the consumer loop, read by the offset persister
	lastSeq atomic.Int64
}

type Config struct {
	Logger          *slog.Logger
	BotToken        string
	ReviewChatID    int64
	PublishChatID   int64
	PublishThreadID int64
	SettingsPath    string
	AdminIDs        []int64
	ModeratorIDs    []int64
	RedisURL        string
	SendRateLimit   int
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if config.ReviewChatID == 0 || config.PublishChatID == 0 {
		return nil, fmt.Errorf("both review and publish chat IDs are required")
	}

	cfgStore := settings.NewStore(logger, config.SettingsPath)
	if err := cfgStore.Load(); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	for _, id := range config.AdminIDs {
		if err := cfgStore.AddRole(settings.RoleAdmin, id); err != nil {
			return nil, fmt.Errorf("bootstrapping admin roster: %w", err)
		}
	}
	for _, id := range config.ModeratorIDs {
		if err := cfgStore.AddRole(settings.RoleModerator, id); err != nil {
			return nil, fmt.Errorf("bootstrapping moderator roster: %w", err)
		}
	}
	if len(cfgStore.Get().Admins) == 0 {
		return nil, fmt.Errorf("no admins configured: set --admin-ids or edit the settings file")
	}

	var items modqueue.ItemStore
	var counters modqueue.CountStore
	var dialogs dialog.Store
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for update offset state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		ist, err := modqueue.NewRedisItemStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis itemstore: %v", err)
		}
		items = ist

		cnt, err := modqueue.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		dlg, err := dialog.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis dialog store: %v", err)
		}
		dialogs = dlg
	} else {
		items = modqueue.NewMemItemStore()
		counters = modqueue.NewMemCountStore()
		dialogs = dialog.NewMemStore()
	}

	bot := transport.NewTelegramClient(logger, config.BotToken, config.SendRateLimit)

	eng := engine.Engine{
		Logger:    logger,
		Queue:     modqueue.NewQueue(logger, items, counters, cfgStore),
		Dialogs:   dialog.NewWorkflow(logger, dialogs),
		Settings:  cfgStore,
		Transport: bot,
		ReviewDest: transport.Destination{
			ChatID: config.ReviewChatID,
		},
		PublishDest: transport.Destination{
			ChatID:   config.PublishChatID,
			ThreadID: config.PublishThreadID,
		},
		Dedupe: expirable.NewLRU[string, bool](2048, nil, 15*time.Minute),
	}

	s := &Server{
		logger:   logger,
		engine:   &eng,
		bot:      bot,
		settings: cfgStore,
		rdb:      rdb,
	}

	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) RunAPI(listen string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/stats", s.handleStats)

	return e.Start(listen)
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.engine.Queue.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

var offsetKey = "gavel/offset"

// ReadLastOffset recovers the long-poll position from redis so a restart
// does not replay updates that were already handled.
func (s *Server) ReadLastOffset(ctx context.Context) (int64, error) {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		s.logger.Info("redis not configured, skipping offset read")
		return 0, nil
	}

	val, err := s.rdb.Get(ctx, offsetKey).Int64()
	if err == redis.Nil {
		s.logger.Info("no pre-existing update offset in redis")
		return 0, nil
	}
	s.logger.Info("successfully found prior update offset in redis", "offset", val)
	return val, err
}

func (s *Server) PersistOffset(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	seq := s.lastSeq.Load()
	if seq <= 0 {
		return nil
	}
	err := s.rdb.Set(ctx, offsetKey, seq, 14*24*time.Hour).Err()
	return err
}

// RunPersistOffset keeps the redis copy of the long-poll offset fresh.
//
// Expects to be run in a goroutine.
func (s *Server) RunPersistOffset(ctx context.Context) error {

	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	for {
		select {
		case <-ctx.Done():
			if seq := s.lastSeq.Load(); seq >= 1 {
				s.logger.Info("persisting final update offset", "offset", seq)
				err := s.PersistOffset(ctx)
				if err != nil {
					s.logger.Error("failed to persist offset", "err", err, "offset", seq)
				}
			}
			return nil
		case <-ticker.C:
			if seq := s.lastSeq.Load(); seq >= 1 {
				err := s.PersistOffset(ctx)
				if err != nil {
					s.logger.Error("failed to persist offset", "err", err, "offset", seq)
				}
			}
		}
	}
}
