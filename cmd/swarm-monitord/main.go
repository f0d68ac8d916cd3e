package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/discordprovider"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/dockerprovider"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/fxlog"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/monitorservice"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/statusserver"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func main() {
	slog.SetLogLoggerLevel(logLevel(os.Getenv("LOG_LEVEL")))
	fx.New(
		fxlog.Logger(),
		fx.Provide(provideConfig),
		fx.Provide(provideGORM),
		fx.Provide(fx.Annotate(dockerprovider.New, fx.As(new(types.EventProvider)))),
		fx.Provide(fx.Annotate(discordprovider.New, fx.As(new(types.Notifier)))),
		fx.Provide(monitorservice.New),
		fx.Provide(statusserver.New),
		fx.Provide(func(lc fx.Lifecycle, service *monitorservice.Service) types.MonitorService {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return service.Start(ctx)
				},
				OnStop: func(ctx context.Context) error {
					return service.Stop(ctx)
				},
			})
			return service
		}),
		fx.Invoke(func(lc fx.Lifecycle, server *statusserver.Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return server.Start(ctx)
				},
				OnStop: func(ctx context.Context) error {
					return server.Stop(ctx)
				},
			})
		}),
	).Run()
}

func provideConfig() (*types.Config, error) {
	retryAttempts, err := intEnv("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := intEnv("TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	connectTimeout, err := intEnv("MONITOR_CONNECT_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	dedupWindow, err := intEnv("DEDUP_WINDOW", 10)
	if err != nil {
		return nil, err
	}
	dedupRefresh, err := boolEnv("DEDUP_REFRESH_ON_DUPLICATE", false)
	if err != nil {
		return nil, err
	}
	swarmOnly, err := boolEnv("MONITOR_SWARM_ONLY", false)
	if err != nil {
		return nil, err
	}
	deliveryWorkers, err := intEnv("MONITOR_DELIVERY_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	shutdownGrace, err := intEnv("MONITOR_SHUTDOWN_GRACE", 10)
	if err != nil {
		return nil, err
	}
	startupNotice, err := boolEnv("MONITOR_STARTUP_NOTICE", true)
	if err != nil {
		return nil, err
	}

	config := types.Config{
		WebhookURL:              os.Getenv("DISCORD_WEBHOOK_URL"),
		Username:                os.Getenv("DISCORD_USERNAME"),
		AvatarURL:               os.Getenv("DISCORD_AVATAR_URL"),
		NodeName:                os.Getenv("MONITOR_NODE_NAME"),
		StorageDirectory:        os.Getenv("MONITOR_STORAGE_DIRECTORY"),
		RetryAttempts:           retryAttempts,
		RequestTimeout:          time.Duration(timeoutSeconds) * time.Second,
		ConnectTimeout:          time.Duration(connectTimeout) * time.Second,
		DedupWindow:             time.Duration(dedupWindow) * time.Second,
		DedupRefreshOnDuplicate: dedupRefresh,
		SwarmOnly:               swarmOnly,
		DeliveryWorkers:         deliveryWorkers,
		ShutdownGrace:           time.Duration(shutdownGrace) * time.Second,
		StartupNotice:           startupNotice,
	}
	// an empty MONITOR_STATUS_ADDR disables the status server, so unset and
	// set-but-empty have to stay distinguishable
	if value, ok := os.LookupEnv("MONITOR_STATUS_ADDR"); ok {
		config.StatusAddr = value
	} else {
		config.StatusAddr = ":8080"
	}
	if config.Username == "" {
		config.Username = "Docker Swarm Monitor"
	}
	if config.AvatarURL == "" {
		config.AvatarURL = "https://raw.githubusercontent.com/docker/compose/v2/logo.png"
	}
	if config.StorageDirectory == "" {
		config.StorageDirectory = "/var/lib/swarm-monitor"
	}
	if config.NodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve node hostname: %w", err)
		}
		config.NodeName = hostname
	}
	if config.WebhookURL == "" {
		return nil, errors.New("DISCORD_WEBHOOK_URL env variable required")
	}
	if parsed, err := url.Parse(config.WebhookURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.New("DISCORD_WEBHOOK_URL must be a valid http(s) URL")
	}
	if config.RetryAttempts < 1 {
		return nil, errors.New("RETRY_ATTEMPTS must be at least 1")
	}
	if config.RequestTimeout < time.Second {
		return nil, errors.New("TIMEOUT_SECONDS must be at least 1")
	}
	if config.ConnectTimeout < time.Second {
		return nil, errors.New("MONITOR_CONNECT_TIMEOUT must be at least 1")
	}
	if config.DedupWindow < 0 {
		return nil, errors.New("DEDUP_WINDOW cannot be negative")
	}
	if config.DeliveryWorkers < 1 {
		return nil, errors.New("MONITOR_DELIVERY_WORKERS must be at least 1")
	}
	if !filepath.IsAbs(config.StorageDirectory) {
		absPath, err := filepath.Abs(config.StorageDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path of the storage directory: %w", err)
		}
		config.StorageDirectory = absPath
	}

	return &config, nil
}

func provideGORM(config *types.Config) (*gorm.DB, error) {
	if err := os.MkdirAll(config.StorageDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbName := "monitor.db?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
	db, err := gorm.Open(sqlite.Open(path.Join(config.StorageDirectory, dbName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&types.Notification{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func logLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intEnv(name string, fallback int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s env variable must be a number, got %q", name, value)
	}
	return parsed, nil
}

func boolEnv(name string, fallback bool) (bool, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s env variable must be a boolean, got %q", name, value)
	}
	return parsed, nil
}
