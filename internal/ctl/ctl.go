package ctl

import (
	"errors"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path"
	"time"
)

var rootCmd = &cobra.Command{
	Use:   "swarm-monitorctl",
	Short: "Docker swarm monitor cli",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			panic(err)
		}
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func openJournal() (*gorm.DB, error) {
	storageDir := os.Getenv("MONITOR_STORAGE_DIRECTORY")
	if storageDir == "" {
		storageDir = "/var/lib/swarm-monitor"
	}

	db, err := gorm.Open(sqlite.Open(path.Join(storageDir, "monitor.db?_busy_timeout=5000")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open notification journal: %w", err)
	}
	return db, nil
}

func webhookConfig() (*types.Config, error) {
	config := &types.Config{
		WebhookURL:     os.Getenv("DISCORD_WEBHOOK_URL"),
		Username:       os.Getenv("DISCORD_USERNAME"),
		AvatarURL:      os.Getenv("DISCORD_AVATAR_URL"),
		NodeName:       os.Getenv("MONITOR_NODE_NAME"),
		RetryAttempts:  1,
		RequestTimeout: 30 * time.Second,
	}
	if config.WebhookURL == "" {
		return nil, errors.New("DISCORD_WEBHOOK_URL env variable required")
	}
	if config.Username == "" {
		config.Username = "Docker Swarm Monitor"
	}
	if config.AvatarURL == "" {
		config.AvatarURL = "https://raw.githubusercontent.com/docker/compose/v2/logo.png"
	}
	if config.NodeName == "" {
		hostname, _ := os.Hostname()
		config.NodeName = hostname
	}
	return config, nil
}
