package discordprovider

import (
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"log/slog"
	"net/http"
	"time"
)

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

type Provider struct {
	log        *slog.Logger
	config     *types.Config
	httpClient *http.Client

	// retry pacing, overridable in tests
	initialDelay time.Duration
	maxDelay     time.Duration
}

var _ types.Notifier = (*Provider)(nil)

func New(config *types.Config) *Provider {
	return &Provider{
		log:          slog.With(slog.String("component", "discordprovider")),
		config:       config,
		httpClient:   &http.Client{Timeout: config.RequestTimeout},
		initialDelay: initialRetryDelay,
		maxDelay:     maxRetryDelay,
	}
}
