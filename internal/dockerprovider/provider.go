package dockerprovider

import (
	"context"
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/docker/docker/client"
	"log/slog"
)

type Provider struct {
	log    *slog.Logger
	config *types.Config
	client *client.Client
}

var _ types.EventProvider = (*Provider)(nil)

func New(config *types.Config) (*Provider, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Provider{
		log:    slog.With(slog.String("component", "dockerprovider")),
		config: config,
		client: dockerClient,
	}, nil
}

func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Ping(ctx)
	return err
}

func (p *Provider) Close() error {
	return p.client.Close()
}
