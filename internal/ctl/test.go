package ctl

import (
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/discordprovider"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"time"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := webhookConfig()
			if err != nil {
				return err
			}

			provider := discordprovider.New(config)
			payload := provider.BuildPayload(types.ContainerEvent{
				Kind:          types.ContainerEventKindStarted,
				ContainerID:   "46f59eac4ec3af82d5798f4ba2b9d12a9f1bc7a9324cc76bb52c2e867b10b011",
				ContainerName: "webhook-test",
				ServiceName:   "swarm-monitorctl",
				NodeName:      config.NodeName,
				Image:         "hello-world:latest",
				OccurredAt:    time.Now(),
			})

			outcome := provider.Deliver(cmd.Context(), payload)
			if !outcome.Delivered() {
				return fmt.Errorf("delivery failed after %d attempt(s): %w", outcome.Attempts, outcome.Err)
			}

			green := color.New(color.FgGreen, color.Bold).SprintFunc()
			fmt.Printf("%s notification delivered (http %d)\n", green("✓"), outcome.StatusCode)
			return nil
		},
	})
}
