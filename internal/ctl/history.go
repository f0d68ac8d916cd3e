package ctl

import (
	"fmt"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"time"
)

func init() {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openJournal()
			if err != nil {
				return err
			}

			var notifications []types.Notification
			err = db.WithContext(cmd.Context()).
				Order("created_at desc").
				Limit(limit).
				Find(&notifications).Error
			if err != nil {
				return fmt.Errorf("failed to read notification journal: %w", err)
			}

			if len(notifications) == 0 {
				fmt.Println("no notifications recorded")
				return nil
			}

			green := color.New(color.FgGreen).SprintfFunc()
			red := color.New(color.FgRed).SprintfFunc()
			for _, notification := range notifications {
				outcome := green("%-16s", notification.Outcome)
				if notification.Outcome != types.DeliveryStatusDelivered {
					outcome = red("%-16s", notification.Outcome)
				}

				fmt.Printf("%s  %s  %-7s  %-24s  %-16s  attempts=%d\n",
					notification.CreatedAt.Format(time.RFC3339),
					outcome,
					notification.Kind,
					notification.ContainerName,
					notification.ServiceName,
					notification.Attempts)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows to display")
	rootCmd.AddCommand(historyCmd)
}
