package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check server health. With --wait, keep polling until the server answers or the wait runs out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result HealthResult
				err    error
			)

			deadline := time.Now().Add(wait)
			for {
				result, err = client.Health()
				if err == nil {
					break
				}
				if wait <= 0 {
					return err
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("server not healthy after %s: %w", wait, err)
				}
				logger.Debug("health check failed, retrying", slog.String("error", err.Error()))

				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(healthPollInterval):
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Poll until the server is healthy, up to this long")

	return cmd
}
