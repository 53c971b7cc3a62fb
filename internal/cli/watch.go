package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/feed"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		tokens []string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream committed events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := feedURL(opts.server)
			if err != nil {
				return err
			}
			filter := make([]domain.Address, 0, len(tokens))
			for _, raw := range tokens {
				a, err := domain.ParseAddress(raw)
				if err != nil {
					return fmt.Errorf("--token %q: %w", raw, err)
				}
				filter = append(filter, a)
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
			client, err := feed.NewClient(endpoint, filter, nil, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := client.Subscribe(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			for ev := range events {
				if err := enc.Encode(feed.NewMessage(ev)); err != nil {
					return err
				}
				seen++
				if count > 0 && seen >= count {
					stop()
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tokens, "token", nil, "Only events of these tokens (repeatable)")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0: run until interrupted)")
	return cmd
}

// feedURL maps the service base URL to its websocket feed endpoint.
func feedURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse --server: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("--server scheme %q: want http, https, ws or wss", u.Scheme)
	}
	u.Path = "/ws/events"
	return u.String(), nil
}
