package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/spendtrail/spendtrail/internal/api"
	"github.com/spendtrail/spendtrail/internal/buildinfo"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, g.logLevel, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, root, logLevel, addr string) error {
	a, err := openApp(ctx, root, logLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	a.log.Info().Str("version", buildinfo.String()).Str("driver", a.cfg.Storage.Driver).Msg("spendtrail starting")
	if len(a.cfg.Auth.Tokens) == 0 {
		a.log.Warn().Msg("auth.tokens is empty; every API request will be rejected")
	}

	c, err := scheduleInbox(ctx, a, io.Discard)
	if err != nil {
		return err
	}
	if c != nil {
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	h := api.NewTransactionsHandler(a.pipeline, a.store, a.cfg.Server.MaxUploadMB<<20)
	router := api.NewRouter(h, api.RouterOptions{
		Tokens:         a.cfg.Auth.Tokens,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Log:            a.log,
	})
	return api.NewServer(addr, router, a.cfg.Server.ShutdownTimeout, a.log).Run(ctx)
}

// scheduleInbox registers the inbox import on inbox.schedule. It returns
// nil when no schedule is configured. Overlapping runs are skipped.
func scheduleInbox(ctx context.Context, a *app, out io.Writer) (*cron.Cron, error) {
	schedule := a.cfg.Inbox.Schedule
	if schedule == "" {
		return nil, nil
	}
	if a.cfg.Inbox.Owner == "" {
		return nil, errors.New("inbox.owner is required when inbox.schedule is set")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		res, err := runImport(ctx, a, a.cfg.Inbox.Owner, out)
		if err != nil {
			a.log.Error().Err(err).Msg("scheduled import failed")
			return
		}
		a.log.Info().
			Int("files", res.Files).
			Int("saved", res.Saved).
			Int("failed", res.Failed).
			Msg("scheduled import finished")
	})
	if err != nil {
		return nil, fmt.Errorf("parsing inbox.schedule %q: %w", schedule, err)
	}
	a.log.Info().Str("schedule", schedule).Str("owner", a.cfg.Inbox.Owner).Msg("inbox import scheduled")
	return c, nil
}
