package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"modestwear/internal/auth"
	"modestwear/internal/http/handlers"
	"modestwear/internal/kv"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/supervisor"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg
	log := applog.Component("main")

	store, err := kv.Open(cfg.KV.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewManager(cfg.Auth, store)
	if err != nil {
		return err
	}

	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return err
	}
	mail := mailer.NewAsync(sender)
	defer mail.Wait()
	compose, err := mailer.NewComposer(cfg.Mail.BaseURL)
	if err != nil {
		return err
	}

	var objects media.ObjectStore
	if cfg.Media.Bucket != "" {
		s3, err := media.NewS3(ctx, cfg.Media)
		if err != nil {
			return err
		}
		objects = s3
	} else {
		objects = media.NewMemoryStore(strings.TrimRight(cfg.Mail.BaseURL, "/") + handlers.MediaPrefix)
		log.Warn().Msg("no media bucket configured, images are kept in memory")
	}

	deps := handlers.NewDeps(e.db, store, cfg, tokens, mail, compose, objects)
	app := handlers.NewApp(deps, cfg.Server)

	tree := supervisor.NewTree(applog.Component("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPI(supervisor.NewHTTPService(app, cfg.Server.Addr, cfg.Server.ShutdownTimeout))
	tree.AddJob(supervisor.NewStockMonitor(deps.Inventory, cfg.Inventory.ScanInterval, applog.Component("inventory")))

	log.Info().Str("addr", cfg.Server.Addr).Str("mail", cfg.Mail.Provider).Msg("starting")
	err = tree.Serve(ctx)
	log.Info().Msg("stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}
