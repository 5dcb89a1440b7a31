package main

import (
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"modestwear/internal/config"
	applog "modestwear/internal/log"
	"modestwear/internal/repos"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "modestwear",
		Short:         "ModestWear shop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newCreateAdminCommand(opts))
	return cmd
}

// env holds what every command needs: the resolved config, the logger
// and the database.
type env struct {
	cfg     config.Config
	db      *sqlx.DB
	closers []io.Closer
}

func setup(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logCloser, err := applog.Init(cfg.Log)
	if err != nil {
		return nil, err
	}
	db, err := repos.OpenDB(cfg.Database.DSN)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	return &env{cfg: cfg, db: db, closers: []io.Closer{db, logCloser}}, nil
}

func (e *env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}
