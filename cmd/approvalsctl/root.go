package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-hr-approvals/internal/config"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/service"
	"github.com/pesio-ai/be-hr-approvals/internal/storage"
)

// app holds what a subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	stores *storage.Stores

	authorities   *service.AuthorityService
	relationships *service.RelationshipService
}

// openSettings come from flags shared by every subcommand.
type openSettings struct {
	envFile     string
	skipMigrate bool
}

type opener func(ctx context.Context, settings openSettings) (*app, error)

func openApp(ctx context.Context, settings openSettings) (*app, error) {
	var files []string
	if settings.envFile != "" {
		files = []string{settings.envFile}
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if settings.skipMigrate {
		cfg.Database.AutoMigrate = false
	}
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Service.Environment,
		ServiceName: "approvalsctl",
		Version:     cfg.Service.Version,
		Output:      os.Stderr,
	})
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log, stores), nil
}

func newApp(cfg *config.Config, log *logger.Logger, stores *storage.Stores) *app {
	return &app{
		cfg:           cfg,
		log:           log,
		stores:        stores,
		authorities:   service.NewAuthorityService(stores.Authorities, log),
		relationships: service.NewRelationshipService(stores.Relationships, log, cfg.Approval.SingleApprover),
	}
}

func (a *app) Close() {
	a.stores.Close()
}

type rootOptions struct {
	envFile string
	open    opener
}

// withApp opens the app for one command invocation.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := o.open(cmd.Context(), openSettings{envFile: o.envFile})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCmd(open opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "approvalsctl",
		Short:         "Administer HR approval relationships, authorities and schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load configuration from this .env file")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newAuthorityCmd(opts))
	cmd.AddCommand(newRelationshipCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd(openApp).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
