package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/app"
	"github.com/targetzero/coursebot/internal/config"
	"github.com/targetzero/coursebot/internal/data"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/synonym"
)

type rootOptions struct {
	codesFile string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "coursectl",
		Short: "Course assistant tools",
		Long: `coursectl runs the course assistant from a terminal. It can answer a
question end to end, show how a phrase maps to a course code, detect
sort requests, and list or publish the course-code catalog.

Settings come from the same COURSEBOT_* environment variables as the server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.codesFile, "codes", "", "course-code catalog file (overrides COURSEBOT_CODES_FILE)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level for diagnostics on stderr")

	cmd.AddCommand(
		newAskCmd(opts),
		newResolveCmd(opts),
		newCodesCmd(opts),
		newSortKeyCmd(),
		newUnresolvedCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *logger.Logger {
	return logger.NewWithWriter(o.logLevel, cmd.ErrOrStderr())
}

// readConfig reads settings without requiring the server-only ones.
func (o *rootOptions) readConfig() *config.Config {
	cfg := config.Read()
	if o.codesFile != "" {
		cfg.CodesFile = o.codesFile
	}
	return cfg
}

func (o *rootOptions) loadCodes(ctx context.Context, cmd *cobra.Command) (*data.Catalog, string, error) {
	return app.LoadCodes(ctx, o.readConfig(), o.logger(cmd))
}

func (o *rootOptions) resolver(ctx context.Context, cmd *cobra.Command) (*synonym.Resolver, error) {
	codes, _, err := o.loadCodes(ctx, cmd)
	if err != nil {
		return nil, err
	}
	table, err := synonym.NewTable(codes)
	if err != nil {
		return nil, err
	}
	return synonym.NewResolver(table), nil
}
