package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/app"
	"github.com/targetzero/coursebot/internal/data"
	"github.com/targetzero/coursebot/internal/r2client"
	"github.com/targetzero/coursebot/internal/synonym"
)

func newCodesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "List, check and publish the course-code catalog",
		Long: `Without a subcommand, codes lists every course code with its full name,
from the same source the server would use: R2 when configured, then
--codes or COURSEBOT_CODES_FILE, then the built-in catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codes, source, err := root.loadCodes(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return writeCodes(cmd, codes, source)
		},
	}
	cmd.AddCommand(newCodesValidateCmd(), newCodesExportCmd(), newCodesPushCmd(root))
	return cmd
}

func writeCodes(cmd *cobra.Command, codes *data.Catalog, source string) error {
	table, err := synonym.NewTable(codes)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tCODE\tNAME")
	for _, e := range table.Entries() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Category, e.Code, e.FullName)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "%d codes from %s\n", table.Len(), source)
	return err
}

func newCodesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file without publishing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := data.LoadFile(args[0])
			if err != nil {
				return err
			}
			table, err := synonym.NewTable(codes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d codes OK\n", args[0], table.Len())
			return err
		},
	}
}

func newCodesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the built-in catalog as YAML, as a starting point for edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(data.DefaultBytes())
			return err
		},
	}
}

func newCodesPushCmd(root *rootOptions) *cobra.Command {
	var key, ifMatch string
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Validate a catalog file and upload it to R2",
		Long: `Push checks the file the same way the server does on startup, then
uploads it. Running servers pick it up on their next restart. With
--if-match the upload is refused when the stored catalog has a different
ETag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			codes, err := data.Parse(raw)
			if err != nil {
				return err
			}
			if _, err := synonym.NewTable(codes); err != nil {
				return err
			}

			cfg := root.readConfig()
			if key != "" {
				cfg.R2CodesKey = key
			}
			store, err := app.NewCodeStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			etag, err := store.Publish(cmd.Context(), raw, ifMatch)
			if errors.Is(err, r2client.ErrStale) {
				return fmt.Errorf("%s was changed by someone else; fetch it again and reapply your edit", store.Key())
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %s (etag %s)\n", store.Key(), etag)
			return err
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key (default COURSEBOT_R2_CODES_KEY)")
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "only publish if the stored ETag matches")
	return cmd
}
