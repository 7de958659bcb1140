package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/storage"
)

func newUnresolvedCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "unresolved",
		Short: "Report phrases the assistant could not map to a course",
		Long: `Unresolved reads the server's turn log and lists the most frequent
phrases that ended in a clarifying question without a course code,
followed by turn counts per outcome. Frequent phrases are candidates
for new synonyms in the course-code catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := root.readConfig()
			db, err := storage.New(ctx, cfg.SQLitePath())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			phrases, err := db.TopUnresolved(ctx, limit)
			if err != nil {
				return err
			}
			outcomes, err := db.CountByOutcome(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "COUNT\tPHRASE")
			for _, p := range phrases {
				_, _ = fmt.Fprintf(w, "%d\t%s\n", p.Count, p.Utterance)
			}
			_, _ = fmt.Fprintf(w, "\nOUTCOME\tTURNS (last %s)\n", since)
			for _, name := range slices.Sorted(maps.Keys(outcomes)) {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", name, outcomes[name])
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of phrases to show")
	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "window for the outcome counts")
	return cmd
}
