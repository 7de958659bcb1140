package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/stringutil"
	"github.com/targetzero/coursebot/internal/synonym"
)

func newResolveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <phrase>",
		Short: "Show how a phrase maps to a course code",
		Long: `Resolve runs a phrase through every resolution step the assistant uses:
direct synonym lookup, umbrella terms, "did you mean" suggestions and
broad fallback fragments.`,
		Example: `  coursectl resolve "site manager safety"
  coursectl resolve nebosh`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := root.resolver(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			phrase := strings.Join(args, " ")
			return writeResolution(cmd, r, phrase)
		},
	}
}

func writeResolution(cmd *cobra.Command, r *synonym.Resolver, phrase string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	row := func(step, value string) { _, _ = fmt.Fprintf(w, "%s\t%s\n", step, value) }

	row("normalized", stringutil.Normalize(phrase))
	table := r.Table()

	if code, ok := r.Resolve(phrase); ok {
		row("resolve", code+" ("+table.FullName(code)+")")
	} else {
		row("resolve", "-")
	}

	if m, ok := r.Umbrella(phrase); ok {
		if m.Ambiguous() {
			row("umbrella", m.Family+": "+stringutil.JoinOr(m.Labels()))
		} else {
			row("umbrella", m.Family+" -> "+m.Code)
		}
	} else {
		row("umbrella", "-")
	}

	if e, ok := r.Suggest(phrase); ok {
		row("suggest", e.Code+" ("+e.FullName+")")
	} else {
		row("suggest", "-")
	}

	if code, ok := r.Fallback(phrase); ok {
		row("fallback", code)
	} else {
		row("fallback", "-")
	}

	if code, ok := r.Detect(phrase); ok {
		row("detected", code)
	} else {
		row("detected", "none; the assistant would ask")
	}
	return w.Flush()
}
