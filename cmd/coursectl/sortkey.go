package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/search"
)

func newSortKeyCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:     `sortkey ["text"]`,
		Short:   "Detect a sort request in a message",
		Example: "  coursectl sortkey \"what's the cheapest one\"\n  coursectl sortkey --list",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, k := range search.SortKeys() {
					_, _ = fmt.Fprintln(out, k)
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("text is required unless --list is set")
			}
			key, ok := search.DetectSortKey(strings.Join(args, " "))
			if !ok {
				_, err := fmt.Fprintln(out, "none")
				return err
			}
			_, err := fmt.Fprintln(out, key)
			return err
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list sort keys in precedence order")
	return cmd
}
