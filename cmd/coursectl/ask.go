package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/targetzero/coursebot/internal/app"
	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/config"
	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/render"
)

type askOptions struct {
	courseType  string
	format      string
	interactive bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   `ask ["question"]`,
		Short: "Ask the course assistant a question",
		Long: `Ask runs one turn through the dialogue controller, fetching the live
catalog and calling the configured model. With --interactive it keeps
the conversation going, reading one message per line until EOF or "exit".`,
		Example: `  coursectl ask "cheapest smsts in chelmsford"
  coursectl ask --type refresher "sssts in march"
  coursectl ask -i`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.interactive {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&opts.courseType, "type", "", `restrict to "standard" or "refresher" courses`)
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, html or spoken")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "hold a conversation on stdin")
	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions, question string) error {
	renderFn, err := renderer(opts.format)
	if err != nil {
		return err
	}
	var typeHint catalog.CourseType
	if opts.courseType != "" {
		t, ok := catalog.ParseCourseType(opts.courseType)
		if !ok {
			return fmt.Errorf("unknown course type %q", opts.courseType)
		}
		typeHint = t
	}

	cfg := root.readConfig()
	if cfg.CatalogURL == "" {
		return fmt.Errorf("%s is not set", config.EnvCatalogURL)
	}

	ctx := cmd.Context()
	d, err := app.NewDialogue(ctx, cfg, root.logger(cmd), nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	out := cmd.OutOrStdout()
	var history []dialogue.Turn
	turn := func(text string) error {
		resp, err := d.Controller.Handle(ctx, dialogue.Request{
			History:   history,
			Utterance: text,
			TypeHint:  typeHint,
		})
		if err != nil {
			return err
		}
		history = resp.History
		_, err = fmt.Fprintln(out, renderFn(resp.Result))
		return err
	}

	if !opts.interactive {
		return turn(question)
	}
	return converse(cmd.InOrStdin(), out, turn)
}

// converse feeds each non-empty input line to turn until EOF or "exit".
func converse(in io.Reader, out io.Writer, turn func(string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := turn(line); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out)
	}
}

func renderer(format string) (func(dialogue.Result) string, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return render.Text, nil
	case "html":
		return render.HTML, nil
	case "spoken":
		return render.Spoken, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
