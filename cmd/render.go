package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/render"
)

var (
	renderLineNumbers bool
	renderWidth       int
	renderTabWidth    int
	renderColor       string
)

var renderCmd = &cobra.Command{
	Use:   "render FILE...",
	Short: "Print files with ANSI highlighting",
	Long: `Highlight files and print them to standard output with ANSI colors.

Both passes run to completion, so the output shows every pattern. Use "-"
to read standard input; --mode is then required.

Examples:
  # Highlight a Go file
  hilite render main.go

  # Force a mode and add line numbers
  hilite render --mode c --line-numbers prog.txt

  # Pipe through a pager
  hilite render --color always main.go | less -R`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVarP(&renderLineNumbers, "line-numbers", "n", false, "prefix lines with their number")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "truncate lines to this many cells (0: no limit)")
	renderCmd.Flags().IntVar(&renderTabWidth, "tab-width", render.DefaultTabWidth, "tab stop interval")
	renderCmd.Flags().StringVar(&renderColor, "color", "auto", `color output: "auto", "always" or "never"`)
	rootCmd.AddCommand(renderCmd)
}

func colorProfile(mode string) (termenv.Profile, bool, error) {
	switch mode {
	case "auto", "":
		return 0, false, nil
	case "always":
		return termenv.TrueColor, true, nil
	case "never":
		return termenv.Ascii, true, nil
	default:
		return 0, false, fmt.Errorf(`--color must be "auto", "always" or "never", got %q`, mode)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	profile, force, err := colorProfile(renderColor)
	if err != nil {
		return err
	}
	if force {
		lipgloss.SetColorProfile(profile)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for _, path := range args {
		if path == "-" {
			if m, _ := cmd.Flags().GetString("mode"); m == "" {
				return fmt.Errorf("--mode is required when reading standard input")
			}
		}
		mode, err := resolveMode(cmd, path)
		if err != nil {
			return err
		}
		hc := schedulerConfig(mode)
		hc.ChunkSize = -1
		sched := highlight.NewScheduler(hc)

		buf, doc, _, err := openDocument(ctx, cmd, sched, path)
		if err != nil {
			return err
		}
		if err := finishPass2(ctx, doc, buf.Len()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", path, err)
		}

		painter := render.NewPainter(buf, doc, hc.Styles, render.Options{
			TabWidth:    renderTabWidth,
			Width:       renderWidth,
			LineNumbers: renderLineNumbers,
			Cursor:      -1,
		})
		if _, err := painter.WriteTo(out); err != nil {
			return err
		}
		sched.Close(doc.ID())
	}
	return nil
}
