package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hilite/internal/editdiff"
	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/text"
)

var errDiverged = errors.New("incremental highlighting diverged from a full rescan")

var (
	replayLines   bool
	replayVerbose bool
)

var replayCmd = &cobra.Command{
	Use:   "replay OLD NEW",
	Short: "Replay the edits between two files and verify the result",
	Long: `Highlight OLD, turn the differences to NEW into edits, apply them one at a
time and compare the result with highlighting NEW from scratch.

Each edit's reparse window is printed with --verbose. Useful for checking a
pattern set's context settings.`,
	Args: cobra.ExactArgs(2),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayLines, "lines", false, "diff whole lines")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "print every edit's window")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	mode, err := resolveMode(cmd, args[0])
	if err != nil {
		return err
	}
	newSrc, err := readSource(cmd, args[1])
	if err != nil {
		return err
	}
	sched := highlight.NewScheduler(schedulerConfig(mode))
	buf, doc, _, err := openDocument(ctx, cmd, sched, args[0])
	if err != nil {
		return err
	}

	changes := editdiff.Changes(buf.String(), newSrc, editdiff.Options{Lines: replayLines})
	scanned := 0
	for _, c := range changes {
		e, err := editdiff.Apply(buf, c)
		if err != nil {
			return err
		}
		if err := doc.Edit(ctx, e); err != nil {
			return fmt.Errorf("%s: %w", e, err)
		}
		w := doc.LastWindow()
		scanned += w.Hi - w.Lo
		if replayVerbose {
			fmt.Fprintf(out, "%-24s window [%d,%d) scans %d reach %d\n", e, w.Lo, w.Hi, w.Scans, w.Reach)
		}
	}
	if err := finishPass2(ctx, doc, buf.Len()); err != nil {
		return err
	}

	fresh, err := highlight.NewScheduler(schedulerConfig(mode)).Open(ctx, text.NewBuffer(newSrc), doc.PatternSet())
	if err != nil {
		return err
	}
	if err := finishPass2(ctx, fresh, len([]rune(newSrc))); err != nil {
		return err
	}

	if off, ok := firstDifference(doc.Spans(), fresh.Spans()); !ok {
		return fmt.Errorf("%w at offset %d: %s vs %s", errDiverged, off, doc.StyleAt(off), fresh.StyleAt(off))
	}
	fmt.Fprintf(out, "ok: %d edits, %d runes reclassified of %d, matches a full rescan\n",
		len(changes), scanned, buf.Len())
	return nil
}

// firstDifference compares two span lists and returns the first offset
// where their styles differ.
func firstDifference(a, b []highlight.StyledSpan) (int, bool) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Start != b[i].Start || a[i].Style != b[i].Style {
			return min(a[i].Start, b[i].Start), false
		}
		if a[i].End != b[i].End {
			return min(a[i].End, b[i].End), false
		}
	}
	switch {
	case len(a) < len(b):
		return b[len(a)].Start, false
	case len(b) < len(a):
		return a[len(b)].Start, false
	}
	return 0, true
}
