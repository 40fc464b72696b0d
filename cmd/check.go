package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("pattern sets failed to compile")

// checkWrap is the column problem reports wrap at, before indentation.
const checkWrap = 72

var checkCmd = &cobra.Command{
	Use:   "check [DIR...]",
	Short: "Compile every pattern set and report problems",
	Long: `Compile every registered pattern set, including those in the configured
pattern directory and any DIR given, and report each failure with all of
its problems.

Exits non-zero when any set fails.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var loadErr error
	for _, dir := range args {
		if err := reg.LoadDir(dir); err != nil {
			fmt.Fprintf(out, "FAIL  %s: %v\n", dir, err)
			loadErr = errCheckFailed
		}
	}

	failures := reg.Check(cmd.Context())
	for _, mode := range reg.Modes() {
		source, _ := reg.Source(mode)
		if err, failed := failures[mode]; failed {
			fmt.Fprintf(out, "FAIL  %-12s %s\n%s\n", mode, source, problemText(err))
			continue
		}
		fmt.Fprintf(out, "ok    %-12s %s\n", mode, source)
	}
	if len(failures) > 0 {
		modes := make([]string, 0, len(failures))
		for m := range failures {
			modes = append(modes, m)
		}
		slices.Sort(modes)
		return fmt.Errorf("%w: %v", errCheckFailed, modes)
	}
	return loadErr
}

// problemText wraps an error report and indents it under its FAIL line.
func problemText(err error) string {
	return indent.String(wordwrap.String(err.Error(), checkWrap), 6)
}
