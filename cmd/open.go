package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/registry"
	"github.com/zjrosen/hilite/internal/text"
)

// readSource reads path, or stdin for "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- the user names the file
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resolveMode picks the --mode flag, else the mode registered for path's
// extension. An empty result means the text stays Plain.
func resolveMode(cmd *cobra.Command, path string) (string, error) {
	mode, _ := cmd.Flags().GetString("mode")
	if mode != "" {
		if _, ok := reg.Source(mode); !ok {
			return "", fmt.Errorf("%w: %q (see `hilite modes`)", registry.ErrUnknownMode, mode)
		}
		return mode, nil
	}
	mode, _ = reg.ModeForPath(path)
	return mode, nil
}

// patternSetFor returns nil for the empty mode.
func patternSetFor(ctx context.Context, mode string) (*pattern.Set, error) {
	if mode == "" {
		return nil, nil
	}
	return reg.PatternSetFor(ctx, mode)
}

// schedulerConfig is the configured highlighter with the command's tracer.
func schedulerConfig(mode string) highlight.Config {
	hc := cfg.Highlight.SchedulerConfig()
	hc.Styles = stylesFor(mode)
	hc.Tracer = provider.Tracer()
	return hc
}

// openDocument loads path and opens it in sched. A document whose patterns
// fail at runtime is still returned, disabled; the failure is logged.
func openDocument(ctx context.Context, cmd *cobra.Command, sched *highlight.Scheduler, path string) (*text.Buffer, *highlight.Document, string, error) {
	src, err := readSource(cmd, path)
	if err != nil {
		return nil, nil, "", err
	}
	mode, err := resolveMode(cmd, path)
	if err != nil {
		return nil, nil, "", err
	}
	set, err := patternSetFor(ctx, mode)
	if err != nil {
		return nil, nil, "", fmt.Errorf("mode %s: %w", mode, err)
	}

	buf := text.NewBuffer(src)
	doc, err := sched.Open(ctx, buf, set)
	if err != nil {
		return nil, nil, "", err
	}
	if err := doc.Err(); err != nil {
		log.ErrorErr(log.CatSched, "highlighting disabled", err, "path", path)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", path, err)
	}
	return buf, doc, mode, nil
}

// finishPass2 runs deferred highlighting over the whole document.
func finishPass2(ctx context.Context, doc *highlight.Document, n int) error {
	for {
		done, err := doc.RegionVisible(ctx, 0, n)
		if err != nil || done {
			return err
		}
	}
}
