package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/pubsub"
	"github.com/zjrosen/hilite/internal/ui/viewer"
	"github.com/zjrosen/hilite/internal/watcher"
)

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Open a file in the interactive viewer",
	Long: `Open a file in the interactive viewer. Typing edits the text and the
highlighting follows incrementally.

With --watch, changes to the file on disk are applied as edits and changes
to its pattern file are recompiled and swapped in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0])
	},
}

func init() {
	viewCmd.Flags().BoolP("watch", "w", false, "reload the file and pattern sets when they change")
	viewCmd.Flags().BoolP("line-numbers", "n", false, "show line numbers")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, path string) error {
	if path == "-" {
		return fmt.Errorf("the viewer needs a file, not standard input")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// A new file starts empty and is created on save.
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mode, err := resolveMode(cmd, path)
	if err != nil {
		return err
	}
	broker := pubsub.NewBroker[highlight.Damage]()
	defer broker.Close()

	hc := schedulerConfig(mode)
	hc.Events = broker
	sched := highlight.NewScheduler(hc)

	buf, doc, _, err := openDocument(ctx, cmd, sched, path)
	if err != nil {
		return err
	}
	defer sched.Close(doc.ID())

	vcfg := viewer.Config{
		Path:     path,
		Buffer:   buf,
		Document: doc,
		Styles:   hc.Styles,
		Events:   broker.Subscribe(ctx),
	}
	vcfg.LineNumbers, _ = cmd.Flags().GetBool("line-numbers")

	watch, _ := cmd.Flags().GetBool("watch")
	if watch || cfg.Watch {
		changes, stop, err := startWatchers(ctx, path)
		if err != nil {
			return err
		}
		defer stop()
		vcfg.Changes = changes
		vcfg.Patterns = patternReloader(doc)
	}

	p := tea.NewProgram(viewer.New(ctx, vcfg), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// startWatchers watches the viewed file and the pattern directory and merges
// their batches into one channel.
func startWatchers(ctx context.Context, path string) (<-chan []string, func(), error) {
	var (
		sources []<-chan []string
		stops   []func()
	)
	stopAll := func() {
		for _, s := range stops {
			s()
		}
	}
	add := func(c watcher.Config) error {
		w, err := watcher.New(c)
		if err != nil {
			return err
		}
		ch, err := w.Start()
		if err != nil {
			_ = w.Stop()
			return err
		}
		sources = append(sources, ch)
		stops = append(stops, func() { _ = w.Stop() })
		return nil
	}

	if err := add(watcher.Config{Dir: filepath.Dir(path), Match: watcher.File(path)}); err != nil {
		return nil, nil, err
	}
	if info, err := os.Stat(cfg.PatternDir); err == nil && info.IsDir() {
		if err := add(watcher.Config{Dir: cfg.PatternDir}); err != nil {
			stopAll()
			return nil, nil, err
		}
	}

	out := make(chan []string)
	for _, src := range sources {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case batch, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- batch:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	return out, stopAll, nil
}

// patternReloader recompiles changed pattern files through the registry and
// hands back the set when it is the document's current mode.
func patternReloader(doc *highlight.Document) viewer.PatternReloader {
	return func(path string) (*pattern.Set, bool, error) {
		if !watcher.PatternFiles(path) {
			return nil, false, nil
		}
		mode, set, err := reg.LoadFile(path)
		current := doc.PatternSet()
		if current == nil || mode != current.Name() {
			log.Debug(log.CatWatcher, "pattern change for another mode", "path", path, "mode", mode)
			return nil, false, nil
		}
		if err != nil {
			return nil, true, err
		}
		doc.SetStyles(stylesFor(mode))
		return set, true, nil
	}
}
