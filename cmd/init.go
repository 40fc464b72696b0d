package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hilite/internal/config"
	"github.com/zjrosen/hilite/internal/style"
)

var (
	initGlobal bool
	initForce  bool
	initStyles bool
)

var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a commented default config file",
	Long: `Write a commented default config file to PATH, or to .hilite/config.yaml
(--global: ~/.config/hilite/config.yaml). An existing file is kept unless
--force is given.

A --patterns directory given on the command line is recorded as pattern_dir,
and --styles copies the built-in style table into the file for editing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := localConfigPath
		switch {
		case len(args) == 1:
			path = args[0]
		case initGlobal:
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".config", "hilite", "config.yaml")
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		if cmd.Flags().Changed("patterns") {
			if err := config.SavePatternDir(path, cfg.PatternDir); err != nil {
				return err
			}
		}
		if initStyles {
			table := style.DefaultTable()
			attrs := make(map[string]style.Attributes)
			for _, name := range table.Names() {
				attrs[name] = table.Resolve(name)
			}
			if err := config.SaveStyles(path, attrs); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initGlobal, "global", "g", false, "write the user config")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&initStyles, "styles", false, "include the built-in styles")
	rootCmd.AddCommand(initCmd)
}
