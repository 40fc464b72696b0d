package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var modesJSON bool

// modeInfo is the JSON shape of one mode.
type modeInfo struct {
	Mode   string   `json:"mode"`
	Source string   `json:"source"`
	Styles []string `json:"styles"`
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the registered language modes",
	Long: `List the registered language modes and where each came from.

Examples:
  hilite modes
  hilite modes --json | jq '.[].mode'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		var infos []modeInfo
		for _, mode := range reg.Modes() {
			source, _ := reg.Source(mode)
			infos = append(infos, modeInfo{Mode: mode, Source: source, Styles: stylesFor(mode).Names()})
		}
		if modesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%-12s %s\n", info.Mode, info.Source)
		}
		return nil
	},
}

func init() {
	modesCmd.Flags().BoolVar(&modesJSON, "json", false, "print JSON")
	rootCmd.AddCommand(modesCmd)
}
