package cmd

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed guide.md
var guideText string

// noMarginStyle removes the document margins glamour adds by default.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the pattern file reference",
	Args:  cobra.NoArgs,
	RunE:  runGuide,
}

func init() {
	guideCmd.Flags().Int("width", 80, "wrap the reference at this column")
	guideCmd.Flags().Bool("raw", false, "print the markdown source")
	rootCmd.AddCommand(guideCmd)
}

func runGuide(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		_, err := fmt.Fprint(out, guideText)
		return err
	}
	width, _ := cmd.Flags().GetInt("width")
	if width < 20 {
		return fmt.Errorf("--width must be at least 20, got %d", width)
	}

	// A fixed style avoids the terminal background query WithAutoStyle makes.
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	rendered, err := r.Render(guideText)
	if err != nil {
		return fmt.Errorf("rendering guide: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
