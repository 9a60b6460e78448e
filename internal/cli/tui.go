package cli

import (
	"github.com/andywolf/nebulacalc/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal calculator",
	Long: `Open the full-screen calculator over a twinkling star field.

Type expressions directly or move over the keypad with the arrow keys and press
space. Enter evaluates, tab switches RAD/DEG and ctrl+w opens the word problem
solver when credentials are configured.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().Bool("still", false, "Do not animate the star field")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Local logs would draw over the screen, so only Cloud Logging is kept.
	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	var opts []tui.Option
	if still, _ := cmd.Flags().GetBool("still"); still {
		opts = append(opts, tui.WithoutAnimation())
	}
	return tui.Run(cmd.Context(), a.newSession("tui"), opts...)
}
