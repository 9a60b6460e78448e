package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andywolf/nebulacalc/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// envKeys are bound explicitly so they reach config.Load even when the
// config file does not mention them.
var envKeys = []string{
	"calculator.angle_mode",
	"solver.model",
	"solver.endpoint",
	"solver.api_key",
	"solver.api_key_secret",
	"solver.service_account_key_file",
	"solver.project",
	"logging.project",
	"langfuse.enabled",
	"langfuse.public_key",
	"langfuse.secret_key",
	"server.addr",
}

var rootCmd = &cobra.Command{
	Use:   "nebulacalc",
	Short: "nebulacalc - a scientific calculator with an AI word problem solver",
	Long: `nebulacalc evaluates calculator expressions (sin, cos, tan, log, ln, sqrt,
π, e, ^ and %) in radians or degrees, and can turn a word problem into an
expression with a Gemini-compatible completion service.

Examples:
  nebulacalc eval "sin(90)" --angle DEG
  nebulacalc solve "A train covers 120 km in 1.5 hours. What is its speed?"
  nebulacalc tui
  nebulacalc serve --addr :8080`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command with ctx available to subcommands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .nebulacalc.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nebulacalc")
	}

	viper.SetEnvPrefix("NEBULACALC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
