package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andywolf/nebulacalc/internal/cli/wizard"
	"github.com/andywolf/nebulacalc/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const configFileName = ".nebulacalc.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize calculator configuration",
	Long: `Create a .nebulacalc.yaml file in the current directory.

Without flags an interactive form asks for the settings. Credentials are
stored as a Secret Manager path or a key file location, never inline.

Example:
  nebulacalc init
  nebulacalc init --no-input --angle DEG --api-key-secret gemini-api-key`,
	RunE: initProject,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("no-input", false, "Use flags and defaults without prompting")
	initCmd.Flags().String("angle", "RAD", "Angle mode (RAD, DEG)")
	initCmd.Flags().String("model", "", "Completion model")
	initCmd.Flags().String("api-key-secret", "", "Secret Manager path of the API key")
	initCmd.Flags().String("service-account-key-file", "", "Service account key file")
	initCmd.Flags().StringToString("prompt-var", nil, "Extra prompt template variable (key=value)")
	initCmd.Flags().Bool("langfuse", false, "Enable Langfuse tracing")
	initCmd.Flags().Bool("force", false, "Overwrite existing config")
}

func initProject(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(".", configFileName)
	force, _ := cmd.Flags().GetBool("force")
	noInput, _ := cmd.Flags().GetBool("no-input")

	answers := wizard.Answers{Model: config.Default().Solver.Model}
	answers.AngleMode, _ = cmd.Flags().GetString("angle")
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		answers.Model = model
	}
	answers.APIKeySecret, _ = cmd.Flags().GetString("api-key-secret")
	answers.ServiceAccountKeyFile, _ = cmd.Flags().GetString("service-account-key-file")
	answers.PromptVariables, _ = cmd.Flags().GetStringToString("prompt-var")
	answers.LangfuseEnabled, _ = cmd.Flags().GetBool("langfuse")
	switch {
	case answers.ServiceAccountKeyFile != "":
		answers.Auth = wizard.AuthServiceAccount
	case answers.APIKeySecret != "":
		answers.Auth = wizard.AuthSecretManager
	}

	if !noInput {
		if _, err := os.Stat(configPath); err == nil && !force {
			ok, err := wizard.ConfirmOverwrite(configPath)
			if err != nil {
				return fmt.Errorf("prompt cancelled: %w", err)
			}
			if !ok {
				return nil
			}
			force = true
		}
		var err error
		if answers, err = wizard.PromptSetup(answers); err != nil {
			return err
		}
	}

	if err := writeConfig(configPath, configFromAnswers(answers), force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n\n", configPath)
	printNextSteps(out, answers)
	return nil
}

// configFromAnswers builds the file contents. The endpoint is left out so it
// keeps following the model.
func configFromAnswers(a wizard.Answers) *config.Config {
	cfg := config.Default()
	cfg.Calculator.AngleMode = a.AngleMode
	if a.Model != "" {
		cfg.Solver.Model = a.Model
	}
	cfg.Solver.Endpoint = ""
	cfg.Solver.APIKeySecret = a.APIKeySecret
	cfg.Solver.ServiceAccountKeyFile = a.ServiceAccountKeyFile
	cfg.Solver.PromptVariables = a.PromptVariables
	cfg.Langfuse.Enabled = a.LangfuseEnabled
	if a.LangfuseEnabled {
		cfg.Langfuse.PublicKeySecret = "langfuse-public-key"
		cfg.Langfuse.SecretKeySecret = "langfuse-secret-key"
	}
	return cfg
}

func writeConfig(path string, cfg *config.Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# nebulacalc configuration
# Every key can be overridden with NEBULACALC_<SECTION>_<KEY>, e.g.
# NEBULACALC_SOLVER_API_KEY.

`
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func printNextSteps(w io.Writer, a wizard.Answers) {
	fmt.Fprintln(w, "Next steps:")
	switch a.Auth {
	case wizard.AuthSecretManager:
		fmt.Fprintf(w, "  1. Store your API key in Secret Manager as %s\n", a.APIKeySecret)
	case wizard.AuthServiceAccount:
		fmt.Fprintf(w, "  1. Make sure %s is readable\n", a.ServiceAccountKeyFile)
	default:
		fmt.Fprintln(w, "  1. Set NEBULACALC_SOLVER_API_KEY to enable the word problem solver")
	}
	if a.LangfuseEnabled {
		fmt.Fprintln(w, "  2. Store Langfuse keys as langfuse-public-key and langfuse-secret-key")
	} else {
		fmt.Fprintln(w, "  2. Run 'nebulacalc eval \"2^10\"' to check the setup")
	}
	fmt.Fprintln(w, "  3. Run 'nebulacalc tui' to open the calculator")
}
