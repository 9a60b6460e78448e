package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/spf13/cobra"
)

var solveCmd = &cobra.Command{
	Use:   "solve <problem>",
	Short: "Turn a word problem into an expression",
	Long: `Send a word problem to the completion service and print the expression it
returns. Failed requests are retried with exponential backoff.

Credentials come from solver.api_key, solver.api_key_secret (Secret Manager)
or solver.service_account_key_file.

Example:
  nebulacalc solve "What is 3 plus 5 divided by 2?" --eval`,
	Args: cobra.MinimumNArgs(1),
	RunE: solveProblem,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().Bool("eval", false, "Also evaluate the returned expression")
	solveCmd.Flags().String("angle", "", "Angle mode used with --eval (RAD, DEG)")
}

func solveProblem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if angle, _ := cmd.Flags().GetString("angle"); angle != "" {
		cfg.Calculator.AngleMode = angle
	}

	var logOutput io.Writer
	if cfg.Logging.Verbose {
		logOutput = cmd.ErrOrStderr()
	}
	a, err := newApp(cmd.Context(), cfg, appOptions{requireSolver: true, logOutput: logOutput})
	if err != nil {
		return err
	}
	defer a.close()

	evaluate, _ := cmd.Flags().GetBool("eval")
	return runSolve(cmd, a.newSession("cli"), strings.Join(args, " "), evaluate)
}

func runSolve(cmd *cobra.Command, sess *calculator.Session, problem string, evaluate bool) error {
	expression, err := sess.SolveWordProblem(cmd.Context(), problem)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), calculator.StatusMessage(err))
		return err
	}

	if !evaluate {
		fmt.Fprintln(cmd.OutOrStdout(), expression)
		return nil
	}
	sess.Evaluate()
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", expression, sess.Display())
	return nil
}
