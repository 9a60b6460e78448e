package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/andywolf/nebulacalc/internal/expr"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [expression]",
	Short: "Evaluate a calculator expression",
	Long: `Evaluate a calculator expression and print the result as the display would
show it: a number, "TOO BIG!", "TOO SMALL!" or "Error".

With no argument, expressions are read from stdin one per line. Each result
stays in the buffer, so a line starting with an operator continues from it.

Examples:
  nebulacalc eval "2^10"
  nebulacalc eval "sin(30)" --angle DEG
  printf '1/3\n*3\n' | nebulacalc eval`,
	RunE: evalExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("angle", "", "Angle mode for trigonometric functions (RAD, DEG)")
}

func evalExpression(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if angle, _ := cmd.Flags().GetString("angle"); angle != "" {
		cfg.Calculator.AngleMode = angle
	}
	mode, err := cfg.AngleMode()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return evalLines(cmd.InOrStdin(), cmd.OutOrStdout(), mode)
	}
	return evalOne(cmd.OutOrStdout(), strings.Join(args, " "), mode)
}

// evalOne prints the result of one expression. An empty expression is
// left alone, as pressing "=" on an empty display is.
func evalOne(w io.Writer, expression string, mode expr.AngleMode) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	out := expr.Evaluate(expression, mode)
	fmt.Fprintln(w, out.Message())
	if !out.OK() {
		return fmt.Errorf("expression %q did not evaluate to a number (%s)", expression, out.Kind)
	}
	return nil
}

// evalLines feeds each line into one session, printing the display after
// every evaluation.
func evalLines(r io.Reader, w io.Writer, mode expr.AngleMode) error {
	sess := calculator.NewSession(calculator.WithAngleMode(mode), calculator.WithSource("cli"))

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sess.Editor().Append(line)
		sess.Evaluate()
		fmt.Fprintln(w, sess.Display())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read expressions: %w", err)
	}
	return nil
}
