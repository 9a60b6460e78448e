package cli

import (
	"fmt"

	"github.com/andywolf/nebulacalc/internal/calculator"
	"github.com/andywolf/nebulacalc/internal/cloud/gcp"
	"github.com/andywolf/nebulacalc/internal/security"
	"github.com/andywolf/nebulacalc/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculator over HTTP",
	Long: `Serve calculator sessions as a JSON API.

Word problem requests are rate limited per client IP using
server.solve_rate requests per server.solve_interval.

Example:
  nebulacalc serve --addr :8080`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, appOptions{logOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.close()

	interval, err := cfg.SolveInterval()
	if err != nil {
		return err
	}

	store := server.NewStore(cfg.Server.MaxSessions, func() *calculator.Session {
		return a.newSession("http")
	})
	srv := server.New(store,
		server.WithRateLimiter(security.NewRateLimiter(cfg.Server.SolveRate, interval)),
		server.WithLogger(a.logger),
	)

	a.logger.Log(gcp.SeverityInfo, "nebulacalc listening", map[string]interface{}{
		"addr":   cfg.Server.Addr,
		"solver": a.solver != nil,
	})
	if err := srv.ListenAndServe(cmd.Context(), cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
