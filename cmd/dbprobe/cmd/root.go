package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thisdougb/dbprobe"
	"github.com/thisdougb/dbprobe/internal/config"
)

const shutdownTimeout = 5 * time.Second

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbprobe",
		Short: "dbprobe measures query latency and runs diagnostics when it is slow.",
		Long: `dbprobe repeatedly executes a SQL statement against one database, logs
how long each execution takes and runs a battery of diagnostic queries
whenever an execution is slower than DIAGNOSTIC.THRESHOLD.

Settings are read from a Java-style properties file:

CONNECTION.URL=jdbc:mysql://localhost:3306/app
CONNECTION.USERNAME=probe
CONNECTION.PASSWORD=secret
CONNECTION.DRIVERCLASS=com.mysql.cj.jdbc.Driver
DIAGNOSTIC.THRESHOLD=200

The location of this file can be passed in using the --config argument.
If not provided, $DBPROBE_CONFIG or ./config.properties is used.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cmd)
		},
	}

	cmd.Flags().StringP("config", "c", config.StringValue("DBPROBE_CONFIG"), "path to the properties file")
	cmd.Flags().String("status-addr", config.StringValue("DBPROBE_STATUS_ADDR"), "listen address for /health, /status and /metrics, empty disables")
	cmd.Flags().String("identity", config.StringValue("DBPROBE_IDENTITY"), "identity reported by /health and /metrics")
	cmd.Flags().Int("rolling-size", config.IntValue("DBPROBE_ROLLING_SIZE"), "samples kept in the rolling latency window")
	cmd.Flags().Bool("debug", config.BoolValue("DBPROBE_DEBUG"), "enable debug logging")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command) error {

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("status-addr")
	if err != nil {
		return err
	}
	identity, err := cmd.Flags().GetString("identity")
	if err != nil {
		return err
	}
	rollingSize, err := cmd.Flags().GetInt("rolling-size")
	if err != nil {
		return err
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return err
	}

	ctx = config.SetContextCorrelationId(ctx, "dbprobe")
	if debug {
		ctx = config.EnableDebug(ctx)
	}

	cfg, err := dbprobe.LoadConfig(path)
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("Can't find/read config file. %v", err))
		return err
	}
	config.LogDebug(ctx, fmt.Sprintf("config loaded from %s, iterations %s", path, cfg.Iterations))

	p := dbprobe.NewProbe(ctx, cfg, identity, rollingSize)

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: p.Handler()}
		go func() {
			config.LogInfo(ctx, fmt.Sprintf("status server listening on %s", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				config.LogError(ctx, fmt.Sprintf("status server stopped. %v", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				config.LogError(ctx, fmt.Sprintf("status server shutdown. %v", err))
			}
		}()
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	config.LogDebug(ctx, fmt.Sprintf("run finished: %d attempted, %d succeeded, %d failed, %d diagnostic runs",
		summary.Attempted, summary.Succeeded, summary.Failed, summary.DiagnosticRuns))
	return nil
}
