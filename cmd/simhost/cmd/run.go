package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/simhost"
	"github.com/GoCodeAlone/simhost/modules/builtin"
	"github.com/GoCodeAlone/simhost/modules/world"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		configPath string
		maxTicks   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation headless",
		Long: `Load the application config, build and start the configured modules and
run the tick loop until the stop condition or the tick budget ends it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootApplication(cmd, configPath, maxTicks)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run failed: %w", err)
			}
			printSummary(cmd, app)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the application config (toml, yaml or json)")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Override the configured tick budget")

	return cmd
}

// bootApplication loads the config, then initializes and starts the
// application with the built-in module factories.
func bootApplication(cmd *cobra.Command, configPath string, maxTicks int) (*simhost.Application, error) {
	if configPath == "" {
		return nil, ErrConfigRequired
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := simhost.LoadAppConfig(configPath)
	if err != nil {
		return nil, err
	}
	if maxTicks > 0 {
		cfg.MaxTicks = maxTicks
	}

	app, err := simhost.NewApplication(
		simhost.WithLogger(logger),
		simhost.WithConfig(cfg),
		simhost.WithFactories(builtin.Register),
	)
	if err != nil {
		return nil, err
	}
	if err := app.Initialize(); err != nil {
		return nil, err
	}
	if err := app.StartModules(); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

func printSummary(cmd *cobra.Command, app *simhost.Application) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ticks: %d\n", app.Ticks())
	m, ok := app.Manager().FindModule(world.TypeID, simhost.DefaultInstanceID)
	if !ok {
		return
	}
	if w, ok := m.(*world.Module); ok {
		state := w.ReadModel()
		fmt.Fprintf(out, "seed: %d\n", state.Seed)
		fmt.Fprintf(out, "energy_total: %d\n", state.EnergyTotal)
		fmt.Fprintf(out, "checksum: %s\n", w.Checksum())
	}
}
