package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("simhost v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for the simhost application
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simhost",
		Short: "simhost - pluggable module host with a fixed-phase tick loop",
		Long: `simhost discovers module descriptors, starts the configured module
instances in dependency order and drives them through a tick loop.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewModulesCommand())
	cmd.AddCommand(NewDescriptorsCommand())

	return cmd
}

// newLogger builds the slog logger selected by the persistent log flags.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	return buildLogger(cmd.ErrOrStderr(), level, format)
}

func buildLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidLogFormat, format)
	}
}
