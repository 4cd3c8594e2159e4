// Package cli provides CLI commands for the orphanscan application.
package cli

import (
	gocontext "context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/ctxutil"
	"github.com/example/orphanscan/internal/wire"
)

// ErrRunFailed is returned when a pass completed but at least one category
// failed. The process exits 1 on it.
var ErrRunFailed = errors.New("reconciliation run failed")

// Persistent flag values, bound once on the root command.
var (
	configPath string
	logFormat  string
	logLevel   string
)

// AddGlobalFlags binds the persistent flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML settings file (default $ORPHANSCAN_CONFIG)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// Bootstrap loads settings and installs the logger. It runs as the root
// command's PersistentPreRunE.
func Bootstrap(cmd *cobra.Command, args []string) error {
	logger, err := NewLogger(os.Stdout, logFormat, logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	wire.Configure(settings, logger)
	return nil
}

// Shutdown releases process-wide resources after the command returns.
func Shutdown() {
	wire.Close()
}

// NewLogger builds a slog logger writing to w in the given format.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: expected json or text", format)
	}
}

// NewContext returns a context cancelled on SIGINT or SIGTERM and carrying
// the configured logger. CLI commands should use this instead of
// context.Background() directly.
func NewContext() (gocontext.Context, gocontext.CancelFunc) {
	ctx, cancel := signal.NotifyContext(gocontext.Background(), os.Interrupt, syscall.SIGTERM)
	return ctxutil.WithLogger(ctx, wire.Logger()), cancel
}

// jiraArgs turns the two positional arguments into credentials.
func jiraArgs(args []string) wire.JiraCredentials {
	var creds wire.JiraCredentials
	if len(args) > 0 {
		creds.Username = args[0]
	}
	if len(args) > 1 {
		creds.Password = args[1]
	}
	return creds
}
