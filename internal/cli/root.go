package cli

import (
	"log/slog"
	"os"

	"github.com/me/lunchwheel/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking LUNCHWHEEL_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("LUNCHWHEEL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the lunchwheel CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lunchwheel",
		Short: "Spin a wheel of nearby restaurants",
		Long:  "lunchwheel finds restaurants near a ZIP code or coordinates through the lunch wheel proxy and picks one at random.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Proxy server URL (or LUNCHWHEEL_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newGeocodeCmd(),
		newPlacesCmd(),
		newSpinCmd(),
	)

	return root
}
