package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"metals-dashboard/internal/app"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/logging"
)

// globalFlags 覆盖配置文件中的同名项。
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var (
	flags     globalFlags
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "metalsdash",
	Short:         "Gold and silver price dashboard with forecasts and an advisor bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		flags.apply(cfg)

		appHandle = app.NewApp(cfg, logging.NewLogger(cfg.Logging))
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

func (f globalFlags) apply(cfg *config.Config) {
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "metalsdash: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override logging.level")
	pf.StringVar(&flags.logFormat, "log-format", "", "Override logging.format (json or console)")

	rootCmd.AddCommand(
		serveCmd, watchCmd,
		showCmd, cityCmd, calcCmd,
		forecastCmd, askCmd,
		exportCmd, simulateCmd,
		versionCmd,
	)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("metalsdash: command ran before configuration was loaded")
	}
	return appHandle
}
