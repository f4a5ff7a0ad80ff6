package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"packetflow/internal/config"
	"packetflow/internal/observability"
)

// cli is the state shared by the subcommands. setup fills it before any
// subcommand runs.
type cli struct {
	configFile string
	logLevel   string

	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "packetflow",
		Short: "Animated packet flow and TCP congestion window diagrams",
		Long: `packetflow simulates packets hopping across a hub-and-spoke topology and ` +
			`a TCP congestion window, and streams both to a browser viewer. ` +
			`The simulation can also run headless for a fixed number of frames.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "",
		"config file (default: $"+config.EnvConfigPath+" or the standard locations)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newRunCmd(c),
		newTopologyCmd(c),
		newConfigCmd(c),
	)
	return root
}

// Execute runs the root command with os.Args
func Execute() error {
	return newRootCmd().Execute()
}

// setup loads .env, the config file and the logger
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if c.configFile != "" {
		c.cfg, c.cfgPath, err = config.LoadFromPath(c.configFile)
	} else {
		c.cfg, c.cfgPath, err = config.Load()
	}
	if err != nil {
		return err
	}

	if c.logLevel != "" {
		c.cfg.Log.Level = c.logLevel
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.logger, err = observability.SetupLogger(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	if c.cfgPath != "" {
		c.logger.Debug("config loaded", zap.String("path", c.cfgPath))
	}
	return nil
}
