// Package cmd provides the CLI commands for syncdex.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/config"
	logpkg "github.com/kailas-cloud/syncdex/internal/logger"
	"github.com/kailas-cloud/syncdex/internal/version"
)

// rootOptions holds the persistent flags every command reads.
type rootOptions struct {
	env        string
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the syncdex CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "syncdex",
		Short: "Keep a search index in sync with a document store",
		Long: `syncdex mirrors document store collections into a search engine index
and serves structured search over them.

Collections and their index mappings are declared in config/<env>.yaml.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("syncdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Environment: local, dev, prod (selects config/<env>.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Explicit config file, overrides --env lookup")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEnsureIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newDeadLettersCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the configuration and builds the logger.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return config.Config{}, nil, err
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logpkg.NewLogger(loggerEnv(o.env), level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

// loggerEnv maps unknown environments onto the console logger.
func loggerEnv(env string) string {
	switch env {
	case "prod", "local", "dev", "docker", "test":
		return env
	default:
		return "local"
	}
}
