package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wundergraph/graphql-compiler/pkg/config"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gqlc",
	Short: "gqlc compiles GraphQL documents into artifacts",
	Long: `gqlc compiles the GraphQL operations and fragments of one or more projects against
their schema. Documents are read from .graphql files and from graphql tagged templates in
JavaScript and TypeScript sources. Every operation and fragment is validated, transformed and
written to the project's output directory as a JSON artifact.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./gqlc.yaml or $HOME/gqlc.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error, overrides the config")
}

// logger builds the zap backed logger for the configured level.
func logger() (log.Logger, func(), error) {
	level, abstractLevel, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.DisableStacktrace = true
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}
	return log.NewZapLogger(zapLogger, abstractLevel), func() { _ = zapLogger.Sync() }, nil
}

func parseLevel(level string) (zapcore.Level, log.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, log.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, log.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, log.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, log.ErrorLevel, nil
	}
	return 0, 0, fmt.Errorf("unknown log level: %s", level)
}
