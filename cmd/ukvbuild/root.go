package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/bindgen"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/config"
	"github.com/wippyai/ukv-go/database"
	"github.com/wippyai/ukv-go/pipeline"
	"github.com/wippyai/ukv-go/preprocess"
)

type rootOptions struct {
	configFile string
	logFormat  string
	verbose    bool

	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ukvbuild",
		Short:         "Build the UKV engine and regenerate its Go bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(opts.logFormat, opts.verbose)
			if err != nil {
				return err
			}
			opts.log = log
			installLogger(log)

			v, err := config.New(opts.configFile)
			if err != nil {
				return err
			}
			opts.v = v
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default ./ukv.yaml if present)")
	pf.StringVar(&opts.logFormat, "log-format", "console", "log output format: console or json")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newBuildCmd(opts),
		newBindgenCmd(opts),
		newDefinesCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newLogger(format string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

func installLogger(log *zap.Logger) {
	build.SetLogger(log.Named("build"))
	preprocess.SetLogger(log.Named("preprocess"))
	bindgen.SetLogger(log.Named("bindgen"))
	pipeline.SetLogger(log.Named("pipeline"))
	database.SetLogger(log.Named("database"))
}

// bindSelection copies an explicit --backend list over the configured
// toggles. Without the flag, config and environment decide.
func bindSelection(cmd *cobra.Command, v *viper.Viper, names []string) error {
	if !cmd.Flags().Changed("backend") {
		return nil
	}
	set, err := backend.Parse(names)
	if err != nil {
		return err
	}
	for _, f := range backend.Flags() {
		v.Set(config.BackendKey(f), set.Enabled(f))
	}
	return nil
}

// bindFlags lets flags that were set override config keys.
func bindFlags(cmd *cobra.Command, v *viper.Viper, keys map[string]string) error {
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}
