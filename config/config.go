package config

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/bindgen"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/errors"
	"github.com/wippyai/ukv-go/pipeline"
	"github.com/wippyai/ukv-go/preprocess"
)

const (
	// EnvPrefix prefixes every environment override: UKV_PROFILE,
	// UKV_BACKENDS_ROCKSDB, UKV_BACKENDS_FLIGHT_CLIENT.
	EnvPrefix = "UKV"
	// FileName is the config file looked up in the working directory.
	FileName = "ukv"
	FileType = "yaml"
)

// Keys.
const (
	KeySource   = "source"
	KeyOut      = "out"
	KeyProfile  = "profile"
	KeyStrategy = "strategy"
	KeyJobs     = "jobs"
	KeyCMake    = "cmake"
	KeyMake     = "make"
	KeyCompiler = "compiler"
	KeyHeaders  = "header"
	KeyInclude  = "include"
	KeyPackage  = "package"
	KeyBindings = "bindings"
	KeyPrefixes = "prefixes"
	KeyBackends = "backends"
)

// BackendKey returns the key toggling f, e.g. "backends.rocksdb".
func BackendKey(f backend.Flag) string {
	return KeyBackends + "." + string(f)
}

// New returns a viper instance with defaults and environment overrides
// wired. If file is empty, ukv.yaml is read from the working directory
// when present; a named file must exist.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType(FileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && stderrors.As(err, &notFound) {
			return v, nil
		}
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config")
	}
	return v, nil
}

// SetDefaults registers the default of every key. Backend toggles default
// to off, so each must be named explicitly.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySource, ".")
	v.SetDefault(KeyOut, "build/ukv")
	v.SetDefault(KeyProfile, string(build.ProfileRelease))
	v.SetDefault(KeyStrategy, string(build.StrategyToolchain))
	v.SetDefault(KeyJobs, 0)
	v.SetDefault(KeyCMake, "cmake")
	v.SetDefault(KeyMake, "make")
	v.SetDefault(KeyCompiler, "cc")
	v.SetDefault(KeyHeaders, []string{preprocess.DefaultHeader})
	v.SetDefault(KeyInclude, []string{})
	v.SetDefault(KeyPackage, bindgen.DefaultPackage)
	v.SetDefault(KeyBindings, bindgen.DefaultOutput)
	v.SetDefault(KeyPrefixes, []string{"ukv_"})
	for _, f := range backend.Flags() {
		v.SetDefault(BackendKey(f), false)
	}
}

// Load resolves v into a pipeline configuration. Every problem found is
// reported, not just the first.
func Load(v *viper.Viper) (pipeline.Config, error) {
	var err error

	toggles := make(map[backend.Flag]bool)
	for _, f := range backend.Flags() {
		toggles[f] = v.GetBool(BackendKey(f))
	}
	err = multierr.Append(err, unknownBackends(v))
	set, serr := backend.Select(toggles)
	err = multierr.Append(err, serr)

	profile, perr := build.ParseProfile(v.GetString(KeyProfile))
	err = multierr.Append(err, perr)
	strategy, serr := build.ParseStrategy(v.GetString(KeyStrategy))
	err = multierr.Append(err, serr)

	jobs := v.GetInt(KeyJobs)
	if jobs < 0 {
		err = multierr.Append(err, invalid("%s must not be negative, got %d", KeyJobs, jobs))
	}
	for _, key := range []string{KeySource, KeyOut, KeyBindings, KeyCompiler, KeyPackage} {
		if strings.TrimSpace(v.GetString(key)) == "" {
			err = multierr.Append(err, invalid("%s must not be empty", key))
		}
	}
	headers := v.GetStringSlice(KeyHeaders)
	if len(headers) == 0 {
		err = multierr.Append(err, invalid("%s must name at least one header", KeyHeaders))
	}

	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Build: build.Options{
			SourceDir: v.GetString(KeySource),
			OutDir:    v.GetString(KeyOut),
			Profile:   profile,
			Strategy:  strategy,
			CMake:     v.GetString(KeyCMake),
			Make:      v.GetString(KeyMake),
			Backends:  set,
			Jobs:      jobs,
		},
		Preprocess: preprocess.Options{
			Compiler:    v.GetString(KeyCompiler),
			Headers:     headers,
			IncludeDirs: v.GetStringSlice(KeyInclude),
		},
		Bindgen: bindgen.Options{
			Package:  v.GetString(KeyPackage),
			Prefixes: v.GetStringSlice(KeyPrefixes),
			Includes: headers,
		},
		Bindings: v.GetString(KeyBindings),
	}, nil
}

// unknownBackends rejects toggles in the config file that name no flag.
func unknownBackends(v *viper.Viper) error {
	var unknown []string
	for name := range v.GetStringMap(KeyBackends) {
		if !backend.Flag(name).Valid() {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return invalid("unknown %s: %s", KeyBackends, strings.Join(unknown, ", "))
}

func invalid(format string, args ...any) error {
	return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf(format, args...))
}
