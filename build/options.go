package build

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/errors"
)

// Profile is the host build profile.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// BuildType returns the CMAKE_BUILD_TYPE the profile maps to.
func (p Profile) BuildType() string {
	if p == ProfileDebug {
		return "Debug"
	}
	return "Release"
}

// OptLevel returns the native optimization level: "0" for debug, "3" for release.
func (p Profile) OptLevel() string {
	if p == ProfileDebug {
		return "0"
	}
	return "3"
}

// ParseProfile accepts "debug" or "release". Empty means release.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case "", ProfileRelease:
		return ProfileRelease, nil
	case ProfileDebug:
		return ProfileDebug, nil
	}
	return "", errors.InvalidInput(errors.PhaseBuild, fmt.Sprintf("unknown profile %q", s))
}

// Strategy selects how the compile step invokes the native toolchain.
type Strategy string

const (
	// StrategyToolchain lets cmake drive the underlying build tool.
	StrategyToolchain Strategy = "toolchain"
	// StrategyDirect generates makefiles and runs make directly.
	StrategyDirect Strategy = "direct"
)

// ParseStrategy accepts "toolchain" or "direct". Empty means toolchain.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyToolchain:
		return StrategyToolchain, nil
	case StrategyDirect:
		return StrategyDirect, nil
	}
	return "", errors.InvalidInput(errors.PhaseBuild, fmt.Sprintf("unknown strategy %q", s))
}

// Options configures one orchestration.
type Options struct {
	Runner    Runner
	Env       map[string]string
	SourceDir string
	OutDir    string
	Profile   Profile
	Strategy  Strategy
	CMake     string
	Make      string
	Backends  backend.Set
	Jobs      int
}

func (o *Options) setDefaults() {
	if o.Runner == nil {
		o.Runner = ShellRunner{}
	}
	if o.Profile == "" {
		o.Profile = ProfileRelease
	}
	if o.Strategy == "" {
		o.Strategy = StrategyToolchain
	}
	if o.CMake == "" {
		o.CMake = "cmake"
	}
	if o.Make == "" {
		o.Make = "make"
	}
	if o.Jobs <= 0 {
		o.Jobs = DefaultJobs()
	}
}

func (o *Options) validate() error {
	var err error
	if o.SourceDir == "" {
		err = multierr.Append(err, errors.InvalidInput(errors.PhaseBuild, "source directory is required"))
	}
	if o.OutDir == "" {
		err = multierr.Append(err, errors.InvalidInput(errors.PhaseBuild, "output directory is required"))
	}
	if _, perr := ParseProfile(string(o.Profile)); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, serr := ParseStrategy(string(o.Strategy)); serr != nil {
		err = multierr.Append(err, serr)
	}
	return err
}
