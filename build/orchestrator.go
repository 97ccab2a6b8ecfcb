package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/errors"
)

// Step names used in logs and errors.
const (
	StepSource    = "source"
	StepConfigure = "configure"
	StepCompile   = "compile"
	StepHeaders   = "headers"
	StepVerify    = "verify"
	StepManifest  = "manifest"
)

// Orchestrator compiles the native engine for one backend selection.
// Two orchestrations must not share an output directory concurrently.
type Orchestrator struct {
	opts Options
}

// New creates an orchestrator. Options are validated by Build.
func New(opts Options) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{opts: opts}
}

// Options returns the effective options after defaults.
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Build configures and compiles the engine, copies its public headers next
// to the output and returns the artifact. Any failing step aborts the
// build with a KindBuildFailure error carrying the tool output.
func (o *Orchestrator) Build(ctx context.Context) (*Artifact, error) {
	if err := o.opts.validate(); err != nil {
		return nil, errors.BuildFailed(StepSource, "", err)
	}

	if err := checkSource(o.opts.SourceDir); err != nil {
		return nil, err
	}

	art, err := NewArtifact(o.opts.Backends, o.opts.Profile, o.opts.Strategy, o.opts.SourceDir, o.opts.OutDir)
	if err != nil {
		return nil, errors.BuildFailed(StepSource, "", err)
	}

	log := Logger().With(
		zap.String("backends", art.Backends().String()),
		zap.String("profile", string(art.Profile())),
		zap.String("strategy", string(art.Strategy())),
	)
	if !art.Backends().HasStorage() {
		log.Warn("no storage backend enabled, the library will not open databases")
	}

	for _, dir := range []string{art.BuildDir(), art.LibDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.BuildFailed(StepConfigure, "", fmt.Errorf("create %s: %w", dir, err))
		}
	}

	for _, cmd := range o.Commands(art) {
		if err := ctx.Err(); err != nil {
			return nil, errors.BuildFailed(cmd.Step, "", err)
		}
		start := time.Now()
		log.Info("running native step", zap.String("step", cmd.Step), zap.Stringer("cmd", cmd))
		out, err := o.opts.Runner.Run(ctx, cmd)
		if err != nil {
			log.Error("native step failed", zap.String("step", cmd.Step), zap.Error(err))
			if e, ok := err.(*errors.Error); ok {
				return nil, e
			}
			return nil, errors.BuildFailed(cmd.Step, string(out), err)
		}
		log.Debug("native step done", zap.String("step", cmd.Step), zap.Duration("took", time.Since(start)))
	}

	n, err := copyHeaders(filepath.Join(art.SourceDir(), "include"), art.IncludeDir())
	if err != nil {
		return nil, errors.BuildFailed(StepHeaders, "", err)
	}
	log.Debug("public headers copied", zap.Int("files", n), zap.String("dir", art.IncludeDir()))

	if err := verifyLibraries(art); err != nil {
		return nil, err
	}

	path, err := art.WriteManifest()
	if err != nil {
		return nil, errors.BuildFailed(StepManifest, "", err)
	}

	log.Info("native build complete",
		zap.String("lib_dir", art.LibDir()),
		zap.Strings("libs", art.Libraries()),
		zap.String("manifest", path),
	)
	return art, nil
}

// Commands returns the configure and compile invocations for art.
func (o *Orchestrator) Commands(art *Artifact) []Command {
	configure := []string{
		"-S", art.SourceDir(),
		"-B", art.BuildDir(),
		"-DCMAKE_BUILD_TYPE=" + art.Profile().BuildType(),
		"-DCMAKE_ARCHIVE_OUTPUT_DIRECTORY=" + art.LibDir(),
		"-DCMAKE_LIBRARY_OUTPUT_DIRECTORY=" + art.LibDir(),
		"-DUKV_BUILD_TESTS=0",
		"-DUKV_BUILD_BENCHMARKS=0",
	}
	if o.opts.Strategy == StrategyDirect {
		configure = append(configure, "-G", "Unix Makefiles")
	}
	for _, d := range art.Defines() {
		configure = append(configure, "-D"+d.String())
	}

	jobs := strconv.Itoa(o.opts.Jobs)
	var compile Command
	switch o.opts.Strategy {
	case StrategyDirect:
		compile = Command{
			Step: StepCompile,
			Name: o.opts.Make,
			Args: []string{"-C", art.BuildDir(), "-j" + jobs},
		}
	default:
		compile = Command{
			Step: StepCompile,
			Name: o.opts.CMake,
			Args: []string{
				"--build", art.BuildDir(),
				"--config", art.Profile().BuildType(),
				"--parallel", jobs,
			},
		}
	}
	compile.Env = o.opts.Env

	return []Command{
		{Step: StepConfigure, Name: o.opts.CMake, Args: configure, Env: o.opts.Env},
		compile,
	}
}

func checkSource(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.BuildFailed(StepSource, "", fmt.Errorf("engine source root: %w", err))
	}
	if !info.IsDir() {
		return errors.BuildFailed(StepSource, "", fmt.Errorf("engine source root %s is not a directory", dir))
	}
	for _, name := range []string{"CMakeLists.txt", "include"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return errors.BuildFailed(StepSource, "", fmt.Errorf("engine source root: %w", err))
		}
	}
	return nil
}

var libraryPatterns = []string{"lib%s.a", "lib%s.so", "lib%s.dylib"}

func verifyLibraries(art *Artifact) error {
	var missing []string
	for _, lib := range art.Libraries() {
		found := false
		for _, pat := range libraryPatterns {
			if _, err := os.Stat(filepath.Join(art.LibDir(), fmt.Sprintf(pat, lib))); err == nil {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, lib)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.PhaseBuild, errors.KindBuildFailure).
			Step(StepVerify).
			Detail("libraries not produced in %s: %v", art.LibDir(), missing).
			Build()
	}
	return nil
}
