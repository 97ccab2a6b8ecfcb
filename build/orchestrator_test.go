package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/errors"
)

// fakeToolchain records every command and, on the compile step, writes
// the static libraries the configure step asked for.
type fakeToolchain struct {
	failStep string
	output   string
	cmds     []Command
	skipLibs map[string]bool
}

func (f *fakeToolchain) Run(ctx context.Context, cmd Command) ([]byte, error) {
	f.cmds = append(f.cmds, cmd)
	if cmd.Step == f.failStep {
		return []byte(f.output), stderrors.New("exit status 2")
	}
	if cmd.Step != StepCompile {
		return []byte("-- Configuring done\n"), nil
	}
	configure := f.cmds[0]
	var libDir string
	enabled := map[string]bool{}
	for _, a := range configure.Args {
		if v, ok := strings.CutPrefix(a, "-DCMAKE_ARCHIVE_OUTPUT_DIRECTORY="); ok {
			libDir = v
		}
		for _, fl := range backend.Flags() {
			if a == "-D"+fl.Define()+"=1" {
				enabled[fl.Library()] = true
			}
		}
	}
	for lib := range enabled {
		if f.skipLibs[lib] {
			continue
		}
		if err := os.WriteFile(filepath.Join(libDir, "lib"+lib+".a"), []byte("!<arch>\n"), 0o644); err != nil {
			return nil, err
		}
	}
	return []byte("[100%] Built target ukv\n"), nil
}

func newSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(ukv)\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include", "ukv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "include", "ukv", "db.h"), []byte("void ukv_database_free(void*);\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "include", "ukv", "blobs.h"), []byte("#include \"ukv/db.h\"\n"), 0o644))
	return src
}

func argsOf(cmds []Command, step string) []string {
	for _, c := range cmds {
		if c.Step == step {
			return c.Args
		}
	}
	return nil
}

func TestBuild_RocksDBOnly(t *testing.T) {
	src := newSource(t)
	out := filepath.Join(t.TempDir(), "out")
	tc := &fakeToolchain{}

	art, err := New(Options{
		SourceDir: src,
		OutDir:    out,
		Backends:  backend.MustSelect(backend.RocksDB),
		Runner:    tc,
		Jobs:      6,
	}).Build(context.Background())
	require.NoError(t, err)

	configure := argsOf(tc.cmds, StepConfigure)
	assert.Contains(t, configure, "-DUKV_BUILD_ENGINE_ROCKSDB=1")
	assert.Contains(t, configure, "-DUKV_BUILD_ENGINE_UMEM=0")
	assert.Contains(t, configure, "-DUKV_BUILD_ENGINE_LEVELDB=0")
	assert.Contains(t, configure, "-DUKV_BUILD_API_FLIGHT_CLIENT=0")
	assert.Contains(t, configure, "-DUKV_BUILD_API_FLIGHT_SERVER=0")
	assert.Contains(t, configure, "-DUKV_BUILD_TESTS=0")
	assert.Contains(t, configure, "-DUKV_BUILD_BENCHMARKS=0")
	assert.Contains(t, configure, "-DCMAKE_BUILD_TYPE=Release")

	compile := argsOf(tc.cmds, StepCompile)
	assert.Equal(t, []string{"--build", art.BuildDir(), "--config", "Release", "--parallel", "6"}, compile)

	assert.True(t, filepath.IsAbs(art.LibDir()))
	assert.Equal(t, []string{"-L" + art.LibDir(), "-lukv_embedded_rocksdb"}, art.LinkDirectives())

	assert.FileExists(t, filepath.Join(art.IncludeDir(), "ukv", "db.h"))
	assert.FileExists(t, filepath.Join(art.IncludeDir(), "ukv", "blobs.h"))
	assert.FileExists(t, filepath.Join(art.OutDir(), ManifestName))
}

func TestBuild_LinkSetMatchesSelection(t *testing.T) {
	flags := backend.Flags()
	for mask := 1; mask < 1<<len(flags); mask++ {
		toggles := map[backend.Flag]bool{}
		for i, f := range flags {
			toggles[f] = mask&(1<<i) != 0
		}
		set, err := backend.Select(toggles)
		require.NoError(t, err)
		if !set.HasStorage() {
			continue
		}

		art, err := New(Options{
			SourceDir: newSource(t),
			OutDir:    t.TempDir(),
			Backends:  set,
			Runner:    &fakeToolchain{},
			Jobs:      1,
		}).Build(context.Background())
		require.NoError(t, err, "set %s", set)

		linked := map[string]bool{}
		for _, d := range art.LinkDirectives()[1:] {
			linked[strings.TrimPrefix(d, "-l")] = true
		}
		for _, f := range flags {
			assert.Equal(t, toggles[f], linked[f.Library()], "set %s library %s", set, f.Library())
		}
		assert.Len(t, linked, len(set.List()))
	}
}

func TestBuild_DirectStrategyDebug(t *testing.T) {
	tc := &fakeToolchain{}
	art, err := New(Options{
		SourceDir: newSource(t),
		OutDir:    t.TempDir(),
		Backends:  backend.MustSelect(backend.UMem),
		Profile:   ProfileDebug,
		Strategy:  StrategyDirect,
		Runner:    tc,
		Jobs:      3,
	}).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, tc.cmds, 2)
	assert.Equal(t, "cmake", tc.cmds[0].Name)
	assert.Contains(t, tc.cmds[0].Args, "-DCMAKE_BUILD_TYPE=Debug")
	assert.Contains(t, tc.cmds[0].Args, "Unix Makefiles")
	assert.Equal(t, "make", tc.cmds[1].Name)
	assert.Equal(t, []string{"-C", art.BuildDir(), "-j3"}, tc.cmds[1].Args)
}

func TestBuild_MissingSourceRoot(t *testing.T) {
	tc := &fakeToolchain{}
	_, err := New(Options{
		SourceDir: filepath.Join(t.TempDir(), "does-not-exist"),
		OutDir:    t.TempDir(),
		Backends:  backend.MustSelect(backend.RocksDB),
		Runner:    tc,
	}).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBuildFailure))
	assert.Empty(t, tc.cmds, "no native command may run without a source root")
}

func TestBuild_SourceWithoutCMakeLists(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include"), 0o755))
	_, err := New(Options{
		SourceDir: src,
		OutDir:    t.TempDir(),
		Runner:    &fakeToolchain{},
	}).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBuildFailure))
	assert.Contains(t, err.Error(), "CMakeLists.txt")
}

func TestBuild_SourceDirWithDollar(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ukv$HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include", "ukv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(ukv)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "include", "ukv", "db.h"), []byte("/* db */\n"), 0o644))

	_, err := New(Options{
		SourceDir: src,
		OutDir:    t.TempDir(),
		Backends:  backend.MustSelect(backend.RocksDB),
	}).Build(context.Background())
	require.Error(t, err)

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.KindBuildFailure, e.Kind)
	assert.Equal(t, StepConfigure, e.Step)
	assert.Contains(t, e.Detail, "ukv$HOME")
}

func TestBuild_StepFailureCarriesOutput(t *testing.T) {
	for _, step := range []string{StepConfigure, StepCompile} {
		t.Run(step, func(t *testing.T) {
			output := "CMake Error at CMakeLists.txt:42 (find_package):\n  Could not find RocksDB\n"
			tc := &fakeToolchain{failStep: step, output: output}
			out := t.TempDir()
			_, err := New(Options{
				SourceDir: newSource(t),
				OutDir:    out,
				Backends:  backend.MustSelect(backend.RocksDB),
				Runner:    tc,
			}).Build(context.Background())
			require.Error(t, err)

			var e *errors.Error
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, errors.KindBuildFailure, e.Kind)
			assert.Equal(t, step, e.Step)
			assert.Equal(t, output, e.Output)
			assert.NoFileExists(t, filepath.Join(out, ManifestName))
			if step == StepConfigure {
				assert.Len(t, tc.cmds, 1, "compile must not run after configure fails")
			}
		})
	}
}

func TestBuild_MissingLibrary(t *testing.T) {
	tc := &fakeToolchain{skipLibs: map[string]bool{"ukv_flight_client": true}}
	_, err := New(Options{
		SourceDir: newSource(t),
		OutDir:    t.TempDir(),
		Backends:  backend.MustSelect(backend.UMem, backend.FlightClient),
		Runner:    tc,
	}).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBuildFailure))
	assert.Contains(t, err.Error(), "ukv_flight_client")
}

func TestBuild_InvalidOptions(t *testing.T) {
	_, err := New(Options{Profile: "fast", Runner: &fakeToolchain{}}).Build(context.Background())
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "source directory is required")
	assert.Contains(t, msg, "output directory is required")
	assert.Contains(t, msg, `unknown profile "fast"`)
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tc := &fakeToolchain{}
	_, err := New(Options{
		SourceDir: newSource(t),
		OutDir:    t.TempDir(),
		Backends:  backend.MustSelect(backend.UMem),
		Runner:    tc,
	}).Build(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tc.cmds)
}

func TestDefaults(t *testing.T) {
	o := New(Options{}).Options()
	assert.Equal(t, ProfileRelease, o.Profile)
	assert.Equal(t, StrategyToolchain, o.Strategy)
	assert.Equal(t, "cmake", o.CMake)
	assert.Equal(t, "make", o.Make)
	assert.GreaterOrEqual(t, o.Jobs, 1)
	assert.IsType(t, ShellRunner{}, o.Runner)
}

func TestProfile(t *testing.T) {
	assert.Equal(t, "Debug", ProfileDebug.BuildType())
	assert.Equal(t, "0", ProfileDebug.OptLevel())
	assert.Equal(t, "Release", ProfileRelease.BuildType())
	assert.Equal(t, "3", ProfileRelease.OptLevel())

	p, err := ParseProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileRelease, p)
	_, err = ParseProfile("relwithdebinfo")
	assert.Error(t, err)

	s, err := ParseStrategy("direct")
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, s)
	_, err = ParseStrategy("ninja")
	assert.Error(t, err)
}
