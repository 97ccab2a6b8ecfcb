package pipeline

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
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/errors"
	"github.com/wippyai/ukv-go/preprocess"
)

const expandedHeader = `typedef void* ukv_database_t;
typedef char const* ukv_error_t;
typedef char const* ukv_str_view_t;
typedef struct ukv_database_init_t {
    ukv_str_view_t config;
    ukv_database_t* db;
    ukv_error_t* error;
} ukv_database_init_t;
void ukv_database_init(ukv_database_init_t* c_ptr);
void ukv_database_free(ukv_database_t c_db);
void ukv_error_free(ukv_error_t c_error);
`

// toolchain fakes cmake and the C compiler. The compile step writes the
// libraries the configure step enabled; the preprocess step prints header.
type toolchain struct {
	header   string
	failStep string
	steps    []string
	cmds     []build.Command
}

func (tc *toolchain) Run(_ context.Context, cmd build.Command) ([]byte, error) {
	tc.cmds = append(tc.cmds, cmd)
	tc.steps = append(tc.steps, cmd.Step)
	if cmd.Step == tc.failStep {
		return []byte("fatal error: simulated\n"), stderrors.New("exit status 1")
	}
	switch cmd.Step {
	case build.StepCompile:
		return nil, tc.writeLibs()
	case "preprocess":
		return []byte(tc.header), nil
	}
	return []byte("-- Configuring done\n"), nil
}

func (tc *toolchain) writeLibs() error {
	var libDir string
	enabled := map[string]bool{}
	for _, a := range tc.cmds[0].Args {
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
		if err := os.WriteFile(filepath.Join(libDir, "lib"+lib+".a"), []byte("!<arch>\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(ukv)\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include", "ukv"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "include", "ukv", "db.h"), []byte("/* db */\n"), 0o644))
	return src
}

func newConfig(t *testing.T, tc *toolchain) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		Build: build.Options{
			SourceDir: newSource(t),
			OutDir:    filepath.Join(root, "out"),
			Backends:  backend.MustSelect(backend.RocksDB),
			Runner:    tc,
			Jobs:      2,
		},
		Bindings: filepath.Join(root, "native", "zz_bindings.go"),
	}
}

func TestRun_FullPipeline(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)

	var stages []Stage
	cfg.OnStage = func(s Stage) { stages = append(stages, s) }

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Stages(), stages)
	assert.Equal(t, []string{build.StepConfigure, build.StepCompile, "preprocess"}, tc.steps)

	assert.True(t, res.Written)
	assert.Equal(t, cfg.Bindings, res.Bindings)
	assert.FileExists(t, res.Expanded)
	assert.Equal(t, filepath.Join(res.Artifact.OutDir(), preprocess.ExpandedName), res.Expanded)

	data, err := os.ReadFile(cfg.Bindings)
	require.NoError(t, err)
	assert.Equal(t, res.Source, data)
	src := string(data)
	assert.Contains(t, src, "//go:build cgo && ukv_native")
	assert.Contains(t, src, "Backends: rocksdb, profile: release.")
	assert.Contains(t, src, "-lukv_embedded_rocksdb")
	assert.Contains(t, src, "func DatabaseInit(")
	assert.Contains(t, src, "func ErrorFree(")
}

func TestRun_SecondRunLeavesBindingsUntouched(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, first.Written)

	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, second.Written)
	assert.Equal(t, first.Source, second.Source)
}

func TestRun_MissingSourceHalts(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)
	cfg.Build.SourceDir = filepath.Join(t.TempDir(), "does-not-exist")

	var stages []Stage
	cfg.OnStage = func(s Stage) { stages = append(stages, s) }

	res, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsKind(err, errors.KindBuildFailure))
	assert.Equal(t, []Stage{StageBuild}, stages)
	assert.Empty(t, tc.cmds, "no tool may run without a source tree")
	assert.NoFileExists(t, cfg.Bindings)
}

func TestRun_HaltsAtFailingStage(t *testing.T) {
	tests := []struct {
		name     string
		failStep string
		header   string
		kind     errors.Kind
		steps    []string
	}{
		{
			name:     "compile",
			failStep: build.StepCompile,
			header:   expandedHeader,
			kind:     errors.KindBuildFailure,
			steps:    []string{build.StepConfigure, build.StepCompile},
		},
		{
			name:     "preprocess",
			failStep: "preprocess",
			header:   expandedHeader,
			kind:     errors.KindPreprocessFailure,
			steps:    []string{build.StepConfigure, build.StepCompile, "preprocess"},
		},
		{
			name:   "leftover directive",
			header: "#define UKV_X 1\n" + expandedHeader,
			kind:   errors.KindPreprocessFailure,
			steps:  []string{build.StepConfigure, build.StepCompile, "preprocess"},
		},
		{
			name:   "unparseable declaration",
			header: expandedHeader + "void ukv_broken(int;\n",
			kind:   errors.KindBindingFailure,
			steps:  []string{build.StepConfigure, build.StepCompile, "preprocess"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &toolchain{header: tt.header, failStep: tt.failStep}
			cfg := newConfig(t, tc)

			_, err := Run(context.Background(), cfg)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.steps, tc.steps)
			assert.NoFileExists(t, cfg.Bindings)
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tc.cmds)
}

func TestRegenerate_UsesRecordedArtifact(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)
	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cfg.Bindings))

	tc.cmds, tc.steps = nil, nil
	cfg.Build.Backends = backend.MustSelect(backend.UMem)

	res, err := Regenerate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"preprocess"}, tc.steps, "regenerate must not compile")
	assert.Equal(t, backend.MustSelect(backend.RocksDB), res.Artifact.Backends())
	assert.FileExists(t, cfg.Bindings)
}

func TestRegenerate_NoArtifact(t *testing.T) {
	tc := &toolchain{header: expandedHeader}
	cfg := newConfig(t, tc)

	_, err := Regenerate(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Empty(t, tc.cmds)
}
