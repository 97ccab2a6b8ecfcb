package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/pipeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDefinesCmd(t *testing.T) {
	out, err := execute(t, "defines", "--backend", "rocksdb,flight-server")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"-DUKV_BUILD_ENGINE_UMEM=0",
		"-DUKV_BUILD_ENGINE_LEVELDB=0",
		"-DUKV_BUILD_ENGINE_ROCKSDB=1",
		"-DUKV_BUILD_API_FLIGHT_CLIENT=0",
		"-DUKV_BUILD_API_FLIGHT_SERVER=1",
	}, "\n")+"\n", out)
}

func TestDefinesCmd_Libs(t *testing.T) {
	out, err := execute(t, "defines", "--libs", "--backend", "umem", "--backend", "leveldb")
	require.NoError(t, err)
	assert.Equal(t, "ukv_embedded_umem\nukv_embedded_leveldb\n", out)
}

func TestDefinesCmd_EnvSelection(t *testing.T) {
	t.Setenv("UKV_BACKENDS_LEVELDB", "true")
	out, err := execute(t, "defines", "--libs")
	require.NoError(t, err)
	assert.Equal(t, "ukv_embedded_leveldb\n", out)
}

func TestDefinesCmd_UnknownBackend(t *testing.T) {
	_, err := execute(t, "defines", "--backend", "redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ukvbuild "))
	assert.Contains(t, out, "generator 1")
}

func TestBadLogFormat(t *testing.T) {
	_, err := execute(t, "--log-format", "xml", "defines")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPicker_Toggles(t *testing.T) {
	cfg := pipeline.Config{Build: build.Options{
		Backends: backend.MustSelect(backend.UMem),
		Profile:  build.ProfileRelease,
	}}
	m := newPickerModel(context.Background(), cfg)
	assert.True(t, m.selection().Enabled(backend.UMem))
	assert.Contains(t, m.View(), "[x] umem")

	// umem off, rocksdb on.
	m.Update(key("x"))
	m.Update(key("down"))
	m.Update(key("down"))
	m.Update(key("x"))
	assert.Equal(t, backend.MustSelect(backend.RocksDB), m.selection())

	for i := 0; i < 10; i++ {
		m.Update(key("j"))
	}
	assert.Equal(t, m.rows()-1, m.cursor, "cursor stops at the last row")
	m.Update(key("x"))
	assert.Equal(t, build.ProfileDebug, m.cfg.Build.Profile)
	assert.True(t, cfg.Build.Backends.Enabled(backend.UMem), "caller config is not modified")
}

func TestPicker_WarnsWithoutStorage(t *testing.T) {
	m := newPickerModel(context.Background(), pipeline.Config{})
	assert.Contains(t, m.View(), "no storage backend selected")

	m.Update(key("x"))
	assert.NotContains(t, m.View(), "no storage backend selected")
}

func TestPicker_Progress(t *testing.T) {
	m := newPickerModel(context.Background(), pipeline.Config{})
	m.state = stateRunning
	m.Update(stageMsg(pipeline.StageBuild))
	m.Update(stageMsg(pipeline.StagePreprocess))
	view := m.View()
	assert.Contains(t, view, "✓ build")
	assert.Contains(t, view, "preprocess")

	m.Update(resultMsg{err: assert.AnError})
	assert.Equal(t, stateDone, m.state)
	view = m.View()
	assert.Contains(t, view, "✗ preprocess")
	assert.Contains(t, view, assert.AnError.Error())
}

func TestPicker_CtrlCWhileRunningCancels(t *testing.T) {
	m := newPickerModel(context.Background(), pipeline.Config{})
	m.state = stateRunning

	_, cmd := m.Update(key("ctrl+c"))
	assert.Nil(t, cmd, "the picker waits for the run to stop")
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
	assert.Contains(t, m.View(), "interrupting")

	_, cmd = m.Update(resultMsg{err: context.Canceled})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.err, context.Canceled)
	assert.Contains(t, m.err.Error(), "interrupted")
}

func TestPicker_CtrlCStopsPipeline(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(ukv)\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include"), 0o755))

	started := make(chan struct{})
	root := t.TempDir()
	cfg := pipeline.Config{
		Build: build.Options{
			SourceDir: src,
			OutDir:    filepath.Join(root, "out"),
			Backends:  backend.MustSelect(backend.RocksDB),
			Runner: build.RunnerFunc(func(ctx context.Context, _ build.Command) ([]byte, error) {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
		Bindings: filepath.Join(root, "zz_bindings.go"),
	}

	m := newPickerModel(context.Background(), cfg)
	m.Update(key("enter"))
	require.Equal(t, stateRunning, m.state)
	<-started
	m.Update(key("ctrl+c"))

	var cmd tea.Cmd
	for m.state == stateRunning {
		_, cmd = m.Update(m.waitStage())
	}
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.err, context.Canceled)
	assert.Contains(t, m.err.Error(), "interrupted")
	assert.NoFileExists(t, cfg.Bindings)
}
