package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/bindgen"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/preprocess"
)

// Stage names one step of a pipeline run.
type Stage string

const (
	StageBuild      Stage = "build"
	StagePreprocess Stage = "preprocess"
	StageBindgen    Stage = "bindgen"
	StageWrite      Stage = "write"
)

// Stages lists the steps of a full run in execution order.
func Stages() []Stage {
	return []Stage{StageBuild, StagePreprocess, StageBindgen, StageWrite}
}

// Config describes one pipeline run. It is built once, usually by package
// config, and not modified afterwards.
type Config struct {
	Build      build.Options
	Preprocess preprocess.Options
	Bindgen    bindgen.Options
	// Bindings is the path of the generated Go file.
	Bindings string
	// OnStage, if set, is called before each stage starts.
	OnStage func(Stage)
}

// Result holds everything a successful run produced.
type Result struct {
	Artifact *build.Artifact
	Header   *preprocess.Header
	Source   []byte
	// Expanded is the path of the saved expanded header.
	Expanded string
	Bindings string
	// Written is false when the bindings on disk were already up to date.
	Written bool
	Took    time.Duration
}

// Run compiles the engine, expands its header and regenerates the
// bindings. It stops at the first failing stage and returns that stage's
// error unchanged; later stages never see a partial result.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()
	cfg.setDefaults()

	cfg.enter(StageBuild)
	art, err := build.New(cfg.Build).Build(ctx)
	if err != nil {
		Logger().Error("pipeline halted", zap.String("stage", string(StageBuild)), zap.Error(err))
		return nil, err
	}

	res, err := generate(ctx, cfg, art)
	if err != nil {
		return nil, err
	}
	res.Took = time.Since(start)
	Logger().Info("pipeline complete",
		zap.String("backends", art.Backends().String()),
		zap.String("bindings", res.Bindings),
		zap.Bool("written", res.Written),
		zap.Duration("took", res.Took),
	)
	return res, nil
}

// Regenerate reruns preprocessing and binding generation against the
// artifact recorded in outDir, without compiling.
func Regenerate(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()
	cfg.setDefaults()

	art, err := build.LoadArtifact(cfg.Build.OutDir)
	if err != nil {
		return nil, err
	}
	res, err := generate(ctx, cfg, art)
	if err != nil {
		return nil, err
	}
	res.Took = time.Since(start)
	Logger().Info("bindings regenerated", zap.String("bindings", res.Bindings), zap.Bool("written", res.Written))
	return res, nil
}

func generate(ctx context.Context, cfg Config, art *build.Artifact) (*Result, error) {
	res := &Result{Artifact: art, Bindings: cfg.Bindings}

	cfg.enter(StagePreprocess)
	hdr, err := preprocess.Expand(ctx, art, cfg.Preprocess)
	if err != nil {
		return nil, halt(StagePreprocess, err)
	}
	res.Header = hdr
	if res.Expanded, err = hdr.Save(art.OutDir()); err != nil {
		return nil, halt(StagePreprocess, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, halt(StageBindgen, err)
	}
	cfg.enter(StageBindgen)
	res.Source, err = bindgen.Generate(hdr.Source, bindgen.ForArtifact(art, cfg.Bindgen))
	if err != nil {
		return nil, halt(StageBindgen, err)
	}

	cfg.enter(StageWrite)
	if res.Written, err = bindgen.WriteFile(cfg.Bindings, res.Source); err != nil {
		return nil, halt(StageWrite, err)
	}
	return res, nil
}

func halt(stage Stage, err error) error {
	Logger().Error("pipeline halted", zap.String("stage", string(stage)), zap.Error(err))
	return err
}

func (c *Config) setDefaults() {
	if c.Bindings == "" {
		c.Bindings = bindgen.DefaultOutput
	}
	// One runner drives every external tool unless each stage has its own.
	if c.Preprocess.Runner == nil {
		c.Preprocess.Runner = c.Build.Runner
	}
}

func (c *Config) enter(s Stage) {
	Logger().Debug("stage started", zap.String("stage", string(s)))
	if c.OnStage != nil {
		c.OnStage(s)
	}
}
