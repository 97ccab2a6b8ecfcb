package preprocess

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/errors"
)

// DefaultHeader is the engine's public entry header, relative to the
// include directory.
const DefaultHeader = "ukv/db.h"

// ExpandedName is the file the expanded header is saved as in the
// artifact's output directory.
const ExpandedName = "expanded.h"

const wrapperName = "ukv_wrapper.h"

// Options configures header expansion.
type Options struct {
	Runner      build.Runner
	Compiler    string
	Headers     []string
	IncludeDirs []string
	Flags       []string
}

func (o *Options) setDefaults() {
	if o.Runner == nil {
		o.Runner = build.ShellRunner{}
	}
	if o.Compiler == "" {
		o.Compiler = "cc"
	}
	if len(o.Headers) == 0 {
		o.Headers = []string{DefaultHeader}
	}
}

// Header is the fully expanded public header of one artifact.
type Header struct {
	Source      string
	Path        string
	IncludeDirs []string
	Backends    backend.Set
}

// Expand preprocesses the artifact's public headers with the include path
// and definitions the artifact was compiled with. The artifact must come
// from a finished build: its include directory holds the copied headers.
func Expand(ctx context.Context, art *build.Artifact, opts Options) (*Header, error) {
	opts.setDefaults()
	if art == nil {
		return nil, errors.PreprocessFailed("no build artifact", "", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.PreprocessFailed("canceled", "", err)
	}

	includeDirs := append([]string{art.IncludeDir()}, opts.IncludeDirs...)

	entry, err := entryHeader(art, opts.Headers)
	if err != nil {
		return nil, err
	}

	args := []string{"-E", "-P", "-x", "c", "-O" + art.Profile().OptLevel()}
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}
	for _, d := range art.Defines() {
		args = append(args, "-D"+d.String())
	}
	args = append(args, opts.Flags...)
	args = append(args, entry)

	cmd := build.Command{Step: "preprocess", Name: opts.Compiler, Args: args}
	Logger().Info("expanding header", zap.String("header", entry), zap.Stringer("cmd", cmd))

	out, err := opts.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, errors.PreprocessFailed("compiler failed on "+entry, string(out), err)
	}

	src := string(out)
	if err := checkExpanded(src); err != nil {
		return nil, err
	}

	Logger().Debug("header expanded", zap.Int("bytes", len(src)))
	return &Header{
		Source:      src,
		Path:        entry,
		IncludeDirs: includeDirs,
		Backends:    art.Backends(),
	}, nil
}

// entryHeader returns the single file to hand to the compiler. Several
// headers are combined through a generated wrapper.
func entryHeader(art *build.Artifact, headers []string) (string, error) {
	for _, h := range headers {
		path := filepath.Join(art.IncludeDir(), h)
		if _, err := os.Stat(path); err != nil {
			return "", errors.PreprocessFailed("missing public header "+h, "", err)
		}
	}
	if len(headers) == 1 {
		return filepath.Join(art.IncludeDir(), headers[0]), nil
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "#include \"%s\"\n", h)
	}
	path := filepath.Join(art.OutDir(), wrapperName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.PreprocessFailed("write wrapper header", "", err)
	}
	return path, nil
}

// checkExpanded rejects output that still contains a preprocessor directive.
func checkExpanded(src string) error {
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "#") {
			return errors.New(errors.PhasePreprocess, errors.KindPreprocessFailure).
				Detail("unexpanded directive at line %d: %s", line, text).
				Build()
		}
	}
	if err := sc.Err(); err != nil {
		return errors.PreprocessFailed("scan expanded header", "", err)
	}
	if strings.TrimSpace(src) == "" {
		return errors.PreprocessFailed("expanded header is empty", "", nil)
	}
	return nil
}

// Save writes the expanded source to expanded.h in dir.
func (h *Header) Save(dir string) (string, error) {
	path := filepath.Join(dir, ExpandedName)
	if err := os.WriteFile(path, []byte(h.Source), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", ExpandedName, err)
	}
	return path, nil
}
