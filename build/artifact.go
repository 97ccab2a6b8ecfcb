package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/errors"
)

// ManifestName is the file written next to the build output describing
// the artifact.
const ManifestName = "artifact.yaml"

// systemLibraries are linked after the backend libraries; the engine is C++.
var systemLibraries = []string{"stdc++", "m", "dl", "pthread"}

// Artifact describes one compiled native library set. It is produced once
// per backend.Set and is read-only afterwards.
type Artifact struct {
	backends   backend.Set
	profile    Profile
	strategy   Strategy
	sourceDir  string
	outDir     string
	libDir     string
	includeDir string
	libs       []string
}

// NewArtifact describes the output layout for set under outDir.
// sourceDir and outDir are made absolute.
func NewArtifact(set backend.Set, profile Profile, strategy Strategy, sourceDir, outDir string) (*Artifact, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	return &Artifact{
		backends:   set,
		profile:    profile,
		strategy:   strategy,
		sourceDir:  src,
		outDir:     out,
		libDir:     filepath.Join(out, "lib"),
		includeDir: filepath.Join(out, "include"),
		libs:       set.Libraries(),
	}, nil
}

// Backends returns the selection the artifact was built from.
func (a *Artifact) Backends() backend.Set { return a.backends }

// Profile returns the build profile.
func (a *Artifact) Profile() Profile { return a.profile }

// Strategy returns the compile strategy used.
func (a *Artifact) Strategy() Strategy { return a.strategy }

// SourceDir returns the absolute engine source root.
func (a *Artifact) SourceDir() string { return a.sourceDir }

// OutDir returns the absolute output root.
func (a *Artifact) OutDir() string { return a.outDir }

// BuildDir returns the cmake binary directory.
func (a *Artifact) BuildDir() string { return filepath.Join(a.outDir, "build") }

// LibDir returns the absolute library search path.
func (a *Artifact) LibDir() string { return a.libDir }

// IncludeDir returns the directory holding the copied public headers.
func (a *Artifact) IncludeDir() string { return a.includeDir }

// Libraries returns the compiled backend libraries in link order.
func (a *Artifact) Libraries() []string {
	return append([]string(nil), a.libs...)
}

// Defines returns the native definitions the artifact was compiled with.
func (a *Artifact) Defines() []backend.Define {
	return a.backends.Defines()
}

// LinkDirectives returns the search path followed by one -l per
// enabled backend library.
func (a *Artifact) LinkDirectives() []string {
	out := make([]string, 0, len(a.libs)+1)
	out = append(out, "-L"+a.libDir)
	for _, l := range a.libs {
		out = append(out, "-l"+l)
	}
	return out
}

// CgoLDFLAGS returns the value for a #cgo LDFLAGS line.
func (a *Artifact) CgoLDFLAGS() string {
	parts := a.LinkDirectives()
	for _, l := range systemLibraries {
		parts = append(parts, "-l"+l)
	}
	return strings.Join(parts, " ")
}

// CgoCFLAGS returns the value for a #cgo CFLAGS line.
func (a *Artifact) CgoCFLAGS() string {
	parts := []string{"-I" + a.includeDir}
	for _, d := range a.Defines() {
		parts = append(parts, "-D"+d.String())
	}
	return strings.Join(parts, " ")
}

type manifest struct {
	Backends   backend.Set `yaml:"backends"`
	Profile    Profile     `yaml:"profile"`
	Strategy   Strategy    `yaml:"strategy"`
	SourceDir  string      `yaml:"source_dir"`
	OutDir     string      `yaml:"out_dir"`
	LibDir     string      `yaml:"lib_dir"`
	IncludeDir string      `yaml:"include_dir"`
	Libraries  []string    `yaml:"libraries"`
	Defines    []string    `yaml:"defines"`
}

// WriteManifest writes artifact.yaml into the output root.
func (a *Artifact) WriteManifest() (string, error) {
	m := manifest{
		Backends:   a.backends,
		Profile:    a.profile,
		Strategy:   a.strategy,
		SourceDir:  a.sourceDir,
		OutDir:     a.outDir,
		LibDir:     a.libDir,
		IncludeDir: a.includeDir,
		Libraries:  a.Libraries(),
	}
	for _, d := range a.Defines() {
		m.Defines = append(m.Defines, d.String())
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(a.outDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// LoadArtifact reads artifact.yaml from outDir. The libraries listed in
// the manifest must match its backend selection.
func LoadArtifact(outDir string) (*Artifact, error) {
	path := filepath.Join(outDir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBuild, errors.KindNotFound, err, "read "+ManifestName)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseBuild, errors.KindInvalidInput, err, "decode "+ManifestName)
	}
	a := &Artifact{
		backends:   m.Backends,
		profile:    m.Profile,
		strategy:   m.Strategy,
		sourceDir:  m.SourceDir,
		outDir:     m.OutDir,
		libDir:     m.LibDir,
		includeDir: m.IncludeDir,
		libs:       m.Backends.Libraries(),
	}
	if strings.Join(m.Libraries, ",") != strings.Join(a.libs, ",") {
		return nil, errors.InvalidInput(errors.PhaseBuild, fmt.Sprintf(
			"%s lists libraries %v but backends %s imply %v", path, m.Libraries, m.Backends, a.libs))
	}
	return a, nil
}
