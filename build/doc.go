// Package build compiles the native UKV engine for one backend selection.
//
// The Orchestrator runs a configure step and a compile step against the
// native toolchain, then copies the engine's public headers next to the
// output and writes artifact.yaml:
//
//	orch := build.New(build.Options{
//		SourceDir: "third_party/ukv",
//		OutDir:    "_build/ukv",
//		Backends:  backend.MustSelect(backend.RocksDB),
//		Profile:   build.ProfileRelease,
//	})
//	art, err := orch.Build(ctx)
//	art.LinkDirectives() // -L/abs/_build/ukv/lib -lukv_embedded_rocksdb
//
// # Strategies
//
// StrategyToolchain configures with cmake and compiles with
// "cmake --build --parallel N". StrategyDirect generates Unix makefiles and
// runs "make -jN" itself. Both suppress the engine's test and benchmark
// targets and map the profile to CMAKE_BUILD_TYPE (Debug -O0, Release -O3).
// N defaults to the host's logical core count.
//
// # Failures
//
// A missing source root, a non-zero exit of either step, a library that
// was not produced, or a header copy error returns an *errors.Error of
// kind KindBuildFailure. The captured stdout and stderr of the failing
// tool are attached verbatim as Error.Output. There is no partial result.
//
// Commands run through a Runner; ShellRunner uses mage's sh.Exec.
package build
