//go:build mage

// Package main provides development targets for ukv-go using Mage.
//
// Usage:
//
//	mage build          Compile ukvbuild to bin/
//	mage native         Build the engine and regenerate native/zz_bindings.go
//	mage test           Run all tests without the engine
//	mage testNative     Run all tests against the linked engine
//	mage lint           Run golangci-lint
//	mage clean          Remove build output
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "ukvbuild"
	binaryDir  = "bin"
	cmdDir     = "./cmd/ukvbuild"
	outDir     = "build/ukv"
)

// Build compiles ukvbuild to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Native compiles the engine with the backends from ukv.yaml or UKV_*
// and writes the bindings.
func Native() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "build", "--out", outDir)
}

// Test runs the tests that need neither cgo nor the engine.
func Test() error {
	return sh.RunWith(map[string]string{"CGO_ENABLED": "0"}, "go", "test", "./...")
}

// TestNative runs every test with the engine linked in.
func TestNative() error {
	mg.Deps(Native)
	return sh.RunWith(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "-tags", "ukv_native", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes the binary and the native build output. Generated
// bindings are kept.
func Clean() error {
	for _, dir := range []string{binaryDir, outDir} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}
