//go:build mage

// Package main provides build targets for the todostore project using Mage.
//
// Usage:
//
//	mage build      Compile todostore binary to bin/
//	mage test       Run all tests with the race detector
//	mage testUnit   Run tests in short mode, skipping network probes
//	mage cover      Write coverage.out and print per-function coverage
//	mage lint       Run golangci-lint
//	mage serve      Build, then serve the API on a local sqlite database
//	mage clean      Remove build artifacts
//	mage install    Install todostore to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName   = "todostore"
	binaryDir    = "bin"
	cmdDir       = "./cmd/todostore"
	coverProfile = "coverage.out"
)

// Build compiles the todostore binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestUnit runs tests in short mode.
func TestUnit() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// Cover writes a coverage profile and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverProfile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds and runs the API against .todostore-db/todos.db.
func Serve() error {
	mg.Deps(Build)
	env := map[string]string{
		"DB_DRIVER":  "sqlite",
		"LOG_FORMAT": "console",
	}
	return sh.RunWithV(env, filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove(coverProfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
