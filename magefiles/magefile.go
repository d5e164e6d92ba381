//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "vapor"
	binaryDir  = "bin"
	cmdDir     = "./cmd/vapor"
)

// Build compiles the vapor binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Test groups test targets.
type Test mg.Namespace

// All runs every test in the module.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the package-level tests, excluding integration packages.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unit []string
	for _, pkg := range strings.Split(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/cmd/vapor") {
			unit = append(unit, pkg)
		}
	}
	args := append([]string{"test", "-v"}, unit...)
	return sh.RunV(binGo, args...)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Check runs lint then all tests.
func Check() error {
	mg.Deps(Lint)
	return Test{}.All()
}
