//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// outDir is where BearSSL is built and cloned.
func outDir() string {
	if dir := os.Getenv("OUT_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("build", "bearssl")
}

// Generate resolves and builds BearSSL, then writes the bindings into the
// bearssl package.
func Generate() error {
	return sh.RunV("go", "run", "./cmd/bearssl-build",
		"-out-dir", outDir(),
		"-o", filepath.Join("bearssl", "zbindings.go"),
		"-link", filepath.Join("bearssl", "zlink.go"))
}

// Build compiles everything, including the cgo bindings.
func Build() error {
	mg.Deps(Generate)
	return sh.RunV("go", "build", "-tags", "bearssl", "./...")
}

// Test runs the unit tests, then the binding tests against the built library.
func Test() error {
	if err := sh.RunV("go", "test", "./..."); err != nil {
		return err
	}
	mg.Deps(Generate)
	return sh.RunV("go", "test", "-tags", "bearssl", "./bearssl/...")
}

// Clean removes the build directory and the generated bindings.
func Clean() error {
	for _, p := range []string{
		outDir(),
		filepath.Join("bearssl", "zbindings.go"),
		filepath.Join("bearssl", "zlink.go"),
	} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}
