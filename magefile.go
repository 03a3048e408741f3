//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "ynlb"
	mainPkg    = "./cmd/ynlb"
	versionVar = "codeberg.org/snonux/ynlb/internal.Version"
)

// Default target when running plain "mage"
var Default = Build

func ldflags() string {
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	return fmt.Sprintf("-s -w -X %s=%s", versionVar, version)
}

// Build compiles the ynlb binary
func Build() error {
	fmt.Println("Building", binaryName)
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", binaryName, mainPkg)
}

// Test runs all tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Lint runs vet and the tests
func Lint() {
	mg.Deps(Vet, Test)
}

// Install builds and copies the binary to ~/go/bin
func Install() error {
	mg.Deps(Build)

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dest := filepath.Join(home, "go", "bin", binaryName)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return sh.Copy(dest, binaryName)
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(binaryName)
}
