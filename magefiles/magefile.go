//go:build mage

// Package main contains Mage build targets for footgraph developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "footgraph"
	cmdPkg  = "./cmd/footgraph"
	probe   = "./cmd/probe-dbpedia"
)

// dataDirs lists the working directories a run expects.
var dataDirs = []string{
	"schema/data",
	".footgraph/cache",
}

// Init creates the data directories used by default configuration.
func Init() error {
	for _, dir := range dataDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X github.com/ppiankov/footgraph/internal/cli.Version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Probe builds the endpoint smoke-check program into bin/.
func Probe() error {
	return sh.RunV("go", "build", "-o", filepath.Join(binDir, "probe-dbpedia"), probe)
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests with the race detector. The sqlite driver needs cgo.
func Test() error {
	mg.Deps(Vet)
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "-race", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
