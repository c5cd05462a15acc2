//go:build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	modulePath = "github.com/dkoosis/tapfo"
	binPath    = "./bin/tapfo"
)

var (
	header  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
)

// Default target - build the binary
var Default = Build

// Build builds the tapfo binary with version metadata.
func Build() error {
	header.Println("── Build")

	ldflags := fmt.Sprintf("-s -w -X '%[1]s/internal/version.Version=%[2]s' -X '%[1]s/internal/version.CommitHash=%[3]s' -X '%[1]s/internal/version.BuildDate=%[4]s'",
		modulePath, gitOutput("dev", "describe", "--tags", "--always", "--dirty", "--match=v*"),
		gitOutput("unknown", "rev-parse", "--short", "HEAD"), time.Now().UTC().Format(time.RFC3339))
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath, "./cmd/tapfo"); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	success.Printf("Built: %s\n", binPath)
	return nil
}

// Clean removes build artifacts
func Clean() error {
	header.Println("── Clean")
	if err := sh.Rm("./bin"); err != nil {
		return err
	}
	return sh.Rm("coverage.out")
}

// QA runs formatting, vet, the linters and the race-enabled test suite.
func QA() error {
	header.Println("── Quality Assurance")
	mg.SerialDeps(Lint.Format, Lint.Vet, Lint.Golangci, Test.Race, Build)
	success.Println("QA complete!")
	return nil
}

// Lint namespace for linting commands
type Lint mg.Namespace

// Format fails when any file needs gofmt.
func (Lint) Format() error {
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("files need gofmt:\n%s", out)
	}
	return nil
}

// Vet runs go vet
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Golangci runs golangci-lint, skipping when it is not installed.
func (Lint) Golangci() error {
	return optionalTool("golangci-lint", "go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
		"run", "--timeout=5m", "./...")
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Coverage runs tests with coverage
func (Test) Coverage() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	_ = sh.RunV("go", "tool", "cover", "-func=coverage.out")
	return nil
}

// Race runs tests with race detector
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Fuzz runs the TAP parser fuzz target for a short while.
func (Test) Fuzz() error {
	return sh.RunV("go", "test", "-run=^$", "-fuzz=FuzzParse", "-fuzztime=30s", "./pkg/tap")
}

func optionalTool(name, install string, args ...string) error {
	err := sh.RunV(name, args...)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		warning.Fprintf(os.Stderr, "%s not found (install: %s)\n", name, install)
		return nil
	}
	return err
}

func gitOutput(fallback string, args ...string) string {
	out, err := sh.Output("git", args...)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}
