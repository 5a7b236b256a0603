//go:build mage

package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified.
var Default = Test

const binary = "bin/pulse"

// ldflags stamps version information into cmd/pulse.
func ldflags() string {
	version := os.Getenv("PULSE_VERSION")
	if version == "" {
		version = "dev"
	}
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "none"
	}
	vars := []string{
		"-X main.version=" + version,
		"-X main.commit=" + commit,
		"-X main.date=" + time.Now().UTC().Format(time.RFC3339),
	}
	return strings.Join(vars, " ")
}

// Build compiles the pulse CLI into bin/.
func Build() error {
	fmt.Println("Building...")
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", binary, "./cmd/pulse")
}

// Vet runs go vet.
func Vet() error {
	fmt.Println("Vetting...")
	return sh.RunV("go", "vet", "./...")
}

// Test runs all unit tests with the race detector.
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Fmt runs go fmt on the module.
func Fmt() error {
	fmt.Println("Formatting...")
	return sh.RunV("go", "fmt", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Tidying go.mod...")
	return sh.RunV("go", "mod", "tidy")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")
	return sh.Rm("bin")
}

// All runs Fmt, Vet and Test in order.
func All() error {
	for _, step := range []func() error{Fmt, Vet, Test} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// CI fails fast on the first broken step.
func CI() {
	if err := All(); err != nil {
		log.Fatalf("CI failed: %v", err)
	}
}
