//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

var Default = Build

var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
	"p": Preview,
	"x": Index,
}

const (
	binaryName = "coursesync"
	mainPkg    = "./cmd/coursesync"
	binDir     = "bin"
	coverFile  = "coverage.out"
)

// exe appends the platform executable suffix.
func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// built is the path of the binary produced by Build.
func built() string {
	return exe(filepath.Join(binDir, binaryName))
}

// installDir is GOBIN, else GOPATH/bin, else /usr/local/bin.
func installDir() (string, error) {
	gocmd := st.GoCmd()
	for _, key := range []string{"GOBIN", "GOPATH"} {
		v, err := sh.Output(gocmd, "env", key)
		if err != nil {
			return "", fmt.Errorf("determining %s: %w", key, err)
		}
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if key == "GOPATH" {
			// GOPATH may list several entries; binaries go to the first.
			v = filepath.Join(filepath.SplitList(v)[0], "bin")
		}
		return v, nil
	}
	return "/usr/local/bin", nil
}

func say(format string, args ...interface{}) {
	if st.Verbose() {
		fmt.Printf(format+"\n", args...)
	}
}

// All lints, tests and builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles bin/coursesync with version information.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	return sh.RunV("go", "build", "-trimpath", "-ldflags", ldflags(), "-o", built(), mainPkg)
}

// Install copies the built binary into GOBIN (or GOPATH/bin).
func Install() error {
	st.Deps(Build)

	dir, err := installDir()
	if err != nil {
		return err
	}
	dst := exe(filepath.Join(dir, binaryName))
	say("Installing %s to %s", built(), dst)
	return sh.Copy(dst, built())
}

// Uninstall removes the installed binary, if any.
func Uninstall() error {
	dir, err := installDir()
	if err != nil {
		return err
	}
	target := exe(filepath.Join(dir, binaryName))
	if _, err := os.Stat(target); os.IsNotExist(err) {
		say("Nothing installed at %s", target)
		return nil
	}
	say("Removing %s", target)
	return os.Remove(target)
}

// Preview runs a dry-run sync against the configured library and drop
// folder without recording history.
func Preview() error {
	st.Deps(Build)
	return sh.RunV(built(), "--dry-run", "--no-history", "--output", "pretty")
}

// Index rebuilds the library catalog (index.json and categories.json).
func Index() error {
	st.Deps(Build)
	return sh.RunV(built(), "index")
}

// Test runs the test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover writes coverage.out and prints per-function coverage.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile", coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func", coverFile)
}

func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes bin/ and the coverage profile.
func Clean() error {
	say("Removing %s/ and %s", binDir, coverFile)
	if err := sh.Rm(coverFile); err != nil {
		return err
	}
	return sh.Rm(binDir + "/")
}

func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// ldflags fills the version variables printed by `coursesync version`.
func ldflags() string {
	vars := map[string]string{
		"version": "dev",
		"commit":  "unknown",
		"date":    time.Now().UTC().Format(time.RFC3339),
	}
	if v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && strings.TrimSpace(v) != "" {
		vars["version"] = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && strings.TrimSpace(c) != "" {
		vars["commit"] = strings.TrimSpace(c)
	}

	flags := []string{"-s", "-w"}
	for _, k := range []string{"version", "commit", "date"} {
		flags = append(flags, fmt.Sprintf("-X main.%s=%s", k, vars[k]))
	}
	return strings.Join(flags, " ")
}
