//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName         = "freeport"
	srcDir             = "./src/cmd/freeport"
	binDir             = "bin"
	coverageDir        = "coverage"
	defaultTestTimeout = "10m"
	versionVar         = "github.com/jongio/freeport/src/cmd/freeport/commands.Version"
)

// releasePlatforms are the GOOS/GOARCH pairs built by BuildAll.
var releasePlatforms = []string{
	"linux/amd64",
	"linux/arm64",
	"darwin/amd64",
	"darwin/arm64",
	"windows/amd64",
	"windows/arm64",
}

// Default target runs all checks and builds.
var Default = All

// getVersion returns FREEPORT_VERSION, or the closest git tag, or "dev".
func getVersion() string {
	if v := os.Getenv("FREEPORT_VERSION"); v != "" {
		return v
	}
	if out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && out != "" {
		return strings.TrimPrefix(out, "v")
	}
	return "dev"
}

func ldflags(version string) string {
	return fmt.Sprintf("-s -w -X %s=%s", versionVar, version)
}

func binaryPath(goos, goarch string) string {
	name := binaryName
	if goos == "windows" {
		name += ".exe"
	}
	if goos == runtime.GOOS && goarch == runtime.GOARCH {
		return filepath.Join(binDir, name)
	}
	return filepath.Join(binDir, goos+"-"+goarch, name)
}

// All runs lint, test, and build in dependency order.
func All() error {
	mg.Deps(Fmt, Lint, Test)
	return Build()
}

// Build compiles the freeport binary for the current platform with version info.
func Build() error {
	fmt.Println("Building", binaryName+"...")

	version := getVersion()
	out := binaryPath(runtime.GOOS, runtime.GOARCH)
	if err := sh.RunV("go", "build", "-ldflags", ldflags(version), "-o", out, srcDir); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("✅ Build complete! Version: %s (%s)\n", version, out)
	return nil
}

// BuildAll builds for all release platforms.
func BuildAll() error {
	fmt.Println("Building for all platforms...")

	version := getVersion()
	for _, platform := range releasePlatforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		env := map[string]string{
			"GOOS":        goos,
			"GOARCH":      goarch,
			"CGO_ENABLED": "0",
		}

		out := filepath.Join(binDir, goos+"-"+goarch, binaryName)
		if goos == "windows" {
			out += ".exe"
		}
		fmt.Println("  →", platform)
		if err := sh.RunWithV(env, "go", "build", "-ldflags", ldflags(version), "-o", out, srcDir); err != nil {
			return fmt.Errorf("build for %s failed: %w", platform, err)
		}
	}

	fmt.Printf("✅ Built %d platforms! Version: %s\n", len(releasePlatforms), version)
	return nil
}

// Test runs unit tests only (with -short flag).
func Test() error {
	fmt.Println("Running unit tests...")
	return sh.RunV("go", "test", "-v", "-short", "./src/...")
}

// TestIntegration runs integration tests only.
// Set TEST_PACKAGE env var to filter by package (e.g., portmanager, portkill, commands)
// Set TEST_NAME env var to run a specific test
// Set TEST_TIMEOUT env var to override default 10m timeout
func TestIntegration() error {
	fmt.Println("Running integration tests...")

	args := []string{"test", "-v", "-tags=integration"}

	timeout := os.Getenv("TEST_TIMEOUT")
	if timeout == "" {
		timeout = defaultTestTimeout
	}
	args = append(args, "-timeout="+timeout)

	if testName := os.Getenv("TEST_NAME"); testName != "" {
		args = append(args, "-run="+testName)
	}

	testPath := "./src/..."
	if pkg := os.Getenv("TEST_PACKAGE"); pkg != "" {
		switch pkg {
		case "portmanager":
			testPath = "./src/internal/portmanager"
		case "portkill":
			testPath = "./src/internal/portkill"
		case "commands":
			testPath = "./src/cmd/freeport/commands"
		default:
			return fmt.Errorf("unknown package: %s (valid: portmanager, portkill, commands)", pkg)
		}
	}
	args = append(args, testPath)

	return sh.RunV("go", args...)
}

// TestAll runs all tests (unit + integration).
func TestAll() error {
	mg.SerialDeps(Test, TestIntegration)
	return nil
}

// TestCoverage runs tests with coverage report.
func TestCoverage() error {
	fmt.Println("Running tests with coverage...")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	absCoverageDir := filepath.Join(cwd, coverageDir)

	_ = os.RemoveAll(absCoverageDir) // Ignore error if directory doesn't exist
	if err := os.MkdirAll(absCoverageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create coverage directory at %s: %w", absCoverageDir, err)
	}

	coverageOut := filepath.Join(absCoverageDir, "coverage.out")
	coverageHTML := filepath.Join(absCoverageDir, "coverage.html")

	if err := sh.RunV("go", "test", "-short", "-race", "-coverprofile="+coverageOut, "./src/..."); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	if err := sh.RunV("go", "tool", "cover", "-html="+coverageOut, "-o", coverageHTML); err != nil {
		return fmt.Errorf("failed to generate HTML coverage: %w", err)
	}
	if err := sh.RunV("go", "tool", "cover", "-func="+coverageOut); err != nil {
		return fmt.Errorf("failed to display coverage summary: %w", err)
	}

	fmt.Println("Coverage report:", coverageHTML)
	return nil
}

// Coverage is an alias for TestCoverage for easier access.
func Coverage() error {
	return TestCoverage()
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	fmt.Println("Running golangci-lint...")
	if err := sh.RunV("golangci-lint", "run", "./..."); err != nil {
		fmt.Println("⚠️  Linting failed. Ensure golangci-lint is installed:")
		fmt.Println("    go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest")
		return err
	}
	return nil
}

// Fmt formats all Go code using gofmt.
func Fmt() error {
	fmt.Println("Formatting code...")
	if err := sh.RunV("gofmt", "-w", "-s", "src", "magefile.go"); err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}
	fmt.Println("✅ Code formatted!")
	return nil
}

// Security runs security scanning with gosec.
func Security() error {
	fmt.Println("Running gosec...")
	if err := sh.RunV("gosec", "-quiet", "-exclude-dir=_examples", "./..."); err != nil {
		fmt.Println("⚠️  Security scan failed. Ensure gosec is installed:")
		fmt.Println("    go install github.com/securego/gosec/v2/cmd/gosec@latest")
		return err
	}
	return nil
}

// Preflight runs all checks before shipping: format, lint, security, tests, coverage, and build.
func Preflight() error {
	mg.SerialDeps(Fmt, Lint, Security, TestAll, TestCoverage)
	return Build()
}

// Clean removes build artifacts and coverage reports.
func Clean() error {
	fmt.Println("Cleaning build artifacts...")

	for _, dir := range []string{binDir, coverageDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}

	fmt.Println("✅ Clean complete!")
	return nil
}
