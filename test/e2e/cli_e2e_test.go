package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildBinary compiles cmd/txfib into a temporary directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "txfib"
	if runtime.GOOS == "windows" {
		binName = "txfib.exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	// go test runs in test/e2e; build from the module root.
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/txfib")
	cmd.Dir = "../.."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build txfib: %v", err)
	}
	return binPath
}

// TestCLI_E2E verifies the built binary, including real worker processes.
func TestCLI_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)

	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantOut  string // substring match (case-insensitive)
		wantCode int
	}{
		{
			name:    "Basic Calculation",
			args:    []string{"-n", "10", "-algo", "linear", "-c"},
			wantOut: "F(10) = 55",
		},
		{
			name:    "Help",
			args:    []string{"--help"},
			wantOut: "usage",
		},
		{
			name:    "All Strategies Comparison",
			args:    []string{"-n", "25", "--algo", "all", "-c"},
			wantOut: "Global Status: Success",
		},
		{
			name:    "Process Offload",
			args:    []string{"-n", "90", "-algo", "closedFormExact", "-q"},
			wantOut: "2880067194370816120",
		},
		{
			name:    "Quiet Mode",
			args:    []string{"-n", "10", "--quiet", "-algo", "logarithmic"},
			wantOut: "55",
		},
		{
			name:     "Very Short Timeout",
			args:     []string{"-n", "5000000", "-max-n", "0", "-algo", "linear", "-step-budget", "1", "--timeout", "5ms"},
			wantCode: 2,
		},
		{
			name:     "Index Over Limit",
			args:     []string{"-n", "200", "-max-n", "100"},
			wantCode: 4,
		},
		{
			name:    "Worker Subcommand",
			args:    []string{"worker"},
			stdin:   `{"strategy":"logarithmic","n":100}`,
			wantOut: `"value":"354224848179261915075"`,
		},
		{
			name:    "Version Flag",
			args:    []string{"--version"},
			wantOut: "txfib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binPath, tt.args...)
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			if tt.stdin != "" {
				cmd.Stdin = strings.NewReader(tt.stdin)
			}
			output, err := cmd.CombinedOutput()
			outStr := string(output)

			code := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else if err != nil {
				t.Fatalf("Command failed to run: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nOutput: %s", code, tt.wantCode, outStr)
			}

			if tt.wantOut != "" && !strings.Contains(strings.ToLower(outStr), strings.ToLower(tt.wantOut)) {
				t.Errorf("Output missing expected string.\nExpected: %q\nGot:\n%s", tt.wantOut, outStr)
			}
		})
	}
}
