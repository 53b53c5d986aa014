package android

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// ErrBridgeUnavailable means the adb binary could not be executed at all.
var ErrBridgeUnavailable = errors.New("adb not available")

// DefaultCommandTimeout bounds a single adb invocation.
const DefaultCommandTimeout = 20 * time.Second

// Runner executes device-bridge commands. A non-zero exit is reported as an
// error alongside whatever the command wrote.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
}

// ADBRunner runs the adb binary.
type ADBRunner struct {
	Path    string
	Timeout time.Duration
}

// NewADBRunner creates a runner for the adb binary at path ("adb" when empty).
func NewADBRunner(path string, timeout time.Duration) *ADBRunner {
	if path == "" {
		path = "adb"
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &ADBRunner{Path: path, Timeout: timeout}
}

func (r *ADBRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return nil, nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
		case execCtx.Err() == context.DeadlineExceeded:
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("adb %s timed out after %s: %w",
				strings.Join(args, " "), r.Timeout, context.DeadlineExceeded)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
		}
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// shell runs `adb -s serial shell args...`.
func shell(ctx context.Context, r Runner, serial string, args ...string) ([]byte, []byte, error) {
	return r.Run(ctx, append([]string{"-s", serial, "shell"}, args...)...)
}

// stderrMessage prefers what the command printed over the Go error text.
func stderrMessage(stderr []byte, err error) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
