// Package bridge invokes the adb and scrcpy executables. Nothing here speaks
// either protocol; every operation is an argument vector plus captured output.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// Runner executes a program to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs programs with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := Command(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var proxyVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "NO_PROXY", "http_proxy", "https_proxy", "all_proxy", "no_proxy"}

// Command builds an exec.Cmd with proxy variables removed from the environment;
// adb talks to its local server over TCP and some proxies intercept it.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, name, args...)
	} else {
		cmd = exec.Command(name, args...)
	}
	cmd.Env = cleanEnv(os.Environ())
	return cmd
}

func cleanEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		isProxy := false
		for _, v := range proxyVars {
			if strings.HasPrefix(e, v+"=") {
				isProxy = true
				break
			}
		}
		if !isProxy {
			out = append(out, e)
		}
	}
	return out
}

// serialPattern accepts USB serials, ip:port and mDNS names like
// "adb-xxxx._adb-tls-connect._tcp."
var serialPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

// ValidateSerial rejects device IDs that could not have come from adb
func ValidateSerial(serial string) error {
	if serial == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if len(serial) > 256 {
		return fmt.Errorf("device ID too long (max 256 characters)")
	}
	if !serialPattern.MatchString(serial) {
		return fmt.Errorf("invalid device ID format: contains illegal characters")
	}
	return nil
}

// packagePattern matches Android application ids
var packagePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z0-9_]+)+$`)

// ValidatePackage rejects anything that is not a dotted package name
func ValidatePackage(pkg string) error {
	if !packagePattern.MatchString(pkg) {
		return fmt.Errorf("invalid package name %q", pkg)
	}
	return nil
}
