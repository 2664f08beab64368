package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"droidview/pkg/logging"
)

// DefaultTimeout bounds adb calls whose context carries no deadline
const DefaultTimeout = 30 * time.Second

// RebootMode selects the target of Reboot
type RebootMode string

const (
	RebootSystem     RebootMode = "system"
	RebootRecovery   RebootMode = "recovery"
	RebootBootloader RebootMode = "bootloader"
	RebootShutdown   RebootMode = "shutdown"
)

// Adb wraps one adb executable
type Adb struct {
	path    string
	runner  Runner
	timeout time.Duration
}

// NewAdb returns a bridge for the adb at path. A nil runner uses ExecRunner.
func NewAdb(path string, runner Runner) *Adb {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Adb{path: path, runner: runner, timeout: DefaultTimeout}
}

// Path returns the executable path
func (a *Adb) Path() string {
	return a.path
}

func (a *Adb) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Exec runs adb with args and returns raw stdout. On failure the error carries
// whatever the tool printed.
func (a *Adb) Exec(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	logging.LogDebug("adb").Strs("args", args).Msg("Running adb")
	stdout, stderr, err := a.runner.Run(ctx, a.path, args...)
	if err != nil {
		output := strings.TrimSpace(string(stderr))
		if output == "" {
			output = strings.TrimSpace(string(stdout))
		}
		return stdout, fmt.Errorf("adb %s: %w, output: %s", strings.Join(args, " "), err, output)
	}
	return stdout, nil
}

// Run is Exec returning stdout as a string
func (a *Adb) Run(ctx context.Context, args ...string) (string, error) {
	out, err := a.Exec(ctx, args...)
	return string(out), err
}

// Devices returns serials whose state is "device", from plain `adb devices`
func (a *Adb) Devices(ctx context.Context) ([]string, error) {
	out, err := a.Run(ctx, "devices")
	if err != nil {
		return nil, err
	}
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) == 2 && parts[1] == "device" {
			serials = append(serials, parts[0])
		}
	}
	return serials, nil
}

// Shell runs command in the device shell
func (a *Adb) Shell(ctx context.Context, serial, command string) (string, error) {
	if err := ValidateSerial(serial); err != nil {
		return "", err
	}
	return a.Run(ctx, "-s", serial, "shell", command)
}

// ExecOut runs `exec-out` and returns raw bytes (e.g. a PNG)
func (a *Adb) ExecOut(ctx context.Context, serial string, args ...string) ([]byte, error) {
	if err := ValidateSerial(serial); err != nil {
		return nil, err
	}
	return a.Exec(ctx, append([]string{"-s", serial, "exec-out"}, args...)...)
}

// Tcpip restarts adbd on the device in TCP mode. An empty serial targets the
// single USB device (-d).
func (a *Adb) Tcpip(ctx context.Context, serial, port string) error {
	var args []string
	if serial != "" {
		if err := ValidateSerial(serial); err != nil {
			return err
		}
		args = []string{"-s", serial, "tcpip", port}
	} else {
		args = []string{"-d", "tcpip", port}
	}
	if _, err := a.Run(ctx, args...); err != nil {
		return fmt.Errorf("TCP/IP command failed: %w", err)
	}
	return nil
}

// Connect runs `adb connect ip:port`. Failures are returned as *ConnectError.
func (a *Adb) Connect(ctx context.Context, ip, port string) (string, error) {
	address := ip + ":" + port
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	stdout, stderr, err := a.runner.Run(ctx, a.path, "connect", address)
	if cerr := ClassifyConnect(ip, port, string(stdout), string(stderr), err); cerr != nil {
		return string(stdout), cerr
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Disconnect drops a TCP device
func (a *Adb) Disconnect(ctx context.Context, address string) error {
	if _, err := a.Run(ctx, "disconnect", address); err != nil {
		return fmt.Errorf("disconnect failed: %w", err)
	}
	return nil
}

// Pair runs `adb pair ip:port code`
func (a *Adb) Pair(ctx context.Context, ip, port, code string) (string, error) {
	out, err := a.Run(ctx, "pair", ip+":"+port, code)
	if err != nil {
		return out, fmt.Errorf("pairing failed: %w", err)
	}
	lower := strings.ToLower(out)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		return out, fmt.Errorf("pairing failed: %s", strings.TrimSpace(out))
	}
	return strings.TrimSpace(out), nil
}

// RestartServer kills and restarts the local adb server
func (a *Adb) RestartServer(ctx context.Context) error {
	if _, err := a.Run(ctx, "kill-server"); err != nil {
		logging.LogWarn("adb").Err(err).Msg("kill-server failed, starting anyway")
	}
	if _, err := a.Run(ctx, "start-server"); err != nil {
		return fmt.Errorf("failed to start adb server: %w", err)
	}
	return nil
}

// Install installs (or replaces) an APK
func (a *Adb) Install(ctx context.Context, serial, apkPath string) (string, error) {
	if err := ValidateSerial(serial); err != nil {
		return "", err
	}
	out, err := a.Run(ctx, "-s", serial, "install", "-r", apkPath)
	if err != nil {
		return out, err
	}
	if strings.Contains(out, "Failure") {
		return out, fmt.Errorf("install failed: %s", strings.TrimSpace(out))
	}
	return out, nil
}

// Uninstall removes a package
func (a *Adb) Uninstall(ctx context.Context, serial, pkg string) error {
	if err := ValidateSerial(serial); err != nil {
		return err
	}
	if err := ValidatePackage(pkg); err != nil {
		return err
	}
	out, err := a.Run(ctx, "-s", serial, "uninstall", pkg)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Failure") {
		return fmt.Errorf("uninstall %s failed: %s", pkg, strings.TrimSpace(out))
	}
	return nil
}

// DisableUser disables a package for user 0
func (a *Adb) DisableUser(ctx context.Context, serial, pkg string) error {
	if err := ValidatePackage(pkg); err != nil {
		return err
	}
	out, err := a.Shell(ctx, serial, "pm disable-user --user 0 "+pkg)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Exception") || strings.Contains(out, "Error") {
		return fmt.Errorf("disable %s failed: %s", pkg, strings.TrimSpace(out))
	}
	return nil
}

// Pull copies a file from the device
func (a *Adb) Pull(ctx context.Context, serial, remote, local string) error {
	if err := ValidateSerial(serial); err != nil {
		return err
	}
	_, err := a.Run(ctx, "-s", serial, "pull", remote, local)
	return err
}

// Reboot restarts the device into mode, or powers it off for RebootShutdown
func (a *Adb) Reboot(ctx context.Context, serial string, mode RebootMode) error {
	if err := ValidateSerial(serial); err != nil {
		return err
	}
	var args []string
	switch mode {
	case RebootSystem, "":
		args = []string{"-s", serial, "reboot"}
	case RebootRecovery, RebootBootloader:
		args = []string{"-s", serial, "reboot", string(mode)}
	case RebootShutdown:
		args = []string{"-s", serial, "shell", "reboot", "-p"}
	default:
		return fmt.Errorf("unknown reboot mode %q", mode)
	}
	_, err := a.Run(ctx, args...)
	return err
}
