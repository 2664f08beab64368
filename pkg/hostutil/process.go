package hostutil

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// IsProcessRunning asks the host whether a process with the given image name exists
func IsProcessRunning(ctx context.Context, name string) bool {
	if runtime.GOOS == "windows" {
		image := name
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		out, err := exec.CommandContext(ctx, "tasklist", "/FI", "IMAGENAME eq "+image).Output()
		if err != nil {
			return false
		}
		return strings.Contains(strings.ToLower(string(out)), strings.ToLower(image))
	}
	return exec.CommandContext(ctx, "pgrep", name).Run() == nil
}

// KillProcess terminates every process with the given image name
func KillProcess(ctx context.Context, name string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		image := name
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		cmd = exec.CommandContext(ctx, "taskkill", "/F", "/IM", image)
	} else {
		cmd = exec.CommandContext(ctx, "pkill", name)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to kill %s: %w, output: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// OpenURL opens url in the default browser
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	go cmd.Wait()
	return nil
}

// TerminalCandidates returns, in preference order, the argument vectors that
// open a terminal window running command on goos.
func TerminalCandidates(goos, command string) [][]string {
	switch goos {
	case "windows":
		return [][]string{{"cmd", "/C", "start", "cmd", "/K", command}}
	case "darwin":
		script := fmt.Sprintf(`tell application "Terminal" to do script "%s"`, strings.ReplaceAll(command, `"`, `\"`))
		return [][]string{{"osascript", "-e", script, "-e", `tell application "Terminal" to activate`}}
	default:
		keep := command + "; exec bash"
		return [][]string{
			{"gnome-terminal", "--", "bash", "-c", keep},
			{"konsole", "-e", "bash", "-c", keep},
			{"xterm", "-e", "bash", "-c", keep},
			{"terminator", "-e", command},
			{"xfce4-terminal", "-e", command},
			{"x-terminal-emulator", "-e", command},
		}
	}
}

// OpenTerminal launches the first available terminal emulator running command
func OpenTerminal(command string) error {
	for _, argv := range TerminalCandidates(runtime.GOOS, command) {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		if err := cmd.Start(); err != nil {
			continue
		}
		go cmd.Wait()
		return nil
	}
	return fmt.Errorf("no terminal emulator found")
}

// QuoteCommand joins args into a single command line for a shell
func QuoteCommand(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(a string) string {
	if a == "" {
		return "''"
	}
	if !strings.ContainsAny(a, " \t\"'\\$`&|;<>()*?!") {
		return a
	}
	if runtime.GOOS == "windows" {
		return `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
	}
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}
