package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"droidview/pkg/config"
	"droidview/pkg/logging"
)

// DefaultGracePeriod is how long Start waits before declaring scrcpy alive
const DefaultGracePeriod = 500 * time.Millisecond

const stderrTailLines = 50

// pipeWaitDelay bounds how long a session keeps reading output after scrcpy
// exits. Descendants that inherit the pipes are cut off after it.
const pipeWaitDelay = 250 * time.Millisecond

// MirrorOptions are the scrcpy flags DroidView controls
type MirrorOptions struct {
	Bitrate         string
	Orientation     string
	ShowTouches     bool
	Fullscreen      bool
	MaxSize         uint32
	TurnScreenOff   bool
	ForceAdbForward bool
	ExtraArgs       string
}

// OptionsFromConfig copies the mirroring settings out of cfg
func OptionsFromConfig(cfg config.Config) MirrorOptions {
	return MirrorOptions{
		Bitrate:         cfg.Bitrate,
		Orientation:     cfg.Orientation,
		ShowTouches:     cfg.ShowTouches,
		Fullscreen:      cfg.Fullscreen,
		MaxSize:         cfg.Dimension,
		TurnScreenOff:   cfg.TurnScreenOff,
		ForceAdbForward: cfg.ForceAdbForward,
		ExtraArgs:       cfg.ExtraArgs,
	}
}

// BuildArgs renders the scrcpy command line. Extra arguments are appended
// last and split on whitespace.
func BuildArgs(serial string, opts MirrorOptions) []string {
	var args []string
	if serial != "" {
		args = append(args, "-s", serial)
	}
	bitrate := opts.Bitrate
	if bitrate == "" {
		bitrate = config.DefaultBitrate
	}
	args = append(args, "-b", bitrate)
	if opts.Orientation != "" {
		args = append(args, "--orientation", opts.Orientation)
	}
	if opts.ShowTouches {
		args = append(args, "--show-touches")
	}
	if opts.Fullscreen {
		args = append(args, "--fullscreen")
	}
	if opts.MaxSize > 0 {
		args = append(args, "--max-size", strconv.FormatUint(uint64(opts.MaxSize), 10))
	}
	if opts.TurnScreenOff {
		args = append(args, "-S")
	}
	if opts.ForceAdbForward {
		args = append(args, "--force-adb-forward")
	}
	return append(args, strings.Fields(opts.ExtraArgs)...)
}

// EarlyExitError means scrcpy died within the grace period
type EarlyExitError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EarlyExitError) Error() string {
	status := fmt.Sprintf("exit code %d", e.ExitCode)
	if e.Err != nil {
		status = e.Err.Error()
	}
	msg := "Scrcpy process exited immediately with status: " + status
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *EarlyExitError) Unwrap() error {
	return e.Err
}

// Scrcpy wraps one scrcpy executable
type Scrcpy struct {
	path  string
	grace time.Duration
}

// NewScrcpy returns a bridge for the scrcpy at path
func NewScrcpy(path string) *Scrcpy {
	return &Scrcpy{path: path, grace: DefaultGracePeriod}
}

// Path returns the executable path
func (s *Scrcpy) Path() string {
	return s.path
}

// SetGracePeriod overrides DefaultGracePeriod
func (s *Scrcpy) SetGracePeriod(d time.Duration) {
	s.grace = d
}

// Start launches scrcpy for serial and waits out the grace period. The
// session outlives ctx; ctx only bounds the startup wait.
func (s *Scrcpy) Start(ctx context.Context, serial string, opts MirrorOptions) (*Session, error) {
	if serial != "" {
		if err := ValidateSerial(serial); err != nil {
			return nil, err
		}
	}
	args := BuildArgs(serial, opts)
	cmd := Command(nil, s.path, args...)

	sess := &Session{
		Serial: serial,
		cmd:    cmd,
		done:   make(chan struct{}),
	}
	cmd.Stdout = &lineWriter{emit: func(line string) { sess.line(line, false) }}
	cmd.Stderr = &lineWriter{emit: func(line string) { sess.line(line, true) }}
	cmd.WaitDelay = pipeWaitDelay

	logging.LogInfo("scrcpy").
		Str("command", s.path+" "+strings.Join(args, " ")).
		Str("PATH", os.Getenv("PATH")).
		Str("DISPLAY", os.Getenv("DISPLAY")).
		Str("WAYLAND_DISPLAY", os.Getenv("WAYLAND_DISPLAY")).
		Msg("Starting scrcpy")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scrcpy: %w", err)
	}

	sess.Started = time.Now()
	go sess.wait()

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-sess.done:
		early := &EarlyExitError{ExitCode: cmd.ProcessState.ExitCode(), Stderr: sess.Stderr(), Err: sess.Err()}
		logging.LogError("scrcpy").Err(early).Msg("Scrcpy exited during startup")
		return nil, early
	case <-ctx.Done():
		_ = sess.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	sess.markRunning()
	logging.LogInfo("scrcpy").Str("serial", serial).Int("pid", cmd.Process.Pid).Msg("Scrcpy running")
	return sess, nil
}

// Session is a running scrcpy process
type Session struct {
	Serial  string
	Started time.Time

	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	err     error
	tail    []string
	running bool
}

func (s *Session) line(line string, isStderr bool) {
	if !isStderr {
		logging.LogDebug("scrcpy").Str("serial", s.Serial).Msg(line)
		return
	}
	s.mu.Lock()
	s.tail = append(s.tail, line)
	if len(s.tail) > stderrTailLines {
		s.tail = s.tail[len(s.tail)-stderrTailLines:]
	}
	running := s.running
	s.mu.Unlock()
	if running {
		logging.LogInfo("scrcpy").Str("serial", s.Serial).Str("stderr", line).Msg("Scrcpy stderr")
	}
}

func (s *Session) wait() {
	err := s.cmd.Wait()
	if errors.Is(err, exec.ErrWaitDelay) {
		// scrcpy itself exited cleanly; a child still held its output
		err = nil
	}
	s.cmd.Stdout.(*lineWriter).flush()
	s.cmd.Stderr.(*lineWriter).flush()
	s.mu.Lock()
	s.err = err
	s.running = false
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) markRunning() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
}

// Done is closed when the process exits
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err is the wait error once Done is closed
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Running reports whether the process is still alive
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Stderr returns the last lines scrcpy wrote to stderr
func (s *Session) Stderr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.tail, "\n")
}

// Pid returns the process id
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop kills the process and waits for it to be reaped
func (s *Session) Stop() error {
	if s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill scrcpy: %w", err)
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("scrcpy did not exit after kill")
	}
}

// lineWriter splits process output into lines
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}
