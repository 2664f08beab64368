package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"droidview/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBuildArgsOrder(t *testing.T) {
	args := BuildArgs("emulator-5554", MirrorOptions{
		Bitrate:         "4M",
		Orientation:     "90",
		ShowTouches:     true,
		Fullscreen:      true,
		MaxSize:         1024,
		TurnScreenOff:   true,
		ForceAdbForward: true,
		ExtraArgs:       "  --no-audio\n--max-fps 30 ",
	})
	assert.Equal(t, []string{
		"-s", "emulator-5554",
		"-b", "4M",
		"--orientation", "90",
		"--show-touches",
		"--fullscreen",
		"--max-size", "1024",
		"-S",
		"--force-adb-forward",
		"--no-audio", "--max-fps", "30",
	}, args)
}

func TestBuildArgsMinimal(t *testing.T) {
	assert.Equal(t, []string{"-b", "8M"}, BuildArgs("", MirrorOptions{}))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Dimension = 800
	cfg.TurnScreenOff = true
	cfg.ExtraArgs = "--stay-awake"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "8M", opts.Bitrate)
	assert.Equal(t, uint32(800), opts.MaxSize)
	assert.True(t, opts.TurnScreenOff)
	assert.Equal(t, []string{"-s", "X", "-b", "8M", "--max-size", "800", "-S", "--stay-awake"}, BuildArgs("X", opts))
}

// writeScript creates an executable shell script standing in for scrcpy
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	path := filepath.Join(t.TempDir(), "scrcpy")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestScrcpyStartEarlyExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeScript(t, `echo "ERROR: Could not find any ADB device" >&2
exit 1`)
	s := NewScrcpy(path)
	s.SetGracePeriod(2 * time.Second)

	sess, err := s.Start(context.Background(), "emulator-5554", MirrorOptions{})
	require.Error(t, err)
	assert.Nil(t, sess)

	var early *EarlyExitError
	require.True(t, errors.As(err, &early))
	assert.Equal(t, 1, early.ExitCode)
	assert.Contains(t, early.Stderr, "Could not find any ADB device")
	assert.Contains(t, err.Error(), "Scrcpy process exited immediately")
}

func TestScrcpyStartEarlyExitWithChildHoldingPipes(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeScript(t, `echo "ERROR: Device disconnected" >&2
(sleep 3) &
exit 1`)
	s := NewScrcpy(path)
	s.SetGracePeriod(2 * time.Second)

	begin := time.Now()
	sess, err := s.Start(context.Background(), "emulator-5554", MirrorOptions{})
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Less(t, time.Since(begin), 2*time.Second, "exit must be seen before the grace period ends")

	var early *EarlyExitError
	require.True(t, errors.As(err, &early))
	assert.Equal(t, 1, early.ExitCode)
	assert.Contains(t, early.Stderr, "Device disconnected")
}

func TestScrcpyStopWithChildHoldingPipes(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeScript(t, `(sleep 3) &
exec sleep 30`)
	s := NewScrcpy(path)
	s.SetGracePeriod(200 * time.Millisecond)

	sess, err := s.Start(context.Background(), "", MirrorOptions{})
	require.NoError(t, err)

	begin := time.Now()
	require.NoError(t, sess.Stop())
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.False(t, sess.Running())
}

func TestScrcpyStartAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeScript(t, `echo "INFO: Renderer: opengl" >&2
exec sleep 30`)
	s := NewScrcpy(path)
	s.SetGracePeriod(200 * time.Millisecond)

	sess, err := s.Start(context.Background(), "emulator-5554", MirrorOptions{})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.Running())
	assert.Greater(t, sess.Pid(), 0)
	assert.Equal(t, "emulator-5554", sess.Serial)

	require.NoError(t, sess.Stop())
	assert.False(t, sess.Running())
	assert.Error(t, sess.Err(), "killed process reports a wait error")
	assert.NoError(t, sess.Stop(), "second stop is a no-op")
}

func TestScrcpyStartContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeScript(t, "exec sleep 30")
	s := NewScrcpy(path)
	s.SetGracePeriod(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.Start(ctx, "", MirrorOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScrcpyStartMissingBinary(t *testing.T) {
	s := NewScrcpy(filepath.Join(t.TempDir(), "missing-scrcpy"))
	_, err := s.Start(context.Background(), "X", MirrorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start scrcpy")
}

func TestScrcpyStartRejectsBadSerial(t *testing.T) {
	s := NewScrcpy("scrcpy")
	_, err := s.Start(context.Background(), "bad serial", MirrorOptions{})
	assert.Error(t, err)
}
