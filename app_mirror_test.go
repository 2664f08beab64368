package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStartMirror_SecondStartRejected(t *testing.T) {
	app := newTestAppWithScrcpy(t, "exec sleep 30")

	if _, err := app.startMirror("R58M123"); err != nil {
		t.Fatalf("startMirror: %v", err)
	}
	_, err := app.startMirror("R58M123")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("Expected already running error, got %v", err)
	}

	status := app.MirrorStatus()
	if len(status) != 1 || status[0].Serial != "R58M123" || !status[0].Running {
		t.Errorf("MirrorStatus = %+v", status)
	}

	if _, err := app.stopMirror("R58M123"); err != nil {
		t.Fatalf("stopMirror: %v", err)
	}
	if len(app.MirrorStatus()) != 0 {
		t.Error("Session still tracked after stop")
	}
}

func TestStartMirror_ConcurrentStartsLaunchOnce(t *testing.T) {
	app := newTestAppWithScrcpy(t, `echo started >> "$(dirname "$0")/scrcpy.log"
exec sleep 30`)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = app.startMirror("R58M123")
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("Expected exactly one start to be rejected, got errs=%v", errs)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(app.scrcpyBridge().Path()), "scrcpy.log"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "started"); n != 1 {
		t.Errorf("scrcpy launched %d times", n)
	}
	if n := len(app.MirrorStatus()); n != 1 {
		t.Errorf("tracked sessions = %d", n)
	}
}

func TestWatchSession_EarlyExitReportsFailure(t *testing.T) {
	app := newTestAppWithScrcpy(t, `echo "ERROR: lost connection" >&2
sleep 1
exit 2`)

	if _, err := app.startMirror("R58M123"); err != nil {
		t.Fatalf("startMirror: %v", err)
	}
	waitFor(t, func() bool { return app.GetStatus() == "Scrcpy exited unexpectedly" })
	if len(app.MirrorStatus()) != 0 {
		t.Error("Exited session still tracked")
	}
}

func TestWatchSession_LateExitReportsStopped(t *testing.T) {
	prev := scrcpyFailWindow
	scrcpyFailWindow = 100 * time.Millisecond
	t.Cleanup(func() { scrcpyFailWindow = prev })

	app := newTestAppWithScrcpy(t, "sleep 1")

	if _, err := app.startMirror("R58M123"); err != nil {
		t.Fatalf("startMirror: %v", err)
	}
	waitFor(t, func() bool { return len(app.MirrorStatus()) == 0 })
	if got := app.GetStatus(); got != "Scrcpy stopped" {
		t.Errorf("status = %q", got)
	}
}

func TestStopMirror_KillsUntrackedHostProcess(t *testing.T) {
	for _, tool := range []string{"pgrep", "pkill"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
	app := newTestApp(t)

	stray := filepath.Join(t.TempDir(), "scrcpy")
	if err := os.WriteFile(stray, []byte("#!/bin/sh\nwhile :; do sleep 1; done\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(stray)
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()
	t.Cleanup(func() {
		cmd.Process.Kill()
		<-exited
	})

	if _, err := app.stopMirror(""); err != nil {
		t.Fatalf("stopMirror: %v", err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("untracked scrcpy process still running")
	}
}
