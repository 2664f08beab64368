package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/hostutil"
	"droidview/pkg/logging"
	"droidview/pkg/types"
)

// A session that dies sooner than this after startup is reported as a failure
var scrcpyFailWindow = 5 * time.Second

// StartScrcpy mirrors the selected device
func (a *App) StartScrcpy() error {
	_, err := a.startMirror("")
	return err
}

func (a *App) startMirror(serial string) (string, error) {
	if a.opts.DebugDisableScrcpy {
		a.setStatus(statusScrcpyDisabled)
		return statusScrcpyDisabled, nil
	}
	serial, err := a.targetSerial(serial)
	if err != nil {
		return "", err
	}
	sc := a.scrcpyBridge()
	if sc == nil {
		a.setStatus("No device selected or scrcpy not configured")
		return "", errScrcpyNotConfigured
	}

	a.scrcpyMu.Lock()
	if s, ok := a.sessions[serial]; (ok && s.Running()) || a.starting[serial] {
		a.scrcpyMu.Unlock()
		return "", fmt.Errorf("scrcpy is already running for %s", serial)
	}
	a.starting[serial] = true
	a.scrcpyMu.Unlock()

	op := logging.StartOperation("scrcpy", "start").AddDetail("serial", serial)
	ctx, cancel := context.WithTimeout(a.opCtx(), 10*time.Second)
	defer cancel()
	sess, err := sc.Start(ctx, serial, bridge.OptionsFromConfig(a.store.Get()))
	op.Finish(err)
	a.record(logging.ActionScrcpyStart, serial, "", err)
	if err != nil {
		a.scrcpyMu.Lock()
		delete(a.starting, serial)
		a.scrcpyMu.Unlock()

		var early *bridge.EarlyExitError
		if errors.As(err, &early) {
			a.emit("scrcpy-failed", map[string]interface{}{
				"serial":   serial,
				"exitCode": early.ExitCode,
				"stderr":   early.Stderr,
			})
		}
		a.setStatus(fmt.Sprintf("Failed to start scrcpy: %v", err))
		return "", err
	}

	a.scrcpyMu.Lock()
	delete(a.starting, serial)
	a.sessions[serial] = sess
	a.scrcpyMu.Unlock()
	go a.watchSession(sess)

	a.emit("scrcpy-started", map[string]interface{}{"serial": serial, "pid": sess.Pid()})
	a.setStatus("Scrcpy started")
	return "Scrcpy started", nil
}

// watchSession reports the exit of a session nobody asked to stop
func (a *App) watchSession(sess *bridge.Session) {
	<-sess.Done()

	a.scrcpyMu.Lock()
	cur, tracked := a.sessions[sess.Serial]
	if tracked && cur == sess {
		delete(a.sessions, sess.Serial)
	}
	a.scrcpyMu.Unlock()
	if !tracked || cur != sess {
		return
	}

	lived := time.Since(sess.Started)
	payload := map[string]interface{}{"serial": sess.Serial, "duration": lived.Milliseconds()}
	if lived < scrcpyFailWindow {
		payload["stderr"] = sess.Stderr()
		if err := sess.Err(); err != nil {
			payload["error"] = err.Error()
		}
		logging.LogWarn("scrcpy").Str("serial", sess.Serial).Dur("lived", lived).Msg("Scrcpy exited shortly after start")
		a.emit("scrcpy-failed", payload)
		a.setStatus("Scrcpy exited unexpectedly")
		return
	}
	logging.LogInfo("scrcpy").Str("serial", sess.Serial).Msg("Scrcpy window closed")
	a.emit("scrcpy-stopped", payload)
	a.setStatus("Scrcpy stopped")
}

// StopScrcpy stops mirroring. With nothing tracked it kills any scrcpy
// process on the host.
func (a *App) StopScrcpy() error {
	_, err := a.stopMirror("")
	return err
}

// stopMirror stops the session for serial, or every session when serial is
// empty
func (a *App) stopMirror(serial string) (string, error) {
	a.scrcpyMu.Lock()
	var victims []*bridge.Session
	for s, sess := range a.sessions {
		if serial == "" || s == serial {
			victims = append(victims, sess)
			delete(a.sessions, s)
		}
	}
	a.scrcpyMu.Unlock()

	var err error
	if len(victims) == 0 {
		ctx, cancel := context.WithTimeout(a.opCtx(), 5*time.Second)
		defer cancel()
		if hostutil.IsProcessRunning(ctx, "scrcpy") {
			err = hostutil.KillProcess(ctx, "scrcpy")
		}
	}
	for _, sess := range victims {
		if serr := sess.Stop(); serr != nil {
			err = serr
		}
		a.emit("scrcpy-stopped", map[string]interface{}{"serial": sess.Serial})
	}

	a.record(logging.ActionScrcpyStop, serial, "", err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Failed to stop scrcpy: %v", err))
		return "", err
	}
	a.setStatus("Scrcpy stopped")
	return "Scrcpy stopped", nil
}

// IsScrcpyRunning reports whether any mirroring session is alive
func (a *App) IsScrcpyRunning() bool {
	a.scrcpyMu.Lock()
	for _, s := range a.sessions {
		if s.Running() {
			a.scrcpyMu.Unlock()
			return true
		}
	}
	a.scrcpyMu.Unlock()

	ctx, cancel := context.WithTimeout(a.opCtx(), 3*time.Second)
	defer cancel()
	return hostutil.IsProcessRunning(ctx, "scrcpy")
}

// MirrorStatus lists the tracked sessions, sorted by serial
func (a *App) MirrorStatus() []types.MirrorStatus {
	a.scrcpyMu.Lock()
	defer a.scrcpyMu.Unlock()
	out := make([]types.MirrorStatus, 0, len(a.sessions))
	for serial, s := range a.sessions {
		out = append(out, types.MirrorStatus{
			Serial:    serial,
			Running:   s.Running(),
			StartTime: s.Started.UnixMilli(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out
}
