package main

import (
	"context"
	"fmt"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/logging"
	"droidview/pkg/tasks"
	"droidview/pkg/toolkit"
	"droidview/pkg/types"

	"github.com/google/uuid"
)

// TaskResults holds the latest output of each background task
type TaskResults struct {
	Identifiers    string   `json:"identifiers"`
	DisplayInfo    string   `json:"displayInfo"`
	BatteryInfo    string   `json:"batteryInfo"`
	AppList        []string `json:"appList"`
	DisableAppList []string `json:"disableAppList"`
}

// taskTimeout bounds a single background task
const taskTimeout = 30 * time.Second

var taskLabels = map[tasks.ID]string{
	tasks.Identifiers:    "IMEI",
	tasks.DisplayInfo:    "display info",
	tasks.BatteryInfo:    "battery info",
	tasks.AppList:        "app list",
	tasks.DisableAppList: "app list",
}

var taskDone = map[tasks.ID]string{
	tasks.Identifiers:    "IMEI retrieved successfully",
	tasks.DisplayInfo:    "Display info retrieved successfully",
	tasks.BatteryInfo:    "Battery info retrieved successfully",
	tasks.AppList:        "App list loaded successfully",
	tasks.DisableAppList: "App list loaded successfully",
}

type deviceQuery func(ctx context.Context, adb *bridge.Adb, serial string) (any, error)

// submitTask starts a background query against the selected device
func (a *App) submitTask(id tasks.ID, query deviceQuery) error {
	serial, err := a.targetSerial("")
	if err != nil {
		return err
	}
	adb := a.adbBridge()

	a.tasks.SubmitWith(id, func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, taskTimeout)
		defer cancel()
		return query(ctx, adb, serial)
	}, func(run uuid.UUID) {
		a.setStatus(fmt.Sprintf("Loading %s...", taskLabels[id]))
		a.emit("task-started", map[string]interface{}{"id": string(id), "runId": run.String(), "serial": serial})
	})
	return nil
}

// handleTaskResult is the single consumer of finished tasks
func (a *App) handleTaskResult(r tasks.Result) {
	logging.LogDebug("tasks").
		Str("task", string(r.ID)).
		Dur("duration", r.Duration()).
		AnErr("error", r.Err).
		Msg("Task finished")

	payload := map[string]interface{}{"id": string(r.ID), "runId": r.RunID.String()}
	if r.Err != nil {
		payload["error"] = r.Err.Error()
		a.emit("task-finished", payload)
		a.setStatus(fmt.Sprintf("Failed to load %s: %v", taskLabels[r.ID], r.Err))
		return
	}

	a.mu.Lock()
	switch r.ID {
	case tasks.Identifiers:
		a.results.Identifiers, _ = r.Value.(string)
	case tasks.DisplayInfo:
		a.results.DisplayInfo, _ = r.Value.(string)
	case tasks.BatteryInfo:
		a.results.BatteryInfo, _ = r.Value.(string)
	case tasks.AppList:
		a.results.AppList, _ = r.Value.([]string)
	case tasks.DisableAppList:
		a.results.DisableAppList, _ = r.Value.([]string)
	}
	a.mu.Unlock()

	payload["value"] = r.Value
	a.emit("task-finished", payload)
	a.setStatus(taskDone[r.ID])
}

// LoadIdentifiers fetches Android ID, IMEIs and serial in the background
func (a *App) LoadIdentifiers() error {
	return a.submitTask(tasks.Identifiers, func(ctx context.Context, adb *bridge.Adb, serial string) (any, error) {
		return toolkit.FormatIdentifiers(toolkit.Identifiers(ctx, adb, serial)), nil
	})
}

// LoadDisplayInfo fetches display dump, size and density in the background
func (a *App) LoadDisplayInfo() error {
	return a.submitTask(tasks.DisplayInfo, func(ctx context.Context, adb *bridge.Adb, serial string) (any, error) {
		return toolkit.DisplayInfo(ctx, adb, serial), nil
	})
}

// LoadBatteryInfo fetches `dumpsys battery` in the background
func (a *App) LoadBatteryInfo() error {
	return a.submitTask(tasks.BatteryInfo, func(ctx context.Context, adb *bridge.Adb, serial string) (any, error) {
		return toolkit.BatteryInfo(ctx, adb, serial), nil
	})
}

// LoadAppList fetches third-party packages for the uninstall dialog
func (a *App) LoadAppList() error {
	return a.submitTask(tasks.AppList, func(ctx context.Context, adb *bridge.Adb, serial string) (any, error) {
		return toolkit.ListPackages(ctx, adb, serial, toolkit.PackagesThirdParty)
	})
}

// LoadDisableAppList fetches enabled packages for the disable dialog
func (a *App) LoadDisableAppList() error {
	return a.submitTask(tasks.DisableAppList, func(ctx context.Context, adb *bridge.Adb, serial string) (any, error) {
		return toolkit.ListPackages(ctx, adb, serial, toolkit.PackagesEnabled)
	})
}

// GetTaskState returns the loading flags
func (a *App) GetTaskState() types.TaskState {
	if a.tasks == nil {
		return types.TaskState{Loading: map[string]bool{}}
	}
	return a.tasks.State()
}

// GetTaskResults returns the latest task outputs
func (a *App) GetTaskResults() TaskResults {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r := a.results
	r.AppList = append([]string(nil), a.results.AppList...)
	r.DisableAppList = append([]string(nil), a.results.DisableAppList...)
	return r
}

// UninstallApps removes the given packages from the selected device
func (a *App) UninstallApps(pkgs []string) (types.BatchResult, error) {
	return a.uninstallPackages("", pkgs)
}

func (a *App) uninstallPackages(serial string, pkgs []string) (types.BatchResult, error) {
	if len(pkgs) == 0 {
		a.setStatus("Please select at least one app to uninstall")
		return types.BatchResult{}, fmt.Errorf("no packages selected")
	}
	serial, err := a.targetSerial(serial)
	if err != nil {
		return types.BatchResult{}, err
	}

	op := logging.StartOperation("toolkit", "uninstall").AddDetail("serial", serial).AddDetail("count", len(pkgs))
	res := toolkit.UninstallPackages(a.opCtx(), a.adbBridge(), serial, pkgs)
	op.End()
	a.record(logging.ActionAppUninstall, serial, res.Message, nil)

	a.mu.Lock()
	a.results.AppList = toolkit.Remaining(a.results.AppList, res)
	a.mu.Unlock()
	a.setStatus(res.Message)
	return res, nil
}

// DisableApps disables the given packages on the selected device
func (a *App) DisableApps(pkgs []string) (types.BatchResult, error) {
	return a.disablePackages("", pkgs)
}

func (a *App) disablePackages(serial string, pkgs []string) (types.BatchResult, error) {
	if len(pkgs) == 0 {
		a.setStatus("Please select at least one app to disable")
		return types.BatchResult{}, fmt.Errorf("no packages selected")
	}
	serial, err := a.targetSerial(serial)
	if err != nil {
		return types.BatchResult{}, err
	}

	op := logging.StartOperation("toolkit", "disable").AddDetail("serial", serial).AddDetail("count", len(pkgs))
	res := toolkit.DisablePackages(a.opCtx(), a.adbBridge(), serial, pkgs)
	op.End()
	a.record(logging.ActionAppDisable, serial, res.Message, nil)

	a.mu.Lock()
	a.results.DisableAppList = toolkit.Remaining(a.results.DisableAppList, res)
	a.mu.Unlock()
	a.setStatus(res.Message)
	return res, nil
}
