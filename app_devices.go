package main

import (
	"context"
	"fmt"
	"time"

	"droidview/pkg/device"
	"droidview/pkg/logging"
	"droidview/pkg/types"
)

// GetDevices returns the last fetched device list
func (a *App) GetDevices() []types.Device {
	return a.devices.Devices()
}

// RefreshDevices re-reads `adb devices -l`. Calls beyond the refresh budget
// return the cached list.
func (a *App) RefreshDevices() ([]types.Device, error) {
	return a.refreshDevices(a.opCtx(), false)
}

func (a *App) refreshDevices(ctx context.Context, force bool) ([]types.Device, error) {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return nil, errAdbNotConfigured
	}
	if !force && !a.refreshLimiter.Allow() {
		logging.LogDebug("device").Msg("Refresh throttled, returning cached list")
		return a.devices.Devices(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	list, err := device.Fetch(ctx, adb)
	if err != nil {
		a.setStatus(fmt.Sprintf("Error: %v", err))
		return nil, err
	}

	a.devices.Update(list)
	a.setStatus(fmt.Sprintf("Found %d device(s)", len(list)))
	a.emit("devices-changed", list)
	return a.devices.Devices(), nil
}

// SelectDevice makes serial the target of device actions
func (a *App) SelectDevice(serial string) error {
	if err := a.devices.SelectSerial(serial); err != nil {
		return err
	}
	logging.LogUserAction(logging.ActionDeviceSelect, serial, nil)
	return nil
}

// GetSelectedDevice returns the selected device, or nil
func (a *App) GetSelectedDevice() *types.Device {
	d, ok := a.devices.Selected()
	if !ok {
		return nil
	}
	return &d
}

// targetSerial resolves the device an action applies to. An empty serial
// means the selected device.
func (a *App) targetSerial(serial string) (string, error) {
	if a.adbBridge() == nil {
		a.setStatus(statusNoDevice)
		return "", errNoDevice
	}
	if serial != "" {
		return serial, nil
	}
	d, ok := a.devices.Selected()
	if !ok {
		a.setStatus(statusNoDevice)
		return "", errNoDevice
	}
	return d.Serial, nil
}

// RestartAdb restarts the adb server and refreshes the list
func (a *App) RestartAdb() error {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return errAdbNotConfigured
	}

	op := logging.StartOperation("adb", "restart_server")
	err := adb.RestartServer(a.opCtx())
	op.Finish(err)
	a.record(logging.ActionAdbRestart, "", "", err)
	if err != nil {
		a.setStatus(fmt.Sprintf("ADB restart failed: %v", err))
		return err
	}
	a.setStatus("ADB restarted")

	if _, err := a.refreshDevices(a.opCtx(), true); err != nil {
		logging.LogWarn("device").Err(err).Msg("Refresh after restart failed")
	}
	return nil
}
