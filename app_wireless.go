package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"droidview/pkg/bridge"
	"droidview/pkg/config"
	"droidview/pkg/logging"
)

func validateIP(ip string) error {
	if strings.TrimSpace(ip) == "" {
		return fmt.Errorf("IP address is required")
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address %q", ip)
	}
	return nil
}

// EnableTcpip switches serial to TCP/IP mode on port. An empty serial means
// the selected device, or the single USB device when nothing is selected.
func (a *App) EnableTcpip(serial, port string) (string, error) {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return "", errAdbNotConfigured
	}
	if port == "" {
		port = config.DefaultPort
	}
	if err := config.ValidatePort(port); err != nil {
		return "", err
	}
	if serial == "" {
		if d, ok := a.devices.Selected(); ok {
			serial = d.Serial
		}
	}

	err := adb.Tcpip(a.opCtx(), serial, port)
	a.record(logging.ActionTcpip, serial, port, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("TCP/IP enable failed: %v", err))
		return "", err
	}
	a.rememberWireless(func(w *config.WirelessAdb) { w.LastTcpipPort = port })

	target := serial
	if target == "" {
		target = "usb"
	}
	msg := fmt.Sprintf("TCP/IP enabled on %s:%s", target, port)
	a.setStatus(msg)
	return msg, nil
}

// ConnectWireless runs `adb connect ip:port`. On failure the error carries a
// hint for the user.
func (a *App) ConnectWireless(ip, port string) (string, error) {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return "", errAdbNotConfigured
	}
	if err := validateIP(ip); err != nil {
		return "", err
	}
	if port == "" {
		port = config.DefaultPort
	}
	if err := config.ValidatePort(port); err != nil {
		return "", err
	}

	op := logging.StartOperation("adb", "connect").AddDetail("address", ip+":"+port)
	out, err := adb.Connect(a.opCtx(), ip, port)
	op.Finish(err)
	a.record(logging.ActionConnect, "", ip+":"+port, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Connection failed: %v", err))
		var cerr *bridge.ConnectError
		if errors.As(err, &cerr) {
			return "", fmt.Errorf("%s\n\n%s", cerr.Error(), cerr.Hint())
		}
		return "", err
	}

	a.rememberWireless(func(w *config.WirelessAdb) {
		w.LastTcpipIP = ip
		w.LastTcpipPort = port
	})
	a.setStatus(fmt.Sprintf("Connected to %s:%s", ip, port))
	if _, rerr := a.refreshDevices(a.opCtx(), true); rerr != nil {
		logging.LogWarn("device").Err(rerr).Msg("Refresh after connect failed")
	}
	return out, nil
}

// PairWireless pairs with a device using its wireless debugging code
func (a *App) PairWireless(ip, port, code string) (string, error) {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return "", errAdbNotConfigured
	}
	if err := validateIP(ip); err != nil {
		return "", err
	}
	if err := config.ValidatePort(port); err != nil {
		return "", err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("pairing code is required")
	}

	out, err := adb.Pair(a.opCtx(), ip, port, code)
	a.record(logging.ActionPair, "", ip+":"+port, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Pairing failed: %v", err))
		return "", err
	}

	a.rememberWireless(func(w *config.WirelessAdb) {
		w.LastPairingIP = ip
		w.LastPairingPort = port
	})
	a.setStatus(fmt.Sprintf("Paired with %s:%s", ip, port))
	if _, rerr := a.refreshDevices(a.opCtx(), true); rerr != nil {
		logging.LogWarn("device").Err(rerr).Msg("Refresh after pairing failed")
	}
	return out, nil
}

// DisconnectWireless drops a network device. address is ip or ip:port; the
// port defaults to 5555.
func (a *App) DisconnectWireless(address string) (string, error) {
	adb := a.adbBridge()
	if adb == nil {
		a.setStatus(statusAdbNotConfig)
		return "", errAdbNotConfigured
	}
	ip, port, err := net.SplitHostPort(strings.TrimSpace(address))
	if err != nil {
		ip, port = strings.TrimSpace(address), config.DefaultPort
	}
	if err := validateIP(ip); err != nil {
		return "", err
	}
	if err := config.ValidatePort(port); err != nil {
		return "", err
	}
	target := net.JoinHostPort(ip, port)

	err = adb.Disconnect(a.opCtx(), target)
	a.record(logging.ActionDisconnect, target, "", err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Disconnect failed: %v", err))
		return "", err
	}
	msg := "Disconnected " + target
	a.setStatus(msg)
	if _, rerr := a.refreshDevices(a.opCtx(), true); rerr != nil {
		logging.LogWarn("device").Err(rerr).Msg("Refresh after disconnect failed")
	}
	return msg, nil
}

func (a *App) rememberWireless(fn func(*config.WirelessAdb)) {
	if _, err := a.store.Update(func(c *config.Config) { fn(&c.WirelessAdb) }); err != nil {
		logging.LogWarn("config").Err(err).Msg("Failed to remember wireless address")
	}
}
