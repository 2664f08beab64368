package bridge

import (
	"fmt"
	"strings"
)

// ConnectKind classifies why `adb connect` failed
type ConnectKind int

const (
	ConnectFailed ConnectKind = iota
	ConnectRefused
	ConnectNoRoute
	ConnectTimeout
	ConnectAlreadyConnected
)

func (k ConnectKind) String() string {
	switch k {
	case ConnectRefused:
		return "refused"
	case ConnectNoRoute:
		return "no_route"
	case ConnectTimeout:
		return "timeout"
	case ConnectAlreadyConnected:
		return "already_connected"
	default:
		return "failed"
	}
}

// ConnectError is a classified `adb connect` failure
type ConnectError struct {
	IP     string
	Port   string
	Kind   ConnectKind
	Output string
	Err    error
}

func (e *ConnectError) Error() string {
	addr := e.IP + ":" + e.Port
	switch e.Kind {
	case ConnectRefused:
		return fmt.Sprintf("Connection refused: Unable to connect to %s", addr)
	case ConnectNoRoute:
		return fmt.Sprintf("No route to host: Cannot reach %s", addr)
	case ConnectTimeout:
		return fmt.Sprintf("Connection timeout: Unable to reach %s", addr)
	case ConnectAlreadyConnected:
		return fmt.Sprintf("Already connected to %s", addr)
	default:
		msg := e.Output
		if msg == "" {
			msg = "Unknown connection error"
		}
		return fmt.Sprintf("Failed to connect to %s - %s", addr, msg)
	}
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Hint is the troubleshooting text shown under the error
func (e *ConnectError) Hint() string {
	var lines []string
	switch e.Kind {
	case ConnectRefused:
		lines = []string{
			"The device is powered on and connected to the same network",
			fmt.Sprintf("The IP address %s is correct", e.IP),
			fmt.Sprintf("Port %s is not blocked by firewall", e.Port),
			"ADB TCP/IP is enabled on the device (run 'adb tcpip 5555' on USB first)",
		}
	case ConnectNoRoute:
		lines = []string{
			fmt.Sprintf("The IP address %s is correct", e.IP),
			"The device is on the same network",
			"Your network allows the connection",
		}
	case ConnectTimeout:
		lines = []string{
			"The device is powered on",
			fmt.Sprintf("The IP address %s is correct", e.IP),
			"The device is on the same network",
		}
	default:
		return ""
	}
	return "Please check if:\n• " + strings.Join(lines, "\n• ")
}

// ClassifyConnect inspects the result of `adb connect`. It returns nil on
// success. adb exits 0 for several failures, so the output is checked too.
func ClassifyConnect(ip, port, stdout, stderr string, runErr error) *ConnectError {
	lo := strings.ToLower(stdout)
	le := strings.ToLower(stderr)
	has := func(s string) bool { return strings.Contains(lo, s) || strings.Contains(le, s) }

	failedOutput := has("failed to connect") || has("cannot connect") || has("unable to connect")
	if runErr == nil && !failedOutput {
		return nil
	}

	e := &ConnectError{IP: ip, Port: port, Err: runErr}
	switch {
	case has("connection refused"):
		e.Kind = ConnectRefused
	case has("no route to host"):
		e.Kind = ConnectNoRoute
	case has("timeout"), has("timed out"):
		e.Kind = ConnectTimeout
	case has("already connected"):
		e.Kind = ConnectAlreadyConnected
	default:
		e.Kind = ConnectFailed
		if s := strings.TrimSpace(le); s != "" {
			e.Output = s
		} else {
			e.Output = strings.TrimSpace(lo)
		}
	}
	return e
}
