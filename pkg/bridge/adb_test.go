package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanEnvStripsProxies(t *testing.T) {
	env := []string{"PATH=/usr/bin", "HTTP_PROXY=http://p:1", "https_proxy=x", "HOME=/root", "NO_PROXY=*"}
	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/root"}, cleanEnv(env))
}

func TestValidateSerial(t *testing.T) {
	for _, ok := range []string{"emulator-5554", "R58M12ABCDE", "192.168.1.100:5555", "adb-1234._adb-tls-connect._tcp."} {
		assert.NoError(t, ValidateSerial(ok), ok)
	}
	for _, bad := range []string{"", "abc;rm -rf /", "a b", "$(id)", strings.Repeat("a", 300)} {
		assert.Error(t, ValidateSerial(bad), bad)
	}
}

func TestValidatePackage(t *testing.T) {
	assert.NoError(t, ValidatePackage("com.example.app"))
	assert.NoError(t, ValidatePackage("org.fdroid.fdroid"))
	assert.Error(t, ValidatePackage("notapackage"))
	assert.Error(t, ValidatePackage("com.example; reboot"))
}

func TestAdbDevices(t *testing.T) {
	r := newFakeRunner().on("devices", "List of devices attached\nemulator-5554\tdevice\nR58M\tunauthorized\n10.0.0.2:5555\tdevice\n\n")
	adb := NewAdb("adb", r)

	serials, err := adb.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator-5554", "10.0.0.2:5555"}, serials)
}

func TestAdbRunErrorCarriesOutput(t *testing.T) {
	r := newFakeRunner().fail("-s X shell ls", "", "error: device 'X' not found")
	adb := NewAdb("adb", r)

	_, err := adb.Shell(context.Background(), "X", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device 'X' not found")
}

func TestAdbShellRejectsBadSerial(t *testing.T) {
	adb := NewAdb("adb", newFakeRunner())
	_, err := adb.Shell(context.Background(), "x;y", "ls")
	assert.Error(t, err)
}

func TestAdbTcpip(t *testing.T) {
	r := newFakeRunner().
		on("-s emulator-5554 tcpip 5555", "restarting in TCP mode port: 5555").
		on("-d tcpip 5556", "restarting in TCP mode port: 5556")
	adb := NewAdb("adb", r)

	require.NoError(t, adb.Tcpip(context.Background(), "emulator-5554", "5555"))
	require.NoError(t, adb.Tcpip(context.Background(), "", "5556"))
	assert.Equal(t, "-d tcpip 5556", r.lastArgs())
}

func TestAdbConnect(t *testing.T) {
	r := newFakeRunner().
		on("connect 10.0.0.2:5555", "connected to 10.0.0.2:5555\n").
		on("connect 10.0.0.3:5555", "failed to connect to '10.0.0.3:5555': Connection refused\n").
		fail("connect 10.0.0.4:5555", "", "cannot connect to 10.0.0.4:5555: No route to host")
	adb := NewAdb("adb", r)

	out, err := adb.Connect(context.Background(), "10.0.0.2", "5555")
	require.NoError(t, err)
	assert.Equal(t, "connected to 10.0.0.2:5555", out)

	_, err = adb.Connect(context.Background(), "10.0.0.3", "5555")
	var cerr *ConnectError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConnectRefused, cerr.Kind)

	_, err = adb.Connect(context.Background(), "10.0.0.4", "5555")
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConnectNoRoute, cerr.Kind)
}

func TestAdbPair(t *testing.T) {
	r := newFakeRunner().
		on("pair 10.0.0.2:37000 123456", "Successfully paired to 10.0.0.2:37000 [guid=adb-XYZ]\n").
		on("pair 10.0.0.2:37000 000000", "Failed: Wrong password or connection was dropped.\n")
	adb := NewAdb("adb", r)

	out, err := adb.Pair(context.Background(), "10.0.0.2", "37000", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully paired")

	_, err = adb.Pair(context.Background(), "10.0.0.2", "37000", "000000")
	assert.Error(t, err)
}

func TestAdbRestartServer(t *testing.T) {
	r := newFakeRunner().on("kill-server", "").on("start-server", "* daemon started successfully")
	adb := NewAdb("adb", r)

	require.NoError(t, adb.RestartServer(context.Background()))
	require.Len(t, r.calls, 2)
	assert.Equal(t, "start-server", r.lastArgs())
}

func TestAdbRestartServerStartFails(t *testing.T) {
	r := newFakeRunner().on("kill-server", "").fail("start-server", "", "cannot bind")
	adb := NewAdb("adb", r)
	assert.Error(t, adb.RestartServer(context.Background()))
}

func TestAdbReboot(t *testing.T) {
	r := newFakeRunner().
		on("-s D reboot", "").
		on("-s D reboot recovery", "").
		on("-s D reboot bootloader", "").
		on("-s D shell reboot -p", "")
	adb := NewAdb("adb", r)
	ctx := context.Background()

	tests := map[RebootMode]string{
		RebootSystem:     "-s D reboot",
		RebootRecovery:   "-s D reboot recovery",
		RebootBootloader: "-s D reboot bootloader",
		RebootShutdown:   "-s D shell reboot -p",
	}
	for mode, want := range tests {
		require.NoError(t, adb.Reboot(ctx, "D", mode))
		assert.Equal(t, want, r.lastArgs())
	}
	assert.Error(t, adb.Reboot(ctx, "D", "fastbootd"))
}

func TestAdbInstallUninstall(t *testing.T) {
	r := newFakeRunner().
		on("-s D install -r /tmp/app.apk", "Performing Streamed Install\nSuccess\n").
		on("-s D install -r /tmp/bad.apk", "Failure [INSTALL_FAILED_INVALID_APK]\n").
		on("-s D uninstall com.example.app", "Success\n").
		on("-s D uninstall com.example.sys", "Failure [DELETE_FAILED_INTERNAL_ERROR]\n").
		on("-s D shell pm disable-user --user 0 com.example.app", "Package com.example.app new state: disabled-user\n")
	adb := NewAdb("adb", r)
	ctx := context.Background()

	_, err := adb.Install(ctx, "D", "/tmp/app.apk")
	assert.NoError(t, err)
	_, err = adb.Install(ctx, "D", "/tmp/bad.apk")
	assert.Error(t, err)

	assert.NoError(t, adb.Uninstall(ctx, "D", "com.example.app"))
	assert.Error(t, adb.Uninstall(ctx, "D", "com.example.sys"))
	assert.Error(t, adb.Uninstall(ctx, "D", "bad name"))

	assert.NoError(t, adb.DisableUser(ctx, "D", "com.example.app"))
}
