package types

// DeviceStatus is the connection state column reported by `adb devices`.
type DeviceStatus string

const (
	StatusDevice       DeviceStatus = "device"
	StatusOffline      DeviceStatus = "offline"
	StatusUnauthorized DeviceStatus = "unauthorized"
	StatusNoPermission DeviceStatus = "no_permission"
)

// Known reports whether the status is one adb documents. Anything else is
// carried through verbatim.
func (s DeviceStatus) Known() bool {
	switch s {
	case StatusDevice, StatusOffline, StatusUnauthorized, StatusNoPermission:
		return true
	}
	return false
}

// Device represents an Android device as listed by `adb devices -l`
type Device struct {
	Serial      string       `json:"serial"`
	Status      DeviceStatus `json:"status"`
	Product     string       `json:"product"`
	Model       string       `json:"model"`
	Name        string       `json:"name"`
	TransportID string       `json:"transportId"`
	Wireless    bool         `json:"wireless"`
}

// IsUsable reports whether adb commands can be issued to the device
func (d Device) IsUsable() bool {
	return d.Status == StatusDevice
}

// KeyValue is one labelled line of device information
type KeyValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// BatchResult is the outcome of applying one package operation to many packages
type BatchResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []string          `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
	Message   string            `json:"message"`
}

// TaskState mirrors the loading flags of the background tasks
type TaskState struct {
	Loading map[string]bool `json:"loading"`
	Busy    bool            `json:"busy"`
}

// MirrorStatus describes the scrcpy session of a device
type MirrorStatus struct {
	Serial    string `json:"serial"`
	Running   bool   `json:"running"`
	StartTime int64  `json:"startTime"`
}

// HistoryEntry is a single recorded user action
type HistoryEntry struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Serial    string `json:"serial"`
	Detail    string `json:"detail"`
	Success   bool   `json:"success"`
	CreatedAt int64  `json:"createdAt"`
}

// AboutInfo is shown in the about dialog
type AboutInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
}
