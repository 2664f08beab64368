package device

import (
	"fmt"
	"sync"

	"droidview/pkg/types"
)

// List is the device list shown in the side panel together with the
// current selection.
type List struct {
	mu       sync.RWMutex
	devices  []types.Device
	selected int // -1 when nothing is selected
}

// NewList returns an empty list with no selection
func NewList() *List {
	return &List{selected: -1}
}

// Update replaces the devices. An empty list clears the selection, a stale
// index is dropped, and with nothing selected the first usable device is
// picked. The selection follows its serial when devices reorder.
func (l *List) Update(devices []types.Device) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevSerial := ""
	if l.selected >= 0 && l.selected < len(l.devices) {
		prevSerial = l.devices[l.selected].Serial
	}

	l.devices = append([]types.Device(nil), devices...)
	l.selected = -1
	if len(l.devices) == 0 {
		return
	}

	if prevSerial != "" {
		for i, d := range l.devices {
			if d.Serial == prevSerial {
				l.selected = i
				return
			}
		}
	}
	for i, d := range l.devices {
		if d.IsUsable() {
			l.selected = i
			return
		}
	}
}

// Devices returns a copy of the current devices
func (l *List) Devices() []types.Device {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Device(nil), l.devices...)
}

// SelectSerial picks the device with the given serial
func (l *List) SelectSerial(serial string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, d := range l.devices {
		if d.Serial == serial {
			l.selected = i
			return nil
		}
	}
	return fmt.Errorf("device %s not found", serial)
}

// Selected returns the selected device
func (l *List) Selected() (types.Device, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.selected < 0 || l.selected >= len(l.devices) {
		return types.Device{}, false
	}
	return l.devices[l.selected], true
}
