package config

import (
	"fmt"
	"sync"
)

// SectionIDDevice is the identifier for the Android device section
const SectionIDDevice = "device"

// DeviceSettings is a value copy of the device section.
type DeviceSettings struct {
	ADBPath string
	// RichDriver enables the uiautomator2 driver. When false every session
	// uses shell primitives only.
	RichDriver        bool
	DriverPort        int
	CommandTimeoutSec int
}

// DeviceSection configures the device bridge.
type DeviceSection struct {
	settings DeviceSettings
	mu       sync.RWMutex
}

// NewDeviceSection creates the section with defaults.
func NewDeviceSection() *DeviceSection {
	s := &DeviceSection{}
	s.Reset()
	return s
}

func (s *DeviceSection) ID() string    { return SectionIDDevice }
func (s *DeviceSection) Title() string { return "Android Device" }
func (s *DeviceSection) Description() string {
	return "adb binary, uiautomator2 driver port and command timeout."
}

func (s *DeviceSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"adb_path":            s.settings.ADBPath,
		"rich_driver":         s.settings.RichDriver,
		"driver_port":         s.settings.DriverPort,
		"command_timeout_sec": s.settings.CommandTimeoutSec,
	}
}

func (s *DeviceSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asString(data["adb_path"]); ok && v != "" {
		s.settings.ADBPath = v
	}
	if v, ok := asBool(data["rich_driver"]); ok {
		s.settings.RichDriver = v
	}
	if v, ok := asInt(data["driver_port"]); ok {
		s.settings.DriverPort = v
	}
	if v, ok := asInt(data["command_timeout_sec"]); ok {
		s.settings.CommandTimeoutSec = v
	}
	return nil
}

func (s *DeviceSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.DriverPort <= 0 || s.settings.DriverPort > 65535 {
		return fmt.Errorf("driver_port out of range: %d", s.settings.DriverPort)
	}
	if s.settings.CommandTimeoutSec <= 0 {
		return fmt.Errorf("command_timeout_sec must be positive")
	}
	return nil
}

func (s *DeviceSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DeviceSettings{
		ADBPath:           "adb",
		RichDriver:        true,
		DriverPort:        9008,
		CommandTimeoutSec: 20,
	}
}

// Settings returns a copy of the current values.
func (s *DeviceSection) Settings() DeviceSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}
