package android

import (
	"context"
	"time"
)

// DeviceInfo is the subset of the rich driver's device report the tools use.
type DeviceInfo struct {
	DisplayWidth    int    `json:"displayWidth"`
	DisplayHeight   int    `json:"displayHeight"`
	DisplayRotation int    `json:"displayRotation"`
	ProductName     string `json:"productName"`
	SDKInt          int    `json:"sdkInt"`
}

// RichDriver is a UI-introspection channel to one device. Semantic lookups
// (by text, resource id or description) exist only through it.
type RichDriver interface {
	Info(ctx context.Context) (DeviceInfo, error)
	// Dump returns the current view hierarchy as uiautomator XML.
	Dump(ctx context.Context) (string, error)
	Click(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	// SendKeys types into the focused field, replacing its content when
	// clear is set.
	SendKeys(ctx context.Context, text string, clear bool) error
	ClearText(ctx context.Context) error
	AppStart(ctx context.Context, pkg string) error
	// Screenshot returns a PNG of the screen.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// DriverFactory attaches a rich driver to the device with the given serial.
// An error leaves the session on shell primitives.
type DriverFactory func(ctx context.Context, serial string) (RichDriver, error)
