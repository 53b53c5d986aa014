// Package android automates Android devices over adb, with an optional
// uiautomator2 driver for semantic UI lookups.
//
// Every session-scoped operation tries the rich driver first and falls back
// to the equivalent shell command when one exists. Lookups by text,
// resource id or content description have no shell equivalent and fail with
// driver_required on sessions that were started without the driver.
package android

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/google/uuid"
)

var androidLog *logging.Logger

func init() {
	var err error
	androidLog, err = logging.NewLogger("android")
	if err != nil {
		androidLog.Warnf("Failed to initialize android logger, using stderr fallback: %v", err)
	}
}

// Defaults applied when the caller leaves a value unset.
const (
	DefaultDumpChars   = 20000
	DefaultWaitMs      = 1000
	DefaultSwipePct    = 0.5
	DefaultSwipeMs     = 300
	DefaultFindResults = 10
	fallbackWidth      = 1080
	fallbackHeight     = 1920
	remoteDumpPath     = "/sdcard/uidump.xml"
	truncatedMarker    = "\n... (truncated)"
	driverNameRich     = "uiautomator2"
	driverNameShell    = "adb"
	launcherCategory   = "android.intent.category.LAUNCHER"
)

var keyCodes = map[string]string{
	"back":   "4",
	"home":   "3",
	"enter":  "66",
	"recent": "187",
}

var wmSizePattern = regexp.MustCompile(`(\d+)x(\d+)`)

// Session is a live attachment to one device. Driver is nil when the
// session runs on shell primitives only.
type Session struct {
	ID        string
	DeviceID  string
	Driver    RichDriver
	CreatedAt time.Time
}

// DriverName reports which channel the session uses.
func (s *Session) DriverName() string {
	if s.Driver != nil {
		return driverNameRich
	}
	return driverNameShell
}

// Registry owns the device sessions of one orchestration context.
type Registry struct {
	mu       sync.Mutex
	runner   Runner
	connect  DriverFactory
	sessions map[string]*Session
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithDriverFactory enables rich drivers. Without it every session is
// shell-only.
func WithDriverFactory(f DriverFactory) Option {
	return func(r *Registry) {
		r.connect = f
	}
}

// WithSleeper replaces the wait implementation.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Registry) {
		r.sleep = fn
	}
}

// NewRegistry creates an empty registry on top of runner.
func NewRegistry(runner Runner, opts ...Option) *Registry {
	r := &Registry{
		runner:   runner,
		sessions: make(map[string]*Session),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Session returns the session with id, or nil.
func (r *Registry) Session(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		if s.Driver != nil {
			if err := s.Driver.Close(); err != nil {
				androidLog.Warnf("close driver for %s: %v", s.DeviceID, err)
			}
		}
	}
}

func sessionNotFound() types.ToolResult {
	return types.Fail(types.ErrSessionNotFound, "android session not found; start one with android_start")
}

// bridgeFailure classifies a failed adb or driver call.
func bridgeFailure(stderr []byte, err error) types.ToolResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.Fail(types.ErrTimeout, stderrMessage(stderr, err))
	}
	return types.Fail(types.ErrBridge, stderrMessage(stderr, err))
}

func driverRequired(op string) types.ToolResult {
	return types.Fail(types.ErrDriverRequired, op+" requires the uiautomator2 driver")
}

// ListDevices parses `adb devices`, keeping entries in the "device" state.
func (r *Registry) ListDevices(ctx context.Context) types.ToolResult {
	stdout, stderr, err := r.runner.Run(ctx, "devices")
	if err != nil {
		return bridgeFailure(stderr, err).With("devices", []string{})
	}

	devices := []string{}
	lines := strings.Split(string(stdout), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			devices = append(devices, parts[0])
		}
	}
	return types.OK(map[string]any{"devices": devices})
}

// StartSession attaches to deviceID, or the first listed device when empty.
func (r *Registry) StartSession(ctx context.Context, deviceID string) types.ToolResult {
	listed := r.ListDevices(ctx)
	if !listed.Success() {
		return listed
	}
	devices, _ := listed["devices"].([]string)
	if len(devices) == 0 {
		return types.Fail(types.ErrNoDevice, "No Android device connected via ADB")
	}

	chosen := deviceID
	if chosen == "" {
		chosen = devices[0]
	}
	found := false
	for _, d := range devices {
		if d == chosen {
			found = true
			break
		}
	}
	if !found {
		return types.Fail(types.ErrDeviceNotFound, fmt.Sprintf("device %s is not connected", chosen)).
			With("device_id", chosen).
			With("devices", devices)
	}

	var driver RichDriver
	if r.connect != nil {
		d, err := r.connect(ctx, chosen)
		if err != nil {
			androidLog.Warnf("rich driver unavailable for %s, using shell primitives: %v", chosen, err)
		} else {
			driver = d
		}
	}

	s := &Session{ID: uuid.NewString(), DeviceID: chosen, Driver: driver, CreatedAt: time.Now()}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	androidLog.Infof("android session %s started on %s (driver: %s)", s.ID, chosen, s.DriverName())
	return types.OK(map[string]any{
		"session_id": s.ID,
		"device_id":  chosen,
		"driver":     s.DriverName(),
	})
}

// StopSession forgets the session and releases its driver.
func (r *Registry) StopSession(id string) types.ToolResult {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return sessionNotFound()
	}
	if s.Driver != nil {
		if err := s.Driver.Close(); err != nil {
			androidLog.Warnf("close driver for %s: %v", s.DeviceID, err)
		}
	}
	return types.OK(map[string]any{"session_id": id, "device_id": s.DeviceID})
}

func (r *Registry) OpenApp(ctx context.Context, id, pkg string) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	if s.Driver != nil {
		err := s.Driver.AppStart(ctx, pkg)
		if err == nil {
			return types.OK(map[string]any{"package": pkg, "method": "uiautomator2"})
		}
		androidLog.Debugf("driver app start failed, falling back to monkey: %v", err)
	}
	_, stderr, err := shell(ctx, r.runner, s.DeviceID, "monkey", "-p", pkg, "-c", launcherCategory, "1")
	if err != nil {
		return bridgeFailure(stderr, err).With("package", pkg)
	}
	return types.OK(map[string]any{"package": pkg, "method": "adb_monkey"})
}

func (r *Registry) Wait(ctx context.Context, id string, waitMs int) types.ToolResult {
	if r.Session(id) == nil {
		return sessionNotFound()
	}
	if waitMs < 0 {
		waitMs = 0
	}
	if err := r.sleep(ctx, time.Duration(waitMs)*time.Millisecond); err != nil {
		return types.Fail(types.ErrTimeout, err.Error())
	}
	return types.OK(map[string]any{"wait_ms": waitMs})
}

// tapFirst clicks the center of the first node matched by the selectors,
// tried in order. It returns the index of the selector that matched.
func tapFirst(ctx context.Context, d RichDriver, selectors ...Selector) (int, error) {
	raw, err := d.Dump(ctx)
	if err != nil {
		return -1, err
	}
	nodes, err := ParseHierarchy(raw)
	if err != nil {
		return -1, err
	}
	for i, sel := range selectors {
		for _, n := range Find(nodes, sel, 0) {
			if n.Bounds.empty() {
				continue
			}
			x, y := n.Bounds.Center()
			return i, d.Click(ctx, x, y)
		}
	}
	return -1, nil
}

// tapBy runs a semantic tap and shapes its result. methods names the
// matching mode of each selector.
func (r *Registry) tapBy(ctx context.Context, id, op, key, value string, methods []string, selectors ...Selector) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	if s.Driver == nil {
		return driverRequired(op)
	}
	matched, err := tapFirst(ctx, s.Driver, selectors...)
	if err != nil {
		return types.Fail(types.ErrDriverUnavailable, err.Error()).With(key, value)
	}
	if matched < 0 {
		return types.Fail(types.ErrElementNotFound, fmt.Sprintf("no element with %s %q", key, value)).With(key, value)
	}
	return types.OK(map[string]any{key: value, "method": methods[matched]})
}

func (r *Registry) TapText(ctx context.Context, id, text string) types.ToolResult {
	return r.tapBy(ctx, id, "tap_text", "text", text,
		[]string{"uiautomator2_exact", "uiautomator2_contains"},
		Selector{Text: text}, Selector{TextContains: text})
}

func (r *Registry) TapResourceID(ctx context.Context, id, resourceID string) types.ToolResult {
	return r.tapBy(ctx, id, "tap_resource_id", "resource_id", resourceID,
		[]string{"uiautomator2_resource_id", "uiautomator2_resource_id_partial"},
		Selector{ResourceID: resourceID}, Selector{ResourceIDContains: resourceID})
}

func (r *Registry) TapContentDesc(ctx context.Context, id, desc string) types.ToolResult {
	return r.tapBy(ctx, id, "tap_content_desc", "desc", desc,
		[]string{"uiautomator2_desc_exact", "uiautomator2_desc_contains"},
		Selector{ContentDesc: desc}, Selector{ContentDescContains: desc})
}

func (r *Registry) InputText(ctx context.Context, id, text string, clear bool) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	if s.Driver != nil {
		err := s.Driver.SendKeys(ctx, text, clear)
		if err == nil {
			return types.OK(map[string]any{"method": "uiautomator2_send_keys"})
		}
		androidLog.Debugf("driver send keys failed, falling back to input text: %v", err)
	}
	_, stderr, err := shell(ctx, r.runner, s.DeviceID, "input", "text", strings.ReplaceAll(text, " ", "%s"))
	if err != nil {
		return bridgeFailure(stderr, err)
	}
	return types.OK(map[string]any{"method": "adb_input_text"})
}

// PressKey sends a key event by name (back, home, enter, recent) or code.
func (r *Registry) PressKey(ctx context.Context, id, key string) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	code, ok := keyCodes[strings.ToLower(key)]
	if !ok {
		code = key
	}
	if _, stderr, err := shell(ctx, r.runner, s.DeviceID, "input", "keyevent", code); err != nil {
		return bridgeFailure(stderr, err).With("key", key)
	}
	return types.OK(map[string]any{"key": key})
}

func (r *Registry) DumpUI(ctx context.Context, id string, maxChars int) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound().With("xml", "")
	}
	if maxChars <= 0 {
		maxChars = DefaultDumpChars
	}
	if s.Driver != nil {
		xml, err := s.Driver.Dump(ctx)
		if err == nil {
			return types.OK(map[string]any{"xml": truncate(xml, maxChars), "method": "uiautomator2_dump"})
		}
		androidLog.Debugf("driver dump failed, falling back to uiautomator dump: %v", err)
	}

	if _, stderr, err := shell(ctx, r.runner, s.DeviceID, "uiautomator", "dump", remoteDumpPath); err != nil {
		return bridgeFailure(stderr, err).With("xml", "")
	}
	stdout, stderr, err := shell(ctx, r.runner, s.DeviceID, "cat", remoteDumpPath)
	if err != nil {
		return bridgeFailure(stderr, err).With("xml", "")
	}
	xml := strings.TrimSpace(string(stdout))
	return types.OK(map[string]any{"xml": truncate(xml, maxChars), "method": "adb_uiautomator_dump"})
}

// TapCoordinates taps absolute pixels. Non-positive coordinates are
// rejected before the session is consulted.
func (r *Registry) TapCoordinates(ctx context.Context, id string, x, y int) types.ToolResult {
	if x <= 0 || y <= 0 {
		return types.Fail(types.ErrInvalidCoords, fmt.Sprintf("Coordinates must be positive: x=%d, y=%d", x, y))
	}
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	return r.tap(ctx, s, x, y)
}

func (r *Registry) tap(ctx context.Context, s *Session, x, y int) types.ToolResult {
	if s.Driver != nil {
		err := s.Driver.Click(ctx, x, y)
		if err == nil {
			return types.OK(map[string]any{"x": x, "y": y, "method": "uiautomator2_click"})
		}
		androidLog.Debugf("driver click failed, falling back to input tap: %v", err)
	}
	_, stderr, err := shell(ctx, r.runner, s.DeviceID, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	if err != nil {
		res := bridgeFailure(stderr, err)
		res["message"] = fmt.Sprintf("adb input tap %d %d failed: %s", x, y, res.Message())
		return res
	}
	return types.OK(map[string]any{"x": x, "y": y, "method": "adb_input_tap"})
}

// TapPercent taps at a position given as percentages (0-100) of the
// current screen, so it follows orientation changes.
func (r *Registry) TapPercent(ctx context.Context, id string, xPct, yPct float64) types.ToolResult {
	if xPct < 0 || xPct > 100 || yPct < 0 || yPct > 100 {
		return types.Fail(types.ErrInvalidCoords,
			fmt.Sprintf("Percentages must be within 0-100: x_pct=%g, y_pct=%g", xPct, yPct))
	}
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	w, h, _, ok := r.screenSize(ctx, s)
	if !ok {
		return types.Fail(types.ErrCannotGetSize, "cannot resolve screen size for percentage tap")
	}

	x := clamp(int(float64(w)*xPct/100), 1, w-1)
	y := clamp(int(float64(h)*yPct/100), 1, h-1)
	res := r.tap(ctx, s, x, y)
	if res.Success() {
		res["x_pct"] = xPct
		res["y_pct"] = yPct
		res["width"] = w
		res["height"] = h
	}
	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Swipe drags across the center of the screen. distancePct is the fraction
// of the screen covered, in 0..1.
func (r *Registry) Swipe(ctx context.Context, id, direction string, distancePct float64, durationMs int) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	direction = strings.ToLower(direction)
	switch direction {
	case "up", "down", "left", "right":
	default:
		return types.Fail(types.ErrInvalidArguments, "direction must be up/down/left/right")
	}

	w, h := fallbackWidth, fallbackHeight
	if s.Driver != nil {
		if info, err := s.Driver.Info(ctx); err == nil && info.DisplayWidth > 0 && info.DisplayHeight > 0 {
			w, h = info.DisplayWidth, info.DisplayHeight
		}
	}
	x1, y1, x2, y2 := swipeLine(direction, w, h, distancePct)

	if s.Driver != nil {
		err := s.Driver.Swipe(ctx, x1, y1, x2, y2, time.Duration(durationMs)*time.Millisecond)
		if err == nil {
			return types.OK(map[string]any{"direction": direction, "method": "uiautomator2_swipe"})
		}
		androidLog.Debugf("driver swipe failed, falling back to input swipe: %v", err)
	}
	_, stderr, err := shell(ctx, r.runner, s.DeviceID, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(durationMs))
	if err != nil {
		return bridgeFailure(stderr, err)
	}
	return types.OK(map[string]any{"direction": direction, "method": "adb_input_swipe"})
}

func swipeLine(direction string, w, h int, d float64) (x1, y1, x2, y2 int) {
	cx, cy := w/2, h/2
	dy := int(float64(h) * d * 0.4)
	dx := int(float64(w) * d * 0.4)
	switch direction {
	case "up":
		return cx, cy + dy, cx, cy - dy
	case "down":
		return cx, cy - dy, cx, cy + dy
	case "left":
		return cx + dx, cy, cx - dx, cy
	default:
		return cx - dx, cy, cx + dx, cy
	}
}

// FindQuery selects elements for FindElements. Text, ResourceID and
// ContentDesc match partially; ClassName matches exactly.
type FindQuery struct {
	Text        string
	ResourceID  string
	ContentDesc string
	ClassName   string
	MaxResults  int
}

// Element is one FindElements match.
type Element struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	ResourceID  string `json:"resource_id"`
	ContentDesc string `json:"content_desc"`
	ClassName   string `json:"class_name"`
	Bounds      Bounds `json:"bounds"`
	Clickable   bool   `json:"clickable"`
	Enabled     bool   `json:"enabled"`
}

func (r *Registry) FindElements(ctx context.Context, id string, q FindQuery) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound().With("elements", []Element{})
	}
	if s.Driver == nil {
		return driverRequired("find_elements").With("elements", []Element{})
	}
	sel := Selector{
		TextContains:        q.Text,
		ResourceIDContains:  q.ResourceID,
		ContentDescContains: q.ContentDesc,
		ClassName:           q.ClassName,
	}
	if sel.IsZero() {
		return types.Fail(types.ErrNoCriteria, "Provide at least one of: text, resource_id, content_desc, class_name").
			With("elements", []Element{})
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultFindResults
	}

	raw, err := s.Driver.Dump(ctx)
	if err != nil {
		return types.Fail(types.ErrDriverUnavailable, err.Error()).With("elements", []Element{})
	}
	nodes, err := ParseHierarchy(raw)
	if err != nil {
		return types.Fail(types.ErrDriverUnavailable, err.Error()).With("elements", []Element{})
	}

	elements := []Element{}
	for i, n := range Find(nodes, sel, q.MaxResults) {
		elements = append(elements, Element{
			Index:       i,
			Text:        n.Text,
			ResourceID:  n.ResourceID,
			ContentDesc: n.ContentDesc,
			ClassName:   n.ClassName,
			Bounds:      n.Bounds,
			Clickable:   n.Clickable,
			Enabled:     n.Enabled,
		})
	}
	return types.OK(map[string]any{"count": len(elements), "elements": elements})
}

// screenSize asks the driver first, then `wm size`.
func (r *Registry) screenSize(ctx context.Context, s *Session) (w, h int, source string, ok bool) {
	if s.Driver != nil {
		if info, err := s.Driver.Info(ctx); err == nil && info.DisplayWidth > 0 && info.DisplayHeight > 0 {
			return info.DisplayWidth, info.DisplayHeight, "uiautomator2", true
		}
	}
	stdout, _, err := shell(ctx, r.runner, s.DeviceID, "wm", "size")
	if err != nil {
		return 0, 0, "", false
	}
	m := wmSizePattern.FindStringSubmatch(string(stdout))
	if m == nil {
		return 0, 0, "", false
	}
	w, _ = strconv.Atoi(m[1])
	h, _ = strconv.Atoi(m[2])
	return w, h, "wm_size", true
}

func orientation(w, h int) string {
	if w > h {
		return "landscape"
	}
	return "portrait"
}

func (r *Registry) GetScreenSize(ctx context.Context, id string) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	w, h, _, ok := r.screenSize(ctx, s)
	if !ok {
		return types.Fail(types.ErrCannotGetSize, "could not read the display size")
	}
	return types.OK(map[string]any{"width": w, "height": h, "orientation": orientation(w, h)})
}

// Screenshot writes a PNG of the screen to outputPath.
func (r *Registry) Screenshot(ctx context.Context, id, outputPath string) types.ToolResult {
	s := r.Session(id)
	if s == nil {
		return sessionNotFound()
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return types.Fail(types.ErrUnknown, fmt.Sprintf("create screenshot directory: %v", err))
	}

	if s.Driver != nil {
		data, err := s.Driver.Screenshot(ctx)
		if err == nil {
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return types.Fail(types.ErrUnknown, fmt.Sprintf("write screenshot: %v", err))
			}
			return types.OK(map[string]any{"screenshot": outputPath, "method": "uiautomator2_screenshot"})
		}
		androidLog.Debugf("driver screenshot failed, falling back to screencap: %v", err)
	}

	stdout, stderr, err := r.runner.Run(ctx, "-s", s.DeviceID, "exec-out", "screencap", "-p")
	if err != nil {
		return bridgeFailure(stderr, err)
	}
	if err := os.WriteFile(outputPath, stdout, 0o644); err != nil {
		return types.Fail(types.ErrUnknown, fmt.Sprintf("write screenshot: %v", err))
	}
	return types.OK(map[string]any{"screenshot": outputPath, "method": "adb_screencap"})
}

// truncate cuts s to max runes and marks the cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + truncatedMarker
}
