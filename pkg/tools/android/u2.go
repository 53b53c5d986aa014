package android

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultU2Port is the uiautomator2 server port on the device.
const DefaultU2Port = 9008

// u2 selector field masks, as the uiautomator2 server expects them.
const (
	maskFocused = 0x020000
)

// U2Driver speaks the uiautomator2 JSON-RPC protocol through an adb port
// forward.
type U2Driver struct {
	serial    string
	runner    Runner
	client    *http.Client
	endpoint  string
	localPort int
	nextID    atomic.Int64
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("uiautomator2 rpc error %d: %s", e.Code, e.Message)
}

// NewU2Factory returns a DriverFactory that forwards a local port to the
// device's uiautomator2 server and performs a deviceInfo handshake.
func NewU2Factory(runner Runner, devicePort int, client *http.Client) DriverFactory {
	if devicePort <= 0 {
		devicePort = DefaultU2Port
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return func(ctx context.Context, serial string) (RichDriver, error) {
		stdout, stderr, err := runner.Run(ctx, "-s", serial, "forward", "tcp:0", fmt.Sprintf("tcp:%d", devicePort))
		if err != nil {
			return nil, fmt.Errorf("forward uiautomator2 port: %s", stderrMessage(stderr, err))
		}
		port, err := strconv.Atoi(strings.TrimSpace(string(stdout)))
		if err != nil {
			return nil, fmt.Errorf("unexpected adb forward output %q", strings.TrimSpace(string(stdout)))
		}

		d := newU2Driver(serial, runner, client, fmt.Sprintf("http://127.0.0.1:%d", port))
		d.localPort = port
		if _, err := d.Info(ctx); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("uiautomator2 handshake: %w", err)
		}
		return d, nil
	}
}

func newU2Driver(serial string, runner Runner, client *http.Client, baseURL string) *U2Driver {
	return &U2Driver{
		serial:   serial,
		runner:   runner,
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/jsonrpc/0",
	}
}

func (d *U2Driver) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: d.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func focusedSelector() map[string]interface{} {
	return map[string]interface{}{
		"mask":                   maskFocused,
		"childOrSibling":         []interface{}{},
		"childOrSiblingSelector": []interface{}{},
		"focused":                true,
	}
}

func (d *U2Driver) Info(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	err := d.call(ctx, "deviceInfo", &info)
	return info, err
}

func (d *U2Driver) Dump(ctx context.Context) (string, error) {
	var xml string
	if err := d.call(ctx, "dumpWindowHierarchy", &xml, false, nil); err != nil {
		return "", err
	}
	return xml, nil
}

func (d *U2Driver) Click(ctx context.Context, x, y int) error {
	return d.call(ctx, "click", nil, x, y)
}

// Swipe converts duration to the server's 5ms steps.
func (d *U2Driver) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	steps := int(duration / (5 * time.Millisecond))
	if steps < 2 {
		steps = 2
	}
	return d.call(ctx, "swipe", nil, x1, y1, x2, y2, steps)
}

func (d *U2Driver) ClearText(ctx context.Context) error {
	return d.call(ctx, "clearTextField", nil, focusedSelector())
}

func (d *U2Driver) SendKeys(ctx context.Context, text string, clear bool) error {
	if !clear {
		var info struct {
			Text string `json:"text"`
		}
		if err := d.call(ctx, "objInfo", &info, focusedSelector()); err != nil {
			return err
		}
		text = info.Text + text
	}
	var ok bool
	if err := d.call(ctx, "setText", &ok, focusedSelector(), text); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("setText: no focused field accepted the text")
	}
	return nil
}

// AppStart resolves the launcher activity and starts it.
func (d *U2Driver) AppStart(ctx context.Context, pkg string) error {
	stdout, stderr, err := shell(ctx, d.runner, d.serial, "cmd", "package", "resolve-activity", "--brief", pkg)
	if err != nil {
		return fmt.Errorf("resolve %s: %s", pkg, stderrMessage(stderr, err))
	}
	lines := strings.Fields(strings.TrimSpace(string(stdout)))
	if len(lines) == 0 || !strings.Contains(lines[len(lines)-1], "/") {
		return fmt.Errorf("no launcher activity for %s", pkg)
	}
	if _, stderr, err := shell(ctx, d.runner, d.serial, "am", "start", "-n", lines[len(lines)-1]); err != nil {
		return fmt.Errorf("start %s: %s", pkg, stderrMessage(stderr, err))
	}
	return nil
}

// Screenshot decodes the server's JPEG capture and re-encodes it as PNG.
func (d *U2Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var encoded string
	if err := d.call(ctx, "takeScreenshot", &encoded, 1, 80); err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close removes the port forward.
func (d *U2Driver) Close() error {
	if d.localPort == 0 {
		return nil
	}
	_, stderr, err := d.runner.Run(context.Background(), "-s", d.serial, "forward", "--remove", fmt.Sprintf("tcp:%d", d.localPort))
	if err != nil {
		return fmt.Errorf("remove forward: %s", stderrMessage(stderr, err))
	}
	d.localPort = 0
	return nil
}
