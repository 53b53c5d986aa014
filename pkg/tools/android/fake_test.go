package android

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type runnerReply struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner answers adb invocations by their joined argument string.
type fakeRunner struct {
	mu      sync.Mutex
	replies map[string]runnerReply
	calls   []string
}

func newFakeRunner(devices ...string) *fakeRunner {
	out := "List of devices attached\n"
	for _, d := range devices {
		out += d + "\tdevice\n"
	}
	return &fakeRunner{replies: map[string]runnerReply{"devices": {stdout: out}}}
}

func (f *fakeRunner) on(cmd string, reply runnerReply) *fakeRunner {
	f.replies[cmd] = reply
	return f
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	cmd := strings.Join(args, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	reply := f.replies[cmd]
	return []byte(reply.stdout), []byte(reply.stderr), reply.err
}

func (f *fakeRunner) called(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == cmd {
			return true
		}
	}
	return false
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errDriver = errors.New("uiautomator2 server not responding")

// fakeDriver is a RichDriver over a fixed hierarchy. Setting fail makes
// every call error.
type fakeDriver struct {
	info    DeviceInfo
	xml     string
	fail    bool
	clicks  [][2]int
	swipes  [][4]int
	keys    []string
	started []string
	png     []byte
	closed  bool
}

func (d *fakeDriver) err() error {
	if d.fail {
		return errDriver
	}
	return nil
}

func (d *fakeDriver) Info(ctx context.Context) (DeviceInfo, error) { return d.info, d.err() }
func (d *fakeDriver) Dump(ctx context.Context) (string, error)     { return d.xml, d.err() }

func (d *fakeDriver) Click(ctx context.Context, x, y int) error {
	if d.fail {
		return errDriver
	}
	d.clicks = append(d.clicks, [2]int{x, y})
	return nil
}

func (d *fakeDriver) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	if d.fail {
		return errDriver
	}
	d.swipes = append(d.swipes, [4]int{x1, y1, x2, y2})
	return nil
}

func (d *fakeDriver) SendKeys(ctx context.Context, text string, clear bool) error {
	if d.fail {
		return errDriver
	}
	d.keys = append(d.keys, text)
	return nil
}

func (d *fakeDriver) ClearText(ctx context.Context) error { return d.err() }

func (d *fakeDriver) AppStart(ctx context.Context, pkg string) error {
	if d.fail {
		return errDriver
	}
	d.started = append(d.started, pkg)
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) { return d.png, d.err() }

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func driverFactory(d *fakeDriver) DriverFactory {
	return func(ctx context.Context, serial string) (RichDriver, error) {
		return d, nil
	}
}

const loginHierarchy = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.xingin.xhs" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,2340]">
    <node index="0" text="输入手机号" resource-id="com.xingin.xhs:id/phone_input" class="android.widget.EditText" package="com.xingin.xhs" content-desc="" clickable="true" enabled="true" bounds="[100,800][980,900]" />
    <node index="1" text="获取验证码" resource-id="com.xingin.xhs:id/send_code" class="android.widget.TextView" package="com.xingin.xhs" content-desc="" clickable="true" enabled="true" bounds="[700,950][980,1050]" />
    <node index="2" text="我已阅读并同意《用户协议》" resource-id="" class="android.widget.TextView" package="com.xingin.xhs" content-desc="" clickable="true" enabled="true" bounds="[150,1100][900,1150]" />
    <node index="3" text="" resource-id="com.xingin.xhs:id/back" class="android.widget.ImageView" package="com.xingin.xhs" content-desc="返回上一页" clickable="true" enabled="false" bounds="[0,100][120,220]" />
  </node>
</hierarchy>`
