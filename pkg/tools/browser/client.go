package browser

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

var browserLog *logging.Logger

func init() {
	var err error
	browserLog, err = logging.NewLogger("browser")
	if err != nil {
		browserLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// WorkerSubcommand is the argument that makes the appagent binary serve as
// a browser worker.
const WorkerSubcommand = "browser-worker"

type unavailableError struct{}

func (unavailableError) Error() string { return "browser worker unavailable" }
func (unavailableError) Fatal() bool   { return true }

// ErrWorkerUnavailable means the worker could not be started even after a
// retry. It is fatal to the current chat round.
var ErrWorkerUnavailable error = unavailableError{}

// Transport is a connection to one worker.
type Transport struct {
	Requests  io.WriteCloser
	Responses io.Reader
	// Done is closed when the worker has exited.
	Done <-chan struct{}
	// Kill terminates the worker without the sentinel.
	Kill func() error
}

// Dialer starts a worker.
type Dialer func() (*Transport, error)

// ProcessDialer starts command as a child process. Worker stderr goes to
// stderr.
func ProcessDialer(command []string, stderr io.Writer) Dialer {
	return func() (*Transport, error) {
		if len(command) == 0 {
			return nil, errors.New("empty worker command")
		}
		cmd := exec.Command(command[0], command[1:]...)
		cmd.Stderr = stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdin: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("worker stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start worker: %w", err)
		}

		done := make(chan struct{})
		go func() {
			waitErr := cmd.Wait()
			browserLog.Infof("browser worker pid %d exited: %v", cmd.Process.Pid, waitErr)
			close(done)
		}()

		return &Transport{
			Requests:  stdin,
			Responses: stdout,
			Done:      done,
			Kill:      cmd.Process.Kill,
		}, nil
	}
}

// DefaultCommand runs the current executable as a worker.
func DefaultCommand() []string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return []string{exe, WorkerSubcommand}
}

// Client is the supervisor side of the worker channel. Calls are serialized;
// each blocks until its response arrives.
type Client struct {
	mu        sync.Mutex
	dial      Dialer
	conn      *conn
	nextID    uint64
	spawned   int
	onRespawn func()
	closeWait time.Duration
}

type conn struct {
	t       *Transport
	scanner *bufio.Scanner
	enc     *json.Encoder
}

func (c *conn) alive() bool {
	select {
	case <-c.t.Done:
		return false
	default:
		return true
	}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOnRespawn registers fn, called when a dead worker is replaced or lost
// mid-request. The browser session died with it.
func WithOnRespawn(fn func()) ClientOption {
	return func(c *Client) {
		c.onRespawn = fn
	}
}

// WithCloseWait bounds how long Close waits for the worker to exit.
func WithCloseWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.closeWait = d
	}
}

// NewClient creates a client. No worker is started until the first call.
func NewClient(dial Dialer, opts ...ClientOption) *Client {
	c := &Client{dial: dial, closeWait: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnRespawn replaces the respawn callback.
func (c *Client) SetOnRespawn(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRespawn = fn
}

// Spawns returns how many workers have been started.
func (c *Client) Spawns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawned
}

// ensure returns a live connection, spawning or respawning the worker.
// Callers hold c.mu.
func (c *Client) ensure() (*conn, error) {
	if c.conn != nil && c.conn.alive() {
		return c.conn, nil
	}
	lost := c.conn != nil
	if lost {
		c.drop()
	}

	var t *Transport
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if t, err = c.dial(); err == nil {
			break
		}
		browserLog.Warnf("browser worker spawn attempt %d failed: %v", attempt+1, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}

	scanner := bufio.NewScanner(t.Responses)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(t.Requests)
	enc.SetEscapeHTML(false)
	c.conn = &conn{t: t, scanner: scanner, enc: enc}
	c.spawned++

	if lost {
		browserLog.Warnf("browser worker was dead, respawned (spawn #%d)", c.spawned)
		c.notifyRespawn()
	}
	return c.conn, nil
}

func (c *Client) notifyRespawn() {
	if c.onRespawn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			browserLog.Errorf("respawn callback panicked: %v", r)
		}
	}()
	c.onRespawn()
}

// drop forgets the current connection and kills its worker.
func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.t.Requests.Close()
	if c.conn.alive() && c.conn.t.Kill != nil {
		_ = c.conn.t.Kill()
	}
	c.conn = nil
}

// Call sends op with params and waits for the response. Worker faults come
// back as *WorkerError. A worker that dies mid-request yields a
// session_not_found result, since its session is gone.
func (c *Client) Call(ctx context.Context, op Op, params interface{}) (types.ToolResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cn, err := c.ensure()
	if err != nil {
		return nil, err
	}

	c.nextID++
	req, err := NewRequest(c.nextID, op, params)
	if err != nil {
		return nil, err
	}
	if err := cn.enc.Encode(req); err != nil {
		return c.lost(op, err), nil
	}

	type readResult struct {
		resp *Response
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		if !cn.scanner.Scan() {
			err := cn.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			ch <- readResult{err: err}
			return
		}
		var resp Response
		if err := json.Unmarshal(cn.scanner.Bytes(), &resp); err != nil {
			ch <- readResult{err: fmt.Errorf("decode response: %w", err)}
			return
		}
		ch <- readResult{resp: &resp}
	}()

	select {
	case <-ctx.Done():
		// the reader goroutine is abandoned along with the worker
		c.drop()
		c.notifyRespawn()
		return nil, ctx.Err()
	case rr := <-ch:
		if rr.err != nil {
			return c.lost(op, rr.err), nil
		}
		if rr.resp.ID != req.ID {
			c.drop()
			return nil, fmt.Errorf("browser worker answered request %d with %d", req.ID, rr.resp.ID)
		}
		if !rr.resp.OK {
			if rr.resp.Error == nil {
				return nil, &WorkerError{Kind: "Error", Message: "worker reported failure without detail"}
			}
			return nil, rr.resp.Error
		}
		return types.ToolResult(rr.resp.Value), nil
	}
}

func (c *Client) lost(op Op, err error) types.ToolResult {
	browserLog.Errorf("browser worker lost during %s: %v", op, err)
	c.drop()
	c.notifyRespawn()
	return types.Fail(types.ErrSessionNotFound,
		"browser worker exited; the browser session is gone, start a new one with browser_start")
}

// Close sends the termination sentinel and waits for the worker to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	cn := c.conn
	c.conn = nil

	if cn.alive() {
		if _, err := cn.t.Requests.Write(append(sentinel, '\n')); err != nil {
			browserLog.Warnf("send worker sentinel: %v", err)
		}
	}
	_ = cn.t.Requests.Close()

	select {
	case <-cn.t.Done:
		return nil
	case <-time.After(c.closeWait):
		if cn.t.Kill != nil {
			return cn.t.Kill()
		}
		return errors.New("browser worker did not exit")
	}
}
