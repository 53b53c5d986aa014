// Package cli provides a line-oriented executor for the orchestration agent.
//
// Each line the user enters becomes one Chat call. The conversation returned
// by a run seeds the next one, so a reply asking for a verification code can
// be answered on the following line.
//
// Example usage:
//
//	ag := agent.NewDefaultAgent(provider, registry)
//	executor := cli.NewExecutor(ag,
//	    cli.WithRenderer(cli.NewRenderer(os.Stdout, cli.WithVerbose(true))),
//	)
//	if err := executor.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Input lines with a meaning of their own.
const (
	cmdExit  = "exit"
	cmdQuit  = "quit"
	cmdReset = "/reset"
)

// Executor runs a turn-by-turn conversation through terminal input/output.
type Executor struct {
	agent    agent.Agent
	reader   *bufio.Reader
	renderer *Renderer

	history []types.Message
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithReader sets the input source (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// WithRenderer sets the output renderer (default renders to os.Stdout).
func WithRenderer(r *Renderer) ExecutorOption {
	return func(e *Executor) {
		e.renderer = r
	}
}

// WithHistory seeds the conversation, for example with the messages of a
// previous headless run.
func WithHistory(history []types.Message) ExecutorOption {
	return func(e *Executor) {
		e.history = types.CloneMessages(history)
	}
}

// NewExecutor creates a new CLI executor for the given agent.
func NewExecutor(ag agent.Agent, opts ...ExecutorOption) *Executor {
	e := &Executor{
		agent:  ag,
		reader: bufio.NewReader(os.Stdin),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = NewRenderer(os.Stdout)
	}
	return e
}

// History returns a copy of the conversation so far.
func (e *Executor) History() []types.Message {
	return types.CloneMessages(e.history)
}

// Run reads lines until exit, EOF or cancellation.
func (e *Executor) Run(ctx context.Context) error {
	e.renderer.Header("AppAgent",
		"输入任务后回车开始执行。输入 exit 或 quit 退出，/reset 清空对话。")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.renderer.prompt()
		input, err := e.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		input = strings.TrimSpace(input)
		switch {
		case input == cmdExit || input == cmdQuit:
			return nil
		case input == cmdReset:
			e.history = nil
			e.renderer.println(tipsStyle.Render("对话已清空"))
		case input != "":
			if _, turnErr := e.Turn(ctx, input); turnErr != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if eof {
			return nil
		}
	}
}

// Turn runs one message through the agent and renders the outcome. The
// history advances only when the agent accepted the call.
func (e *Executor) Turn(ctx context.Context, message string) (*agent.ChatResult, error) {
	stop := e.renderer.Busy("思考中...")
	res, err := e.agent.Chat(ctx, message, e.history, e.renderer.Hooks())
	stop()

	if err != nil {
		e.renderer.Error(err)
		return nil, err
	}
	e.history = res.Messages
	e.renderer.Result(res)
	return res, nil
}
