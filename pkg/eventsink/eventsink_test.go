package eventsink

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEvent() *types.AgentEvent {
	e := types.NewStepEndEvent(3, "android_tap_text", types.Fail(types.ErrElementNotFound, "missing"))
	e.RunID = "run-1"
	return e
}

type captureSink struct {
	got []*types.AgentEvent
}

func (c *captureSink) Emit(_ context.Context, e *types.AgentEvent) { c.got = append(c.got, e) }

type panicSink struct{}

func (panicSink) Emit(context.Context, *types.AgentEvent) { panic("boom") }

type closingSink struct {
	captureSink
	closed bool
	err    error
}

func (c *closingSink) Close() error {
	c.closed = true
	return c.err
}

func TestMulti(t *testing.T) {
	first, last := &captureSink{}, &closingSink{err: errors.New("close failed")}
	m := NewMulti(first, nil, panicSink{}, last)
	assert.Equal(t, 3, m.Len())

	m.Emit(context.Background(), testEvent())
	m.Emit(context.Background(), nil)

	assert.Len(t, first.got, 1)
	assert.Len(t, last.got, 1)
	assert.EqualError(t, m.Close(), "close failed")
	assert.True(t, last.closed)
	assert.NoError(t, m.Close())
}

type fakeList struct {
	key     string
	pushes  []string
	trims   [][2]int64
	pushErr error
}

func (f *fakeList) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	for _, v := range values {
		f.pushes = append(f.pushes, string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(f.pushes)), f.pushErr)
}

func (f *fakeList) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	f.trims = append(f.trims, [2]int64{start, stop})
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSink(t *testing.T) {
	list := &fakeList{}
	s := newRedisSink(list, RedisConfig{MaxLen: 100})
	s.Emit(context.Background(), testEvent())

	assert.Equal(t, "appagent:events", list.key)
	require.Len(t, list.pushes, 1)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(list.pushes[0]), &decoded))
	assert.Equal(t, "step_end", decoded["type"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, [][2]int64{{0, 99}}, list.trims)

	failing := &fakeList{pushErr: errors.New("READONLY")}
	newRedisSink(failing, RedisConfig{Key: "k", MaxLen: 10}).Emit(context.Background(), testEvent())
	assert.Empty(t, failing.trims)
}

func TestRedisSink_Uncapped(t *testing.T) {
	list := &fakeList{}
	newRedisSink(list, RedisConfig{Key: "events"}).Emit(context.Background(), testEvent())
	assert.Equal(t, "events", list.key)
	assert.Empty(t, list.trims)
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	deadline      bool
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	_, f.deadline = ctx.Deadline()
	return nil
}

func TestAMQPSink(t *testing.T) {
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newAMQPSink(pub, "appagent.events", time.Second).Emit(ctx, testEvent())

	assert.Equal(t, "appagent.events", pub.exchange)
	assert.Equal(t, "agent.step_end", pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, "run-1", pub.msg.CorrelationId)
	assert.True(t, pub.deadline)
	assert.Contains(t, string(pub.msg.Body), `"tool":"android_tap_text"`)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg.Type).Error(0)
}

func TestAMQPSink_PublishErrorIsSwallowed(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishWithContext", "appagent.events", "agent.error", "error").
		Return(errors.New("channel closed")).Once()
	pub.On("PublishWithContext", "appagent.events", "agent.game_mode", "game_mode").
		Return(nil).Once()

	sink := newAMQPSink(pub, "appagent.events", time.Second)
	assert.NotPanics(t, func() {
		sink.Emit(context.Background(), types.NewErrorEvent(errors.New("worker lost")))
		sink.Emit(context.Background(), types.NewGameModeEvent("sparse_dump", 1080, 2400))
	})
	pub.AssertExpectations(t)
}

type fakeExec struct {
	query string
	args  []any
	err   error
}

func (f *fakeExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.query, f.args = query, args
	return driver.RowsAffected(1), f.err
}

func TestSQLSink(t *testing.T) {
	db := &fakeExec{}
	ev := testEvent()
	newSQLSink(db, "agent_events", 0).Emit(context.Background(), ev)

	assert.True(t, strings.HasPrefix(db.query, "INSERT INTO agent_events"))
	require.Len(t, db.args, 4)
	assert.Equal(t, "run-1", db.args[0])
	assert.Equal(t, "step_end", db.args[1])
	assert.NotContains(t, db.args[2], "run-1")
	assert.Contains(t, db.args[2], `"index":3`)
	assert.Equal(t, ev.Time.UTC(), db.args[3])

	assert.Contains(t, createTableSQL("agent_events"), "CREATE TABLE IF NOT EXISTS agent_events")
}

func TestNewSQLSink_Validation(t *testing.T) {
	_, err := NewSQLSink(context.Background(), SQLConfig{})
	assert.Error(t, err)

	_, err = NewSQLSink(context.Background(), SQLConfig{DSN: "user@tcp(localhost:3306)/db", Table: "events; DROP TABLE x"})
	assert.ErrorContains(t, err, "invalid table name")

	_, err = NewSQLSink(context.Background(), SQLConfig{DSN: "not a dsn"})
	assert.ErrorContains(t, err, "parse mysql dsn")
}

func TestOpen(t *testing.T) {
	m := Open(context.Background(), config.EventSettings{})
	assert.Equal(t, 1, m.Len())

	m = Open(context.Background(), config.EventSettings{MySQLDSN: "not a dsn"})
	assert.Equal(t, 1, m.Len())
	assert.NoError(t, m.Close())
}
