package eventsink

import (
	"context"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
)

// Open builds the sinks enabled in settings behind a log sink. A backend
// that cannot be reached is logged and left out so the agent still runs.
func Open(ctx context.Context, settings config.EventSettings) *Multi {
	m := NewMulti(NewLogSink(nil))

	if settings.RedisAddr != "" {
		s, err := NewRedisSink(ctx, RedisConfig{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
			Key:      settings.RedisKey,
			MaxLen:   settings.RedisMaxLen,
		})
		if err != nil {
			sinkLog.Warnf("redis event sink disabled: %v", err)
		} else {
			m.Add(s)
		}
	}

	if settings.AMQPURL != "" {
		s, err := NewAMQPSink(AMQPConfig{URL: settings.AMQPURL, Exchange: settings.AMQPExchange})
		if err != nil {
			sinkLog.Warnf("amqp event sink disabled: %v", err)
		} else {
			m.Add(s)
		}
	}

	if settings.MySQLDSN != "" {
		s, err := NewSQLSink(ctx, SQLConfig{DSN: settings.MySQLDSN, Table: settings.MySQLTable})
		if err != nil {
			sinkLog.Warnf("mysql event sink disabled: %v", err)
		} else {
			m.Add(s)
		}
	}

	return m
}
