package eventsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the part of an AMQP channel the sink uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPConfig describes the exchange events are published to.
type AMQPConfig struct {
	URL      string
	Exchange string
	Timeout  time.Duration
}

// AMQPSink publishes every event to a topic exchange with the routing key
// "agent.<event type>".
type AMQPSink struct {
	pub      publisher
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
}

// NewAMQPSink dials the broker and declares a durable topic exchange.
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is empty")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "appagent.events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	s := newAMQPSink(ch, exchange, cfg.Timeout)
	s.conn, s.ch = conn, ch
	return s, nil
}

func newAMQPSink(pub publisher, exchange string, timeout time.Duration) *AMQPSink {
	return &AMQPSink{pub: pub, exchange: exchange, timeout: timeout}
}

// RoutingKey returns the key an event is published under.
func RoutingKey(event *types.AgentEvent) string {
	return "agent." + event.Name()
}

func (s *AMQPSink) Emit(ctx context.Context, event *types.AgentEvent) {
	data, ok := encode(event)
	if !ok {
		return
	}
	ctx, cancel := deliveryContext(ctx, s.timeout)
	defer cancel()

	err := s.pub.PublishWithContext(ctx, s.exchange, RoutingKey(event), false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: event.RunID,
		Timestamp:     event.Time,
		Type:          event.Name(),
		Body:          data,
	})
	if err != nil {
		sinkLog.Warnf("amqp publish of %s failed: %v", event.Name(), err)
	}
}

// Close closes the channel and connection opened by NewAMQPSink.
func (s *AMQPSink) Close() error {
	var first error
	if s.ch != nil {
		first = s.ch.Close()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
