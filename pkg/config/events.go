package config

import "sync"

// SectionIDEvents is the identifier for the event sink section
const SectionIDEvents = "events"

// EventSettings is a value copy of the events section. Every sink is off
// while its address is empty.
type EventSettings struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	RedisMaxLen   int

	AMQPURL      string
	AMQPExchange string

	MySQLDSN   string
	MySQLTable string
}

// EventsSection configures where loop events are mirrored for operators.
type EventsSection struct {
	settings EventSettings
	mu       sync.RWMutex
}

// NewEventsSection creates the section with defaults.
func NewEventsSection() *EventsSection {
	s := &EventsSection{}
	s.Reset()
	return s
}

func (s *EventsSection) ID() string    { return SectionIDEvents }
func (s *EventsSection) Title() string { return "Event Sinks" }
func (s *EventsSection) Description() string {
	return "Optional Redis, RabbitMQ and MySQL mirrors of the event stream."
}

func (s *EventsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"redis_addr":     s.settings.RedisAddr,
		"redis_password": s.settings.RedisPassword,
		"redis_db":       s.settings.RedisDB,
		"redis_key":      s.settings.RedisKey,
		"redis_max_len":  s.settings.RedisMaxLen,
		"amqp_url":       s.settings.AMQPURL,
		"amqp_exchange":  s.settings.AMQPExchange,
		"mysql_dsn":      s.settings.MySQLDSN,
		"mysql_table":    s.settings.MySQLTable,
	}
}

func (s *EventsSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	strField := func(key string, dst *string) {
		if v, ok := asString(data[key]); ok && v != "" {
			*dst = v
		}
	}
	strField("redis_addr", &s.settings.RedisAddr)
	strField("redis_password", &s.settings.RedisPassword)
	strField("redis_key", &s.settings.RedisKey)
	strField("amqp_url", &s.settings.AMQPURL)
	strField("amqp_exchange", &s.settings.AMQPExchange)
	strField("mysql_dsn", &s.settings.MySQLDSN)
	strField("mysql_table", &s.settings.MySQLTable)

	if v, ok := asInt(data["redis_db"]); ok {
		s.settings.RedisDB = v
	}
	if v, ok := asInt(data["redis_max_len"]); ok {
		s.settings.RedisMaxLen = v
	}
	return nil
}

func (s *EventsSection) Validate() error { return nil }

func (s *EventsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = EventSettings{
		RedisKey:     "appagent:events",
		RedisMaxLen:  5000,
		AMQPExchange: "appagent.events",
		MySQLTable:   "agent_events",
	}
}

// Settings returns a copy of the current values.
func (s *EventsSection) Settings() EventSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}
