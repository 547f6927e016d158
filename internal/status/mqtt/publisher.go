// internal/status/mqtt/publisher.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/magscan/internal/status"
)

// Client is the part of paho's client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Config struct {
	Broker   string // tcp://host:1883
	ClientID string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// Publisher sends the status snapshot as retained JSON whenever it changes.
type Publisher struct {
	cli     Client
	topic   string
	qos     byte
	timeout time.Duration

	last    status.Snapshot
	haveOne bool
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, errors.New("status mqtt: broker and topic required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(time.Second)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetAutoReconnect(true)

	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("status mqtt: connect %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("status mqtt: connect %s: %w", cfg.Broker, err)
	}
	return New(c, cfg)
}

// New wraps an already connected client.
func New(c Client, cfg Config) (*Publisher, error) {
	if c == nil {
		return nil, errors.New("status mqtt: client required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("status mqtt: topic required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("status mqtt: qos %d out of range", cfg.QoS)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Publisher{cli: c, topic: cfg.Topic, qos: cfg.QoS, timeout: cfg.Timeout}, nil
}

func (p *Publisher) WriteStatus(s status.Snapshot) error {
	if p.haveOne && s == p.last {
		return nil
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("status mqtt: marshal: %w", err)
	}

	tok := p.cli.Publish(p.topic, p.qos, true, payload)
	if !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("status mqtt: publish %s: timed out", p.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("status mqtt: publish %s: %w", p.topic, err)
	}

	p.last = s
	p.haveOne = true
	return nil
}

func (p *Publisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}
