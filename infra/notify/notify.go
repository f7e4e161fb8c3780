// Package notify announces compiled schedule PDFs on an MQTT broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/schedpdf/infra/logger"
)

// Artifact is the JSON payload published for every compiled document.
type Artifact struct {
	RunID      string    `json:"run_id"`
	School     string    `json:"school,omitempty"`
	Source     string    `json:"source"`
	PDF        string    `json:"pdf"`
	Passes     int       `json:"passes"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier publishes artifact announcements.
type Notifier interface {
	Notify(ctx context.Context, a Artifact) error
	Close()
}

// NopNotifier drops every announcement.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Artifact) error { return nil }
func (NopNotifier) Close()                                 {}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier publishes artifacts to <topic_prefix>/<file base>.
type MQTTNotifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	log        logger.Logger
}

// New returns a NopNotifier when notifications are disabled and a connected
// MQTTNotifier otherwise.
func New(cfg Config, log logger.Logger) (Notifier, error) {
	if !cfg.Enabled {
		return NopNotifier{}, nil
	}
	return NewMQTTNotifier(cfg, log)
}

// NewMQTTNotifier connects to the broker. A retained "online" status is
// published on connect and the broker publishes "offline" if the link drops.
func NewMQTTNotifier(cfg Config, log logger.Logger) (*MQTTNotifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("notify")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	n := &MQTTNotifier{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout:    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:        log,
	}
	statusTopic := n.prefix + "/status"
	opts.SetWill(statusTopic, "offline", cfg.QoS, true)
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Publish(statusTopic, cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(n.timeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	n.cli = c
	return n, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// Topic returns the topic an artifact is announced on.
func (n *MQTTNotifier) Topic(a Artifact) string {
	base := filepath.Base(a.PDF)
	if a.PDF == "" {
		base = filepath.Base(a.Source)
	}
	return n.prefix + "/" + strings.TrimSuffix(base, filepath.Ext(base))
}

// Notify publishes a, retrying with exponential backoff.
func (n *MQTTNotifier) Notify(ctx context.Context, a Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	topic := n.Topic(a)
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		if !token.WaitTimeout(n.timeout) {
			publishErr = fmt.Errorf("publish to %s: timed out", topic)
		} else {
			publishErr = token.Error()
		}
		if publishErr == nil {
			n.log.Debugf("announced %s on %s", a.PDF, topic)
			return nil
		}
		n.log.Warnf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == n.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("notify %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (n *MQTTNotifier) Close() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
