// Package mqttbridge mirrors the in-process bus onto an MQTT broker:
// effector updates published by behaviour processes are decoded and handed
// to the bridge, and every decoded sensor section is republished as JSON.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/nao-lola/internal/bridge"
	"github.com/banshee-data/nao-lola/internal/bus"
	"github.com/banshee-data/nao-lola/internal/monitoring"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Config describes the broker connection.
type Config struct {
	// Broker is host:port or a full URL such as tcp://host:1883.
	Broker   string
	ClientID string
	// Prefix is prepended to every MQTT topic, e.g. "nao".
	Prefix string
	QoS    byte
}

// Stats counts MQTT traffic.
type Stats struct {
	Connected     bool   `json:"connected"`
	Received      uint64 `json:"received"`
	Malformed     uint64 `json:"malformed"`
	Published     uint64 `json:"published"`
	PublishErrors uint64 `json:"publish_errors"`
}

// Bridge relays between MQTT and the in-process bus.
type Bridge struct {
	cfg    Config
	bus    *bus.Bus
	client mqtt.Client

	// publish sends one sensor message; replaced in tests.
	publish func(topic string, payload []byte) error

	connected     atomic.Bool
	received      atomic.Uint64
	malformed     atomic.Uint64
	published     atomic.Uint64
	publishErrors atomic.Uint64

	wg sync.WaitGroup
}

func New(cfg Config, b *bus.Bus) *Bridge {
	if cfg.Prefix == "" {
		cfg.Prefix = "nao"
	}
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")
	m := &Bridge{cfg: cfg, bus: b}
	m.publish = m.mqttPublish
	return m
}

// EffectorFilter is the MQTT subscription filter for effector updates.
func (m *Bridge) EffectorFilter() string { return m.cfg.Prefix + "/effectors/+" }

// SensorTopic is the MQTT topic a sensor section is republished on.
func (m *Bridge) SensorTopic(name string) string { return m.cfg.Prefix + "/sensors/" + name }

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect establishes the broker connection. The client reconnects on its
// own afterwards and resubscribes on every reconnect.
func (m *Bridge) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(m.cfg.Broker))
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetCleanSession(true)

	opts.OnConnect = func(c mqtt.Client) {
		m.connected.Store(true)
		monitoring.Logf("mqtt connected to %s", m.cfg.Broker)
		token := c.Subscribe(m.EffectorFilter(), m.cfg.QoS, m.onMessage)
		if token.WaitTimeout(connectTimeout) && token.Error() != nil {
			monitoring.Logf("mqtt subscribe %s failed: %v", m.EffectorFilter(), token.Error())
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.connected.Store(false)
		monitoring.Logf("mqtt connection lost, will reconnect: %v", err)
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connection to %s timed out", m.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection to %s failed: %w", m.cfg.Broker, err)
	}
	return nil
}

func (m *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := m.HandleEffector(msg.Topic(), msg.Payload()); err != nil {
		monitoring.Logf("dropped mqtt message on %s: %v", msg.Topic(), err)
	}
}

// HandleEffector decodes one MQTT effector message and publishes the update
// on the matching in-process topic.
func (m *Bridge) HandleEffector(topic string, payload []byte) error {
	m.received.Add(1)
	name, ok := strings.CutPrefix(topic, m.cfg.Prefix+"/effectors/")
	if !ok {
		m.malformed.Add(1)
		return fmt.Errorf("unexpected topic %q", topic)
	}
	g, ok := bridge.GroupForEffector(name)
	if !ok {
		m.malformed.Add(1)
		return fmt.Errorf("unknown effector %q", name)
	}
	u, err := DecodeUpdate(g, payload)
	if err != nil {
		m.malformed.Add(1)
		return err
	}
	m.bus.Publish(bridge.EffectorTopic(g), u)
	return nil
}

// Run forwards sensor sections from the bus to MQTT until ctx is done, then
// disconnects. Each section is subscribed with a depth of one so a slow
// broker sees only the latest reading.
func (m *Bridge) Run(ctx context.Context) {
	for _, name := range bridge.SensorNames() {
		sub := m.bus.Subscribe(bridge.SensorTopic(name), 1)
		m.wg.Add(1)
		go m.forward(ctx, name, sub)
	}
	m.wg.Wait()
	if m.client != nil {
		m.client.Disconnect(250)
		m.connected.Store(false)
	}
}

func (m *Bridge) forward(ctx context.Context, name string, sub *bus.Subscription) {
	defer m.wg.Done()
	defer sub.Unsubscribe()
	topic := m.SensorTopic(name)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			data, err := json.Marshal(msg.Payload)
			if err != nil {
				m.publishErrors.Add(1)
				continue
			}
			if err := m.publish(topic, data); err != nil {
				monitoring.LogSampled(m.publishErrors.Add(1), 1000, "mqtt publish %s failed: %v", topic, err)
				continue
			}
			m.published.Add(1)
		}
	}
}

func (m *Bridge) mqttPublish(topic string, payload []byte) error {
	if m.client == nil || !m.connected.Load() {
		return fmt.Errorf("mqtt not connected")
	}
	token := m.client.Publish(topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

func (m *Bridge) Stats() Stats {
	return Stats{
		Connected:     m.connected.Load(),
		Received:      m.received.Load(),
		Malformed:     m.malformed.Load(),
		Published:     m.published.Load(),
		PublishErrors: m.publishErrors.Load(),
	}
}
