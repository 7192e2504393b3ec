package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/nao-lola/internal/transport"
)

// BridgeConfig is the on-disk configuration of the bridge. Every field is
// optional; the Get* methods supply defaults for anything not set.
type BridgeConfig struct {
	// Hardware link
	Transport      *string                `json:"transport,omitempty"` // "unix" or "serial"
	SocketPath     *string                `json:"socket_path,omitempty"`
	SerialPort     *string                `json:"serial_port,omitempty"`
	Serial         *transport.PortOptions `json:"serial,omitempty"`
	FrameSize      *int                   `json:"frame_size,omitempty"`
	ReconnectDelay *string                `json:"reconnect_delay,omitempty"` // duration string like "1s"

	// MQTT mirror; disabled when mqtt_broker is empty
	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTPrefix   *string `json:"mqtt_prefix,omitempty"`
	MQTTClientID *string `json:"mqtt_client_id,omitempty"`

	// Cycle journal; disabled when record_db is empty
	RecordDB *string `json:"record_db,omitempty"`

	// Admin HTTP listener
	Listen *string `json:"listen,omitempty"`
}

const (
	defaultReconnectDelay = time.Second
	defaultMQTTPrefix     = "nao"
	defaultMQTTClientID   = "lola-bridge"
	defaultListen         = ":8080"
)

// LoadConfig loads a BridgeConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &BridgeConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *BridgeConfig) Validate() error {
	switch c.GetTransport() {
	case transport.NetworkUnix:
	case transport.NetworkSerial:
		if c.GetSerialPort() == "" {
			return fmt.Errorf("transport serial requires serial_port")
		}
	default:
		return fmt.Errorf("unknown transport %q: expected unix or serial", c.GetTransport())
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalise(); err != nil {
			return fmt.Errorf("invalid serial options: %w", err)
		}
	}

	if c.FrameSize != nil && *c.FrameSize <= 0 {
		return fmt.Errorf("frame_size must be positive, got %d", *c.FrameSize)
	}

	if c.ReconnectDelay != nil && *c.ReconnectDelay != "" {
		d, err := time.ParseDuration(*c.ReconnectDelay)
		if err != nil {
			return fmt.Errorf("invalid reconnect_delay '%s': %w", *c.ReconnectDelay, err)
		}
		if d < 0 {
			return fmt.Errorf("reconnect_delay must be non-negative, got %s", d)
		}
	}
	return nil
}

func (c *BridgeConfig) GetTransport() transport.Network {
	if c.Transport == nil || *c.Transport == "" {
		return transport.NetworkUnix
	}
	return transport.Network(*c.Transport)
}

func (c *BridgeConfig) GetSocketPath() string {
	if c.SocketPath == nil || *c.SocketPath == "" {
		return transport.DefaultSocketPath
	}
	return *c.SocketPath
}

func (c *BridgeConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerialOptions returns the serial options with defaults applied.
func (c *BridgeConfig) GetSerialOptions() transport.PortOptions {
	var opts transport.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	if n, err := opts.Normalise(); err == nil {
		return n
	}
	return opts
}

// GetTransportOptions assembles the link options for transport.Open.
func (c *BridgeConfig) GetTransportOptions() transport.Options {
	opts := transport.Options{Network: c.GetTransport(), Serial: c.GetSerialOptions()}
	if opts.Network == transport.NetworkSerial {
		opts.Address = c.GetSerialPort()
	} else {
		opts.Address = c.GetSocketPath()
	}
	return opts
}

func (c *BridgeConfig) GetFrameSize() int {
	if c.FrameSize == nil || *c.FrameSize <= 0 {
		return transport.DefaultFrameSize
	}
	return *c.FrameSize
}

// GetReconnectDelay parses and returns the ReconnectDelay as a time.Duration.
func (c *BridgeConfig) GetReconnectDelay() time.Duration {
	if c.ReconnectDelay == nil || *c.ReconnectDelay == "" {
		return defaultReconnectDelay
	}
	d, err := time.ParseDuration(*c.ReconnectDelay)
	if err != nil || d < 0 {
		return defaultReconnectDelay // default on parse error
	}
	return d
}

func (c *BridgeConfig) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

func (c *BridgeConfig) GetMQTTPrefix() string {
	if c.MQTTPrefix == nil || *c.MQTTPrefix == "" {
		return defaultMQTTPrefix
	}
	return *c.MQTTPrefix
}

func (c *BridgeConfig) GetMQTTClientID() string {
	if c.MQTTClientID == nil || *c.MQTTClientID == "" {
		return defaultMQTTClientID
	}
	return *c.MQTTClientID
}

func (c *BridgeConfig) GetRecordDB() string {
	if c.RecordDB == nil {
		return ""
	}
	return *c.RecordDB
}

func (c *BridgeConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return defaultListen
	}
	return *c.Listen
}
