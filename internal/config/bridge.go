package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/seriallink"
)

// DefaultConfigPath is the path to the canonical bridge defaults file.
const DefaultConfigPath = "config/bridge.defaults.json"

// Robot transports.
const (
	TransportUDP    = "udp"
	TransportSerial = "serial"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// maxConfigFileSize caps config files at 1MB.
const maxConfigFileSize = 1 * 1024 * 1024

// BridgeConfig is the bridge's startup configuration. Every field is
// optional: the Get* accessors fall back to the defaults in
// config/bridge.defaults.json, so partial configs are safe.
type BridgeConfig struct {
	RobotType *string `json:"robot_type,omitempty"`

	// VR ingress
	ListenAddress    *string  `json:"listen_address,omitempty"`
	RcvBuf           *int     `json:"rcv_buf,omitempty"`
	WebSocketPath    *string  `json:"websocket_path,omitempty"` // empty disables the WebSocket ingress
	WebSocketOrigins []string `json:"websocket_origins,omitempty"`

	// Robot egress
	RobotTransport *string                 `json:"robot_transport,omitempty"` // "udp" or "serial"
	RobotAddress   *string                 `json:"robot_address,omitempty"`
	ForwardQueue   *int                    `json:"forward_queue,omitempty"`
	SerialPort     *string                 `json:"serial_port,omitempty"`
	SerialOptions  *seriallink.PortOptions `json:"serial_options,omitempty"`

	// Observability
	LogInterval *string `json:"log_interval,omitempty"` // duration string like "1m"
	LogLevel    *string `json:"log_level,omitempty"`
	LogFormat   *string `json:"log_format,omitempty"`
	StatsDB     *string `json:"stats_db,omitempty"` // empty disables persistence
	AdminListen *string `json:"admin_listen,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyBridgeConfig returns a BridgeConfig with all fields set to nil.
func EmptyBridgeConfig() *BridgeConfig {
	return &BridgeConfig{}
}

// DefaultBridgeConfig returns a BridgeConfig with every field set to its
// default. It mirrors config/bridge.defaults.json.
func DefaultBridgeConfig() *BridgeConfig {
	opts := seriallink.PortOptions{BaudRate: seriallink.DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}
	return &BridgeConfig{
		RobotType:        ptrString(defaultRobotType),
		ListenAddress:    ptrString(defaultListenAddress),
		RcvBuf:           ptrInt(defaultRcvBuf),
		WebSocketPath:    ptrString(defaultWebSocketPath),
		WebSocketOrigins: []string{},
		RobotTransport:   ptrString(TransportUDP),
		RobotAddress:     ptrString(defaultRobotAddress),
		ForwardQueue:     ptrInt(defaultForwardQueue),
		SerialPort:       ptrString(""),
		SerialOptions:    &opts,
		LogInterval:      ptrString(defaultLogInterval.String()),
		LogLevel:         ptrString(defaultLogLevel),
		LogFormat:        ptrString(LogFormatText),
		StatsDB:          ptrString(defaultStatsDB),
		AdminListen:      ptrString(defaultAdminListen),
	}
}

const (
	defaultRobotType     = "asgard"
	defaultListenAddress = ":9870"
	defaultRcvBuf        = 262144
	defaultWebSocketPath = "/vr"
	defaultRobotAddress  = "127.0.0.1:9871"
	defaultForwardQueue  = 1000
	defaultLogInterval   = time.Minute
	defaultLogLevel      = "info"
	defaultStatsDB       = "bridge.db"
	defaultAdminListen   = "127.0.0.1:8089"
)

// LoadBridgeConfig loads a BridgeConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBridgeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. It panics if the file
// cannot be loaded and is intended for test setup.
func MustLoadDefaultConfig() *BridgeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/pcap-replay/
	}
	for _, path := range candidates {
		if cfg, err := LoadBridgeConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *BridgeConfig) Validate() error {
	if c.RobotType != nil && strings.TrimSpace(*c.RobotType) == "" {
		return fmt.Errorf("robot_type must not be empty")
	}

	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcv_buf must be non-negative, got %d", *c.RcvBuf)
	}

	if c.ForwardQueue != nil && *c.ForwardQueue <= 0 {
		return fmt.Errorf("forward_queue must be positive, got %d", *c.ForwardQueue)
	}

	if c.RobotTransport != nil {
		switch *c.RobotTransport {
		case TransportUDP, TransportSerial:
		default:
			return fmt.Errorf("robot_transport must be %q or %q, got %q", TransportUDP, TransportSerial, *c.RobotTransport)
		}
	}
	if c.GetRobotTransport() == TransportSerial && c.GetSerialPort() == "" {
		return fmt.Errorf("serial_port is required when robot_transport is %q", TransportSerial)
	}

	if c.SerialOptions != nil {
		if _, err := c.SerialOptions.Normalise(); err != nil {
			return fmt.Errorf("invalid serial_options: %w", err)
		}
	}

	if c.LogInterval != nil && *c.LogInterval != "" {
		d, err := time.ParseDuration(*c.LogInterval)
		if err != nil {
			return fmt.Errorf("invalid log_interval '%s': %w", *c.LogInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("log_interval must be positive, got %s", d)
		}
	}

	if c.LogLevel != nil {
		if _, err := monitoring.ParseLevel(*c.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
	}

	if c.LogFormat != nil {
		switch *c.LogFormat {
		case LogFormatText, LogFormatJSON:
		default:
			return fmt.Errorf("log_format must be %q or %q, got %q", LogFormatText, LogFormatJSON, *c.LogFormat)
		}
	}

	if c.WebSocketPath != nil && *c.WebSocketPath != "" && !strings.HasPrefix(*c.WebSocketPath, "/") {
		return fmt.Errorf("websocket_path must start with '/', got %q", *c.WebSocketPath)
	}

	return nil
}

// GetRobotType returns the robot_type value or the default.
func (c *BridgeConfig) GetRobotType() string {
	if c.RobotType == nil {
		return defaultRobotType
	}
	return *c.RobotType
}

// GetListenAddress returns the listen_address value or the default.
func (c *BridgeConfig) GetListenAddress() string {
	if c.ListenAddress == nil || *c.ListenAddress == "" {
		return defaultListenAddress
	}
	return *c.ListenAddress
}

// GetRcvBuf returns the rcv_buf value or the default.
func (c *BridgeConfig) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return defaultRcvBuf
	}
	return *c.RcvBuf
}

// GetWebSocketPath returns the websocket_path value or the default. An
// explicit empty string disables the WebSocket ingress.
func (c *BridgeConfig) GetWebSocketPath() string {
	if c.WebSocketPath == nil {
		return defaultWebSocketPath
	}
	return *c.WebSocketPath
}

// GetWebSocketOrigins returns the allowed browser origins.
func (c *BridgeConfig) GetWebSocketOrigins() []string {
	return append([]string(nil), c.WebSocketOrigins...)
}

// GetRobotTransport returns the robot_transport value or the default.
func (c *BridgeConfig) GetRobotTransport() string {
	if c.RobotTransport == nil || *c.RobotTransport == "" {
		return TransportUDP
	}
	return *c.RobotTransport
}

// GetRobotAddress returns the robot_address value or the default.
func (c *BridgeConfig) GetRobotAddress() string {
	if c.RobotAddress == nil || *c.RobotAddress == "" {
		return defaultRobotAddress
	}
	return *c.RobotAddress
}

// GetForwardQueue returns the forward_queue value or the default.
func (c *BridgeConfig) GetForwardQueue() int {
	if c.ForwardQueue == nil {
		return defaultForwardQueue
	}
	return *c.ForwardQueue
}

// GetSerialPort returns the serial_port value, empty if unset.
func (c *BridgeConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerialOptions returns the serial_options value, normalised.
func (c *BridgeConfig) GetSerialOptions() seriallink.PortOptions {
	var opts seriallink.PortOptions
	if c.SerialOptions != nil {
		opts = *c.SerialOptions
	}
	if n, err := opts.Normalise(); err == nil {
		return n
	}
	n, _ := seriallink.PortOptions{}.Normalise()
	return n
}

// GetLogInterval parses and returns the LogInterval as a time.Duration.
func (c *BridgeConfig) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return defaultLogInterval
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil || d <= 0 {
		return defaultLogInterval
	}
	return d
}

// GetLogLevel returns the parsed log_level or the default.
func (c *BridgeConfig) GetLogLevel() monitoring.Level {
	if c.LogLevel != nil {
		if l, err := monitoring.ParseLevel(*c.LogLevel); err == nil {
			return l
		}
	}
	l, _ := monitoring.ParseLevel(defaultLogLevel)
	return l
}

// GetLogFormat returns the log_format value or the default.
func (c *BridgeConfig) GetLogFormat() string {
	if c.LogFormat == nil || *c.LogFormat == "" {
		return LogFormatText
	}
	return *c.LogFormat
}

// GetStatsDB returns the stats_db path or the default. An explicit empty
// string disables persistence.
func (c *BridgeConfig) GetStatsDB() string {
	if c.StatsDB == nil {
		return defaultStatsDB
	}
	return *c.StatsDB
}

// GetAdminListen returns the admin_listen value or the default. An explicit
// empty string disables the admin server.
func (c *BridgeConfig) GetAdminListen() string {
	if c.AdminListen == nil {
		return defaultAdminListen
	}
	return *c.AdminListen
}
