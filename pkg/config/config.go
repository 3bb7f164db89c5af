package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/types"
)

// ConnectionType selects how the daemon reaches the container runtime
type ConnectionType string

const (
	ConnectionLocal  ConnectionType = "local"
	ConnectionSocket ConnectionType = "socket"
	ConnectionHTTP   ConnectionType = "http"
	ConnectionSSL    ConnectionType = "ssl"
)

// ConnectionTypes lists the accepted connection types
var ConnectionTypes = []ConnectionType{ConnectionLocal, ConnectionSocket, ConnectionHTTP, ConnectionSSL}

// HistoryBackend selects the history store implementation
type HistoryBackend string

const (
	HistoryFile HistoryBackend = "file"
	HistoryBolt HistoryBackend = "bolt"
)

// Defaults
const (
	DefaultConnectionType = ConnectionLocal
	DefaultContainerLabel = types.LabelFilterAll
	DefaultStopTimeout    = 10
	DefaultInterval       = 5
	DefaultTCPHost        = "localhost"
	DefaultHTTPPort       = 2375
	DefaultSSLPort        = 2376
	DefaultTCPTimeout     = 10
	DefaultPEMPath        = "/opt/docker-autoheal/tls"
	DefaultHistoryDir     = "/opt/docker-autoheal"
)

// Config holds the daemon configuration
type Config struct {
	// Runtime connection
	ConnectionType ConnectionType
	TCPHost        string
	TCPPort        int // 0 selects the default for the connection type
	TCPTimeout     time.Duration
	PEMPath        string

	// Reconciliation
	ContainerLabel string
	Interval       time.Duration
	StartDelay     time.Duration
	StopTimeout    int
	MonitorAll     bool
	LogAll         bool

	// Side effects
	AppriseURL string
	WebhookURL string
	WebhookKey string
	PostAction string

	// History
	History        bool
	HistoryDir     string
	HistoryBackend HistoryBackend

	// Observability
	ListenAddr string
	LogLevel   log.Level
	LogJSON    bool
}

// Default returns a Config populated with defaults
func Default() *Config {
	return &Config{
		ConnectionType: DefaultConnectionType,
		TCPHost:        DefaultTCPHost,
		TCPTimeout:     DefaultTCPTimeout * time.Second,
		PEMPath:        DefaultPEMPath,
		ContainerLabel: DefaultContainerLabel,
		Interval:       DefaultInterval * time.Second,
		StopTimeout:    DefaultStopTimeout,
		HistoryDir:     DefaultHistoryDir,
		HistoryBackend: HistoryFile,
		LogLevel:       log.InfoLevel,
	}
}

// Validate checks the configuration for values the daemon can't run with
func (c *Config) Validate() error {
	if !validConnectionType(c.ConnectionType) {
		return fmt.Errorf("unexpected connection-type %q: expected one of %v", c.ConnectionType, ConnectionTypes)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.StartDelay < 0 {
		return fmt.Errorf("start-delay must not be negative, got %s", c.StartDelay)
	}
	if c.TCPTimeout < 0 {
		return fmt.Errorf("tcp-timeout must not be negative, got %s", c.TCPTimeout)
	}
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return fmt.Errorf("tcp-port out of range: %d", c.TCPPort)
	}
	if c.ContainerLabel == "" {
		return fmt.Errorf("container-label must not be empty (use %q to disable filtering)", types.LabelFilterAll)
	}
	switch c.HistoryBackend {
	case HistoryFile, HistoryBolt:
	default:
		return fmt.Errorf("unexpected history-backend %q: expected file or bolt", c.HistoryBackend)
	}
	if c.History && c.HistoryDir == "" {
		return fmt.Errorf("history-dir is required when history is enabled")
	}
	return nil
}

func validConnectionType(ct ConnectionType) bool {
	for _, allowed := range ConnectionTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

// TCPAddress returns host:port for the http and ssl connection types
func (c *Config) TCPAddress() string {
	port := c.TCPPort
	if port == 0 {
		port = DefaultHTTPPort
		if c.ConnectionType == ConnectionSSL {
			port = DefaultSSLPort
		}
	}
	return net.JoinHostPort(c.TCPHost, strconv.Itoa(port))
}

// KeyPath returns the client key path inside the PEM directory
func (c *Config) KeyPath() string {
	return filepath.Join(c.PEMPath, "key.pem")
}

// CertPath returns the client certificate path inside the PEM directory
func (c *Config) CertPath() string {
	return filepath.Join(c.PEMPath, "cert.pem")
}

// CAPath returns the CA certificate path inside the PEM directory
func (c *Config) CAPath() string {
	return filepath.Join(c.PEMPath, "ca.pem")
}
