package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/groupwire/msgp/pkg/protocol"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Limits LimitsSection `toml:"limits"`
}

type ServerSection struct {
	TCPPort  int  `toml:"tcp_port"`
	HTTPPort int  `toml:"http_port"`
	Debug    bool `toml:"debug"`
}

type LimitsSection struct {
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
}

// ServerConfig holds the resolved runtime configuration.
type ServerConfig struct {
	TCPPort      int
	HTTPPort     int // Metrics, /health, and the /ws bridge (0 = ephemeral, negative = disabled)
	WriteTimeout time.Duration
	Debug        bool
}

// DefaultTOMLConfig returns the default configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			TCPPort:  protocol.DefaultPort,
			HTTPPort: 8080,
		},
		Limits: LimitsSection{
			WriteTimeoutSeconds: 5,
		},
	}
}

// ServerConfig resolves the file representation into runtime values.
func (c TOMLConfig) ServerConfig() ServerConfig {
	return ServerConfig{
		TCPPort:      c.Server.TCPPort,
		HTTPPort:     c.Server.HTTPPort,
		WriteTimeout: time.Duration(c.Limits.WriteTimeoutSeconds) * time.Second,
		Debug:        c.Server.Debug,
	}
}

// LoadConfig loads configuration from a TOML file, creates a default file if
// none exists, and applies environment variable overrides.
func LoadConfig(path string) (TOMLConfig, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// No file yet: write defaults, best effort. A write failure (read-only
		// config dir) still leaves us with a runnable default config.
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			debugLog.Printf("could not write default config to %s: %v", path, err)
		}
		return applyEnvOverrides(config), nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Variables follow the pattern MSGP_SECTION_KEY, e.g. MSGP_SERVER_TCP_PORT.
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	if val := os.Getenv("MSGP_SERVER_TCP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.TCPPort = port
		}
	}
	if val := os.Getenv("MSGP_SERVER_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.HTTPPort = port
		}
	}
	if val := os.Getenv("MSGP_SERVER_DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			config.Server.Debug = debug
		}
	}
	if val := os.Getenv("MSGP_LIMITS_WRITE_TIMEOUT_SECONDS"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			config.Limits.WriteTimeoutSeconds = secs
		}
	}
	return config
}

func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}
