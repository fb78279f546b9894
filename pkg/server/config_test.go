package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupwire/msgp/pkg/protocol"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultTOMLConfig().ServerConfig()

	assert.Equal(t, protocol.DefaultPort, config.TCPPort)
	assert.Equal(t, 8080, config.HTTPPort)
	assert.Equal(t, 5*time.Second, config.WriteTimeout)
	assert.False(t, config.Debug)
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTOMLConfig(), config)

	// The default file was written and parses back to the same values
	_, err = os.Stat(path)
	require.NoError(t, err)

	config, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTOMLConfig(), config)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
tcp_port = 5000
http_port = -1
debug = true

[limits]
write_timeout_seconds = 1
`), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	resolved := config.ServerConfig()
	assert.Equal(t, 5000, resolved.TCPPort)
	assert.Equal(t, -1, resolved.HTTPPort)
	assert.Equal(t, time.Second, resolved.WriteTimeout)
	assert.True(t, resolved.Debug)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MSGP_SERVER_TCP_PORT", "6000")
	t.Setenv("MSGP_SERVER_DEBUG", "true")
	t.Setenv("MSGP_LIMITS_WRITE_TIMEOUT_SECONDS", "9")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "server.toml"))
	require.NoError(t, err)

	assert.Equal(t, 6000, config.Server.TCPPort)
	assert.True(t, config.Server.Debug)
	assert.Equal(t, 9, config.Limits.WriteTimeoutSeconds)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml {{{"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
