package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(512), cfg.MaxMessageSize)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com,http://localhost:3000")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnvRejectsOutOfRangeValues(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "-5")

	_, err := NewConfigFromEnv()
	assert.Error(t, err)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{Port: "", HistoryLimit: -1})

	cfg := currentConfig()
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, int64(512), cfg.MaxMessageSize)
}

func TestCurrentConfigReturnsIndependentCopy(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{AllowedOrigins: []string{"http://localhost:8080", "http://localhost:3000"}})

	cfg := currentConfig()
	cfg.AllowedOrigins[0] = "http://evil.example.com"

	assert.Equal(t, "http://localhost:8080", currentConfig().AllowedOrigins[0])
}

func TestNormalizeOrigins(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{
		"HTTPS://Chat.Example.COM",
		"  http://localhost:3000  ",
		"not a url",
		"",
		"http://localhost:3000",
	})

	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, normalized)
}

func TestNormalizeOriginsWildcard(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{"*"})

	assert.True(t, allowAll)
	assert.Empty(t, normalized)
}

func TestIsOriginAllowed(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{AllowedOrigins: []string{"http://localhost:8080"}})

	cases := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"configured origin", "http://localhost:8080", true},
		{"case-insensitive match", "HTTP://LOCALHOST:8080", true},
		{"unlisted origin", "http://evil.example.com", false},
		{"missing origin header", "", false},
		{"unparsable origin", "://", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.allowed, isOriginAllowed(r))
		})
	}
}

func TestWildcardStillRequiresOriginHeader(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{AllowedOrigins: []string{"*"}})

	withHeader := httptest.NewRequest("GET", "/ws", nil)
	withHeader.Header.Set("Origin", "http://anywhere.example.com")
	assert.True(t, isOriginAllowed(withHeader))

	withoutHeader := httptest.NewRequest("GET", "/ws", nil)
	assert.False(t, isOriginAllowed(withoutHeader))
}
