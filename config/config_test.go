package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("BITMEX_CONFIG", "")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "XBTUSD", c.Feed.Symbol)
	assert.Equal(t, 5, c.Book.Depth)
	assert.Equal(t, 10*time.Second, c.Supervisor.Backoff.Min)
	assert.Equal(t, BackoffKind_Fixed, c.Supervisor.Backoff.Kind)
}

func TestFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
feed:
  symbol: XBTU20
  symbol_topics: [orderBookL2, trade]
book:
  depth: 10
supervisor:
  backoff:
    kind: exponential
    min: 1s
    max: 30s
`), 0o600)
	require.NoError(t, err)

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BOOK_DEPTH", "3")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "XBTU20", c.Feed.Symbol)
	assert.Equal(t, []string{"orderBookL2", "trade"}, c.Feed.SymbolTopics)
	assert.Equal(t, 3, c.Book.Depth, "env wins over file")
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, BackoffKind_Exponential, c.Supervisor.Backoff.Kind)
	assert.Equal(t, 30*time.Second, c.Supervisor.Backoff.Max)
}

func TestValidate_CredentialPair(t *testing.T) {
	tests := []struct {
		name        string
		key, secret string
		expectError bool
	}{
		{"NoCredentials", "", "", false},
		{"FullPair", "key", "secret", false},
		{"KeyOnly", "key", "", true},
		{"SecretOnly", "", "secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Feed.APIKey = tt.key
			c.Feed.APISecret = tt.secret

			err := c.Validate()
			if tt.expectError {
				assert.ErrorIs(t, err, domain.ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	c := Default()
	c.Supervisor.Backoff.Kind = "linear"
	assert.ErrorIs(t, c.Validate(), domain.ErrConfig)

	c = Default()
	c.Feed.Symbol = "XBT/USD"
	assert.ErrorIs(t, c.Validate(), domain.ErrConfig)

	c = Default()
	c.Book.Depth = 0
	assert.ErrorIs(t, c.Validate(), domain.ErrConfig)
}
