package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  addr: \":9090\"\nbook:\n  tick_size: \"0.05\"\n  prune_hour: 17\n")
	assert.NoError(os.WriteFile(path, data, 0644))

	cfg, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(":9090", cfg.Server.Addr)
	assert.True(cfg.TickDecimal().Equal(decimal.RequireFromString("0.05")))
	assert.Equal(17, cfg.Book.PruneHour)
	// Untouched keys keep their defaults.
	assert.Equal(500, cfg.Server.PushIntervalMS)
	assert.Equal("info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0644))

	t.Setenv("LOB_ADDR", ":7070")
	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Server.Addr = ""
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.Book.PruneHour = 24
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.Book.TickSize = "0"
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.Book.TickSize = "not-a-number"
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.PushIntervalMS = 0
	assert.Error(cfg.Validate())
}
