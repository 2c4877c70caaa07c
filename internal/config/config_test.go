package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tilesim.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
[sim]
tick_rate = "50ms"
steps_per_tile_x = 4

[observer]
bind_address = "127.0.0.1:0"
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Sim.TickRate)
	assert.Equal(t, 4, cfg.Sim.StepsPerTileX)
	assert.Equal(t, 8, cfg.Sim.StepsPerTileY, "default kept")
	assert.Equal(t, "127.0.0.1:0", cfg.Observer.BindAddress)
	assert.Equal(t, 64, cfg.Observer.OutQueueSize)
	assert.InDelta(t, 2.0, cfg.Sim.MicroStep(), 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero tick", "[sim]\ntick_rate = \"0s\"\n"},
		{"upward gravity", "[sim]\ngravity = 10.0\n"},
		{"no steps", "[sim]\nsteps_per_tile_y = 0\n"},
		{"bad toml", "[sim\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "c.toml")
			require.NoError(t, os.WriteFile(p, []byte(tt.body), 0o644))
			_, err := Load(p)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
