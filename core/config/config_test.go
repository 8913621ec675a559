package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/krustie/core/config"
)

type listenConfig struct {
	Addr string `env:"KRUSTIE_TEST_ADDR" envDefault:":8080"`
	Max  int    `env:"KRUSTIE_TEST_MAX" envDefault:"10"`
}

type requiredConfig struct {
	Token string `env:"KRUSTIE_TEST_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Setenv("KRUSTIE_TEST_ADDR", ":9090")
	config.Reset()

	var cfg listenConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 10, cfg.Max)

	// cached per type
	t.Setenv("KRUSTIE_TEST_ADDR", ":7070")
	var again listenConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, ":9090", again.Addr)

	config.Reset()
	var fresh listenConfig
	require.NoError(t, config.Load(&fresh))
	assert.Equal(t, ":7070", fresh.Addr)
}

func TestLoadRequired(t *testing.T) {
	config.Reset()

	var cfg requiredConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() { config.MustLoad(&requiredConfig{}) })

	t.Setenv("KRUSTIE_TEST_TOKEN", "secret")
	require.NotPanics(t, func() { config.MustLoad(&cfg) })
	assert.Equal(t, "secret", cfg.Token)
}

func TestLoadNil(t *testing.T) {
	var cfg *listenConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrParsingConfig)
}
