package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsDefaults(t *testing.T) {
	v := viper.New()
	BindFlags(v)

	cfg := FromViper(v)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.SelectionTimeoutSeconds)
	assert.True(t, cfg.EnableReadiness)
}

func TestParsePositionalBare(t *testing.T) {
	disp, explicit, fds, exts, err := ParsePositional(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, disp)
	assert.False(t, explicit)
	assert.Empty(t, fds)
	assert.Empty(t, exts)
}

func TestParsePositionalFull(t *testing.T) {
	disp, explicit, fds, exts, err := ParsePositional([]string{
		":5", "-listenfd", "4", "-listenfd", "5", "+extension", "MIT-SHM",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, disp)
	assert.True(t, explicit)
	assert.Equal(t, []int{4, 5}, fds)
	assert.Equal(t, []string{"MIT-SHM"}, exts)
}

func TestParsePositionalListenFDWithoutDisplay(t *testing.T) {
	_, _, _, _, err := ParsePositional([]string{"-listenfd", "4"})
	require.Error(t, err)
}

func TestParsePositionalBadDisplay(t *testing.T) {
	_, _, _, _, err := ParsePositional([]string{":notanumber"})
	require.Error(t, err)
}
