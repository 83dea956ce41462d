package utils

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	KillOnStop bool              `mapstructure:"kill_on_stop"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Threads    int               `mapstructure:"threads"`
	Require    map[string]string `mapstructure:"require"`
}

func TestUnmarshalConfig(t *testing.T) {
	v := viper.New()
	v.Set("kill_on_stop", "no")
	v.Set("timeout", "1m30s")
	v.Set("threads", "4")
	v.Set("require", "node.os=linux, label=gpu")

	cfg := &testConfig{}
	require.NoError(t, UnmarshalConfig(v, cfg))

	assert.False(t, cfg.KillOnStop)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, map[string]string{"node.os": "linux", "label": "gpu"}, cfg.Require)
}

func TestUnmarshalConfigList(t *testing.T) {
	v := viper.New()
	v.Set("require", []interface{}{"node.arch=amd64"})

	cfg := &testConfig{}
	require.NoError(t, UnmarshalConfig(v, cfg))
	assert.Equal(t, map[string]string{"node.arch": "amd64"}, cfg.Require)
}

func TestParseKeyValues(t *testing.T) {
	kv, err := ParseKeyValues([]string{"a=1", "b=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, kv)

	_, err = ParseKeyValues([]string{"novalue"})
	assert.ErrorIs(t, err, ErrParse)
}
