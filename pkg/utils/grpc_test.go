package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGRPCOptions(t *testing.T) {
	var nilOpts *GRPCOptions
	assert.Len(t, nilOpts.ToServerOptions(), 2)
	assert.Len(t, nilOpts.ToDialOptions(), 2)
	assert.Equal(t, DefaultMaxMessageSize, nilOpts.maxMessageSize())

	interval := 10 * time.Second
	permit := true
	opts := &GRPCOptions{
		KeepAliveTime:               &interval,
		PermitKeepAliveWithoutCalls: &permit,
	}

	assert.Len(t, opts.ToServerOptions(), 4)
	assert.Len(t, opts.ToDialOptions(), 3)

	size := 1024
	opts.MaxMessageSize = &size
	assert.Equal(t, 1024, opts.maxMessageSize())
}

func TestDeref(t *testing.T) {
	interval := time.Second
	text, ok := deref(&interval)
	assert.True(t, ok)
	assert.Equal(t, "1s", text)

	var missing *bool
	_, ok = deref(missing)
	assert.False(t, ok)
}
