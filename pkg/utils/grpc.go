package utils

import (
	"fmt"
	"time"

	"github.com/srand/jolt/workforce/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Keepalive settings for the gRPC channel transport. Channels are long lived
// and mostly idle between worker messages, so both ends benefit from pings.
type GRPCOptions struct {
	// The interval between PING frames.
	KeepAliveTime *time.Duration `mapstructure:"keep_alive_time"`
	// The timeout for a PING frame to be acknowledged.
	KeepAliveTimeout *time.Duration `mapstructure:"keep_alive_timeout"`
	// Send keepalive pings even if there are no active streams (client).
	KeepAliveWithoutCalls *bool `mapstructure:"keep_alive_without_calls"`
	// Are clients allowed to send keepalive pings without active streams (server).
	PermitKeepAliveWithoutCalls *bool `mapstructure:"permit_keep_alive_without_calls"`
	// Minimum allowed time between a server receiving successive ping frames without sending any data/header frame.
	PermitKeepAliveTime *time.Duration `mapstructure:"permit_keep_alive_time"`
	// Largest message accepted or sent on a channel, in bytes.
	// Defaults to DefaultMaxMessageSize.
	MaxMessageSize *int `mapstructure:"max_message_size"`
}

// Same limit as the websocket transport, so that a payload accepted by one
// transport is accepted by the other.
const DefaultMaxMessageSize = 4 << 20

func (o *GRPCOptions) maxMessageSize() int {
	if o == nil || o.MaxMessageSize == nil || *o.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return *o.MaxMessageSize
}

func (o *GRPCOptions) hasKeepAlive() bool {
	return o.KeepAliveTime != nil || o.KeepAliveTimeout != nil
}

func (o *GRPCOptions) ToServerOptions() []grpc.ServerOption {
	size := o.maxMessageSize()
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(size),
		grpc.MaxSendMsgSize(size),
	}
	if o == nil {
		return opts
	}

	if o.hasKeepAlive() {
		params := keepalive.ServerParameters{}
		if o.KeepAliveTime != nil {
			params.Time = *o.KeepAliveTime
		}
		if o.KeepAliveTimeout != nil {
			params.Timeout = *o.KeepAliveTimeout
		}
		opts = append(opts, grpc.KeepaliveParams(params))
	}

	if o.PermitKeepAliveWithoutCalls != nil || o.PermitKeepAliveTime != nil {
		policy := keepalive.EnforcementPolicy{}
		if o.PermitKeepAliveWithoutCalls != nil {
			policy.PermitWithoutStream = *o.PermitKeepAliveWithoutCalls
		}
		if o.PermitKeepAliveTime != nil {
			policy.MinTime = *o.PermitKeepAliveTime
		}
		opts = append(opts, grpc.KeepaliveEnforcementPolicy(policy))
	}

	return opts
}

// Dial options for connecting a workforce to a host. Transport security is
// not configured; the channel is expected to run on a trusted network.
func (o *GRPCOptions) ToDialOptions() []grpc.DialOption {
	size := o.maxMessageSize()
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(size),
			grpc.MaxCallSendMsgSize(size),
		),
	}
	if o == nil {
		return opts
	}

	if o.hasKeepAlive() || o.KeepAliveWithoutCalls != nil {
		params := keepalive.ClientParameters{}
		if o.KeepAliveTime != nil {
			params.Time = *o.KeepAliveTime
		}
		if o.KeepAliveTimeout != nil {
			params.Timeout = *o.KeepAliveTimeout
		}
		if o.KeepAliveWithoutCalls != nil {
			params.PermitWithoutStream = *o.KeepAliveWithoutCalls
		}
		opts = append(opts, grpc.WithKeepaliveParams(params))
	}

	return opts
}

func (o *GRPCOptions) Log() {
	if o == nil {
		return
	}

	settings := []struct {
		name  string
		value any
	}{
		{"keep_alive_time", o.KeepAliveTime},
		{"keep_alive_timeout", o.KeepAliveTimeout},
		{"keep_alive_without_calls", o.KeepAliveWithoutCalls},
		{"permit_keep_alive_without_calls", o.PermitKeepAliveWithoutCalls},
		{"permit_keep_alive_time", o.PermitKeepAliveTime},
		{"max_message_size", o.MaxMessageSize},
	}

	log.Info("  gRPC options:")
	for _, setting := range settings {
		if text, ok := deref(setting.value); ok {
			log.Infof("    %s = %s", setting.name, text)
		}
	}
}

func deref(value any) (string, bool) {
	switch v := value.(type) {
	case *time.Duration:
		if v != nil {
			return v.String(), true
		}
	case *bool:
		if v != nil {
			return fmt.Sprint(*v), true
		}
	case *int:
		if v != nil {
			return fmt.Sprint(*v), true
		}
	}
	return "", false
}
