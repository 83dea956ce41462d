package main

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/srand/jolt/workforce/pkg/utils"
)

type ControlConfig struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// URI of the workforce host, e.g. tcp://host.
	HostUri string `mapstructure:"host_uri"`
	// Channel transport, ws or grpc.
	Transport string `mapstructure:"transport"`
}

func ParseConfig(v *viper.Viper) (*ControlConfig, error) {
	config := &ControlConfig{}
	if err := utils.UnmarshalConfig(v, config); err != nil {
		return nil, err
	}

	switch config.Transport {
	case "":
		config.Transport = "ws"
	case "ws", "grpc":
	default:
		return nil, fmt.Errorf("%w: unsupported transport %q", utils.ErrBadRequest, config.Transport)
	}

	return config, nil
}
