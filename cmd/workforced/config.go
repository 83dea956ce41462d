package main

import (
	"errors"
	"maps"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/provider"
	"github.com/srand/jolt/workforce/pkg/utils"
)

type Config struct {
	utils.GRPCOptions `mapstructure:"grpc"`

	// Addresses to listen on for gRPC channels.
	ListenGrpc []string `mapstructure:"listen_grpc"`
	// Addresses to listen on for HTTP and websocket channels.
	ListenHttp []string `mapstructure:"listen_http"`
	// Provider catalog file or directory. Empty serves a single provider
	// describing the local node.
	Providers string `mapstructure:"providers"`
	// Attributes added to every provider, as key=value pairs.
	Attributes map[string]string `mapstructure:"attributes"`
}

func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := utils.UnmarshalConfig(v, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if len(c.ListenGrpc) == 0 && len(c.ListenHttp) == 0 {
		return errors.New("no listen addresses configured")
	}
	for _, uri := range c.ListenHttp {
		if _, err := utils.ParseHttpUrl(uri); err != nil {
			return err
		}
	}
	return nil
}

// Catalog loads the configured provider catalog and applies the common
// attributes to every entry.
func (c *Config) Catalog(fs afero.Fs) (*provider.Catalog, error) {
	catalog := &provider.Catalog{
		Defaults:  true,
		Providers: []provider.Entry{{Id: "local", Runtime: "echo"}},
	}

	if c.Providers != "" {
		var err error
		catalog, err = provider.LoadCatalog(fs, c.Providers)
		if err != nil {
			return nil, err
		}
	}

	for i, entry := range catalog.Providers {
		catalog.Providers[i].Attributes = provider.Merge(c.Attributes, entry.Attributes)
	}
	return catalog, nil
}

func (c *Config) Log() {
	log.Info("Workforce host configuration:")
	log.Infof("  gRPC listen addresses: %v", c.ListenGrpc)
	log.Infof("  HTTP listen addresses: %v", c.ListenHttp)
	if c.Providers != "" {
		log.Infof("  Provider catalog: %s", c.Providers)
	}
	for _, key := range slices.Sorted(maps.Keys(c.Attributes)) {
		log.Infof("  Attribute: %s=%s", key, c.Attributes[key])
	}
	c.GRPCOptions.Log()
}
