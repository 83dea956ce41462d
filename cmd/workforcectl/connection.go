package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/provider"
	"github.com/srand/jolt/workforce/pkg/utils"
)

// Connect opens a workforce channel to the configured host. The channel
// closes when ctx is cancelled.
func Connect(ctx context.Context, config *ControlConfig) (channel.Channel, error) {
	switch config.Transport {
	case "grpc":
		target, err := utils.ParseGrpcUrl(config.HostUri)
		if err != nil {
			return nil, err
		}
		return channel.DialGrpc(ctx, target, &config.GRPCOptions)

	default:
		url, err := utils.WebsocketUrl(config.HostUri)
		if err != nil {
			return nil, err
		}
		return channel.DialWebsocket(ctx, url)
	}
}

// FetchProviders lists the providers served by the host.
func FetchProviders(ctx context.Context, config *ControlConfig) ([]provider.Info, error) {
	baseUrl, err := utils.HttpBaseUrl(config.HostUri)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, baseUrl+"/providers", nil)
	if err != nil {
		return nil, err
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s/providers: %s", baseUrl, response.Status)
	}

	var infos []provider.Info
	if err := json.NewDecoder(response.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}
	return infos, nil
}

func DefaultDeadlineContext() (context.Context, func()) {
	return context.WithDeadline(context.Background(), time.Now().Add(time.Second*30))
}
