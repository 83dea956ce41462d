package main

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/host"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/utils"
	"google.golang.org/grpc"
)

// Sets up a gRPC server on a specific listening address and serves workforce
// channels until ctx is cancelled.
func serveGrpc(ctx context.Context, h *host.Host, address string) error {
	uri, err := url.Parse(address)
	if err != nil {
		return err
	}

	addr := uri.Host

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		if uri.Port() == "" {
			addr = fmt.Sprintf("%s:%s", uri.Host, utils.DefaultGrpcPort)
		}
	case "unix":
		addr = uri.Path
	default:
		return fmt.Errorf("Unsupported protocol: %s", uri.Scheme)
	}

	socket, err := net.Listen(uri.Scheme, addr)
	if err != nil {
		return err
	}

	if uri.Scheme == "unix" {
		socket.(*net.UnixListener).SetUnlinkOnClose(true)
		log.Info("Listening on", uri.Scheme, uri.Path)
	} else {
		log.Info("Listening on", uri.Scheme, socket.Addr())
	}

	server := grpc.NewServer(config.GRPCOptions.ToServerOptions()...)
	channel.RegisterGrpcServer(server, h.Serve)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	return server.Serve(socket)
}
