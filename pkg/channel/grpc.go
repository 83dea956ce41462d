package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	jsonCodecName   = "json"
	connectFullName = "/workforce.Channel/Connect"

	// How long a closing client waits for the server to end the stream.
	grpcCloseTimeout = 5 * time.Second
)

// Message tuples travel as JSON over gRPC as well, so that both transports
// share the same framing.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Acceptor serves one inbound channel. The underlying stream ends when the
// acceptor returns.
type Acceptor func(ctx context.Context, ch Channel)

type channelServer interface {
	connect(grpc.ServerStream) error
}

type grpcService struct {
	accept Acceptor
}

func (s *grpcService) connect(stream grpc.ServerStream) error {
	ch := newGrpcChannel(stream, nil)
	defer ch.Close()

	s.accept(stream.Context(), ch)
	return utils.GrpcError(ch.failure())
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(channelServer).connect(stream)
}

var channelServiceDesc = grpc.ServiceDesc{
	ServiceName: "workforce.Channel",
	HandlerType: (*channelServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// RegisterGrpcServer registers the bidirectional channel service. Each
// client stream is handed to accept as a Channel.
func RegisterGrpcServer(server *grpc.Server, accept Acceptor) {
	server.RegisterService(&channelServiceDesc, &grpcService{accept: accept})
}

// DialGrpc connects to a host's channel service. The channel closes when ctx
// is cancelled.
func DialGrpc(ctx context.Context, target string, options *utils.GRPCOptions) (Channel, error) {
	conn, err := grpc.NewClient(target, options.ToDialOptions()...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", target, err)
	}

	stream, err := conn.NewStream(ctx, &channelServiceDesc.Streams[0], connectFullName,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("grpc connect %s: %w", target, err)
	}

	ch := newGrpcChannel(stream, nil)
	ch.release = func() {
		ch.sendMu.Lock()
		stream.CloseSend()
		ch.sendMu.Unlock()

		// The server ends the stream once it has read everything sent
		// before the half-close. Closing the connection earlier may drop
		// those messages.
		select {
		case <-ch.drained:
		case <-time.After(grpcCloseTimeout):
			logger.Debugf("grpc %s: stream not ended by server within %s", target, grpcCloseTimeout)
		}
		conn.Close()
	}
	return ch, nil
}

type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
	Context() context.Context
}

type grpcChannel struct {
	*inbound
	stream  grpcStream
	release func()

	// gRPC streams do not allow concurrent SendMsg.
	sendMu sync.Mutex
}

func newGrpcChannel(stream grpcStream, release func()) *grpcChannel {
	ch := &grpcChannel{
		inbound: newInbound(),
		stream:  stream,
		release: release,
	}

	go ch.pump(ch.read)
	return ch
}

func (c *grpcChannel) read() (*protocol.Message, error) {
	// Decoded here rather than by the codec so that protocol errors keep
	// their sentinel.
	var frame json.RawMessage
	if err := c.stream.RecvMsg(&frame); err != nil {
		return nil, err
	}
	return protocol.Decode(frame)
}

func (c *grpcChannel) Send(msg *protocol.Message) error {
	if c.closed() {
		return utils.ErrClosed
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.stream.SendMsg(msg); err != nil {
		if c.closed() {
			return utils.ErrClosed
		}
		return fmt.Errorf("grpc write: %w", err)
	}
	return nil
}

func (c *grpcChannel) Close() error {
	if c.shutdown() && c.release != nil {
		c.release()
	}
	return nil
}
