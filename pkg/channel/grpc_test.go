package channel

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func grpcServer(t *testing.T, accept Acceptor) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	RegisterGrpcServer(server, accept)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func dialGrpc(t *testing.T, target string) Channel {
	t.Helper()

	// The context bounds the stream, not just the dial.
	ch, err := DialGrpc(context.Background(), target, nil)
	require.NoError(t, err)
	return ch
}

func TestGrpcRoundTrip(t *testing.T) {
	target := grpcServer(t, func(ctx context.Context, ch Channel) {
		for msg := range ch.Messages() {
			if msg.Type == protocol.Populate {
				for _, id := range msg.ProviderIds {
					ch.Send(protocol.NewAddWorker("w-"+id, id))
				}
				continue
			}
			ch.Send(msg)
		}
	})

	ch := dialGrpc(t, target)
	defer ch.Close()

	require.NoError(t, ch.Send(protocol.NewPopulate([]string{"a", "b"})))
	for _, id := range []string{"a", "b"} {
		msg := receive(t, ch)
		assert.Equal(t, protocol.AddWorker, msg.Type)
		assert.Equal(t, "w-"+id, msg.WorkerId)
		assert.Equal(t, id, msg.ProviderId)
	}

	require.NoError(t, ch.Send(protocol.NewBroadcast(json.RawMessage(`"hello"`))))
	msg := receive(t, ch)
	assert.Equal(t, protocol.Broadcast, msg.Type)
	assert.JSONEq(t, `"hello"`, string(msg.Payload))
}

func TestGrpcServerEndsStream(t *testing.T) {
	target := grpcServer(t, func(ctx context.Context, ch Channel) {
		ch.Send(protocol.NewStop())
	})

	ch := dialGrpc(t, target)
	defer ch.Close()

	assert.Equal(t, protocol.Stop, receive(t, ch).Type)
	expectClosed(t, ch)
}

func TestGrpcClientClose(t *testing.T) {
	received := make(chan []protocol.MessageType, 1)
	target := grpcServer(t, func(ctx context.Context, ch Channel) {
		var types []protocol.MessageType
		for msg := range ch.Messages() {
			types = append(types, msg.Type)
		}
		received <- types
	})

	ch := dialGrpc(t, target)
	require.NoError(t, ch.Send(protocol.NewBroadcast(json.RawMessage(`1`))))
	require.NoError(t, ch.Send(protocol.NewBroadcast(json.RawMessage(`2`))))
	require.NoError(t, ch.Send(protocol.NewKill()))
	require.NoError(t, ch.Close())

	// Close returns once the server has consumed the stream.
	select {
	case types := <-received:
		assert.Equal(t, []protocol.MessageType{protocol.Broadcast, protocol.Broadcast, protocol.Kill}, types)
	default:
		require.FailNow(t, "server side not closed when Close returned")
	}

	assert.ErrorIs(t, ch.Send(protocol.NewKill()), utils.ErrClosed)
	assert.NoError(t, ch.Close())
}

func TestGrpcMalformedFrame(t *testing.T) {
	target := grpcServer(t, func(ctx context.Context, ch Channel) {
		for range ch.Messages() {
		}
	})

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := conn.NewStream(ctx, &channelServiceDesc.Streams[0], connectFullName,
		grpc.CallContentSubtype(jsonCodecName))
	require.NoError(t, err)

	require.NoError(t, stream.SendMsg(json.RawMessage(`[99,"x"]`)))

	var frame json.RawMessage
	err = stream.RecvMsg(&frame)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGrpcCodec(t *testing.T) {
	codec := jsonCodec{}
	data, err := codec.Marshal(protocol.NewWorkerDead("w1", "gone"))
	require.NoError(t, err)
	assert.JSONEq(t, `[2,"w1","gone"]`, string(data))

	msg := &protocol.Message{}
	require.NoError(t, codec.Unmarshal(data, msg))
	assert.Equal(t, "gone", msg.Reason)
	assert.Equal(t, "json", codec.Name())
}
