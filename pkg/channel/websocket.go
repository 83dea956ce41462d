package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
)

// Largest accepted websocket frame. Worker payloads are application data and
// may exceed the library default.
const websocketReadLimit = utils.DefaultMaxMessageSize

// Websocket is a channel carrying one JSON encoded message tuple per text
// frame.
type Websocket struct {
	*inbound
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebsocket(conn *websocket.Conn) *Websocket {
	conn.SetReadLimit(websocketReadLimit)

	ctx, cancel := context.WithCancel(context.Background())
	ws := &Websocket{
		inbound: newInbound(),
		conn:    conn,
		ctx:     ctx,
		cancel:  cancel,
	}

	go ws.pump(ws.read)
	return ws
}

// AcceptWebsocket upgrades an HTTP request to a websocket channel.
func AcceptWebsocket(w http.ResponseWriter, r *http.Request) (*Websocket, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocket(conn), nil
}

// DialWebsocket connects to a host's websocket endpoint, e.g.
// ws://localhost:8080/workforce.
func DialWebsocket(ctx context.Context, url string) (*Websocket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return NewWebsocket(conn), nil
}

func (ws *Websocket) read() (*protocol.Message, error) {
	msg := &protocol.Message{}
	if err := wsjson.Read(ws.ctx, ws.conn, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (ws *Websocket) Send(msg *protocol.Message) error {
	if ws.closed() {
		return utils.ErrClosed
	}

	if err := wsjson.Write(ws.ctx, ws.conn, msg); err != nil {
		if ws.closed() {
			return utils.ErrClosed
		}
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (ws *Websocket) Close() error {
	defer ws.cancel()

	if !ws.shutdown() {
		return nil
	}
	return ws.conn.Close(websocket.StatusNormalClosure, "closing")
}
