package voskws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/wavscribe/provider"
	"github.com/kbukum/wavscribe/recognizer"
)

// frame is one outgoing websocket message.
type frame struct {
	binary bool
	data   []byte
}

func audioFrame(chunk []byte) frame { return frame{binary: true, data: chunk} }

func controlFrame(v any) (frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return frame{}, err
	}
	return frame{data: data}, nil
}

// reply is one message from the server. Text is set when the server closed
// an utterance; Partial while it is still open.
type reply struct {
	Text    *string           `json:"text"`
	Partial *string           `json:"partial"`
	Words   []recognizer.Word `json:"result"`
}

func (r reply) boundary() bool { return r.Text != nil }

func (r reply) result(final bool) recognizer.Result {
	var text string
	if r.Text != nil {
		text = *r.Text
	}
	return recognizer.Result{Text: text, Words: r.Words, Final: final}
}

// conn adapts a websocket connection to a provider.DuplexStream of frames
// and decoded replies.
type conn struct {
	ws          *websocket.Conn
	readTimeout time.Duration
	closed      bool
}

var _ provider.DuplexStream[frame, reply] = (*conn)(nil)

func newConn(ws *websocket.Conn, readTimeout time.Duration) *conn {
	return &conn{ws: ws, readTimeout: readTimeout}
}

// Send writes f as a binary or text message.
func (c *conn) Send(f frame) error {
	mt := websocket.TextMessage
	if f.binary {
		mt = websocket.BinaryMessage
	}
	return c.ws.WriteMessage(mt, f.data)
}

// Recv reads and decodes the next reply, waiting at most readTimeout.
func (c *conn) Recv() (reply, error) {
	if c.readTimeout > 0 {
		if err := c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return reply{}, err
		}
	}
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return reply{}, err
	}
	if mt != websocket.TextMessage {
		return reply{}, fmt.Errorf("unexpected websocket message type %d", mt)
	}
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return reply{}, fmt.Errorf("decode server reply: %w", err)
	}
	return r, nil
}

// Close sends a normal closure and closes the connection. Calling Close
// more than once is a no-op.
func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
