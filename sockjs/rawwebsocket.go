package sockjs

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// rawWebsocketTransport carries bare frames with no SockJS envelope:
// Open is suppressed, Close sends a real WS close (code 3000, "Go
// away!"), and inbound text is forwarded whole rather than parsed as a
// JSON array. Grounded on
// original_source/src/transports/rawwebsocket.rs.
type rawWebsocketTransport struct {
	baseTransport
	conn *websocket.Conn
}

func (t *rawWebsocketTransport) send(f Frame, rec *Record) SendResult {
	switch v := f.(type) {
	case OpenFrame:
		// suppressed: raw WS has no SockJS framing at all
	case HeartbeatFrame:
		t.conn.WriteMessage(websocket.PingMessage, nil) //nolint:errcheck
	case MessageFrame:
		t.conn.WriteMessage(websocket.TextMessage, []byte(v.Payload)) //nolint:errcheck
	case MessageVecFrame:
		t.conn.WriteMessage(websocket.TextMessage, []byte(v.Encoded)) //nolint:errcheck
	case MessageBlobFrame:
		t.conn.WriteMessage(websocket.BinaryMessage, v.Data) //nolint:errcheck
	case CloseFrameType:
		if rec != nil {
			rec.MarkClosed()
		}
		t.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(int(CloseGoAway.Code), "Go away!"), deadlineNow())
		return SendStop
	}
	return SendContinue
}

func (t *rawWebsocketTransport) sendHeartbeat() SendResult {
	t.conn.WriteMessage(websocket.PingMessage, nil) //nolint:errcheck
	return SendContinue
}

func (t *rawWebsocketTransport) sendClose(code CloseCode) {
	t.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, code.Reason), deadlineNow())
}

// handleRawWebsocket serves GET (Upgrade) {prefix}/websocket, mounted
// outside any {server}/{session} segment per spec.md 6; the sid is synthesized
// since the client never chooses one for this transport.
func (h *Handler) handleRawWebsocket(w http.ResponseWriter, r *http.Request, sid string) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close() //nolint:errcheck

	tr := &rawWebsocketTransport{conn: conn}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}

	clientGone := make(chan struct{})
	go wsReadLoop(conn, clientGone, func(mt int, data []byte) {
		switch mt {
		case websocket.TextMessage:
			if len(data) == 0 {
				return
			}
			_ = h.manager.SessionMessage(sid, string(data))
		case websocket.BinaryMessage:
			_ = h.manager.SessionBinaryMessage(sid, data)
		}
	})

	runStreaming(h.manager, tr, res.outbound, h.opts.WebsocketHeartbeat, clientGone)
}
