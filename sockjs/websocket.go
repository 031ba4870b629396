package sockjs

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// websocketTransport is the SockJS WebSocket adaptor: same o/h/a[…]/
// c[n,"r"] text framing as the HTTP transports, carried over a single
// WS connection instead of repeated HTTP requests. Never stops on
// size — spec.md 4.3's transport table marks WS as "only on Close".
type websocketTransport struct {
	baseTransport
	conn *websocket.Conn
}

func (t *websocketTransport) send(f Frame, rec *Record) SendResult {
	switch v := f.(type) {
	case OpenFrame:
		t.writeText("o")
	case HeartbeatFrame:
		t.writeText("h")
	case MessageFrame:
		t.writeText(messageFrameText(v.Payload))
	case MessageVecFrame:
		t.writeText("a" + v.Encoded)
	case MessageBlobFrame:
		t.conn.WriteMessage(websocket.BinaryMessage, v.Data) //nolint:errcheck
		return SendContinue
	case CloseFrameType:
		if rec != nil {
			rec.MarkClosed()
		}
		t.writeText(closeFrameText(v.Code))
		t.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Go away!"), deadlineNow())
		return SendStop
	}
	return SendContinue
}

func (t *websocketTransport) writeText(s string) {
	t.conn.WriteMessage(websocket.TextMessage, []byte(s)) //nolint:errcheck
}

func (t *websocketTransport) sendHeartbeat() SendResult {
	t.writeText("h")
	return SendContinue
}

func (t *websocketTransport) sendClose(code CloseCode) {
	t.writeText(closeFrameText(code))
}

// handleWebsocket serves GET (Upgrade) {prefix}/{server}/{session}/websocket.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request, sid string) {
	if !h.opts.Websocket {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close() //nolint:errcheck

	tr := &websocketTransport{conn: conn}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}

	clientGone := make(chan struct{})
	go wsReadLoop(conn, clientGone, func(mt int, data []byte) {
		if mt == websocket.BinaryMessage {
			return // binary is rejected on the SockJS-framed WS transport
		}
		if len(data) == 0 {
			return
		}
		var msgs []string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return
		}
		for _, m := range msgs {
			_ = h.manager.SessionMessage(sid, m)
		}
	})

	runStreaming(h.manager, tr, res.outbound, h.opts.WebsocketHeartbeat, clientGone)
}
