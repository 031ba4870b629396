package sockjs

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// deadlineNow is a short, fixed write deadline for WS control frames
// (close/ping), long enough for a local write to flush without
// leaving a stuck connection open indefinitely on a dead peer.
func deadlineNow() time.Time {
	return time.Now().Add(2 * time.Second)
}

// wsUpgrader is shared by both WebSocket transports. CORS for the
// upgrade handshake is handled at the application layer (gorilla's
// default CheckOrigin is permissive here since spec.md treats CORS
// composition as an external collaborator); origins are restricted by
// wrapping Handler in middleware if a host needs that.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsReadLoop reads inbound frames off conn until it errors or closes,
// dispatching them through dispatch, and closes clientGone exactly
// once when the loop exits. Modeled on the read-pump half of the
// gorilla/websocket hub pattern used throughout the retrieval pack
// (e.g. the streamspace websocket hub), split from the write side so
// a single goroutine owns all writes to conn (required — gorilla
// connections aren't safe for concurrent writers).
func wsReadLoop(conn *websocket.Conn, clientGone chan<- struct{}, dispatch func(messageType int, data []byte)) {
	defer close(clientGone)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		dispatch(mt, data)
	}
}
