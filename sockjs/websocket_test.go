package sockjs

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// TestSockJSWebsocketEchoRoundTrip covers the SockJS-framed WS transport:
// Open frame on connect, then a JSON-array text frame split into one
// SessionMessage per element and echoed back framed as a[...].
func TestSockJSWebsocketEchoRoundTrip(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWS(t, srv, "/echo/000/abc/websocket")

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "o", string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["hello"]`)))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `a["hello"]`, string(msg))
}

// TestSockJSWebsocketClose covers end-to-end scenario 6: after the
// handler calls Close, the client observes a WS close frame with the
// SockJS-mandated code/reason, and a reacquire of the same sid within
// the idle window gets Close(GoAway) immediately.
func TestSockJSWebsocketClose(t *testing.T) {
	sess := &closingSession{}
	h := NewHandler("/echo", func(sid string) Session { return sess },
		WithHeartbeatInterval(200*time.Millisecond),
	)
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWS(t, srv, "/echo/000/abc/websocket")

	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["bye"]`)))

	closeCode := -1
	conn.SetCloseHandler(func(code int, text string) error {
		closeCode = code
		return nil
	})
	for i := 0; i < 5; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, websocket.CloseNormalClosure, closeCode)

	require.Eventually(t, func() bool {
		rec, _, err := h.manager.Acquire("abc")
		if err != nil {
			return false
		}
		h.manager.Release(rec)
		return rec.State() == SessionClosed
	}, time.Second, time.Millisecond)
}

type closingSession struct{}

func (closingSession) OnOpen(conn Conn) {}

func (closingSession) OnMessage(conn Conn, msg string) {
	_ = conn.Close(CloseGoAway)
}

func (closingSession) OnClose(conn Conn, reason CloseReason) {}

// TestRawWebsocketEchoesWholeFrame covers the raw WS transport's
// whole-frame (no JSON-array split) inbound handling.
func TestRawWebsocketEchoesWholeFrame(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWS(t, srv, "/echo/websocket")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["a","b"]`)))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(msg))
}
