package sockjs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *echoTestSession) {
	sess := &echoTestSession{}
	h := NewHandler("/echo", func(sid string) Session { return sess },
		WithHeartbeatInterval(200*time.Millisecond),
	)
	return h, sess
}

// TestXHRPollingOpen covers end-to-end scenario 1: the first poll opens
// the session and returns "o\n".
func TestXHRPollingOpen(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	req := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o\n", rec.Body.String())
}

// TestXHRPollingSecondAttemptWhileAttached covers the "Another connection
// still open" half of scenario 1, driven directly at the Manager since
// this repo's one-shot XHR poll resolves synchronously and can't be kept
// "in flight" from the HTTP layer alone.
func TestXHRPollingSecondAttemptWhileAttached(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	_, _, err := h.manager.Acquire("abc")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c[2010,\"Another connection still open\"]\n", rec.Body.String())
}

// TestXHRSendThenPollEchoesFrame covers scenario 2's XHR half: sending a
// message and observing it echoed back on the next poll.
func TestXHRSendThenPollEchoesFrame(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	open := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr", nil)
	openRec := httptest.NewRecorder()
	h.ServeHTTP(openRec, open)
	require.Equal(t, "o\n", openRec.Body.String())

	send := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr_send", strings.NewReader(`["hello"]`))
	sendRec := httptest.NewRecorder()
	h.ServeHTTP(sendRec, send)
	assert.Equal(t, http.StatusNoContent, sendRec.Code)

	poll := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr", nil)
	pollRec := httptest.NewRecorder()
	h.ServeHTTP(pollRec, poll)
	assert.Equal(t, `a["hello"]`+"\n", pollRec.Body.String())
}

func TestXHRSendInvalidBody(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	open := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr", nil)
	h.ServeHTTP(httptest.NewRecorder(), open)

	send := httptest.NewRequest(http.MethodPost, "/echo/000/abc/xhr_send", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, send)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Payload expected.", rec.Body.String())
}

func TestXHRSendUnknownSession(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	send := httptest.NewRequest(http.MethodPost, "/echo/000/nosuchsid/xhr_send", strings.NewReader(`["hi"]`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, send)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestHTMLFileCallbackValidation covers scenario 5.
func TestHTMLFileCallbackValidation(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	t.Run("missing callback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/echo/000/abc/htmlfile", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, `"callback" parameter required`, rec.Body.String())
	})

	t.Run("invalid callback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/echo/000/abc/htmlfile?c=bad%20name", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, `invalid "callback" parameter`, rec.Body.String())
	})
}

func TestJSONPPollAndSend(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	open := httptest.NewRequest(http.MethodGet, "/echo/000/abc/jsonp?c=cb", nil)
	openRec := httptest.NewRecorder()
	h.ServeHTTP(openRec, open)
	assert.Equal(t, "cb(\"o\");\r\n", openRec.Body.String())

	send := httptest.NewRequest(http.MethodPost, "/echo/000/abc/jsonp_send", strings.NewReader(`["hi"]`))
	send.Header.Set("Content-Type", "application/json")
	sendRec := httptest.NewRecorder()
	h.ServeHTTP(sendRec, send)
	assert.Equal(t, http.StatusOK, sendRec.Code)
	assert.Equal(t, "ok", sendRec.Body.String())

	poll := httptest.NewRequest(http.MethodGet, "/echo/000/abc/jsonp?c=cb", nil)
	pollRec := httptest.NewRecorder()
	h.ServeHTTP(pollRec, poll)
	assert.Equal(t, `cb("a[\"hi\"]");`+"\r\n", pollRec.Body.String())
}

func TestJSONPMissingCallback(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	req := httptest.NewRequest(http.MethodGet, "/echo/000/abc/jsonp", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGreetingAndInfo(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	greet := httptest.NewRequest(http.MethodGet, "/echo", nil)
	greetRec := httptest.NewRecorder()
	h.ServeHTTP(greetRec, greet)
	assert.Equal(t, "Welcome to SockJS!\n", greetRec.Body.String())

	info := httptest.NewRequest(http.MethodGet, "/echo/info", nil)
	infoRec := httptest.NewRecorder()
	h.ServeHTTP(infoRec, info)
	assert.Equal(t, http.StatusOK, infoRec.Code)
	assert.Contains(t, infoRec.Body.String(), `"websocket":true`)
}

func TestIframeServesAndCaches(t *testing.T) {
	h, _ := newTestHandler()
	defer h.Close()

	req := httptest.NewRequest(http.MethodGet, "/echo/iframe.html", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req2 := httptest.NewRequest(http.MethodGet, "/echo/iframe.html", nil)
	req2.Header.Set("If-None-Match", etag)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusNotModified, rec2.Code)
}

// TestIdleExpiryOpensFreshSession covers scenario 3: polling stops for
// longer than the idle timeout, and the next poll opens a brand new
// session rather than resuming the old one.
func TestIdleExpiryOpensFreshSession(t *testing.T) {
	sess := &echoTestSession{}
	h := NewHandler("/echo", func(sid string) Session { return sess },
		WithIdleTimeout(20*time.Millisecond),
		WithSweepInterval(10*time.Millisecond),
	)
	defer h.Close()

	first := httptest.NewRequest(http.MethodPost, "/echo/000/xyz/xhr", nil)
	firstRec := httptest.NewRecorder()
	h.ServeHTTP(firstRec, first)
	require.Equal(t, "o\n", firstRec.Body.String())
	require.Eventually(t, func() bool { return sess.openCount() == 1 }, time.Second, time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	second := httptest.NewRequest(http.MethodPost, "/echo/000/xyz/xhr", nil)
	secondRec := httptest.NewRecorder()
	h.ServeHTTP(secondRec, second)
	assert.Equal(t, "o\n", secondRec.Body.String())
	require.Eventually(t, func() bool { return sess.openCount() == 2 }, time.Second, time.Millisecond)
}
