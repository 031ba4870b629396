package sockjs

import (
	"bufio"
	"net/http"
)

// eventSourceTransport frames each line as an SSE data event instead
// of a bare line, reusing the same encodeLineFrame bodies as XHR.
type eventSourceTransport struct {
	baseTransport
	w       *bufio.Writer
	flusher http.Flusher
	size    int
	maxsize int
}

func (t *eventSourceTransport) write(s string) {
	t.w.WriteString("data: ") //nolint:errcheck
	t.w.WriteString(s)        //nolint:errcheck
	t.w.WriteString("\r\n\r\n")
	t.w.Flush() //nolint:errcheck
	if t.flusher != nil {
		t.flusher.Flush()
	}
	t.size += len(s)
}

func (t *eventSourceTransport) send(f Frame, rec *Record) SendResult {
	body := encodeLineFrame(f, rec)
	if len(body) > 0 && body[len(body)-1] == '\n' {
		body = body[:len(body)-1]
	}
	t.write(body)
	if _, closing := f.(CloseFrameType); closing {
		return SendStop
	}
	if _, blob := f.(MessageBlobFrame); blob {
		return SendStop
	}
	if t.size > t.maxsize {
		return SendStop
	}
	return SendContinue
}

func (t *eventSourceTransport) sendHeartbeat() SendResult {
	t.write("h")
	if t.size > t.maxsize {
		return SendStop
	}
	return SendContinue
}

func (t *eventSourceTransport) sendClose(code CloseCode) {
	t.write(closeFrameText(code))
}

// handleEventSource serves GET {prefix}/{server}/{session}/eventsource.
func (h *Handler) handleEventSource(w http.ResponseWriter, r *http.Request, sid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	applyNoCache(w)
	applyCORS(w, r)
	applySessionCookie(w, r, h.opts.JSESSIONID)
	w.Header().Set("Content-Type", "text/event-stream; charset=UTF-8")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriter(w)
	bw.WriteString("\r\n") //nolint:errcheck
	bw.Flush()             //nolint:errcheck
	if flusher != nil {
		flusher.Flush()
	}

	tr := &eventSourceTransport{w: bw, flusher: flusher, maxsize: h.opts.MaxResponseBytes}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}
	runStreaming(h.manager, tr, res.outbound, h.opts.HeartbeatInterval, r.Context().Done())
}
