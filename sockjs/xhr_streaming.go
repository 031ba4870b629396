package sockjs

import (
	"bufio"
	"net/http"
)

const streamingPreludeBytes = 2048

// xhrStreamingTransport keeps a POST response open, writing one line
// frame at a time until the cumulative byte cap is hit or a Close
// frame is sent. Grounded on spec.md 4.3's XHR-streaming row and the
// teacher's flush-after-write discipline (its receiver implementations
// always flush immediately, since buffered HTTP writers otherwise
// starve long-poll clients).
type xhrStreamingTransport struct {
	baseTransport
	w       *bufio.Writer
	flusher http.Flusher
	size    int
	maxsize int
}

func (t *xhrStreamingTransport) write(s string) {
	t.w.WriteString(s) //nolint:errcheck
	t.w.Flush()        //nolint:errcheck
	if t.flusher != nil {
		t.flusher.Flush()
	}
	t.size += len(s)
}

func (t *xhrStreamingTransport) send(f Frame, rec *Record) SendResult {
	t.write(encodeLineFrame(f, rec))
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

func (t *xhrStreamingTransport) sendHeartbeat() SendResult {
	t.write("h\n")
	if t.size > t.maxsize {
		return SendStop
	}
	return SendContinue
}

func (t *xhrStreamingTransport) sendClose(code CloseCode) {
	t.write(closeFrameText(code) + "\n")
}

// handleXHRStreaming serves POST {prefix}/{server}/{session}/xhr_streaming.
func (h *Handler) handleXHRStreaming(w http.ResponseWriter, r *http.Request, sid string) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, POST")
		applyCacheForever(w)
		applyCORS(w, r)
		applySessionCookie(w, r, h.opts.JSESSIONID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	applyNoCache(w)
	applyCORS(w, r)
	applySessionCookie(w, r, h.opts.JSESSIONID)
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriter(w)
	prelude := make([]byte, streamingPreludeBytes)
	for i := range prelude {
		prelude[i] = 'h'
	}
	prelude[streamingPreludeBytes-1] = '\n'
	bw.Write(prelude) //nolint:errcheck
	bw.Flush()        //nolint:errcheck
	if flusher != nil {
		flusher.Flush()
	}

	tr := &xhrStreamingTransport{w: bw, flusher: flusher, maxsize: h.opts.MaxResponseBytes}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}
	runStreaming(h.manager, tr, res.outbound, h.opts.HeartbeatInterval, r.Context().Done())
}
