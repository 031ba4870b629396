package sockjs

import (
	"bufio"
	"encoding/json"
	"net/http"
	"regexp"
	"time"
)

var htmlfileCallbackRE = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

const htmlfilePrelude1 = `<!doctype html>
<html><head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head><body><h2>Don't panic!</h2>
  <script>
    document.domain = document.domain;
    var c = parent.`

const htmlfilePrelude2 = `;
    c.start();
    function p(d) {c.message(d);};
    window.onload = function() {c.stop();};
  </script>`

// htmlFileTransport renders each frame as an inline <script> call into
// the page's callback, per original_source/src/transports/htmlfile.rs.
type htmlFileTransport struct {
	baseTransport
	w       *bufio.Writer
	flusher http.Flusher
	size    int
	maxsize int
}

func (t *htmlFileTransport) write(payload string) {
	b, _ := json.Marshal(payload)
	t.size += len(b) + 25
	t.w.WriteString("<script>\np(") //nolint:errcheck
	t.w.Write(b)                    //nolint:errcheck
	t.w.WriteString(");\n</script>\r\n")
	t.w.Flush() //nolint:errcheck
	if t.flusher != nil {
		t.flusher.Flush()
	}
}

func (t *htmlFileTransport) send(f Frame, rec *Record) SendResult {
	switch v := f.(type) {
	case OpenFrame:
		t.write("o")
	case HeartbeatFrame:
		t.write("h")
	case MessageFrame:
		t.write(messageFrameText(v.Payload))
	case MessageVecFrame:
		t.write("a" + v.Encoded)
	case MessageBlobFrame:
		if rec != nil {
			rec.MarkClosed()
		}
		t.write(closeFrameText(CloseInternalError))
		return SendStop
	case CloseFrameType:
		if rec != nil {
			rec.MarkClosed()
		}
		t.write(closeFrameText(v.Code))
		return SendStop
	}
	if t.size > t.maxsize {
		return SendStop
	}
	return SendContinue
}

func (t *htmlFileTransport) sendHeartbeat() SendResult {
	t.write("h")
	if t.size > t.maxsize {
		return SendStop
	}
	return SendContinue
}

func (t *htmlFileTransport) sendClose(code CloseCode) {
	t.write(closeFrameText(code))
}

// handleHTMLFile serves GET {prefix}/{server}/{session}/htmlfile.
func (h *Handler) handleHTMLFile(w http.ResponseWriter, r *http.Request, sid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	callback := r.URL.Query().Get("c")
	if callback == "" {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`"callback" parameter required`))
		return
	}
	if !htmlfileCallbackRE.MatchString(callback) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`invalid "callback" parameter`))
		return
	}

	applyNoCache(w)
	applySessionCookie(w, r, h.opts.JSESSIONID)
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriter(w)
	bw.WriteString(htmlfilePrelude1) //nolint:errcheck
	bw.WriteString(callback)        //nolint:errcheck
	bw.WriteString(htmlfilePrelude2)
	padding := make([]byte, 1024)
	for i := range padding {
		padding[i] = ' '
	}
	bw.Write(padding) //nolint:errcheck
	bw.Flush()                   //nolint:errcheck
	if flusher != nil {
		flusher.Flush()
	}

	// SockJS clients need the prelude flushed to the browser before the
	// first frame script runs, so the initial acquire is deferred by a
	// fixed delay, matching htmlfile.rs's ctx.run_later(0, 1_200_000ns).
	time.Sleep(h.opts.HTMLFileInitDelay)

	tr := &htmlFileTransport{w: bw, flusher: flusher, maxsize: h.opts.MaxResponseBytes}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}
	runStreaming(h.manager, tr, res.outbound, h.opts.HeartbeatInterval, r.Context().Done())
}
