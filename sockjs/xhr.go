package sockjs

import "net/http"

// xhrTransport implements XHR-polling: one JSON line per response,
// always one-shot. Grounded on original_source/src/transports/xhr.rs.
type xhrTransport struct {
	baseTransport
	w http.ResponseWriter
}

func (t *xhrTransport) send(f Frame, rec *Record) SendResult {
	t.w.Write([]byte(encodeLineFrame(f, rec))) //nolint:errcheck
	return SendStop
}

func (t *xhrTransport) sendHeartbeat() SendResult {
	t.w.Write([]byte("h\n")) //nolint:errcheck
	return SendStop
}

func (t *xhrTransport) sendClose(code CloseCode) {
	t.w.Write([]byte(closeFrameText(code) + "\n")) //nolint:errcheck
}

// encodeLineFrame renders the newline-terminated line form shared by
// XHR-polling, XHR-streaming and EventSource (body only; EventSource
// wraps it in "data: ...\r\n\r\n" separately).
func encodeLineFrame(f Frame, rec *Record) string {
	switch v := f.(type) {
	case OpenFrame:
		return "o\n"
	case HeartbeatFrame:
		return "h\n"
	case MessageFrame:
		return messageFrameText(v.Payload) + "\n"
	case MessageVecFrame:
		return "a" + v.Encoded + "\n"
	case MessageBlobFrame:
		// Binary frames are unsupported outside the two WebSocket
		// transports; spec.md's open questions resolve this as an
		// internal-error close rather than the panic the Rust
		// original takes.
		if rec != nil {
			rec.MarkClosed()
		}
		return closeFrameText(CloseInternalError) + "\n"
	case CloseFrameType:
		if rec != nil {
			rec.MarkClosed()
		}
		return closeFrameText(v.Code) + "\n"
	default:
		return ""
	}
}

// handleXHR serves POST {prefix}/{server}/{session}/xhr.
func (h *Handler) handleXHR(w http.ResponseWriter, r *http.Request, sid string) {
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

	tr := &xhrTransport{w: w}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}
	runOneShot(h.manager, tr, res.outbound, h.opts.HeartbeatInterval, r.Context().Done())
}
