package sockjs

import (
	"encoding/json"
	"net/http"
	"regexp"
)

var jsonpCallbackRE = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// jsonpTransport is a one-shot GET poll wrapping the frame body in a
// callback invocation.
type jsonpTransport struct {
	baseTransport
	w        http.ResponseWriter
	callback string
}

func (t *jsonpTransport) write(payload string) {
	b, _ := json.Marshal(payload)
	t.w.Write([]byte(t.callback + "(" + string(b) + ");\r\n")) //nolint:errcheck
}

func (t *jsonpTransport) send(f Frame, rec *Record) SendResult {
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
	case CloseFrameType:
		if rec != nil {
			rec.MarkClosed()
		}
		t.write(closeFrameText(v.Code))
	}
	return SendStop
}

func (t *jsonpTransport) sendHeartbeat() SendResult {
	t.write("h")
	return SendStop
}

func (t *jsonpTransport) sendClose(code CloseCode) {
	t.write(closeFrameText(code))
}

// handleJSONP serves GET {prefix}/{server}/{session}/jsonp.
func (h *Handler) handleJSONP(w http.ResponseWriter, r *http.Request, sid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	callback := r.URL.Query().Get("c")
	if callback == "" || !jsonpCallbackRE.MatchString(callback) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`"callback" parameter required`))
		return
	}

	applyNoCache(w)
	applyCORS(w, r)
	applySessionCookie(w, r, h.opts.JSESSIONID)
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	w.WriteHeader(http.StatusOK)

	tr := &jsonpTransport{w: w, callback: callback}
	res := acquireAndReplay(h.manager, sid, tr)
	if res.done {
		return
	}
	runOneShot(h.manager, tr, res.outbound, h.opts.HeartbeatInterval, r.Context().Done())
}

// handleJSONPSend serves POST {prefix}/{server}/{session}/jsonp_send,
// the inbound companion for JSONP polling.
func (h *Handler) handleJSONPSend(w http.ResponseWriter, r *http.Request, sid string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	applyNoCache(w)
	applyCORS(w, r)
	applySessionCookie(w, r, h.opts.JSESSIONID)

	var msgs []string
	ct := r.Header.Get("Content-Type")
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			writeInvalidProtocol(w)
			return
		}
		body := r.PostFormValue("d")
		if body == "" {
			writeInvalidProtocol(w)
			return
		}
		if err := json.Unmarshal([]byte(body), &msgs); err != nil {
			writeInvalidProtocol(w)
			return
		}
	} else {
		var err error
		msgs, err = parseSendBody(r.Body)
		if err != nil {
			writeInvalidProtocol(w)
			return
		}
	}

	if err := h.dispatchMessages(sid, msgs); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
