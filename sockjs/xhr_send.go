package sockjs

import (
	"encoding/json"
	"io"
	"net/http"
)

// parseSendBody implements spec.md 4.4's inbound parsing rule: the
// body must be a JSON array of strings; anything else is rejected.
func parseSendBody(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)
	var msgs []string
	if err := dec.Decode(&msgs); err != nil {
		return nil, ErrInvalidProtocol
	}
	return msgs, nil
}

func writeInvalidProtocol(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte("Payload expected."))
}

// handleXHRSend serves POST {prefix}/{server}/{session}/xhr_send.
func (h *Handler) handleXHRSend(w http.ResponseWriter, r *http.Request, sid string) {
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

	msgs, err := parseSendBody(r.Body)
	if err != nil {
		writeInvalidProtocol(w)
		return
	}

	if err := h.dispatchMessages(sid, msgs); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dispatchMessages(sid string, msgs []string) error {
	for _, m := range msgs {
		if err := h.manager.SessionMessage(sid, m); err != nil {
			return err
		}
	}
	return nil
}
