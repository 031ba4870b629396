package sockjs

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"net/http"
)

type infoResponse struct {
	Websocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      int64    `json:"entropy"`
}

// entropy produces the random seed SockJS clients use to pick a server
// id; crypto/rand rather than math/rand, matching the pack's
// preference (google/uuid) for crypto-backed randomness over the
// weaker PRNG the Rust original reaches for via `rand::random`.
func entropy() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf[:]) & 0x7fffffffffffffff)
}

func (h *Handler) serveGreeting(w http.ResponseWriter, r *http.Request) {
	applyNoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Welcome to SockJS!\n"))
}

func (h *Handler) serveInfo(w http.ResponseWriter, r *http.Request) {
	applyNoCache(w)
	applyCORS(w, r)

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp := infoResponse{
		Websocket:    h.opts.Websocket,
		CookieNeeded: h.opts.JSESSIONID,
		Origins:      []string{"*:*"},
		Entropy:      entropy(),
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
