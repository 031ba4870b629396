package sockjs

import "net/http"

// applyNoCache sets the Cache-Control header used on every dynamic
// (non-iframe) endpoint, per spec.md 6.
func applyNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
}

// applyCacheForever sets the long-lived Cache-Control the iframe
// response uses, since its body is addressed by ETag and never
// changes for a given server instance.
func applyCacheForever(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=31536000")
}

// applyCORS echoes the request's Origin (or "*" when absent) and sets
// Allow-Credentials only when an Origin was actually present, per
// spec.md 6.
func applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}

// applySessionCookie sets JSESSIONID when the host has opted in
// (Options.JSESSIONID), echoing the client's existing cookie or
// falling back to "dummy" per the SockJS protocol.
func applySessionCookie(w http.ResponseWriter, r *http.Request, enabled bool) {
	if !enabled {
		return
	}
	value := "dummy"
	if c, err := r.Cookie("JSESSIONID"); err == nil && c.Value != "" {
		value = c.Value
	}
	http.SetCookie(w, &http.Cookie{
		Name:  "JSESSIONID",
		Value: value,
		Path:  "/",
	})
}
