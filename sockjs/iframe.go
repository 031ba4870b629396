package sockjs

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
)

// iframeVariantRE matches the cache-busted iframe URL family SockJS
// clients request, e.g. /iframe-1.2.3.html or /iframe0.html.
var iframeVariantRE = regexp.MustCompile(`/iframe[0-9\-.a-z_]*\.html$`)

const iframeTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  <script src="%s"></script>
  <script>
    document.domain = document.domain;
    SockJS.bootstrap_iframe();
  </script>
</head>
<body>
  <h2>Don't panic!</h2>
  <p>This is a SockJS hidden iframe. It's used for cross-domain magic.</p>
</body>
</html>`

func (h *Handler) iframeBody() string {
	return fmt.Sprintf(iframeTemplate, h.opts.ClientURL)
}

func (h *Handler) iframeETag() string {
	sum := md5.Sum([]byte(h.iframeBody()))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (h *Handler) serveIframe(w http.ResponseWriter, r *http.Request) {
	etag := h.iframeETag()
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	applyCacheForever(w)
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.iframeBody()))
}
