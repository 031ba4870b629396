package sockjs

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler is the HTTP entry point (component F): it owns a Manager and
// routes the URL surface from spec.md 6 to the right transport
// adaptor. It implements http.Handler so a host mounts it directly, or
// under a gorilla/mux PathPrefix the way real SockJS servers do.
type Handler struct {
	manager *Manager
	opts    Options
	router  *mux.Router
}

// NewHandler builds a Handler bound to prefix (e.g. "/echo"), spawning
// a Session per sid via factory.
func NewHandler(prefix string, factory SessionFactory, opts ...Option) *Handler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	h := &Handler{
		manager: newManagerWithOptions(factory, o),
		opts:    o,
	}
	h.router = h.buildRouter(prefix)
	return h
}

func (h *Handler) buildRouter(prefix string) *mux.Router {
	r := mux.NewRouter()
	sub := r.PathPrefix(prefix).Subrouter()

	sub.HandleFunc("", h.serveGreeting).Methods(http.MethodGet)
	sub.HandleFunc("/", h.serveGreeting).Methods(http.MethodGet)
	sub.HandleFunc("/info", h.serveInfo).Methods(http.MethodGet, http.MethodOptions)
	sub.HandleFunc("/iframe.html", h.serveIframe).Methods(http.MethodGet)
	sub.MatcherFunc(iframeVariantMatcher).HandlerFunc(h.serveIframe).Methods(http.MethodGet)

	sess := sub.PathPrefix("/{server:[^./]+}/{session:[^./]+}").Subrouter()
	sess.HandleFunc("/websocket", h.session(h.handleWebsocket))
	sess.HandleFunc("/xhr", h.session(h.handleXHR)).Methods(http.MethodPost, http.MethodOptions)
	sess.HandleFunc("/xhr_send", h.session(h.handleXHRSend)).Methods(http.MethodPost, http.MethodOptions)
	sess.HandleFunc("/xhr_streaming", h.session(h.handleXHRStreaming)).Methods(http.MethodPost, http.MethodOptions)
	sess.HandleFunc("/eventsource", h.session(h.handleEventSource)).Methods(http.MethodGet)
	sess.HandleFunc("/htmlfile", h.session(h.handleHTMLFile)).Methods(http.MethodGet)
	sess.HandleFunc("/jsonp", h.session(h.handleJSONP)).Methods(http.MethodGet)
	sess.HandleFunc("/jsonp_send", h.session(h.handleJSONPSend)).Methods(http.MethodPost)

	sub.HandleFunc("/websocket", h.handleRawWebsocketRoute)

	return r
}

// iframeVariantMatcher accepts the /iframe[0-9-.a-z_]*.html family
// spec.md 6 names (cache-busted client URLs like iframe-1.2.3.html).
func iframeVariantMatcher(r *http.Request, _ *mux.RouteMatch) bool {
	return iframeVariantRE.MatchString(r.URL.Path)
}

// session adapts a (w, r, sid) transport handler into an http.HandlerFunc,
// pulling {session} out of the mux vars.
func (h *Handler) session(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		fn(w, r, vars["session"])
	}
}

func (h *Handler) handleRawWebsocketRoute(w http.ResponseWriter, r *http.Request) {
	h.handleRawWebsocket(w, r, uuid.NewString())
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Manager exposes the underlying registry, e.g. for a host that wants
// to call Broadcast directly.
func (h *Handler) Manager() *Manager { return h.manager }

// Close stops the handler's registry sweeper.
func (h *Handler) Close() { h.manager.Close() }
