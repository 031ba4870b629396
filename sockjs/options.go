package sockjs

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a Manager/Handler pair. Ambient defaults mirror
// the SockJS protocol's own published defaults (1.2ms htmlfile flush
// delay, 128 KiB streaming cap, 5s/25s heartbeats) rather than
// anything the teacher hard-codes, since the teacher takes these as
// constructor arguments too.
type Options struct {
	// IdleTimeout is how long a parked (no transport attached) session
	// survives before the sweeper reaps it. spec.md flags the 10s
	// default as intentionally tight; kept configurable here.
	IdleTimeout time.Duration
	// SweepInterval is how often the registry scans for expired
	// sessions.
	SweepInterval time.Duration

	// HeartbeatInterval governs the HTTP streaming transports
	// (XHR-streaming, EventSource, HTMLFile) and is how long a one-shot
	// XHR/JSONP poll waits before answering with a heartbeat. The two WS
	// transports use WebsocketHeartbeat instead, a longer cadence per
	// spec.md 4.3.
	HeartbeatInterval  time.Duration
	WebsocketHeartbeat time.Duration
	HTMLFileInitDelay  time.Duration
	MaxResponseBytes   int
	OutboundBufferSize int
	MaxBufferedFrames  int // 0 = unbounded
	Websocket          bool
	JSESSIONID         bool
	ClientURL          string
	Logger             *zap.Logger
}

func defaultOptions() Options {
	return Options{
		IdleTimeout:        10 * time.Second,
		SweepInterval:      10 * time.Second,
		HeartbeatInterval:  5 * time.Second,
		WebsocketHeartbeat: 25 * time.Second,
		HTMLFileInitDelay:  1200 * time.Microsecond,
		MaxResponseBytes:   128 * 1024,
		OutboundBufferSize: 256,
		MaxBufferedFrames:  0,
		Websocket:          true,
		JSESSIONID:         false,
		ClientURL:          "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js",
		Logger:             zap.NewNop(),
	}
}

// Option mutates Options; functional-options style grounded on the
// option patterns used across the retrieval pack's library packages
// (e.g. go.uber.org/zap's own zap.Option).
type Option func(*Options)

func WithIdleTimeout(d time.Duration) Option {
	return func(o *Options) { o.IdleTimeout = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(o *Options) { o.SweepInterval = d }
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *Options) { o.HeartbeatInterval = d }
}

func WithWebsocketHeartbeat(d time.Duration) Option {
	return func(o *Options) { o.WebsocketHeartbeat = d }
}

func WithMaxResponseBytes(n int) Option {
	return func(o *Options) { o.MaxResponseBytes = n }
}

func WithMaxBufferedFrames(n int) Option {
	return func(o *Options) { o.MaxBufferedFrames = n }
}

func WithWebsocket(enabled bool) Option {
	return func(o *Options) { o.Websocket = enabled }
}

func WithJSESSIONID(enabled bool) Option {
	return func(o *Options) { o.JSESSIONID = enabled }
}

func WithClientURL(url string) Option {
	return func(o *Options) { o.ClientURL = url }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
