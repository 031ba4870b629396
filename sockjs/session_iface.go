package sockjs

// Session is the contract a hosting application implements per sid.
// The manager creates one via SessionFactory on first Acquire of an
// unknown sid and drives its three callbacks from the session
// context's actor loop: OnOpen once, OnMessage per inbound frame, and
// OnClose exactly once as the terminal event.
type Session interface {
	OnOpen(conn Conn)
	OnMessage(conn Conn, msg string)
	OnClose(conn Conn, reason CloseReason)
}

// SessionFactory builds the user Session handler for a newly seen sid.
type SessionFactory func(sid string) Session

// BinarySession is an optional extension a host implements alongside
// Session when it wants inbound binary frames from the raw WebSocket
// transport (spec.md 4.4: "raw WS may accept binary and forward as
// MessageBlob"). Every other transport rejects inbound binary outright,
// so this is never invoked from anywhere but rawwebsocket.go.
type BinarySession interface {
	OnBinaryMessage(conn Conn, data []byte)
}

// Conn is what user code holds onto to talk back to the client. It is
// valid for the lifetime of the session (Opened..Closed), independent
// of which transport is currently attached.
type Conn interface {
	// ID returns the session's sid.
	ID() string
	// Send enqueues a text message frame.
	Send(msg string) error
	// SendBytes enqueues a binary frame; only WebSocket transports can
	// deliver it, other transports drop it and send the client a
	// Close(InternalError) frame instead.
	SendBytes(data []byte) error
	// Close enqueues a close frame and idempotently moves the session
	// toward its terminal state. Further Send calls are no-ops.
	Close(code CloseCode) error
}

// CloseReason classifies why OnClose fired, independent of the wire
// CloseCode a transport may have already sent.
type CloseReason int

const (
	// CloseReasonNormal: Session.Close was called and delivered.
	CloseReasonNormal CloseReason = iota
	// CloseReasonInterrupted: a transport disconnected without a clean
	// close, and its record was released back to the registry in the
	// Interrupted state.
	CloseReasonInterrupted
	// CloseReasonExpired: the idle sweeper reaped a parked session.
	CloseReasonExpired
	// CloseReasonInternal: the registry or a session handler hit an
	// internal error (buffer overflow, recovered panic) and closed the
	// session unilaterally.
	CloseReasonInternal
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonNormal:
		return "normal"
	case CloseReasonInterrupted:
		return "interrupted"
	case CloseReasonExpired:
		return "expired"
	case CloseReasonInternal:
		return "internal"
	default:
		return "unknown"
	}
}
