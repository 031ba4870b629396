package sockjs

import (
	"encoding/json"
	"strconv"
)

// Frame is the unit of session-layer communication between user code
// and the wire. Every concrete frame type implements frame so the
// set is closed to the six variants named in the spec.
type Frame interface {
	frame()
}

// OpenFrame signals that a session has opened.
type OpenFrame struct{}

func (OpenFrame) frame() {}

// HeartbeatFrame is a keep-alive with no payload.
type HeartbeatFrame struct{}

func (HeartbeatFrame) frame() {}

// MessageFrame carries a single UTF-8 payload from user code.
type MessageFrame struct {
	Payload string
}

func (MessageFrame) frame() {}

// MessageVecFrame carries an already-JSON-encoded batch, e.g. the
// `["a","b"]` body of an xhr_send request replayed verbatim instead
// of being re-encoded message by message.
type MessageVecFrame struct {
	Encoded string // JSON array literal, without the leading "a"
}

func (MessageVecFrame) frame() {}

// MessageBlobFrame carries binary data. Only the two WebSocket
// transports can deliver it; other transports reject it.
type MessageBlobFrame struct {
	Data []byte
}

func (MessageBlobFrame) frame() {}

// CloseFrameType carries a terminal close code and reason.
type CloseFrameType struct {
	Code CloseCode
}

func (CloseFrameType) frame() {}

// CloseCode names a SockJS close code/reason pair.
type CloseCode struct {
	Code   uint32
	Reason string
}

// Named close codes from the SockJS protocol plus the registry's own
// internal conditions.
var (
	CloseNormal                     = CloseCode{3000, "Go away!"}
	CloseGoAway                     = CloseCode{3000, "Go away!"}
	CloseInterrupted                = CloseCode{1002, "Connection interrupted"}
	CloseInternalError              = CloseCode{1011, "Internal error"}
	CloseAnotherConnectionStillOpen = CloseCode{2010, "Another connection still open"}
)

// NewCloseCode builds a user-supplied close code for Session.Close.
func NewCloseCode(code uint32, reason string) CloseCode {
	return CloseCode{Code: code, Reason: reason}
}

// closeFrameText renders the wire form shared by every HTTP transport:
// c[<num>,"<reason>"]
func closeFrameText(code CloseCode) string {
	b, _ := json.Marshal(code.Reason)
	return "c[" + strconv.FormatUint(uint64(code.Code), 10) + "," + string(b) + "]"
}

// messageFrameText renders a["<payload>"].
func messageFrameText(payload string) string {
	b, _ := json.Marshal(payload)
	return "a[" + string(b) + "]"
}
