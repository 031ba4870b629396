package sockjs

import (
	"sync"

	"go.uber.org/zap"
)

// contextEvent is the session context's input channel, matching the
// variants named in spec.md 4.2: Opened, Acquired, Released, Closed
// and ServerMessage.
type contextEvent interface {
	contextEvent()
}

type evtOpened struct{}

func (evtOpened) contextEvent() {}

type evtAcquired struct {
	outbound chan<- Frame
}

func (evtAcquired) contextEvent() {}

type evtReleased struct{}

func (evtReleased) contextEvent() {}

type evtClosed struct {
	reason CloseReason
}

func (evtClosed) contextEvent() {}

type evtServerMessage struct {
	msg string
}

func (evtServerMessage) contextEvent() {}

type evtServerBinary struct {
	data []byte
}

func (evtServerBinary) contextEvent() {}

// session is the per-sid session context (component B), adapted from
// the teacher's mutex-guarded session struct. It owns the user's
// Session implementation and runs a small actor loop that serializes
// OnOpen/OnMessage/OnClose, even though the registry and whichever
// transport is attached each run on their own goroutines and feed its
// inbox concurrently.
//
// Outbound frames (Send/Close) are routed directly: while a transport
// is attached, they go straight onto its outbound channel; while
// detached, they accumulate in pending and are flushed, in order, the
// moment a transport reattaches. This is distinct from Record.buffer,
// which the registry uses only for Broadcast frames delivered while
// detached (see manager.go) — ordering between the two sources is
// deliberately left unspecified, matching spec.md 5.
type session struct {
	id string

	user Session
	log  *zap.Logger

	// maxBuffered caps how many frames may pile up in pending while no
	// transport is attached; 0 means unbounded. Mirrors the cap Manager
	// enforces on Record.buffer for the Broadcast path (manager.go).
	maxBuffered int

	inbox chan contextEvent
	done  chan struct{}

	mu              sync.Mutex
	outbound        chan<- Frame
	pending         []Frame
	closed          bool
	closedDelivered bool
}

func newSession(id string, user Session, maxBuffered int, log *zap.Logger) *session {
	s := &session{
		id:          id,
		user:        user,
		log:         log,
		maxBuffered: maxBuffered,
		inbox:       make(chan contextEvent, 16),
		done:        make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *session) run() {
	defer close(s.done)
	for ev := range s.inbox {
		s.dispatch(ev)
	}
}

// dispatch runs a single event through the user's Session callbacks,
// recovering a panic so one broken handler can't take the whole
// process down: per the Internal row of spec.md's error table, a
// panicking handler closes the session with Close(InternalError)
// instead.
func (s *session) dispatch(ev contextEvent) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("session handler panicked",
					zap.String("sid", s.id), zap.Any("panic", r))
			}
			s.handlerPanicked()
		}
	}()

	switch e := ev.(type) {
	case evtOpened:
		s.user.OnOpen(s)
	case evtAcquired:
		s.onAcquired(e.outbound)
	case evtReleased:
		s.onReleased()
	case evtServerMessage:
		s.user.OnMessage(s, e.msg)
	case evtServerBinary:
		if bs, ok := s.user.(BinarySession); ok {
			bs.OnBinaryMessage(s, e.data)
		}
	case evtClosed:
		s.mu.Lock()
		already := s.closedDelivered
		s.closedDelivered = true
		s.closed = true
		s.mu.Unlock()
		if !already {
			s.user.OnClose(s, e.reason)
		}
	}
}

// handlerPanicked queues an internal-error close frame for whichever
// transport is (or next gets) attached, and marks the session closed
// so no further Send/Close calls reach the user handler again.
func (s *session) handlerPanicked() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.enqueue(CloseFrameType{Code: CloseInternalError})
}

// post delivers an event to the context's inbox, reporting whether it
// was actually delivered; a false return means the context's actor
// goroutine has already exited (e.g. reaped by the sweeper) and the
// registry entry is effectively dead. The inbox is sized generously; a
// host whose Session callbacks block for a long time will back the
// manager up, same trade-off the teacher's receiver goroutines make.
func (s *session) post(ev contextEvent) (delivered bool) {
	// Once stop has closed the inbox, the send case below panics rather
	// than blocking; that is the same "actor has exited" condition.
	defer func() {
		if recover() != nil {
			delivered = false
		}
	}()
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}

// stop closes the inbox once the terminal Closed event has been
// posted; callers must not post after calling stop.
func (s *session) stop() {
	close(s.inbox)
}

func (s *session) onAcquired(outbound chan<- Frame) {
	s.mu.Lock()
	s.outbound = outbound
	toFlush := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, f := range toFlush {
		outbound <- f
	}
}

func (s *session) onReleased() {
	s.mu.Lock()
	s.outbound = nil
	s.mu.Unlock()
}

func (s *session) enqueue(f Frame) {
	s.mu.Lock()
	out := s.outbound
	if out == nil {
		s.pending = append(s.pending, f)
		overflow := s.maxBuffered > 0 && len(s.pending) > s.maxBuffered && !s.closed
		if overflow {
			s.pending = nil
			s.closed = true
		}
		s.mu.Unlock()
		if overflow {
			if s.log != nil {
				s.log.Warn("session pending buffer exceeded max, closing",
					zap.String("sid", s.id), zap.Int("max", s.maxBuffered))
			}
			s.enqueue(CloseFrameType{Code: CloseInternalError})
		}
		return
	}
	s.mu.Unlock()
	out <- f
}

// Conn implementation, callable from any goroutine the host spawns.

func (s *session) ID() string { return s.id }

func (s *session) Send(msg string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.enqueue(MessageFrame{Payload: msg})
	return nil
}

func (s *session) SendBytes(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.enqueue(MessageBlobFrame{Data: data})
	return nil
}

func (s *session) Close(code CloseCode) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.closed = true
	s.mu.Unlock()
	s.enqueue(CloseFrameType{Code: code})
	return nil
}
