package sockjs

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionState is the registry-facing session lifecycle from spec.md 3:
// New -> Running -> (Closed | Interrupted). Both are terminal in the
// sense that a reacquire of either only gets a Close frame replayed and
// is immediately released again (see acquireAndReplay); nothing resumes
// Running. This follows original_source/src/transports/rawwebsocket.rs,
// whose Interrupted-reacquire handling always sends Close(Interrupted)
// and releases rather than resuming the session.
type SessionState int

const (
	SessionNew SessionState = iota
	SessionRunning
	SessionClosed
	SessionInterrupted
)

func (s SessionState) String() string {
	switch s {
	case SessionNew:
		return "new"
	case SessionRunning:
		return "running"
	case SessionClosed:
		return "closed"
	case SessionInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Record is the session's parked form, held by the registry while no
// transport is attached and handed to whichever transport next
// acquires the session. Grounded on original_source/src/manager.rs's
// Record/RecordEntry.
type Record struct {
	sid   string
	state SessionState

	// closeCode is the code a transport replays on the next acquire of
	// a Closed record. Defaults to CloseGoAway; overridden by
	// MarkClosedWithCode for conditions with a more specific code, e.g.
	// the buffer-overflow path below.
	closeCode CloseCode

	// buffer holds frames accumulated by Broadcast while detached. It
	// is handed to the transport on acquire and drained there.
	buffer []Frame
}

// SID returns the session id the record belongs to.
func (r *Record) SID() string { return r.sid }

// State returns the record's current registry-facing state.
func (r *Record) State() SessionState { return r.state }

// MarkClosed transitions the record to SessionClosed with the default
// GoAway code. Transports call this when they process a Close frame,
// mirroring the Rust original's Record::close().
func (r *Record) MarkClosed() { r.MarkClosedWithCode(CloseGoAway) }

// MarkClosedWithCode transitions the record to SessionClosed, pinning
// the code a later acquire's reacquire-of-Closed branch replays.
func (r *Record) MarkClosedWithCode(code CloseCode) {
	r.state = SessionClosed
	r.closeCode = code
}

// MarkInterrupted transitions Running -> Interrupted; a no-op from any
// other state (mirrors Record::interrupted() only firing from Running).
func (r *Record) MarkInterrupted() {
	if r.state == SessionRunning {
		r.state = SessionInterrupted
	}
}

// TakeBuffer empties and returns the accumulated broadcast buffer, in
// FIFO order, for the transport to replay.
func (r *Record) TakeBuffer() []Frame {
	b := r.buffer
	r.buffer = nil
	return b
}

// Requeue puts frames back at the front of the buffer. Used when a
// size-capped transport stops mid-replay: the frames it never got to
// must survive for the next acquire's replay (invariant 5).
func (r *Record) Requeue(frames []Frame) {
	if len(frames) == 0 {
		return
	}
	r.buffer = append(frames, r.buffer...)
}

type entry struct {
	ctx      *session
	record   *Record    // non-nil exactly when parked (no transport attached)
	outbound chan Frame // non-nil exactly when a transport is attached
	lastTick time.Time
}

// Manager is the session registry (component C): a single map from sid
// to Entry, arbitrating which transport owns a session, buffering
// frames while none does, and sweeping idle sessions. Grounded on
// original_source/src/manager.rs, adapted from actix's message-passing
// actor to a mutex-guarded map in the teacher's idiom — see SPEC_FULL.md
// 4.1 for the rationale.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	idle     map[string]struct{}

	factory SessionFactory
	opts    Options

	log *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager constructs a registry that spawns a Session via factory
// on first Acquire of each new sid, and starts its idle sweeper.
func NewManager(factory SessionFactory, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newManagerWithOptions(factory, o)
}

func newManagerWithOptions(factory SessionFactory, o Options) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		idle:     make(map[string]struct{}),
		factory:  factory,
		opts:     o,
		log:      o.Logger,
		stopCh:   make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Close stops the idle sweeper. It does not close any parked sessions;
// a host that wants a clean shutdown should Broadcast a Close frame
// first.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep removes every parked session whose last tick is older than the
// configured idle timeout, emitting Closed(Expired) on its context
// before dropping the entry. Grounded on manager.rs's hb() re-arming
// timer, translated to a ticker since Go has no single-shot
// run-and-reschedule primitive as idiomatic as AfterFunc recursion for
// periodic work.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	var expired []*entry
	for sid := range m.idle {
		e, ok := m.sessions[sid]
		if !ok {
			delete(m.idle, sid)
			continue
		}
		if now.Sub(e.lastTick) >= m.opts.IdleTimeout {
			delete(m.idle, sid)
			delete(m.sessions, sid)
			expired = append(expired, e)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		m.log.Debug("session expired", zap.String("sid", e.ctx.id))
		e.ctx.post(evtClosed{reason: CloseReasonExpired})
		e.ctx.stop()
	}
}

// Acquire attaches a transport to sid, creating the session on first
// sight. The returned channel is what the transport reads live
// outbound frames from (Send/Close calls made after the transport is
// attached, plus anything Broadcast enqueues to it while attached).
func (m *Manager) Acquire(sid string) (*Record, <-chan Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Frame, m.opts.OutboundBufferSize)

	if e, ok := m.sessions[sid]; ok {
		if e.record == nil {
			return nil, nil, ErrSessionAcquired
		}
		rec := e.record
		e.record = nil
		e.outbound = ch
		delete(m.idle, sid)
		e.ctx.post(evtAcquired{outbound: ch})
		return rec, ch, nil
	}

	user := m.factory(sid)
	ctx := newSession(sid, user, m.opts.MaxBufferedFrames, m.log)
	rec := &Record{sid: sid, state: SessionNew}
	m.sessions[sid] = &entry{
		ctx:      ctx,
		record:   nil,
		outbound: ch,
		lastTick: time.Now(),
	}
	ctx.post(evtOpened{})
	ctx.post(evtAcquired{outbound: ch})
	return rec, ch, nil
}

// Release returns a record to the registry once its transport detaches.
// Per spec.md 4.1, a Closed or Interrupted record is still parked, not
// destroyed: a reconnect within the idle window must be able to Acquire
// it and have the transport deliver the pending Close frame. Destroying
// the entry is the sweeper's job alone (sweep, below), exactly as in
// original_source/src/manager.rs, where Release never removes anything
// from the session map. The context's evtClosed handler is idempotent,
// so telling it twice (once here, once from an eventual sweep) is safe.
func (m *Manager) Release(rec *Record) {
	m.mu.Lock()
	e, ok := m.sessions[rec.sid]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.idle[rec.sid] = struct{}{}
	e.lastTick = time.Now()
	e.record = rec
	e.outbound = nil
	m.mu.Unlock()

	m.log.Debug("session released", zap.String("sid", rec.sid), zap.Stringer("state", rec.state))

	switch rec.state {
	case SessionClosed:
		e.ctx.post(evtClosed{reason: CloseReasonNormal})
	case SessionInterrupted:
		e.ctx.post(evtClosed{reason: CloseReasonInterrupted})
	default:
		e.ctx.post(evtReleased{})
	}
}

// SessionMessage dispatches an inbound client message to sid's context.
// ErrInternal surfaces if the context's actor has already exited (a
// dead registry entry the caller raced with the sweeper).
func (m *Manager) SessionMessage(sid string, msg string) error {
	m.mu.Lock()
	e, ok := m.sessions[sid]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if !e.ctx.post(evtServerMessage{msg: msg}) {
		return ErrInternal
	}
	return nil
}

// SessionBinaryMessage dispatches an inbound binary frame from the raw
// WebSocket transport; only a Session that also implements
// BinarySession will see it.
func (m *Manager) SessionBinaryMessage(sid string, data []byte) error {
	m.mu.Lock()
	e, ok := m.sessions[sid]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if !e.ctx.post(evtServerBinary{data: data}) {
		return ErrInternal
	}
	return nil
}

// Broadcast fans a frame out to every live session: attached sessions
// get it pushed onto their outbound channel (best-effort — a full
// channel drops the frame for that recipient rather than blocking the
// whole fan-out); detached sessions get it appended to their record's
// buffer for replay on next acquire. If Options.MaxBufferedFrames is
// set and a detached record's buffer grows past it, the record is
// closed with CloseInternalError instead of buffering without bound —
// the entry stays parked for the sweeper, it just stops accumulating.
func (m *Manager) Broadcast(f Frame) {
	m.mu.Lock()
	var overflowed []*entry
	for _, e := range m.sessions {
		if e.outbound != nil {
			select {
			case e.outbound <- f:
			default:
			}
			continue
		}
		if e.record == nil || e.record.state == SessionClosed {
			continue
		}
		e.record.buffer = append(e.record.buffer, f)
		if m.opts.MaxBufferedFrames > 0 && len(e.record.buffer) > m.opts.MaxBufferedFrames {
			e.record.buffer = nil
			e.record.MarkClosedWithCode(CloseInternalError)
			overflowed = append(overflowed, e)
		}
	}
	m.mu.Unlock()

	for _, e := range overflowed {
		m.log.Warn("session record buffer exceeded max, closing",
			zap.String("sid", e.record.sid), zap.Int("max", m.opts.MaxBufferedFrames))
		e.ctx.post(evtClosed{reason: CloseReasonInternal})
	}
}
