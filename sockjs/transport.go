package sockjs

import "time"

// SendResult is returned by every frame-sending transport method,
// matching spec.md 4.3's Continue/Stop contract: Stop means the
// transport has exhausted its response (size cap, close frame sent,
// one-shot completed) and must release the record back to the
// registry.
type SendResult int

const (
	SendContinue SendResult = iota
	SendStop
)

// transportFlags is the READY/RELEASE pair from spec.md 4.3: READY
// means the initial handshake and buffered replay are done and live
// frames should be forwarded immediately; RELEASE means a Stop
// happened during acquire/replay and the transport must release as
// soon as the current continuation finishes.
type transportFlags struct {
	ready   bool
	release bool
}

// transport is the contract every adaptor implements (component D),
// mirroring spec.md 4.3's method table.
type transport interface {
	send(frame Frame, record *Record) SendResult
	sendClose(code CloseCode)
	sendHeartbeat() SendResult
	sessionRecord() *Record
	setSessionRecord(*Record)
	flags() *transportFlags
}

// baseTransport holds the fields common to every HTTP-based adaptor;
// WebSocket transports embed it too, since the acquire/replay state
// machine is identical across the wire encoding.
type baseTransport struct {
	rec *Record
	fl  transportFlags
}

func (b *baseTransport) sessionRecord() *Record     { return b.rec }
func (b *baseTransport) setSessionRecord(r *Record) { b.rec = r }
func (b *baseTransport) flags() *transportFlags     { return &b.fl }

// drainBuffer replays every frame accumulated in the record's buffer
// (Broadcast frames delivered while detached), stopping early if the
// transport signals Stop partway through — e.g. a size-capped
// streaming transport whose cap lands mid-replay.
func drainBuffer(tr transport, rec *Record) SendResult {
	buf := rec.TakeBuffer()
	for i, f := range buf {
		if tr.send(f, rec) == SendStop {
			rec.Requeue(buf[i+1:])
			return SendStop
		}
	}
	return SendContinue
}

// acquireResult is what acquireAndReplay hands back to the caller:
// either an outbound channel to keep reading from (the long-lived
// path) or nothing, because the transport already released.
type acquireResult struct {
	outbound <-chan Frame
	done     bool
}

// acquireAndReplay implements the shared acquire/replay half of the
// transport state machine in spec.md 4.3:
//
//	New:         mark Running, emit Open, drain buffer
//	Running:     drain buffer
//	Interrupted: emit Close(Interrupted), release immediately
//	Closed:      emit Close(rec.closeCode), release immediately (GoAway,
//	             or InternalError for a record closed on buffer overflow)
//
// On Acquire failure (session already attached elsewhere), it emits
// Close(AnotherConnectionStillOpen) and reports done.
func acquireAndReplay(mgr *Manager, sid string, tr transport) acquireResult {
	rec, ch, err := mgr.Acquire(sid)
	if err != nil {
		tr.sendClose(CloseAnotherConnectionStillOpen)
		return acquireResult{done: true}
	}

	switch rec.State() {
	case SessionInterrupted:
		tr.send(CloseFrameType{Code: CloseInterrupted}, rec)
		mgr.Release(rec)
		return acquireResult{done: true}

	case SessionClosed:
		tr.send(CloseFrameType{Code: rec.closeCode}, rec)
		mgr.Release(rec)
		return acquireResult{done: true}

	case SessionNew:
		rec.state = SessionRunning
		if tr.send(OpenFrame{}, rec) == SendStop {
			tr.flags().release = true
		} else if drainBuffer(tr, rec) == SendStop {
			tr.flags().release = true
		}

	case SessionRunning:
		if drainBuffer(tr, rec) == SendStop {
			tr.flags().release = true
		}
	}

	tr.setSessionRecord(rec)
	tr.flags().ready = true

	if tr.flags().release {
		tr.setSessionRecord(nil)
		mgr.Release(rec)
		return acquireResult{done: true}
	}
	return acquireResult{outbound: ch}
}

// runStreaming is the shared live-frame loop for every long-lived
// transport (XHR-streaming, EventSource, HTMLFile, SockJS WebSocket):
// once acquireAndReplay has handed back an outbound channel, read from
// it until a frame send signals Stop, the channel closes (transport
// detached some other way), the client goes away, or a heartbeat send
// signals Stop (size-capped transports count heartbeats against their
// cap too).
func runStreaming(mgr *Manager, tr transport, outbound <-chan Frame, heartbeat time.Duration, clientGone <-chan struct{}) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case f, ok := <-outbound:
			if !ok {
				release(mgr, tr, false)
				return
			}
			if tr.send(f, tr.sessionRecord()) == SendStop {
				release(mgr, tr, true)
				return
			}
		case <-ticker.C:
			if tr.sendHeartbeat() == SendStop {
				release(mgr, tr, true)
				return
			}
		case <-clientGone:
			release(mgr, tr, false)
			return
		}
	}
}

// runOneShot serves the one-shot transports (XHR-polling, JSONP): wait
// for exactly one frame — live, or a heartbeat if none arrives first —
// send it, and release. Used only when acquireAndReplay didn't already
// consume the response during Open/buffer replay.
func runOneShot(mgr *Manager, tr transport, outbound <-chan Frame, heartbeat time.Duration, clientGone <-chan struct{}) {
	select {
	case f, ok := <-outbound:
		if !ok {
			release(mgr, tr, false)
			return
		}
		tr.send(f, tr.sessionRecord())
		release(mgr, tr, true)
	case <-time.After(heartbeat):
		tr.sendHeartbeat()
		release(mgr, tr, true)
	case <-clientGone:
		release(mgr, tr, false)
	}
}

// release returns the transport's parked record to the registry,
// marking it Interrupted first if clean is false (the transport
// disconnected rather than sending an explicit Close).
func release(mgr *Manager, tr transport, clean bool) {
	rec := tr.sessionRecord()
	if rec == nil {
		return
	}
	tr.setSessionRecord(nil)
	if !clean {
		rec.MarkInterrupted()
	}
	mgr.Release(rec)
}
