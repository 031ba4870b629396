package sockjs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSession is a test Session that funnels every callback onto a
// channel so tests can assert ordering without sleeping.
type recordingSession struct {
	mu       sync.Mutex
	opened   bool
	messages []string
	closed   chan CloseReason
}

func newRecordingSession() *recordingSession {
	return &recordingSession{closed: make(chan CloseReason, 1)}
}

func (s *recordingSession) OnOpen(conn Conn) {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
}

func (s *recordingSession) OnMessage(conn Conn, msg string) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *recordingSession) OnClose(conn Conn, reason CloseReason) {
	s.closed <- reason
}

func (s *recordingSession) snapshot() (bool, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, append([]string(nil), s.messages...)
}

func TestManagerAcquireCreatesSession(t *testing.T) {
	sess := newRecordingSession()
	mgr := NewManager(func(sid string) Session { return sess })
	defer mgr.Close()

	rec, ch, err := mgr.Acquire("abc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, ch)
	assert.Equal(t, SessionNew, rec.State())

	require.Eventually(t, func() bool {
		opened, _ := sess.snapshot()
		return opened
	}, time.Second, time.Millisecond)
}

func TestManagerAcquireTwiceFails(t *testing.T) {
	mgr := NewManager(func(sid string) Session { return newRecordingSession() })
	defer mgr.Close()

	_, _, err := mgr.Acquire("abc")
	require.NoError(t, err)

	_, _, err = mgr.Acquire("abc")
	assert.ErrorIs(t, err, ErrSessionAcquired)
}

func TestManagerSessionMessageDispatches(t *testing.T) {
	sess := newRecordingSession()
	mgr := NewManager(func(sid string) Session { return sess })
	defer mgr.Close()

	_, _, err := mgr.Acquire("abc")
	require.NoError(t, err)

	require.NoError(t, mgr.SessionMessage("abc", "hello"))

	require.Eventually(t, func() bool {
		_, msgs := sess.snapshot()
		return len(msgs) == 1 && msgs[0] == "hello"
	}, time.Second, time.Millisecond)
}

func TestManagerSessionMessageUnknownSid(t *testing.T) {
	mgr := NewManager(func(sid string) Session { return newRecordingSession() })
	defer mgr.Close()

	err := mgr.SessionMessage("nope", "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerReleaseThenReacquireReplaysBuffer(t *testing.T) {
	mgr := NewManager(func(sid string) Session { return newRecordingSession() })
	defer mgr.Close()

	rec, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	mgr.Release(rec)

	mgr.Broadcast(MessageFrame{Payload: "while-detached"})

	rec2, ch2, err := mgr.Acquire("abc")
	require.NoError(t, err)
	assert.Same(t, rec, rec2)

	buf := rec2.TakeBuffer()
	require.Len(t, buf, 1)
	assert.Equal(t, MessageFrame{Payload: "while-detached"}, buf[0])
	_ = ch2
}

func TestManagerBroadcastToAttachedSession(t *testing.T) {
	mgr := NewManager(func(sid string) Session { return newRecordingSession() })
	defer mgr.Close()

	_, ch, err := mgr.Acquire("abc")
	require.NoError(t, err)

	mgr.Broadcast(MessageFrame{Payload: "ping"})

	select {
	case f := <-ch:
		assert.Equal(t, MessageFrame{Payload: "ping"}, f)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast frame on attached outbound channel")
	}
}

func TestManagerIdleExpiry(t *testing.T) {
	sess := newRecordingSession()
	mgr := NewManager(
		func(sid string) Session { return sess },
		WithIdleTimeout(20*time.Millisecond),
		WithSweepInterval(10*time.Millisecond),
	)
	defer mgr.Close()

	rec, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	mgr.Release(rec)

	select {
	case reason := <-sess.closed:
		assert.Equal(t, CloseReasonExpired, reason)
	case <-time.After(time.Second):
		t.Fatal("expected idle session to expire")
	}
}

func TestManagerReleaseClosedDoesNotDeleteImmediately(t *testing.T) {
	// A record that reaches Closed must stay parked so a reconnect within
	// the idle window still finds it (spec edge case: "an Acquire that
	// finds state == Closed still returns the record").
	sess := newRecordingSession()
	mgr := NewManager(func(sid string) Session { return sess })
	defer mgr.Close()

	rec, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	rec.MarkClosed()
	mgr.Release(rec)

	select {
	case reason := <-sess.closed:
		assert.Equal(t, CloseReasonNormal, reason)
	case <-time.After(time.Second):
		t.Fatal("expected OnClose to fire on release of a closed record")
	}

	rec2, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, rec2.State())
}

func TestManagerBroadcastOverflowClosesDetachedRecord(t *testing.T) {
	sess := newRecordingSession()
	mgr := NewManager(func(sid string) Session { return sess }, WithMaxBufferedFrames(2))
	defer mgr.Close()

	rec, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	mgr.Release(rec)

	mgr.Broadcast(MessageFrame{Payload: "one"})
	mgr.Broadcast(MessageFrame{Payload: "two"})
	mgr.Broadcast(MessageFrame{Payload: "three"})

	select {
	case reason := <-sess.closed:
		assert.Equal(t, CloseReasonInternal, reason)
	case <-time.After(time.Second):
		t.Fatal("expected the overflowing record to close")
	}

	rec2, _, err := mgr.Acquire("abc")
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, rec2.State())
	assert.Empty(t, rec2.TakeBuffer())
}

func TestRecordRequeuePreservesOrder(t *testing.T) {
	rec := &Record{sid: "s1"}
	rec.buffer = []Frame{MessageFrame{Payload: "a"}, MessageFrame{Payload: "b"}}

	taken := rec.TakeBuffer()
	require.Len(t, taken, 2)
	assert.Empty(t, rec.TakeBuffer())

	rec.Requeue(taken[1:])
	assert.Equal(t, []Frame{MessageFrame{Payload: "b"}}, rec.TakeBuffer())
}
