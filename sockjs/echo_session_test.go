package sockjs

import "sync"

// echoTestSession is the shared test double for handler-level tests: it
// echoes every inbound text message back to the client and optionally
// forwards binary frames, mirroring cmd/echo/main.go's demo Session.
type echoTestSession struct {
	mu     sync.Mutex
	opens  int
	closes []CloseReason
}

func (s *echoTestSession) OnOpen(conn Conn) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
}

func (s *echoTestSession) OnMessage(conn Conn, msg string) {
	_ = conn.Send(msg)
}

func (s *echoTestSession) OnBinaryMessage(conn Conn, data []byte) {
	_ = conn.SendBytes(data)
}

func (s *echoTestSession) OnClose(conn Conn, reason CloseReason) {
	s.mu.Lock()
	s.closes = append(s.closes, reason)
	s.mu.Unlock()
}

func (s *echoTestSession) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}
