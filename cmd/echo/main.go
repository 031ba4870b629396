// Command echo hosts a trivial echo Session over every SockJS
// transport, the way the upstream sockjs-go project ships a demo
// binary alongside the library.
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jdelgadoalfonso/sockjs/sockjs"
)

// echoSession sends back every message it receives, and logs its own
// lifecycle with a demo-scoped id (distinct from the client's sid,
// purely for the operator's console).
type echoSession struct {
	demoID string
	log    *zap.Logger
}

func (s *echoSession) OnOpen(conn sockjs.Conn) {
	s.log.Info("session opened", zap.String("sid", conn.ID()), zap.String("demo_id", s.demoID))
}

func (s *echoSession) OnMessage(conn sockjs.Conn, msg string) {
	if err := conn.Send(msg); err != nil {
		s.log.Warn("send failed", zap.Error(err))
	}
}

func (s *echoSession) OnClose(conn sockjs.Conn, reason sockjs.CloseReason) {
	s.log.Info("session closed", zap.String("sid", conn.ID()), zap.Stringer("reason", reason))
}

func main() {
	logger := sockjs.NewLogger()
	defer logger.Sync() //nolint:errcheck

	factory := func(sid string) sockjs.Session {
		return &echoSession{demoID: uuid.NewString(), log: logger}
	}

	handler := sockjs.NewHandler("/echo", factory,
		sockjs.WithLogger(logger),
		sockjs.WithHeartbeatInterval(5*time.Second),
		sockjs.WithIdleTimeout(10*time.Second),
	)
	defer handler.Close()

	mux := http.NewServeMux()
	mux.Handle("/echo/", handler)
	mux.Handle("/echo", handler)

	addr := ":8081"
	fmt.Printf("sockjs echo demo listening on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
