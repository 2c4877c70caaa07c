package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server accepts websocket observers on /ws and creates Sessions.
// New/dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	outSize  int
	timeout  time.Duration
	onInput  func(sessionID uint64, payload []byte)
	log      *zap.Logger
}

// NewServer listens on bindAddr. onInput receives every client message on
// the session's read goroutine and may be nil.
func NewServer(bindAddr string, outSize int, writeTimeout time.Duration, onInput func(uint64, []byte), log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", bindAddr, err)
	}
	s := &Server{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		outSize:  outSize,
		timeout:  writeTimeout,
		onInput:  onInput,
		log:      log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s, nil
}

// AcceptLoop 在獨立 goroutine 中執行，直到 Shutdown。
func (s *Server) AcceptLoop() {
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("觀察者服務停止", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket 升級失敗", zap.Error(err))
		return
	}
	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.outSize, s.timeout, s.onInput, s.log)
	sess.Start(s.NotifyDead)

	s.log.Info(fmt.Sprintf("觀察者連線  session=%d  ip=%s", id, sess.IP))

	// 交給遊戲迴圈，佇列滿就拒絕
	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("連線佇列已滿，拒絕新連線")
		sess.Close()
	}
}

// NewSessions 回傳新連線 session 的 channel。
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead 通知遊戲迴圈某 session 已斷線。
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default: // 佇列滿時由 Publish 的 IsClosed 檢查補上
	}
}

// DeadSessions 回傳已斷線 session ID 的 channel。
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown 停止接受新連線。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr 回傳監聽位址。
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
