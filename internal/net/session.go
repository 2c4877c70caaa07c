package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxMessageSize = 4096

// Session is one websocket observer. Network I/O runs in dedicated
// goroutines; the game loop only calls Send.
type Session struct {
	ID   uint64
	conn *websocket.Conn
	IP   string

	OutQueue chan []byte // writer goroutine reads from here

	timeout time.Duration
	onInput func(uint64, []byte)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, outSize int, writeTimeout time.Duration, onInput func(uint64, []byte), log *zap.Logger) *Session {
	if outSize <= 0 {
		outSize = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Session{
		ID:       id,
		conn:     conn,
		IP:       conn.RemoteAddr().String(),
		OutQueue: make(chan []byte, outSize),
		timeout:  writeTimeout,
		onInput:  onInput,
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines. onDead is called once
// the session has closed.
func (s *Session) Start(onDead func(uint64)) {
	go func() {
		s.readLoop()
		if onDead != nil {
			onDead(s.ID)
		}
	}()
	go s.writeLoop()
}

// Send 非阻塞地排入訊息。OutQueue 已滿時直接斷線（背壓）。
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		// 慢速客戶端，直接斷線以免拖累遊戲迴圈
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
	}
}

// Close 正常關閉 session。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine and hands every client message to
// onInput.
func (s *Session) readLoop() {
	defer s.Close()
	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			// 正常關閉不記錄
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		if s.onInput != nil {
			s.onInput(s.ID, message)
		}
	}
}

// writeLoop runs in its own goroutine, writing queued messages as text
// frames.
func (s *Session) writeLoop() {
	defer s.Close()
	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
