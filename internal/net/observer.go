// Package net feeds per-tick render frames to websocket observers and
// turns their messages into input frames. The game loop never blocks on
// network I/O: frames are encoded once per tick and queued per session.
package net

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/config"
	"github.com/l1jgo/tilesim/internal/system"
)

// InputSink accepts decoded input frames from any goroutine.
type InputSink interface {
	Push(f system.InputFrame) bool
}

// Observer publishes frames to every connected session. Publish is called
// from the game loop only; the session set is owned by that goroutine.
type Observer struct {
	server   *Server
	sessions map[uint64]*Session
	log      *zap.Logger
}

// NewObserver starts listening on cfg.BindAddress. Client messages are
// decoded as system.InputFrame JSON and pushed to input when it is non-nil.
func NewObserver(cfg config.ObserverConfig, input InputSink, log *zap.Logger) (*Observer, error) {
	log = log.With(zap.String("component", "observer"))
	onInput := func(id uint64, payload []byte) {
		if input == nil {
			return
		}
		var f system.InputFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			log.Debug("無效輸入訊息", zap.Uint64("session", id), zap.Error(err))
			return
		}
		input.Push(f)
	}
	srv, err := NewServer(cfg.BindAddress, cfg.OutQueueSize, cfg.WriteTimeout, onInput, log)
	if err != nil {
		return nil, err
	}
	return &Observer{server: srv, sessions: make(map[uint64]*Session), log: log}, nil
}

// Run 持續服務 websocket 連線直到 Shutdown。
func (o *Observer) Run() { o.server.AcceptLoop() }

func (o *Observer) Addr() string { return o.server.Addr().String() }

// Sessions 回傳遊戲迴圈目前已知的 session 數。
func (o *Observer) Sessions() int { return len(o.sessions) }

// Publish implements system.Publisher.
func (o *Observer) Publish(f system.Frame) {
	o.sync()
	if len(o.sessions) == 0 {
		return
	}
	// 每 tick 只編碼一次，所有 session 共用
	data, err := json.Marshal(f)
	if err != nil {
		o.log.Error("畫面編碼失敗", zap.Error(err))
		return
	}
	for id, sess := range o.sessions {
		if sess.IsClosed() {
			delete(o.sessions, id) // 斷線通知可能尚未送達
			continue
		}
		sess.Send(data)
	}
}

// sync 取出伺服器的連線／斷線通知。
func (o *Observer) sync() {
	for {
		select {
		case sess := <-o.server.NewSessions():
			o.sessions[sess.ID] = sess
		case id := <-o.server.DeadSessions():
			delete(o.sessions, id)
		default:
			return
		}
	}
}

// Shutdown 關閉所有 session 並停止監聽。
func (o *Observer) Shutdown(ctx context.Context) error {
	o.sync()
	for _, sess := range o.sessions {
		sess.Close()
	}
	return o.server.Shutdown(ctx)
}

var _ system.Publisher = (*Observer)(nil)
