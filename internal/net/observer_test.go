package net

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/config"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/system"
	"github.com/l1jgo/tilesim/internal/world"
)

type chanSink chan system.InputFrame

func (c chanSink) Push(f system.InputFrame) bool {
	select {
	case c <- f:
		return true
	default:
		return false
	}
}

func TestObserverRoundTrip(t *testing.T) {
	sink := make(chanSink, 4)
	obs, err := NewObserver(config.ObserverConfig{
		BindAddress:  "127.0.0.1:0",
		OutQueueSize: 8,
		WriteTimeout: time.Second,
	}, sink, zap.NewNop())
	require.NoError(t, err)
	go obs.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		obs.Shutdown(ctx)
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+obs.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		obs.Publish(system.Frame{})
		return obs.Sessions() == 1
	}, 2*time.Second, 10*time.Millisecond)

	obs.Publish(system.Frame{Snapshot: world.Snapshot{Tick: 42, Level: 3}})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Tick  uint64 `json:"tick"`
		Level int    `json:"level"`
	}
	for got.Tick != 42 {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg, &got))
	}
	assert.Equal(t, 3, got.Level)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"dir":"left","action":true}`)))
	select {
	case f := <-sink:
		assert.Equal(t, system.InputFrame{Dir: motion.Left, Action: true}, f)
	case <-time.After(2 * time.Second):
		t.Fatal("input frame not delivered")
	}
}

func TestObserverDropsSlowSession(t *testing.T) {
	obs, err := NewObserver(config.ObserverConfig{
		BindAddress:  "127.0.0.1:0",
		OutQueueSize: 1,
		WriteTimeout: time.Second,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	go obs.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		obs.Shutdown(ctx)
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+obs.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		obs.sync()
		return obs.Sessions() == 1
	}, 2*time.Second, 10*time.Millisecond)

	var sess *Session
	for _, s := range obs.sessions {
		sess = s
	}
	// Publish never blocks, however many frames pile up unread.
	payload, err := json.Marshal(world.Snapshot{Entities: make([]world.RenderEntity, 2000)})
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500 && !sess.IsClosed(); i++ {
			sess.Send(payload)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked")
	}
	assert.True(t, sess.IsClosed(), "slow reader is disconnected")
}
