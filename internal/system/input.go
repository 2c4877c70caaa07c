package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/world"
)

// InputFrame is one sampled controller state. Dir is the direction pressed
// or still held (None keeps the held direction), Release lets go of it and
// Action requests a jump.
type InputFrame struct {
	Dir     motion.Direction `json:"dir"`
	Release bool             `json:"release"`
	Action  bool             `json:"action"`
}

// InputSystem drains queued input frames into the player's intent.
// Frames may be pushed from any goroutine; they are applied only here.
// Phase 0 (Input).
type InputSystem struct {
	world      *world.State
	queue      chan InputFrame
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(ws *world.State, queueSize, maxPerTick int, log *zap.Logger) *InputSystem {
	if queueSize <= 0 {
		queueSize = 64
	}
	if maxPerTick <= 0 {
		maxPerTick = 8
	}
	return &InputSystem{
		world:      ws,
		queue:      make(chan InputFrame, queueSize),
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Push queues a frame without blocking. A full queue drops the frame.
func (s *InputSystem) Push(f InputFrame) bool {
	select {
	case s.queue <- f:
		return true
	default:
		s.log.Debug("輸入佇列已滿，丟棄輸入")
		return false
	}
}

func (s *InputSystem) Update(_ time.Duration) {
	var (
		player *component.Player
		intent *component.Intent
		actor  *component.Actor
	)
	if id, alive := s.world.Player(); alive {
		player, _ = s.world.Players.Get(id)
		intent, _ = s.world.Intents.Get(id)
		actor, _ = s.world.Actors.Get(id)
	}

	// 沒有玩家時也照樣取出，避免換場景時殘留舊輸入
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case f := <-s.queue:
			if player == nil || intent == nil {
				continue
			}
			switch {
			case f.Release:
				player.Held = motion.None
			case f.Dir.Valid():
				player.Held = f.Dir
			case f.Dir != motion.None:
				s.log.Warn("未知移動方向", zap.Int("direction", int(f.Dir)))
			}
			if f.Action {
				intent.Jump = true
			}
		default:
			goto drained
		}
	}
drained:
	if player == nil || intent == nil {
		return
	}

	dx, dy := player.Held.Delta()
	if actor != nil && actor.Gravity {
		dy = 0 // 受重力者上下只能靠跳躍
	}
	intent.DX, intent.DY, intent.Mag = dx, dy, 0
	if h := motion.Horizontal(dx); h != motion.None {
		intent.Face = h
	}
}
