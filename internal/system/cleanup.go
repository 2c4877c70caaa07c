package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/world"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end,
// then performs any stage switch requested during the tick.
// Phase 9 (Cleanup).
type CleanupSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewCleanupSystem(ws *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: ws, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	// 先清除待銷毀實體，再切換階段
	s.world.World.FlushDestroyQueue()
	switched, ok := s.world.ApplyPendingStage()
	if !switched {
		return
	}
	if !ok {
		s.log.Warn("關卡階段初始化失敗", zap.Int("stage", s.world.Grid.Current()))
		s.world.RequestExit("stage_failed", 0)
		return
	}
	s.log.Info("進入關卡階段", zap.Int("stage", s.world.Grid.Current()))
}
