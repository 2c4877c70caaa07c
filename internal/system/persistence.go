package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/persist"
	"github.com/l1jgo/tilesim/internal/physics"
	"github.com/l1jgo/tilesim/internal/world"
)

// PersistenceSystem periodically saves the tiles of every stage visited in
// the current level and, when the saver keeps checkpoints, the player's
// checkpoint. Phase 8 (Persist).
type PersistenceSystem struct {
	world     *world.State
	saver     persist.Saver
	inv       *world.Stock
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks
	timeout   time.Duration
}

// NewPersistenceSystem saves every intervalTicks ticks; 0 disables periodic
// saves but SaveNow still works. inv may be nil.
func NewPersistenceSystem(ws *world.State, saver persist.Saver, inv *world.Stock, intervalTicks int, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{
		world:    ws,
		saver:    saver,
		inv:      inv,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if err := s.SaveNow(); err != nil {
		s.log.Error("自動存檔失敗", zap.Error(err))
	}
}

// SaveNow writes every visited stage immediately. Called on shutdown and
// before a level change too.
func (s *PersistenceSystem) SaveNow() error {
	ws := s.world
	if s.saver == nil || ws.Grid == nil || ws.Level == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// 未進入的階段仍是原始地圖，不覆蓋舊存檔
	for _, stage := range ws.VisitedStages() {
		if err := s.saver.SaveGrid(ctx, ws.Level.ID, stage, ws.Grid.Snapshot(stage)); err != nil {
			return err
		}
	}

	store, ok := s.saver.(persist.CheckpointStore)
	if !ok {
		return nil
	}
	id, alive := ws.Player()
	if !alive {
		return nil
	}
	p, ok := ws.Players.Get(id)
	if !ok {
		return nil
	}
	cp := persist.Checkpoint{Level: ws.Level.ID, Stage: p.Level, Cell: p.Checkpoint, Lives: ws.Lives()}
	if s.inv != nil {
		cp.Items = s.inv.Items()
	}
	if err := store.SaveCheckpoint(ctx, cp); err != nil {
		return err
	}
	s.log.Debug("存檔完成", zap.Int("level", ws.Level.ID), zap.Int("stage", p.Level))
	return nil
}

// Resume puts a freshly loaded scene back where cp left it. Saved stages
// are laid over the pristine tiles, the checkpoint stage is entered and
// the player is moved onto the checkpoint cell. The scene must already be
// loaded for cp.Level.
func (s *PersistenceSystem) Resume(cp persist.Checkpoint) error {
	ws := s.world
	if ws.Grid == nil || ws.Level == nil {
		return errors.New("resume: no scene loaded")
	}
	if ws.Level.ID != cp.Level {
		return fmt.Errorf("resume: checkpoint level %d, scene level %d", cp.Level, ws.Level.ID)
	}

	if loader, ok := s.saver.(persist.GridLoader); ok {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		for stage := 0; stage < ws.Grid.Levels(); stage++ {
			rows, found, err := loader.LoadGrid(ctx, cp.Level, stage)
			if err != nil {
				return fmt.Errorf("resume stage %d: %w", stage, err)
			}
			if !found {
				continue
			}
			if err := ws.OverlayStage(stage, rows); err != nil {
				return fmt.Errorf("resume stage %d: %w", stage, err)
			}
		}
	}

	if cp.Stage != ws.Grid.Current() {
		ws.RequestStage(cp.Stage)
		if _, ok := ws.ApplyPendingStage(); !ok {
			return fmt.Errorf("resume: stage %d failed to initialise", cp.Stage)
		}
	}

	id, ok := ws.Player()
	if !ok || !ws.Grid.InBounds(cp.Cell.Y, cp.Cell.X) {
		return nil
	}
	if m, ok := ws.Motion.Get(id); ok {
		m.Pos = motion.At(cp.Cell)
		m.Vertical = physics.Vertical{}
	}
	if p, ok := ws.Players.Get(id); ok {
		p.Checkpoint = cp.Cell
		p.Level = cp.Stage
	}
	s.log.Info("已從存檔點恢復",
		zap.Int("level", cp.Level), zap.Int("stage", cp.Stage), zap.Stringer("cell", cp.Cell))
	return nil
}
