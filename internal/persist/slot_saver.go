package persist

import (
	"context"

	"github.com/l1jgo/tilesim/internal/grid"
)

// SlotSaver binds the Postgres repos to one save slot so they satisfy
// Saver, GridLoader and CheckpointStore.
type SlotSaver struct {
	Slot        string
	Grids       *GridRepo
	Checkpoints *CheckpointRepo
}

func NewSlotSaver(db *DB, slot string) *SlotSaver {
	return &SlotSaver{Slot: slot, Grids: NewGridRepo(db), Checkpoints: NewCheckpointRepo(db)}
}

func (s *SlotSaver) SaveGrid(ctx context.Context, level, stage int, rows [][]grid.Code) error {
	return s.Grids.Save(ctx, s.Slot, level, stage, rows)
}

func (s *SlotSaver) LoadGrid(ctx context.Context, level, stage int) ([][]grid.Code, bool, error) {
	return s.Grids.Load(ctx, s.Slot, level, stage)
}

func (s *SlotSaver) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	return s.Checkpoints.Save(ctx, s.Slot, cp)
}

func (s *SlotSaver) LoadCheckpoint(ctx context.Context) (Checkpoint, bool, error) {
	return s.Checkpoints.Load(ctx, s.Slot)
}

var (
	_ Saver           = (*SlotSaver)(nil)
	_ GridLoader      = (*SlotSaver)(nil)
	_ CheckpointStore = (*SlotSaver)(nil)
)
