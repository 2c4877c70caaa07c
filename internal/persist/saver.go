package persist

import (
	"context"

	"github.com/l1jgo/tilesim/internal/grid"
)

// Saver 寫入關卡單一階段的地圖陣列。
type Saver interface {
	SaveGrid(ctx context.Context, level, stage int, rows [][]grid.Code) error
}

// GridLoader reads back a stage written by SaveGrid. found is false when
// that stage has never been saved.
type GridLoader interface {
	LoadGrid(ctx context.Context, level, stage int) (rows [][]grid.Code, found bool, err error)
}

// Checkpoint is the resumable part of a session: where the player last
// checkpointed and the inventory at that moment.
type Checkpoint struct {
	Level int               `yaml:"level"`
	Stage int               `yaml:"stage"`
	Cell  grid.Cell         `yaml:"cell"`
	Lives int               `yaml:"lives"`
	Items map[grid.Code]int `yaml:"items,omitempty"`
}

// CheckpointStore saves and restores the session checkpoint. Load reports
// found=false when nothing has been saved yet.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	LoadCheckpoint(ctx context.Context) (cp Checkpoint, found bool, err error)
}
