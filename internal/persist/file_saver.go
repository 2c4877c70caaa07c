package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/tilesim/internal/grid"
)

const checkpointFile = "checkpoint.yaml"

// FileSaver keeps saves as files under one directory. Grid stages use the
// checksummed tile text format; the checkpoint is YAML. Every write goes
// to a temp file first and is renamed into place.
type FileSaver struct {
	dir string
	log *zap.Logger
}

func NewFileSaver(dir string, log *zap.Logger) (*FileSaver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileSaver{dir: dir, log: log}, nil
}

// StagePath 回傳關卡階段的存檔路徑。
func (s *FileSaver) StagePath(level, stage int) string {
	return filepath.Join(s.dir, fmt.Sprintf("level-%d-stage-%d.txt", level, stage))
}

func (s *FileSaver) SaveGrid(ctx context.Context, level, stage int, rows [][]grid.Code) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.StagePath(level, stage)
	err := s.writeAtomic(path, func(f *os.File) error { return grid.Encode(f, rows) })
	if err != nil {
		return fmt.Errorf("save level %d stage %d: %w", level, stage, err)
	}
	s.log.Debug("地圖已存檔", zap.String("path", path))
	return nil
}

// LoadGrid 讀取 SaveGrid 寫入的階段並驗證校驗碼。
func (s *FileSaver) LoadGrid(ctx context.Context, level, stage int) ([][]grid.Code, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	rows, err := grid.LoadStage(s.StagePath(level, stage))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil // 尚未存檔
	}
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (s *FileSaver) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := yaml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	path := filepath.Join(s.dir, checkpointFile)
	err = s.writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(out)
		return err
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *FileSaver) LoadCheckpoint(ctx context.Context) (Checkpoint, bool, error) {
	var cp Checkpoint
	if err := ctx.Err(); err != nil {
		return cp, false, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, checkpointFile))
	if errors.Is(err, os.ErrNotExist) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cp); err != nil {
		return cp, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *FileSaver) writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	_ Saver           = (*FileSaver)(nil)
	_ GridLoader      = (*FileSaver)(nil)
	_ CheckpointStore = (*FileSaver)(nil)
)
