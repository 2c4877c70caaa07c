package data

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/tilesim/internal/grid"
)

// SpawnEntry asks the scene loader to place one actor per marker tile.
type SpawnEntry struct {
	Species string `yaml:"species"`
	Marker  int    `yaml:"marker"` // 0 uses the species marker
	Count   int    `yaml:"count"`  // 0 spawns one per marker found
}

// LevelInfo holds metadata for a single level, loaded from levels.yaml.
type LevelInfo struct {
	ID          int          `yaml:"id"`
	Name        string       `yaml:"name"`
	Stages      []string     `yaml:"stages"` // one tile file per stage, in order
	Obstruction int          `yaml:"obstruction"`
	Player      string       `yaml:"player"` // species name of the player
	Spawns      []SpawnEntry `yaml:"spawns"`
	Next        int          `yaml:"next"` // level entered through an exit tile, 0 ends the run
}

type levelListFile struct {
	Levels []LevelInfo `yaml:"levels"`
}

// LevelList provides level metadata lookups in file order.
type LevelList struct {
	dir    string
	levels []LevelInfo
	byID   map[int]int
}

// LoadLevelList loads level metadata from YAML. Stage paths are resolved
// against tilesDir.
func LoadLevelList(path, tilesDir string) (*LevelList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level list %s: %w", path, err)
	}
	var file levelListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse level list: %w", err)
	}
	l := &LevelList{dir: tilesDir, byID: make(map[int]int, len(file.Levels))}
	for i, info := range file.Levels {
		if len(info.Stages) == 0 {
			return nil, fmt.Errorf("level %d: no stages", info.ID)
		}
		if _, dup := l.byID[info.ID]; dup {
			return nil, fmt.Errorf("level %d: duplicate id", info.ID)
		}
		if info.Obstruction <= 0 {
			info.Obstruction = grid.DefaultObstruction
		}
		l.byID[info.ID] = i
		l.levels = append(l.levels, info)
	}
	return l, nil
}

// Count 回傳關卡數量。
func (l *LevelList) Count() int { return len(l.levels) }

// First 回傳檔案中的第一個關卡。
func (l *LevelList) First() *LevelInfo {
	if len(l.levels) == 0 {
		return nil
	}
	return &l.levels[0]
}

// Get 依 ID 取得關卡，找不到時回傳 nil。
func (l *LevelList) Get(id int) *LevelInfo {
	i, ok := l.byID[id]
	if !ok {
		return nil
	}
	return &l.levels[i]
}

// LoadGrid 讀取關卡所有階段檔並建立地圖。
func (l *LevelList) LoadGrid(info *LevelInfo) (*grid.Grid, error) {
	stages := make([][][]grid.Code, 0, len(info.Stages))
	for _, name := range info.Stages {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.dir, name)
		}
		rows, err := grid.LoadStage(path)
		if err != nil {
			return nil, fmt.Errorf("level %d stage %s: %w", info.ID, name, err)
		}
		stages = append(stages, rows)
	}
	g, err := grid.New(stages, info.Obstruction)
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", info.ID, err)
	}
	return g, nil
}
