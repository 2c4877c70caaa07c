package world

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/physics"
)

// ProjectileTTL 投射物最多可飛行的 tick 數。
const ProjectileTTL = 600

// Spawn places one actor of species on the first marker tile found in
// row-major order and clears the marker. A missing marker is an
// initialization failure: nothing is created and ok is false.
func (s *State) Spawn(species string, marker grid.Code) (ecs.EntityID, bool) {
	cell, found := s.Grid.FindFirst(marker)
	if !found {
		s.log.Warn("找不到出生標記",
			zap.String("species", species), zap.Int("marker", marker), zap.Int("stage", s.Grid.Current()))
		return ecs.Nil, false
	}
	id, ok := s.SpawnAt(species, cell)
	if ok {
		s.Grid.Put(cell.Y, cell.X, grid.Empty)
	}
	return id, ok
}

// SpawnAt 在指定格子生成該物種的角色。
func (s *State) SpawnAt(species string, cell grid.Cell) (ecs.EntityID, bool) {
	sp := s.Species.Get(species)
	if sp == nil {
		s.log.Warn("未知物種", zap.String("species", species))
		return ecs.Nil, false
	}
	st := s.Strategies[species]
	if !s.Grid.InBounds(cell.Y, cell.X) {
		s.log.Warn("出生位置超出地圖", zap.String("species", species), zap.Stringer("cell", cell))
		return ecs.Nil, false
	}

	id := s.World.CreateEntity()
	kind := component.KindEnemy
	if sp.Kind == "player" {
		kind = component.KindPlayer
	}
	s.Actors.Set(id, &component.Actor{
		Species:     species,
		Kind:        kind,
		Spawn:       cell,
		Footprint:   st.Footprint,
		Obstruction: st.Obstruction,
		Magnitude:   st.Magnitude,
		Gravity:     sp.Gravity,
	})
	facing := motion.Left
	if kind == component.KindPlayer {
		facing = motion.Right
	}
	s.Motion.Set(id, &component.Motion{Pos: motion.At(cell), Facing: facing})
	s.Health.Set(id, &component.Health{HP: sp.HP, Max: sp.HP})
	s.Intents.Set(id, &component.Intent{})

	switch {
	case kind == component.KindPlayer:
		s.Players.Set(id, &component.Player{JumpSpeed: sp.JumpSpeed, Checkpoint: cell, Level: s.Grid.Current()})
		s.player = id
	case sp.FSM != "":
		s.Brains.Set(id, &component.Brain{
			Table:     sp.FSM,
			Waypoints: st.Route(cell, s.Grid.Cols()),
			Home:      cell,
			Scratch:   map[string]int{},
		})
	}
	s.log.Debug("生成實體", zap.Stringer("entity", id), zap.String("species", species), zap.Stringer("cell", cell))
	return id, true
}

// SpawnPlayer 在玩家物種的出生標記上生成玩家。
func (s *State) SpawnPlayer(species string) (ecs.EntityID, bool) {
	sp := s.Species.Get(species)
	if sp == nil {
		s.log.Warn("未知玩家物種", zap.String("species", species))
		return ecs.Nil, false
	}
	return s.Spawn(species, sp.Marker)
}

// SpawnProjectile launches a projectile from owner's position. It shares
// the owner's obstruction threshold and moves at magnitude 2.
func (s *State) SpawnProjectile(owner ecs.EntityID, dir motion.Direction, damage int) (ecs.EntityID, bool) {
	om, ok := s.Motion.Get(owner)
	if !ok || !dir.Valid() {
		return ecs.Nil, false
	}
	// 投射物沿用發射者的阻擋門檻
	obstruction := s.Grid.Obstruction()
	if a, ok := s.Actors.Get(owner); ok {
		obstruction = a.Obstruction
	}
	id := s.World.CreateEntity()
	s.Motion.Set(id, &component.Motion{Pos: om.Pos, Facing: dir})
	s.Projectiles.Set(id, &component.Projectile{
		Owner:       owner,
		Dir:         dir,
		Magnitude:   2,
		Damage:      damage,
		Obstruction: obstruction,
		TTL:         ProjectileTTL,
	})
	return id, true
}

// RequestStage 預約在 tick 結束（銷毀佇列清空後）切換階段。
func (s *State) RequestStage(i int) {
	if s.pendingStage < 0 {
		s.pendingStage = i
	}
}

// ApplyPendingStage 執行預約的階段切換，回傳是否切換以及新階段是否初始化成功。
func (s *State) ApplyPendingStage() (switched, ok bool) {
	if s.pendingStage < 0 {
		return false, false
	}
	i := s.pendingStage
	s.pendingStage = -1
	return true, s.EnterStage(i)
}

// EnterStage switches the grid to stage i, clears every entity but the
// player and runs the spawn scan for that stage. The player, if alive, is
// moved onto the stage's player marker. A saved overlay for the stage is
// applied after the scan. ok is false when any marker the level requires
// is missing.
func (s *State) EnterStage(i int) bool {
	if err := s.Grid.SetCurrentLevel(i); err != nil {
		s.log.Warn("無法切換關卡階段", zap.Int("stage", i), zap.Error(err))
		return false
	}
	// 除玩家外全部清除
	for _, id := range s.Motion.IDs() {
		if id != s.player {
			s.World.MarkForDestruction(id)
		}
	}
	s.World.FlushDestroyQueue()
	s.ClearAlarm()
	clear(s.signals)
	clear(s.nextSignals)

	s.visited[i] = true

	ok := true
	if s.Level != nil && s.Level.Player != "" {
		ok = s.placePlayer(s.Level.Player)
	}
	if s.Level != nil {
		for _, sp := range s.Level.Spawns {
			if !s.spawnEntry(sp) {
				ok = false
			}
		}
	}
	// 存檔地圖已無出生標記，須在掃描後覆寫
	if rows, held := s.overlays[i]; held {
		delete(s.overlays, i)
		if err := s.Grid.Restore(i, rows); err != nil {
			s.log.Warn("存檔地圖無法套用", zap.Int("stage", i), zap.Error(err))
			ok = false
		}
	}
	return ok
}

// VisitedStages lists, ascending, the stages entered since the grid was
// installed. Only these can hold runtime tile edits.
func (s *State) VisitedStages() []int {
	out := make([]int, 0, len(s.visited))
	for i := range s.visited {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// OverlayStage replaces a stage's tiles with rows saved by an earlier
// session. The current stage is overwritten at once. Any other stage is
// held until EnterStage has run its spawn scan, because saved rows no
// longer carry spawn markers.
func (s *State) OverlayStage(stage int, rows [][]grid.Code) error {
	if stage < 0 || stage >= s.Grid.Levels() {
		return fmt.Errorf("overlay stage %d: %w", stage, grid.ErrLevelRange)
	}
	if len(rows) != s.Grid.Rows() {
		return fmt.Errorf("overlay stage %d: %d rows, want %d: %w", stage, len(rows), s.Grid.Rows(), grid.ErrDimensionMismatch)
	}
	if stage == s.Grid.Current() {
		return s.Grid.Restore(stage, rows)
	}
	s.overlays[stage] = rows
	return nil
}

func (s *State) placePlayer(species string) bool {
	if _, alive := s.Player(); !alive {
		_, ok := s.SpawnPlayer(species)
		return ok
	}
	sp := s.Species.Get(species)
	if sp == nil {
		return false
	}
	cell, found := s.Grid.FindFirst(sp.Marker)
	if !found {
		s.log.Warn("找不到玩家出生標記", zap.Int("marker", sp.Marker), zap.Int("stage", s.Grid.Current()))
		return false
	}
	s.Grid.Put(cell.Y, cell.X, grid.Empty)
	m, _ := s.Motion.Get(s.player)
	m.Pos = motion.At(cell)
	m.Vertical = physics.Vertical{}
	if p, ok := s.Players.Get(s.player); ok {
		p.Checkpoint = cell
		p.Level = s.Grid.Current()
	}
	return true
}

func (s *State) spawnEntry(e data.SpawnEntry) bool {
	marker := e.Marker
	if marker == 0 {
		sp := s.Species.Get(e.Species)
		if sp == nil {
			s.log.Warn("未知物種", zap.String("species", e.Species))
			return false
		}
		marker = sp.Marker
	}
	cells := s.Grid.FindAll(marker)
	if len(cells) == 0 {
		s.log.Warn("找不到出生標記",
			zap.String("species", e.Species), zap.Int("marker", marker), zap.Int("stage", s.Grid.Current()))
		return false
	}
	if e.Count > 0 && e.Count < len(cells) {
		cells = cells[:e.Count] // 只生成前 Count 個
	}
	for _, c := range cells {
		if _, ok := s.SpawnAt(e.Species, c); !ok {
			return false
		}
		s.Grid.Put(c.Y, c.X, grid.Empty)
	}
	return true
}

// LoadScene installs a level grid and enters its first stage. Any failure
// is logged and reported as false; the caller aborts scene entry.
func (s *State) LoadScene(levels *data.LevelList, info *data.LevelInfo) bool {
	if info == nil {
		s.log.Warn("關卡不存在")
		return false
	}
	g, err := levels.LoadGrid(info)
	if err != nil {
		s.log.Warn("關卡載入失敗", zap.Int("level", info.ID), zap.Error(err))
		return false
	}
	for _, id := range s.Motion.IDs() {
		s.World.MarkForDestruction(id)
	}
	s.World.FlushDestroyQueue()
	s.player = ecs.Nil
	s.exit = nil
	s.pendingStage = -1
	s.Level = info
	s.SetGrid(g)
	if !s.EnterStage(0) {
		s.log.Warn("關卡初始化失敗", zap.Int("level", info.ID), zap.String("name", info.Name))
		return false
	}
	s.log.Info("關卡已載入",
		zap.Int("level", info.ID), zap.String("name", info.Name),
		zap.Int("stages", g.Levels()), zap.Int("entities", s.Actors.Len()))
	return true
}
