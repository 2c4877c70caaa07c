package ai

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/data"
)

// Engine holds every compiled FSM table by name.
// Single-goroutine access only (game loop).
type Engine struct {
	tables map[string]*Table
	log    *zap.Logger
}

// NewEngine compiles all raw tables. Any error rejects the whole set.
func NewEngine(raw map[string]data.RawTable, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{log: log}
	if err := e.Reload(raw); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload compiles a new table set and swaps it in only if every table
// compiles. Brains whose state vanished re-enter their initial state on
// their next tick.
func (e *Engine) Reload(raw map[string]data.RawTable) error {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make(map[string]*Table, len(raw))
	for _, name := range names {
		t, err := Compile(name, raw[name], e.log)
		if err != nil {
			return err
		}
		tables[name] = t
	}
	e.tables = tables
	e.log.Info("FSM 表已載入", zap.Int("tables", len(tables)))
	return nil
}

// Table 依名稱取得已編譯的狀態機表。
func (e *Engine) Table(name string) (*Table, bool) {
	t, ok := e.tables[name]
	return t, ok
}

// Count 回傳已編譯的狀態機表數量。
func (e *Engine) Count() int { return len(e.tables) }

// Tick 執行一步該 brain 的狀態機。
func (e *Engine) Tick(b *component.Brain, in *component.Intent, s *Strategy, sense Sense, env Env) error {
	t, ok := e.tables[b.Table]
	if !ok {
		return fmt.Errorf("fsm %q not loaded", b.Table)
	}
	t.Tick(&Ctx{Brain: b, Intent: in, Strategy: s, Sense: sense, Env: env})
	return nil
}
