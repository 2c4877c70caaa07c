package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for scripted AI hooks.
// Single-goroutine access only (game loop). Reload swaps the VM in place.
type Engine struct {
	vm  *lua.LState
	dir string
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{dir: scriptsDir, log: log}
	vm, err := e.newVM()
	if err != nil {
		return nil, err
	}
	e.vm = vm
	return e, nil
}

func (e *Engine) newVM() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// 設定 API 版本全域變數
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	// 先載入頂層腳本，再載入 ai/ 子目錄
	for _, dir := range []string{e.dir, filepath.Join(e.dir, "ai")} {
		if err := e.loadDir(vm, dir); err != nil {
			vm.Close()
			return nil, err
		}
	}
	return vm, nil
}

// Reload 從磁碟重建 VM，失敗時保留執行中的 VM。
func (e *Engine) Reload() error {
	vm, err := e.newVM()
	if err != nil {
		return err
	}
	// 新 VM 載入成功才替換
	e.vm.Close()
	e.vm = vm
	e.log.Info("lua 腳本已重新載入", zap.String("dir", e.dir))
	return nil
}

// loadDir 依檔名順序載入目錄中所有 .lua 檔。
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // 目錄不存在就跳過
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// AIContext is the read-only view of one actor passed to scripted hooks.
type AIContext struct {
	Entity  uint64
	Species string
	State   string
	Counter int
	Tick    uint64

	X, Y      int
	HP, MaxHP int
	Cooldown  int
	Shots     int
	Alarmed   bool
	Lives     int

	// 目標（HasTarget 為 false 時皆為 0）
	HasTarget  bool
	TargetX    int
	TargetY    int
	TargetDist float64
	Contact    bool

	Scratch map[string]int
}

// Command is a single action returned by a scripted AI action.
type Command struct {
	Type  string // "move", "hold", "jump", "goto", "set", "animate", "alert", "fire"
	DX    int
	DY    int
	State string
	Name  string
	Value int
}

func (e *Engine) context(ctx AIContext) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(ctx.Entity))
	t.RawSetString("species", lua.LString(ctx.Species))
	t.RawSetString("state", lua.LString(ctx.State))
	t.RawSetString("counter", lua.LNumber(ctx.Counter))
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("cooldown", lua.LNumber(ctx.Cooldown))
	t.RawSetString("shots", lua.LNumber(ctx.Shots))
	t.RawSetString("alarmed", lua.LBool(ctx.Alarmed))
	t.RawSetString("lives", lua.LNumber(ctx.Lives))

	t.RawSetString("has_target", lua.LBool(ctx.HasTarget))
	t.RawSetString("target_x", lua.LNumber(ctx.TargetX))
	t.RawSetString("target_y", lua.LNumber(ctx.TargetY))
	t.RawSetString("target_dist", lua.LNumber(ctx.TargetDist))
	t.RawSetString("contact", lua.LBool(ctx.Contact))

	scratch := e.vm.NewTable()
	keys := make([]string, 0, len(ctx.Scratch))
	for k := range ctx.Scratch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		scratch.RawSetString(k, lua.LNumber(ctx.Scratch[k]))
	}
	t.RawSetString("scratch", scratch)
	return t
}

// call runs a global function with one argument and returns its single result.
func (e *Engine) call(name string, arg lua.LValue) (lua.LValue, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return lua.LNil, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return lua.LNil, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, true
}

// Condition calls fn(ctx) and reports its truthiness. Errors count as false.
func (e *Engine) Condition(fn string, ctx AIContext) bool {
	result, ok := e.call(fn, e.context(ctx))
	if !ok {
		return false
	}
	return lua.LVAsBool(result)
}

// Action calls fn(ctx) and parses the returned array of command tables.
func (e *Engine) Action(fn string, ctx AIContext) []Command {
	result, ok := e.call(fn, e.context(ctx))
	if !ok {
		return nil
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	// 解析指令陣列
	var cmds []Command
	n := rt.Len()
	for i := 1; i <= n; i++ {
		row, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue // 忽略非 table 的元素
		}
		cmds = append(cmds, Command{
			Type:  lStr(row, "type"),
			DX:    lInt(row, "dx"),
			DY:    lInt(row, "dy"),
			State: lStr(row, "state"),
			Name:  lStr(row, "name"),
			Value: lInt(row, "value"),
		})
	}
	return cmds
}

// ContactDamage calls calc_contact_damage(base, ctx). A missing function or
// a script error returns base unchanged.
func (e *Engine) ContactDamage(base int, ctx AIContext) int {
	fn := e.vm.GetGlobal("calc_contact_damage")
	if fn == lua.LNil {
		return base // 未定義就用基礎傷害
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(base), e.context(ctx)); err != nil {
		e.log.Error("lua calc_contact_damage error", zap.Error(err))
		return base
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		return base
	}
	if n < 0 {
		return 0 // 傷害不為負
	}
	return int(n)
}

// --- Lua helpers ---

// lInt 從 Lua table 讀取整數欄位。
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr 從 Lua table 讀取字串欄位。
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close 關閉 Lua VM。
func (e *Engine) Close() {
	e.vm.Close()
}
