package ai

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/data"
)

type transition struct {
	to     string
	when   []Condition
	health bool
}

func (t transition) fires(c *Ctx) bool {
	for _, cond := range t.when {
		if !cond(c) {
			return false
		}
	}
	return true
}

type stateDef struct {
	onEnter     []Action
	while       []Action
	onExit      []Action
	transitions []transition // health transitions first, then file order
}

// Table is one compiled FSM, shared by every actor that runs it.
type Table struct {
	name    string
	initial string
	states  map[string]*stateDef
	log     *zap.Logger
}

func (t *Table) Name() string    { return t.name }
func (t *Table) Initial() string { return t.initial }

// Has 回傳表中是否定義了該狀態。
func (t *Table) Has(state string) bool {
	_, ok := t.states[state]
	return ok
}

// sortedKeys gives multi-key YAML maps a fixed evaluation order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildActions(list []map[string]any) ([]Action, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]Action, 0, len(list))
	for _, item := range list {
		for _, k := range sortedKeys(item) {
			makeAction, ok := actionRegistry[k]
			if !ok {
				return nil, fmt.Errorf("%w %q", ErrUnknownAction, k)
			}
			a, err := makeAction(item[k])
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func buildTransition(raw data.RawTransition) (transition, error) {
	tr := transition{to: raw.To}
	for _, k := range sortedKeys(raw.When) {
		makeCond, ok := conditionRegistry[k]
		if !ok {
			return tr, fmt.Errorf("%w %q", ErrUnknownCondition, k)
		}
		cond, err := makeCond(raw.When[k])
		if err != nil {
			return tr, err
		}
		tr.when = append(tr.when, cond)
		if healthCondition(k) {
			tr.health = true
		}
	}
	return tr, nil
}

// Compile resolves a raw table against the action and condition registries.
func Compile(name string, raw data.RawTable, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("fsm %s: %w", name, err)
	}
	t := &Table{
		name:    name,
		initial: raw.Initial,
		states:  make(map[string]*stateDef, len(raw.States)),
		log:     log,
	}
	for sname, rs := range raw.States {
		def := &stateDef{}
		var err error
		if def.onEnter, err = buildActions(rs.OnEnter); err != nil {
			return nil, fmt.Errorf("fsm %s state %s on_enter: %w", name, sname, err)
		}
		if def.while, err = buildActions(rs.While); err != nil {
			return nil, fmt.Errorf("fsm %s state %s while: %w", name, sname, err)
		}
		if def.onExit, err = buildActions(rs.OnExit); err != nil {
			return nil, fmt.Errorf("fsm %s state %s on_exit: %w", name, sname, err)
		}
		var rest []transition
		for i, rt := range rs.Transitions {
			tr, err := buildTransition(rt)
			if err != nil {
				return nil, fmt.Errorf("fsm %s state %s transition %d: %w", name, sname, i, err)
			}
			if tr.health {
				def.transitions = append(def.transitions, tr)
			} else {
				rest = append(rest, tr)
			}
		}
		def.transitions = append(def.transitions, rest...)
		t.states[sname] = def
	}
	return t, nil
}

// Reset 將 brain 設回初始狀態，不執行進入動作。
func (t *Table) Reset(b *component.Brain) {
	b.Table = t.name
	b.State = ""
	b.Counter = 0
}

// Tick runs one AI step for the actor in c:
//
//  1. enter the initial state if the brain has none (or a stale one)
//  2. count down the cooldown and clear last tick's movement intent
//  3. the first transition whose conditions all hold switches state
//  4. run the current state's while actions
//  5. honour a scripted goto, then count the tick
func (t *Table) Tick(c *Ctx) {
	c.log = t.log
	b := c.Brain
	if !t.Has(b.State) {
		if b.State != "" {
			t.log.Warn("未知 FSM 狀態，重設為初始狀態",
				zap.String("fsm", t.name), zap.String("state", b.State), zap.Stringer("entity", c.Sense.Self))
		}
		t.switchTo(c, t.initial)
	}
	// 冷卻遞減，並清除上一 tick 的移動意圖
	if b.Cooldown > 0 {
		b.Cooldown--
	}
	c.Intent.DX, c.Intent.DY, c.Intent.Mag, c.Intent.Jump = 0, 0, 0, false

	// 只採用第一個成立的轉換
	for _, tr := range t.states[b.State].transitions {
		if tr.fires(c) {
			t.switchTo(c, tr.to)
			break
		}
	}

	for _, a := range t.states[b.State].while {
		a(c)
	}

	// 腳本要求的 goto
	if next := c.next; next != "" {
		c.next = ""
		if t.Has(next) {
			t.switchTo(c, next)
		} else {
			t.log.Warn("腳本要求未知狀態", zap.String("fsm", t.name), zap.String("state", next))
		}
	}
	b.Counter++
}

// switchTo runs exit actions of the current state, resets the counter and
// runs enter actions of the new one. Re-entering the current state counts
// as a transition.
func (t *Table) switchTo(c *Ctx, to string) {
	b := c.Brain
	from := b.State
	if cur, ok := t.states[from]; ok {
		for _, a := range cur.onExit {
			a(c)
		}
	}
	b.Table = t.name
	b.State = to
	b.Counter = 0
	for _, a := range t.states[to].onEnter {
		a(c)
	}
	c.Env.Transitioned(c.Sense.Self, from, to)
}
