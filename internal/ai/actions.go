package ai

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/scripting"
)

// ErrUnknownAction is returned when a table names an unregistered action.
var ErrUnknownAction = errors.New("unknown fsm action")

type Action func(c *Ctx)

func simple(fn Action) func(any) (Action, error) {
	return func(any) (Action, error) { return fn, nil }
}

var actionRegistry = map[string]func(any) (Action, error){
	"hold":    simple(func(c *Ctx) { c.hold() }),
	"patrol":  simple(patrol),
	"pursue":  simple(pursue),
	"flee":    simple(flee),
	"fire":    simple(fire),
	"reload":  simple(func(c *Ctx) { c.Brain.Shots = 0 }),
	"jump":    simple(func(c *Ctx) { c.Intent.Jump = true }),
	"alert":   simple(alert),
	"calm":    simple(func(c *Ctx) { c.Brain.Alarmed = false }),
	"face_target": simple(func(c *Ctx) {
		if d := c.towardTarget(); d == motion.Left || d == motion.Right {
			c.Intent.Face = d
		}
	}),
	"attack": func(arg any) (Action, error) {
		override := 0
		if arg != nil {
			if _, isBool := arg.(bool); !isBool {
				n, err := argInt("attack", arg)
				if err != nil {
					return nil, err
				}
				override = n
			}
		}
		return func(c *Ctx) { attack(c, override) }, nil
	},
	"cooldown": func(arg any) (Action, error) {
		n, err := argInt("cooldown", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) { c.Brain.Cooldown = n }, nil
	},
	"teleport": func(arg any) (Action, error) {
		mode := "next"
		if s, ok := arg.(string); ok {
			mode = s
		}
		switch mode {
		case "next", "home", "farthest":
		default:
			return nil, fmt.Errorf("teleport: unknown target %q", mode)
		}
		return func(c *Ctx) { teleport(c, mode) }, nil
	},
	"animate": func(arg any) (Action, error) {
		name, err := argString("animate", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) { c.Brain.Anim = name }, nil
	},
	"emit": func(arg any) (Action, error) {
		name, err := argString("emit", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) { c.Env.Signal(name) }, nil
	},
	"lua": func(arg any) (Action, error) {
		fn, err := argString("lua", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) {
			s := c.Env.Script()
			if s == nil {
				return
			}
			c.apply(s.Action(fn, c.scriptContext()))
		}, nil
	},
}

// patrol walks the waypoint cycle. Arriving aligned on the current
// waypoint advances the index, wrapping after the last one.
func patrol(c *Ctx) {
	b := c.Brain
	if len(b.Waypoints) == 0 {
		c.hold()
		return
	}
	if b.WaypointIndex < 0 || b.WaypointIndex >= len(b.Waypoints) {
		b.WaypointIndex = 0 // 熱重載後路徑點可能變少
	}
	// 對齊抵達目前路徑點才前進到下一個
	if c.Sense.Pos.Aligned() && c.Sense.Pos.Cell() == b.Waypoints[b.WaypointIndex] {
		b.WaypointIndex = (b.WaypointIndex + 1) % len(b.Waypoints)
	}
	c.moveToward(b.Waypoints[b.WaypointIndex])
}

// pursue 每 tick 重新規劃追向目標的路徑。
func pursue(c *Ctx) {
	if !c.Sense.HasTarget {
		c.hold()
		return
	}
	c.moveToward(c.Sense.TargetPos.Cell())
}

// flee heads for the retreat point farthest from the target: one of the
// waypoints or home. With no reachable retreat it steps straight away.
func flee(c *Ctx) {
	if !c.Sense.HasTarget {
		c.moveToward(c.Brain.Home)
		return
	}
	threat := motion.At(c.Sense.TargetPos.Cell())
	best, bestDist := c.Brain.Home, motion.Distance(motion.At(c.Brain.Home), threat)
	for _, wp := range c.Brain.Waypoints {
		if d := motion.Distance(motion.At(wp), threat); d > bestDist {
			best, bestDist = wp, d
		}
	}
	if c.moveToward(best) {
		return
	}
	// 無路可退，直接往遠離目標的方向走
	dx := c.Sense.Pos.CellX - c.Sense.TargetPos.CellX
	switch {
	case dx > 0:
		c.Intent.DX = 1
	case dx < 0:
		c.Intent.DX = -1
	case c.Sense.Facing == motion.Right:
		c.Intent.DX = -1
	default:
		c.Intent.DX = 1
	}
	if f := motion.Horizontal(c.Intent.DX); f != motion.None {
		c.Intent.Face = f
	}
}

// attack 接觸目標且冷卻結束時造成傷害。
func attack(c *Ctx, override int) {
	c.hold()
	if !c.contact() || c.Brain.Cooldown > 0 {
		return
	}
	dmg := c.Strategy.AttackDamage
	if override > 0 {
		dmg = override
	}
	// Lua 可覆寫接觸傷害
	if s := c.Env.Script(); s != nil {
		dmg = s.ContactDamage(dmg, c.scriptContext())
	}
	if dmg > 0 {
		c.Env.Damage(c.Sense.Self, c.Brain.Target, dmg)
	}
	c.Brain.Cooldown = c.Strategy.AttackCooldown
}

// fire launches one projectile if the cooldown has run out and the burst
// is not spent.
func fire(c *Ctx) {
	b := c.Brain
	if b.Cooldown > 0 {
		return
	}
	if c.Strategy.BurstSize > 0 && b.Shots >= c.Strategy.BurstSize {
		return // 連發次數已用完
	}
	c.Env.Fire(c.Sense.Self, c.towardTarget(), c.Strategy.ProjectileDamage)
	b.Shots++
	b.Cooldown = c.Strategy.FireCooldown
}

func alert(c *Ctx) {
	if !c.Brain.Alarmed {
		c.Env.RaiseAlarm(c.Sense.Self)
	}
	c.Brain.Alarmed = true
}

// teleport 直接跳到預先算好的格子，不走尋路。
func teleport(c *Ctx, mode string) {
	b := c.Brain
	var dest grid.Cell
	switch mode {
	case "home":
		dest = b.Home
	case "farthest":
		// 傳送到離目標最遠的路徑點
		if len(b.Waypoints) == 0 {
			return
		}
		from := motion.At(c.Sense.Pos.Cell())
		if c.Sense.HasTarget {
			from = motion.At(c.Sense.TargetPos.Cell())
		}
		best, bestDist := 0, -1.0
		for i, wp := range b.Waypoints {
			if d := motion.Distance(motion.At(wp), from); d > bestDist {
				best, bestDist = i, d
			}
		}
		b.WaypointIndex = best
		dest = b.Waypoints[best]
	default:
		if len(b.Waypoints) == 0 {
			return
		}
		b.WaypointIndex = (b.WaypointIndex + 1) % len(b.Waypoints)
		dest = b.Waypoints[b.WaypointIndex]
	}
	if c.Env.Teleport(c.Sense.Self, dest) {
		c.hold()
	}
}

// apply 執行腳本動作回傳的指令。
func (c *Ctx) apply(cmds []scripting.Command) {
	for _, cmd := range cmds {
		switch cmd.Type {
		case "move":
			c.Intent.DX, c.Intent.DY, c.Intent.Mag = clampUnit(cmd.DX), clampUnit(cmd.DY), 0
			if f := motion.Horizontal(cmd.DX); f != motion.None {
				c.Intent.Face = f
			}
		case "hold":
			c.hold()
		case "jump":
			c.Intent.Jump = true
		case "goto":
			c.next = cmd.State
		case "set":
			if c.Brain.Scratch == nil {
				c.Brain.Scratch = make(map[string]int)
			}
			c.Brain.Scratch[cmd.Name] = cmd.Value
		case "animate":
			c.Brain.Anim = cmd.Name
		case "alert":
			alert(c)
		case "fire":
			fire(c)
		case "pursue":
			pursue(c)
		default:
			c.log.Warn("未知腳本指令", zap.String("type", cmd.Type), zap.Stringer("entity", c.Sense.Self))
		}
	}
}

func clampUnit(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
