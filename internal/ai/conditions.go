package ai

import (
	"errors"
	"strings"
)

// ErrUnknownCondition is returned when a table names an unregistered condition.
var ErrUnknownCondition = errors.New("unknown fsm condition")

type Condition func(c *Ctx) bool

// healthCondition reports whether a condition name is checked before any
// other transition of its state.
func healthCondition(name string) bool { return strings.HasPrefix(name, "health_") }

// flag builds a boolean-argument condition; `name: false` negates it.
func flag(name string, fn Condition) func(any) (Condition, error) {
	return func(arg any) (Condition, error) {
		want, err := argFlag(name, arg)
		if err != nil {
			return nil, err
		}
		if want {
			return fn, nil
		}
		return func(c *Ctx) bool { return !fn(c) }, nil
	}
}

func intCondition(name string, fn func(c *Ctx, n int) bool) func(any) (Condition, error) {
	return func(arg any) (Condition, error) {
		n, err := argInt(name, arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) bool { return fn(c, n) }, nil
	}
}

func radiusCondition(name string, fn func(c *Ctx, r float64) bool) func(any) (Condition, error) {
	return func(arg any) (Condition, error) {
		r, err := argFloat(name, arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) bool { return fn(c, r) }, nil
	}
}

func sensed(c *Ctx) bool {
	d, ok := c.targetDistance()
	return ok && d <= c.Strategy.Radius(c.alarmed())
}

var conditionRegistry = map[string]func(any) (Condition, error){
	"always": flag("always", func(*Ctx) bool { return true }),
	"counter_at_least": intCondition("counter_at_least", func(c *Ctx, n int) bool {
		return c.Brain.Counter >= n
	}),
	"target_sensed": flag("target_sensed", sensed),
	"target_lost":   flag("target_lost", func(c *Ctx) bool { return !sensed(c) }),
	"target_within": radiusCondition("target_within", func(c *Ctx, r float64) bool {
		d, ok := c.targetDistance()
		return ok && d <= r
	}),
	"target_beyond": radiusCondition("target_beyond", func(c *Ctx, r float64) bool {
		d, ok := c.targetDistance()
		return !ok || d > r
	}),
	"in_contact":     flag("in_contact", func(c *Ctx) bool { return c.contact() }),
	"not_in_contact": flag("not_in_contact", func(c *Ctx) bool { return !c.contact() }),
	"health_below": intCondition("health_below", func(c *Ctx, n int) bool {
		return c.Sense.Health < n
	}),
	"health_at_least": intCondition("health_at_least", func(c *Ctx, n int) bool {
		return c.Sense.Health >= n
	}),
	// health_between [lo, hi] holds for lo < health <= hi.
	"health_between": func(arg any) (Condition, error) {
		lo, hi, err := argRange("health_between", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) bool { return c.Sense.Health > lo && c.Sense.Health <= hi }, nil
	},
	"alarmed": flag("alarmed", func(c *Ctx) bool { return c.alarmed() }),
	"waypoint_reached_last": flag("waypoint_reached_last", func(c *Ctx) bool {
		b := c.Brain
		last := len(b.Waypoints) - 1
		if last < 0 || b.WaypointIndex != last {
			return false
		}
		return c.Sense.Pos.Aligned() && c.Sense.Pos.Cell() == b.Waypoints[last]
	}),
	"cooldown_ready": flag("cooldown_ready", func(c *Ctx) bool { return c.Brain.Cooldown <= 0 }),
	"burst_spent": flag("burst_spent", func(c *Ctx) bool {
		return c.Strategy.BurstSize > 0 && c.Brain.Shots >= c.Strategy.BurstSize
	}),
	"signal": func(arg any) (Condition, error) {
		name, err := argString("signal", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) bool { return c.Sense.Signals[name] }, nil
	},
	"lives_zero": flag("lives_zero", func(c *Ctx) bool { return c.Sense.Lives <= 0 }),
	"lua": func(arg any) (Condition, error) {
		fn, err := argString("lua", arg)
		if err != nil {
			return nil, err
		}
		return func(c *Ctx) bool {
			s := c.Env.Script()
			return s != nil && s.Condition(fn, c.scriptContext())
		}, nil
	},
}
