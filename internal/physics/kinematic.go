// Package physics resolves vertical motion under constant gravity and feeds
// the result through the motion package one micro-step at a time.
package physics

import (
	"math"

	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

// Status is the vertical state of an actor.
type Status int

const (
	Idle Status = iota
	Jump
	Fall
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Jump:
		return "jump"
	case Fall:
		return "fall"
	}
	return "unknown"
}

// Params are per-species integration constants. Gravity is an acceleration
// in world units per second squared and is negative (pulls down); positive
// velocity is upward. MicroStep is the world-unit size of one vertical
// micro-step.
type Params struct {
	Gravity      float64
	MaxFallSpeed float64
	MicroStep    float64
}

// Integrate advances vertical velocity vy over dt seconds and returns the
// new velocity and the displacement travelled, using the exact
// constant-acceleration step. When MaxFallSpeed is positive the downward
// velocity is capped and the displacement follows the capped velocity.
func Integrate(vy, dt float64, p Params) (newVy, disp float64) {
	newVy = vy + p.Gravity*dt
	disp = vy*dt + 0.5*p.Gravity*dt*dt
	if p.MaxFallSpeed > 0 && newVy < -p.MaxFallSpeed {
		newVy = -p.MaxFallSpeed
		disp = 0.5 * (vy + newVy) * dt
	}
	return newVy, disp
}

// Vertical is the vertical half of an actor's motion state. Remainder keeps
// displacement smaller than one micro-step for the next tick.
type Vertical struct {
	Status    Status
	VY        float64
	Remainder float64
}

// Resolver applies integrated displacement against the tile grid.
type Resolver struct {
	stepper *motion.Stepper
}

func NewResolver(s *motion.Stepper) *Resolver {
	return &Resolver{stepper: s}
}

// Grounded reports whether a one micro-step move down is stopped, either by
// a tile at or above threshold or by the bottom edge of the grid.
func (r *Resolver) Grounded(p motion.Position, fp motion.Footprint, threshold grid.Code) bool {
	if r.stepper.Blocked(p, motion.Down, 1, fp, threshold) {
		return true
	}
	_, moved := r.stepper.Step(p, motion.Down, 1, fp, threshold)
	return !moved
}

// Jump starts a jump with upward speed. Only an Idle actor can jump.
func (r *Resolver) Jump(v *Vertical, speed float64) bool {
	if v.Status != Idle || speed <= 0 {
		return false
	}
	v.Status = Jump
	v.VY = speed
	v.Remainder = 0
	return true
}

// Update runs one tick of vertical motion and returns the new position.
//
//	Idle --no ground--> Fall
//	Jump --blocked--> Fall, Jump --vy<=0--> Fall
//	Fall --blocked--> Idle
func (r *Resolver) Update(pos motion.Position, v *Vertical, dt float64, p Params, fp motion.Footprint, threshold grid.Code) motion.Position {
	if v.Status == Idle {
		if r.Grounded(pos, fp, threshold) {
			v.VY, v.Remainder = 0, 0
			return pos
		}
		// 腳下懸空，開始下落
		v.Status = Fall
		v.VY = 0
	}

	newVy, disp := Integrate(v.VY, dt, p)
	v.VY = newVy

	micro := p.MicroStep
	if micro <= 0 {
		micro = 1
	}
	// 不足一個微步的位移留到下一 tick
	total := disp + v.Remainder
	n := int(total / micro)
	v.Remainder = total - float64(n)*micro

	dir := motion.Up
	if n < 0 {
		dir = motion.Down
		n = -n
	}
	for i := 0; i < n; i++ {
		next, moved := r.stepper.Step(pos, dir, 1, fp, threshold)
		if !moved {
			// 撞到天花板或落地
			pos.SubY = 0
			v.VY, v.Remainder = 0, 0
			switch v.Status {
			case Jump:
				v.Status = Fall
			case Fall:
				if dir == motion.Down {
					v.Status = Idle
				}
			}
			return pos
		}
		pos = next
	}

	if v.Status == Jump && v.VY <= 0 {
		v.Status = Fall
	}
	return pos
}

// ApexTicks returns how many whole ticks of dt a jump at speed v0 rises for
// before its velocity reaches zero.
func ApexTicks(v0, dt float64, p Params) int {
	if p.Gravity >= 0 || dt <= 0 {
		return 0
	}
	return int(math.Ceil(v0 / (-p.Gravity * dt)))
}
