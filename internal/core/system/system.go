package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: apply queued input frames
	PhasePreUpdate                // 1: deliver last tick's events
	PhaseAI                       // 2: sense + FSM decisions
	PhaseMotion                   // 3: horizontal / directed stepping
	PhasePhysics                  // 4: vertical integration
	PhaseProjectile               // 5: projectile stepping and hits
	PhaseInteraction              // 6: tile side effects, deaths
	PhaseOutput                   // 7: render snapshot
	PhasePersist                  // 8: periodic grid save
	PhaseCleanup                  // 9: destroy queued entities
)

var phaseNames = [...]string{
	"input", "pre_update", "ai", "motion", "physics",
	"projectile", "interaction", "output", "persist", "cleanup",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
