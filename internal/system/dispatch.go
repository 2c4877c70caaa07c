package system

import (
	"time"

	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/world"
)

// EventDispatchSystem opens the tick: it advances the tick counter and
// delivers the events emitted during the previous tick. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	world *world.State
	bus   *event.Bus
}

func NewEventDispatchSystem(ws *world.State, bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{world: ws, bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.world.BeginTick()
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
