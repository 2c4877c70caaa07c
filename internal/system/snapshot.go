package system

import (
	"reflect"
	"time"

	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/world"
)

// EventRecord is a dispatched bus event tagged with its type name.
type EventRecord struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Frame is what observers receive once per tick.
type Frame struct {
	world.Snapshot
	Events []EventRecord `json:"events,omitempty"`
}

// Publisher receives frames. It must not block the game loop.
type Publisher interface {
	Publish(f Frame)
}

// SnapshotSystem builds the render view and hands it, together with the
// events dispatched this tick, to a publisher. Phase 7 (Output).
type SnapshotSystem struct {
	world    *world.State
	pub      Publisher
	tileSize float64
	events   []EventRecord
}

// NewSnapshotSystem taps bus so every dispatched event is forwarded.
func NewSnapshotSystem(ws *world.State, bus *event.Bus, pub Publisher, tileSize float64) *SnapshotSystem {
	s := &SnapshotSystem{world: ws, pub: pub, tileSize: tileSize}
	bus.Tap(func(ev any) {
		s.events = append(s.events, EventRecord{Type: reflect.TypeOf(ev).Name(), Data: ev})
	})
	return s
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(_ time.Duration) {
	f := Frame{Snapshot: s.world.Snapshot(s.tileSize), Events: s.events}
	s.events = nil
	if s.pub != nil {
		s.pub.Publish(f)
	}
}
