package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase           { return r.phase }
func (r recorder) Update(_ time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"motion", PhaseMotion, &log})
	r.Register(recorder{"ai-b", PhaseAI, &log})
	r.Register(recorder{"interaction", PhaseInteraction, &log})
	r.Register(recorder{"ai-a", PhaseAI, &log})
	r.Register(recorder{"input", PhaseInput, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "ai-b", "ai-a", "motion", "interaction", "cleanup"}, log)
	assert.Equal(t, uint64(1), r.Ticks())

	log = log[:0]
	r.TickPhase(PhaseAI, time.Millisecond)
	assert.Equal(t, []string{"ai-b", "ai-a"}, log)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "physics", PhasePhysics.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
