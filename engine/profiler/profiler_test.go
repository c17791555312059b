package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsAfterInterval(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Hour))
	for i := 0; i < 10; i++ {
		assert.False(t, p.Tick())
	}
	assert.Equal(t, Stats{}, p.Last())

	p = NewProfiler(WithUpdateInterval(0))
	assert.True(t, p.Tick())
	s := p.Last()
	assert.Greater(t, s.FPS, 0.0)
	assert.Greater(t, s.SysMB, 0.0)
}
