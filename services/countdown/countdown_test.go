package countdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logsvc "github.com/trezcool/lms/services/logger"
)

func TestScheduler(t *testing.T) {
	s := New(logsvc.NewNop())
	s.Start()
	defer s.Stop()

	var ticks int32
	require.NoError(t, s.Register("q1", 20*time.Millisecond, func() { atomic.AddInt32(&ticks, 1) }))
	assert.Error(t, s.Register("q1", time.Second, func() {}))
	assert.Equal(t, 1, s.Len())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 3 }, 2*time.Second, 10*time.Millisecond)

	s.Unregister("q1")
	assert.Equal(t, 0, s.Len())
	time.Sleep(50 * time.Millisecond) // let an in-flight tick land
	after := atomic.LoadInt32(&ticks)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&ticks))

	s.Unregister("unknown")
}

func TestScheduler_UnregisterFromTick(t *testing.T) {
	s := New(logsvc.NewNop())
	s.Start()
	defer s.Stop()

	done := make(chan struct{})
	var once int32
	require.NoError(t, s.Register("q1", 10*time.Millisecond, func() {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			s.Unregister("q1")
			close(done)
		}
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never ran")
	}
	assert.Equal(t, 0, s.Len())
}
