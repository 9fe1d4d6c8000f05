package health_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkadia/console/pkg/api"
	"github.com/arkadia/console/pkg/health"
)

type fakeProber struct {
	mu    sync.Mutex
	st    api.Status
	err   error
	calls int
}

func (f *fakeProber) Status(ctx context.Context) (api.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.st, f.err
}

func (f *fakeProber) set(st api.Status, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st, f.err = st, err
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCheckTransitions(t *testing.T) {
	p := &fakeProber{}
	m := health.New(p, time.Minute, nil)
	ctx := context.Background()

	p.set(api.Status{RasaOK: true, Message: "House of Three online"}, nil)
	u := m.Check(ctx)
	assert.Equal(t, health.StateOnline, u.State)
	assert.True(t, u.State.OK())
	assert.Equal(t, "House of Three online", u.Label)

	// The next tick fails at the network level: distinct label, not ok.
	p.set(api.Status{}, errors.New("connection refused"))
	u = m.Check(ctx)
	assert.Equal(t, health.StateUnavailable, u.State)
	assert.False(t, u.State.OK())
	assert.Equal(t, "Status unavailable", u.Label)

	// Backend answering but not ready is a different non-ok state.
	p.set(api.Status{RasaOK: false}, nil)
	u = m.Check(ctx)
	assert.Equal(t, health.StateDegraded, u.State)
	assert.False(t, u.State.OK())
	assert.Equal(t, "Backend degraded", u.Label)
}

func TestReadinessComesFromFlagNotHTTPSuccess(t *testing.T) {
	p := &fakeProber{}
	p.set(api.Status{RasaOK: false, Message: "up but cold"}, nil)

	m := health.New(p, time.Minute, nil)
	u := m.Check(context.Background())
	assert.Equal(t, health.StateDegraded, u.State)
}

func TestRunProbesImmediately(t *testing.T) {
	p := &fakeProber{}
	p.set(api.Status{RasaOK: true}, nil)

	m := health.New(p, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// First update arrives well before the first interval elapses.
	select {
	case u := <-m.Updates():
		assert.Equal(t, health.StateOnline, u.State)
	case <-time.After(time.Second):
		t.Fatal("no immediate probe at startup")
	}
}

func TestRunTicksAndStops(t *testing.T) {
	p := &fakeProber{}
	p.set(api.Status{}, errors.New("down"))

	m := health.New(p, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Failed ticks do not suppress subsequent ticks.
	require.Eventually(t, func() bool { return p.callCount() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
}

func TestStaleUpdateIsDropped(t *testing.T) {
	p := &fakeProber{}
	p.set(api.Status{}, errors.New("down"))

	m := health.New(p, 2*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// Let several ticks pass without consuming.
	require.Eventually(t, func() bool { return p.callCount() >= 4 }, time.Second, time.Millisecond)
	p.set(api.Status{RasaOK: true}, nil)

	// The consumer eventually observes the newest state, not a backlog.
	require.Eventually(t, func() bool {
		select {
		case u := <-m.Updates():
			return u.State == health.StateOnline
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
