package heartbeat

import (
	"sync"
	"testing"
	"time"

	"github.com/mwhitlock/sourcelink/internal/frame"
	"github.com/mwhitlock/sourcelink/internal/session"
)

// fakeSender records sent frames and can be flipped to a not-open state.
type fakeSender struct {
	mu           sync.Mutex
	sent         [][]byte
	failWith     error
	lastActivity time.Time
}

func newFakeSender() *fakeSender {
	return &fakeSender{lastActivity: time.Now()}
}

func (f *fakeSender) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSender) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) firstSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[0]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMonitorSendsHeartbeatFrames(t *testing.T) {
	sender := newFakeSender()
	mon := Start(sender, Config{Interval: 20 * time.Millisecond}, nil)
	defer mon.Stop()

	waitFor(t, 2*time.Second, func() bool { return sender.sentCount() >= 2 })

	f, err := frame.Decode(sender.firstSent())
	if err != nil {
		t.Fatalf("heartbeat frame undecodable: %v", err)
	}
	if f.Type != frame.HeartbeatType {
		t.Errorf("frame type = %q, want %q", f.Type, frame.HeartbeatType)
	}
}

func TestStopPreventsFurtherHeartbeats(t *testing.T) {
	sender := newFakeSender()
	mon := Start(sender, Config{Interval: 10 * time.Millisecond}, nil)

	waitFor(t, 2*time.Second, func() bool { return sender.sentCount() >= 1 })
	mon.Stop()

	n := sender.sentCount()
	time.Sleep(50 * time.Millisecond)
	if got := sender.sentCount(); got != n {
		t.Errorf("heartbeats after Stop: sent %d, want %d", got, n)
	}

	// Stop is safe to call again.
	mon.Stop()
}

func TestMonitorStopsSilentlyWhenSessionNotOpen(t *testing.T) {
	sender := newFakeSender()
	sender.fail(session.ErrNotOpen)

	mon := Start(sender, Config{Interval: 10 * time.Millisecond}, nil)
	defer mon.Stop()

	// The monitor should give up on the first failed send and never
	// accumulate successful sends.
	time.Sleep(60 * time.Millisecond)
	if got := sender.sentCount(); got != 0 {
		t.Errorf("sent %d heartbeats, want 0", got)
	}
}

func TestLivenessTimeoutTriggersOnStale(t *testing.T) {
	sender := newFakeSender()
	sender.mu.Lock()
	sender.lastActivity = time.Now().Add(-time.Minute)
	sender.mu.Unlock()

	stale := make(chan struct{}, 1)
	mon := Start(sender, Config{
		Interval:        10 * time.Millisecond,
		LivenessTimeout: 50 * time.Millisecond,
		OnStale:         func() { stale <- struct{}{} },
	}, nil)
	defer mon.Stop()

	select {
	case <-stale:
	case <-time.After(2 * time.Second):
		t.Fatal("OnStale never invoked")
	}

	// The stale check fires before the heartbeat send on that tick.
	if got := sender.sentCount(); got != 0 {
		t.Errorf("sent %d heartbeats after staleness, want 0", got)
	}
}

func TestLivenessDisabledByDefault(t *testing.T) {
	sender := newFakeSender()
	sender.mu.Lock()
	sender.lastActivity = time.Now().Add(-time.Hour)
	sender.mu.Unlock()

	mon := Start(sender, Config{
		Interval: 10 * time.Millisecond,
		OnStale:  func() { t.Error("OnStale invoked with liveness disabled") },
	}, nil)
	defer mon.Stop()

	waitFor(t, 2*time.Second, func() bool { return sender.sentCount() >= 1 })
}
