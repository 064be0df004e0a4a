package dispatch

import (
	"sync"
	"testing"
	"time"
)

type sentCommand struct {
	host  string
	on    bool
	delay time.Duration
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCommand
}

func (f *fakeSender) SendRelayControl(host string, on bool, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCommand{host: host, on: on, delay: delay})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestDispatcher(sender *fakeSender, onAbandoned func(string)) *Dispatcher {
	return New(
		Config{RetryInterval: 5 * time.Second, MaxRetries: 3},
		sender,
		map[string]string{"lounge": "192.168.1.50"},
		onAbandoned,
		nil,
		nil,
	)
}

func TestSubmitSendsImmediately(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	d.Submit("lounge", true, 30*time.Second)

	if sender.count() != 1 {
		t.Fatalf("sends = %d, want 1", sender.count())
	}
	got := sender.sent[0]
	if got.host != "192.168.1.50" || !got.on || got.delay != 30*time.Second {
		t.Fatalf("sent = %+v", got)
	}
	if !d.Pending("lounge") {
		t.Fatal("command not pending after submit")
	}
}

func TestSubmitDedupesSameState(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	d.Submit("lounge", true, 0)
	d.Submit("lounge", true, 0)

	if sender.count() != 1 {
		t.Fatalf("sends = %d, want 1 (same desired state deduped)", sender.count())
	}

	// A differing state replaces the pending command and sends.
	d.Submit("lounge", false, 0)
	if sender.count() != 2 {
		t.Fatalf("sends = %d, want 2 after state change", sender.count())
	}
	if sender.sent[1].on {
		t.Fatal("second send should request off")
	}
}

func TestSubmitUnknownRoomDropped(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	d.Submit("attic", true, 0)
	if sender.count() != 0 {
		t.Fatalf("sends = %d, want 0 for unknown room", sender.count())
	}
}

func TestConfirmClearsPending(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	d.Submit("lounge", true, 0)

	// A report with the wrong state does not confirm.
	if d.Confirm("lounge", false) {
		t.Fatal("Confirm(off) matched a pending on command")
	}
	if !d.Pending("lounge") {
		t.Fatal("pending cleared by non-matching confirm")
	}

	if !d.Confirm("lounge", true) {
		t.Fatal("Confirm(on) did not match")
	}
	if d.Pending("lounge") {
		t.Fatal("pending survives a matching confirm")
	}

	// Sweeps after confirmation resend nothing.
	d.Sweep(time.Now().Add(time.Hour))
	if sender.count() != 1 {
		t.Fatalf("sends = %d, want 1", sender.count())
	}
}

func TestSweepRetriesThenAbandons(t *testing.T) {
	sender := &fakeSender{}
	var abandoned []string
	d := newTestDispatcher(sender, func(roomName string) {
		abandoned = append(abandoned, roomName)
	})

	d.Submit("lounge", true, 0)

	// Drive time far past every backoff interval; each sweep may
	// perform at most one retry per room.
	now := time.Now()
	for i := 1; i <= 3; i++ {
		now = now.Add(time.Hour)
		d.Sweep(now)
		if sender.count() != 1+i {
			t.Fatalf("after sweep %d: sends = %d, want %d", i, sender.count(), 1+i)
		}
	}

	// Retries exhausted: the next due sweep abandons.
	now = now.Add(time.Hour)
	d.Sweep(now)
	if sender.count() != 4 {
		t.Fatalf("sends = %d, want 4 (no send on abandon)", sender.count())
	}
	if len(abandoned) != 1 || abandoned[0] != "lounge" {
		t.Fatalf("abandoned = %v, want [lounge]", abandoned)
	}
	if d.Pending("lounge") {
		t.Fatal("pending survives abandonment")
	}
}

func TestSweepBeforeRetryTimeDoesNothing(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, nil)

	d.Submit("lounge", true, 0)
	d.Sweep(time.Now())

	if sender.count() != 1 {
		t.Fatalf("sends = %d, want 1 (retry not due yet)", sender.count())
	}
}
