package devicelog

import (
	"net/netip"
	"sync"
	"time"

	"github.com/hearthd/hearthd/internal/wire"
)

// defaultOfflineDeadline is how long a device may stay silent before
// it is reported offline.
const defaultOfflineDeadline = time.Minute

// Presence reports devices going online and offline based on their
// log traffic. A device is online from its first batch and offline
// once it has been silent past the deadline; the transition callback
// fires on each edge, never repeatedly.
type Presence struct {
	deadline time.Duration
	notify   func(host string, online bool)

	mu    sync.Mutex
	hosts map[string]*presenceState
}

type presenceState struct {
	lastSeen time.Time
	online   bool
}

// NewPresence builds a tracker. A zero deadline selects the default;
// notify must not be nil.
func NewPresence(deadline time.Duration, notify func(host string, online bool)) *Presence {
	if deadline <= 0 {
		deadline = defaultOfflineDeadline
	}
	return &Presence{
		deadline: deadline,
		notify:   notify,
		hosts:    make(map[string]*presenceState),
	}
}

// HandleLogBatch records a sighting of the batch's origin.
func (p *Presence) HandleLogBatch(origin netip.AddrPort, _ *wire.LoggerProto, now time.Time) {
	p.Seen(origin.Addr().String(), now)
}

// Seen records traffic from a host, reporting it online if it was not.
func (p *Presence) Seen(host string, now time.Time) {
	p.mu.Lock()
	st, known := p.hosts[host]
	if !known {
		st = &presenceState{}
		p.hosts[host] = st
	}
	st.lastSeen = now
	wasOnline := st.online
	st.online = true
	p.mu.Unlock()

	if !wasOnline {
		p.notify(host, true)
	}
}

// Sweep reports hosts that have been silent past the deadline.
func (p *Presence) Sweep(now time.Time) {
	var offline []string

	p.mu.Lock()
	for host, st := range p.hosts {
		if st.online && now.Sub(st.lastSeen) > p.deadline {
			st.online = false
			offline = append(offline, host)
		}
	}
	p.mu.Unlock()

	for _, host := range offline {
		p.notify(host, false)
	}
}

// Run sweeps on a ticker until the context is cancelled. The sweep
// period is half the deadline so an offline report is never delayed
// by more than deadline*1.5.
func (p *Presence) Run(done <-chan struct{}) {
	ticker := time.NewTicker(p.deadline / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			p.Sweep(now)
		}
	}
}
