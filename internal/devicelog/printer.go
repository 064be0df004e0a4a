package devicelog

import (
	"fmt"
	"io"
	"net/netip"
	"sync"
	"time"

	"github.com/hearthd/hearthd/internal/wire"
)

// restartSeparator marks a device reboot in the output stream.
const restartSeparator = "------------>8------------"

// BatchHandler consumes decoded log batches from the listener.
type BatchHandler interface {
	HandleLogBatch(origin netip.AddrPort, batch *wire.LoggerProto, now time.Time)
}

// Handlers fans one batch out to several handlers.
type Handlers []BatchHandler

// HandleLogBatch forwards the batch to every handler.
func (hs Handlers) HandleLogBatch(origin netip.AddrPort, batch *wire.LoggerProto, now time.Time) {
	for _, h := range hs {
		h.HandleLogBatch(origin, batch, now)
	}
}

// Printer renders device log batches as human-readable lines.
//
// Devices timestamp records with their uptime clock, so the printer
// reconstructs wall-clock times by rewinding the arrival time by the
// record's age within the batch. A host banner is printed whenever
// output switches to a different device, and a separator marks an
// uptime-clock regression, which means the device rebooted.
type Printer struct {
	out io.Writer

	mu         sync.Mutex
	hosts      map[string]*hostState
	activeHost string
}

// hostState remembers the last uptime reading per device.
type hostState struct {
	lastCurrentTS uint64
}

// NewPrinter writes rendered log lines to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:   out,
		hosts: make(map[string]*hostState),
	}
}

// HandleLogBatch renders one batch.
func (p *Printer) HandleLogBatch(origin netip.AddrPort, batch *wire.LoggerProto, now time.Time) {
	if batch == nil || batch.CurrentTS == nil {
		return
	}
	host := origin.Addr().String()
	currentTS := *batch.CurrentTS

	p.mu.Lock()
	defer p.mu.Unlock()

	hs, known := p.hosts[host]
	if !known {
		hs = &hostState{}
		p.hosts[host] = hs
	}

	restarted := known && currentTS < hs.lastCurrentTS
	if restarted {
		fmt.Fprintln(p.out, restartSeparator)
	}
	if host != p.activeHost || restarted {
		fmt.Fprintf(p.out, "===== %s (up %s) =====\n", host, formatUptime(currentTS))
		p.activeHost = host
	}

	// Devices resend recent records in every batch, so anything stamped
	// before the previous batch's clock has been printed already. A
	// restart invalidates that watermark along with the clock.
	floor := hs.lastCurrentTS
	if restarted {
		floor = 0
	}

	for _, rec := range batch.Record {
		if rec.TS == nil || rec.Text == nil {
			continue
		}
		if *rec.TS < floor {
			continue
		}
		var age time.Duration
		if *rec.TS <= currentTS {
			age = time.Duration(currentTS-*rec.TS) * time.Millisecond
		}
		when := now.Add(-age)
		fmt.Fprintf(p.out, "%s %s %s\n", when.Format("15:04:05.000"), levelName(rec.Type), *rec.Text)
	}

	hs.lastCurrentTS = currentTS
}

// levelName maps a record type to a printable level.
func levelName(t *wire.MsgType) string {
	if t == nil {
		return "DEBUG"
	}
	switch *t {
	case wire.MsgWarn:
		return "WARN"
	case wire.MsgError:
		return "ERROR"
	default:
		return "DEBUG"
	}
}

// formatUptime renders a device uptime in milliseconds as "Xd Xh Xm".
func formatUptime(ms uint64) string {
	d := time.Duration(ms) * time.Millisecond
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
