package devicelog_test

import (
	"bytes"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/hearthd/hearthd/internal/devicelog"
	"github.com/hearthd/hearthd/internal/wire"
)

func msgType(t wire.MsgType) *wire.MsgType { return &t }

func logBatch(currentTS uint64, records ...wire.LogMsg) *wire.LoggerProto {
	return &wire.LoggerProto{
		Record:    records,
		LastTS:    wire.Uint64(currentTS),
		CurrentTS: wire.Uint64(currentTS),
	}
}

func TestPrinterRendersBatch(t *testing.T) {
	var buf bytes.Buffer
	p := devicelog.NewPrinter(&buf)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	origin := netip.MustParseAddrPort("10.0.0.5:6001")

	// Device has been up 1h5m; the record is two seconds old.
	const currentTS = 3_900_000
	batch := logBatch(currentTS,
		wire.LogMsg{Type: msgType(wire.MsgWarn), TS: wire.Uint64(currentTS - 2000), Text: wire.String("sensor read retry")},
		wire.LogMsg{Type: msgType(wire.MsgDebug), TS: wire.Uint64(currentTS - 500), Text: wire.String("report sent")},
	)
	p.HandleLogBatch(origin, batch, now)

	out := buf.String()
	if !strings.Contains(out, "===== 10.0.0.5 (up 0d 1h 5m) =====") {
		t.Errorf("missing host banner:\n%s", out)
	}
	if !strings.Contains(out, "11:59:58.000 WARN sensor read retry") {
		t.Errorf("missing reconstructed warn line:\n%s", out)
	}
	if !strings.Contains(out, "11:59:59.500 DEBUG report sent") {
		t.Errorf("missing reconstructed debug line:\n%s", out)
	}
}

func TestPrinterMarksRestart(t *testing.T) {
	var buf bytes.Buffer
	p := devicelog.NewPrinter(&buf)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	origin := netip.MustParseAddrPort("10.0.0.5:6001")

	p.HandleLogBatch(origin, logBatch(3_600_000), now)
	buf.Reset()

	// Uptime clock went backwards: the device rebooted.
	batch := logBatch(5_000,
		wire.LogMsg{Type: msgType(wire.MsgError), TS: wire.Uint64(4_000), Text: wire.String("watchdog reset")},
	)
	p.HandleLogBatch(origin, batch, now.Add(time.Minute))

	out := buf.String()
	if !strings.Contains(out, "------------>8------------") {
		t.Errorf("missing restart separator:\n%s", out)
	}
	if !strings.Contains(out, "(up 0d 0h 0m)") {
		t.Errorf("banner should show fresh uptime:\n%s", out)
	}
	if !strings.Contains(out, "ERROR watchdog reset") {
		t.Errorf("missing record after restart:\n%s", out)
	}
}

func TestPrinterSkipsResentRecords(t *testing.T) {
	var buf bytes.Buffer
	p := devicelog.NewPrinter(&buf)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	origin := netip.MustParseAddrPort("10.0.0.5:6001")

	p.HandleLogBatch(origin, logBatch(3_000,
		wire.LogMsg{Type: msgType(wire.MsgDebug), TS: wire.Uint64(2_000), Text: wire.String("sensor init")},
		wire.LogMsg{Type: msgType(wire.MsgDebug), TS: wire.Uint64(2_500), Text: wire.String("wifi up")},
	), now)

	// The next batch resends the first record alongside a new one.
	p.HandleLogBatch(origin, logBatch(4_000,
		wire.LogMsg{Type: msgType(wire.MsgDebug), TS: wire.Uint64(2_000), Text: wire.String("sensor init")},
		wire.LogMsg{Type: msgType(wire.MsgDebug), TS: wire.Uint64(3_500), Text: wire.String("report sent")},
	), now.Add(time.Second))

	out := buf.String()
	if got := strings.Count(out, "sensor init"); got != 1 {
		t.Errorf("resent record printed %d times, want 1:\n%s", got, out)
	}
	if !strings.Contains(out, "report sent") {
		t.Errorf("missing fresh record:\n%s", out)
	}
}

func TestPrinterClampsRecordsAheadOfClock(t *testing.T) {
	var buf bytes.Buffer
	p := devicelog.NewPrinter(&buf)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	origin := netip.MustParseAddrPort("10.0.0.5:6001")

	// Record stamped past the batch clock: shown at arrival time, not
	// in the future.
	p.HandleLogBatch(origin, logBatch(3_000,
		wire.LogMsg{Type: msgType(wire.MsgWarn), TS: wire.Uint64(4_000), Text: wire.String("clock skew")},
	), now)

	out := buf.String()
	if !strings.Contains(out, "12:00:00.000 WARN clock skew") {
		t.Errorf("skewed record not clamped to arrival time:\n%s", out)
	}
}

func TestPrinterBannersOnHostSwitch(t *testing.T) {
	var buf bytes.Buffer
	p := devicelog.NewPrinter(&buf)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	p.HandleLogBatch(netip.MustParseAddrPort("10.0.0.5:6001"), logBatch(60_000), now)
	p.HandleLogBatch(netip.MustParseAddrPort("10.0.0.6:6001"), logBatch(120_000), now)
	p.HandleLogBatch(netip.MustParseAddrPort("10.0.0.6:6001"), logBatch(130_000), now)

	out := buf.String()
	if got := strings.Count(out, "====="); got != 4 {
		t.Errorf("expected banners for two host switches only, output:\n%s", out)
	}
	if !strings.Contains(out, "10.0.0.6 (up 0d 0h 2m)") {
		t.Errorf("missing second host banner:\n%s", out)
	}
}

func TestPresenceTransitions(t *testing.T) {
	type event struct {
		host   string
		online bool
	}
	var events []event
	p := devicelog.NewPresence(time.Minute, func(host string, online bool) {
		events = append(events, event{host, online})
	})

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	p.Seen("10.0.0.5", now)
	p.Seen("10.0.0.5", now.Add(10*time.Second)) // no duplicate online
	p.Sweep(now.Add(30 * time.Second))          // within deadline, silent
	p.Sweep(now.Add(2 * time.Minute))           // past deadline, offline
	p.Sweep(now.Add(3 * time.Minute))           // no duplicate offline
	p.Seen("10.0.0.5", now.Add(4*time.Minute))  // back online

	want := []event{
		{"10.0.0.5", true},
		{"10.0.0.5", false},
		{"10.0.0.5", true},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, e := range events {
		if e != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, e, want[i])
		}
	}
}

func TestPresenceViaBatch(t *testing.T) {
	var online []string
	p := devicelog.NewPresence(time.Minute, func(host string, isOnline bool) {
		if isOnline {
			online = append(online, host)
		}
	})

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	p.HandleLogBatch(netip.MustParseAddrPort("10.0.0.7:6001"), logBatch(1000), now)

	if len(online) != 1 || online[0] != "10.0.0.7" {
		t.Errorf("online hosts = %v, want [10.0.0.7]", online)
	}
}
