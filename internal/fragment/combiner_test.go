package fragment_test

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/hearthd/hearthd/internal/fragment"
)

var (
	originA = netip.MustParseAddrPort("10.0.0.5:4000")
	originB = netip.MustParseAddrPort("10.0.0.6:4000")
)

func TestHeaderRoundTrip(t *testing.T) {
	h := fragment.Header{Seq: 9, Index: 2, Total: 5}
	payload := []byte("hello")
	datagram := append(h.Encode(), payload...)

	got, rest, err := fragment.ParseHeader(datagram)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if got != h {
		t.Errorf("header = %+v, want %+v", got, h)
	}
	if !bytes.Equal(rest, payload) {
		t.Errorf("payload = %q, want %q", rest, payload)
	}
}

func TestParseHeaderRejects(t *testing.T) {
	tests := []struct {
		name     string
		datagram []byte
		want     error
	}{
		{"short datagram", []byte{0xfa, 1, 0}, fragment.ErrTruncated},
		{"wrong magic", []byte{0x00, 1, 0, 0, 1}, fragment.ErrBadMagic},
		{"unsupported flags", []byte{0xfa, 9, 0, 0, 1}, fragment.ErrUnsupportedFlags},
		{"zero total", []byte{0xfa, 1, 0, 0, 0}, fragment.ErrInvalidHeader},
		{"index past total", []byte{0xfa, 1, 0, 3, 3}, fragment.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := fragment.ParseHeader(tt.datagram); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSplitAndReassemble(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	frags := fragment.Split(data, 10, 3)
	if len(frags) != 5 {
		t.Fatalf("fragments = %d, want 5", len(frags))
	}

	c := fragment.NewCombiner()
	now := time.Now()

	// Deliver out of order with a duplicate in the middle.
	order := []int{4, 1, 0, 1, 3, 2}
	var out []byte
	for _, i := range order[:len(order)-1] {
		var ok bool
		var err error
		out, ok, err = c.Ingest(originA, frags[i].Header, frags[i].Payload, now)
		if err != nil {
			t.Fatalf("Ingest(%d) error = %v", i, err)
		}
		if ok {
			t.Fatalf("message completed early at fragment %d", i)
		}
	}
	out, ok, err := c.Ingest(originA, frags[2].Header, frags[2].Payload, now)
	if err != nil {
		t.Fatalf("final Ingest error = %v", err)
	}
	if !ok {
		t.Fatal("message did not complete")
	}
	if !bytes.Equal(out, data) {
		t.Errorf("reassembled = %q, want %q", out, data)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending = %d after completion", c.PendingCount())
	}
}

func TestSplitEmptyMessage(t *testing.T) {
	frags := fragment.Split(nil, 100, 1)
	if len(frags) != 1 {
		t.Fatalf("fragments = %d, want 1", len(frags))
	}
	if frags[0].Header.Total != 1 || len(frags[0].Payload) != 0 {
		t.Errorf("fragment = %+v", frags[0])
	}
}

func TestCombinerScopesByOrigin(t *testing.T) {
	c := fragment.NewCombiner()
	now := time.Now()

	// Two devices reusing the same sequence must not mix.
	fa := fragment.Split([]byte("from device A"), 8, 1)
	fb := fragment.Split([]byte("from device B"), 8, 1)

	if _, ok, _ := c.Ingest(originA, fa[0].Header, fa[0].Payload, now); ok {
		t.Fatal("A completed with one fragment")
	}
	if _, ok, _ := c.Ingest(originB, fb[0].Header, fb[0].Payload, now); ok {
		t.Fatal("B completed with one fragment")
	}

	out, ok, err := c.Ingest(originA, fa[1].Header, fa[1].Payload, now)
	if err != nil || !ok {
		t.Fatalf("A did not complete: ok=%v err=%v", ok, err)
	}
	if string(out) != "from device A" {
		t.Errorf("reassembled = %q", out)
	}
}

func TestCombinerTotalMismatchRestarts(t *testing.T) {
	c := fragment.NewCombiner()
	now := time.Now()

	// Device rebooted and reused seq 5 for a shorter message.
	old := fragment.Header{Seq: 5, Index: 0, Total: 3}
	if _, ok, _ := c.Ingest(originA, old, []byte("stale"), now); ok {
		t.Fatal("completed early")
	}

	fresh := fragment.Split([]byte("fresh"), 3, 5)
	if _, ok, _ := c.Ingest(originA, fresh[0].Header, fresh[0].Payload, now); ok {
		t.Fatal("completed early after restart")
	}
	out, ok, err := c.Ingest(originA, fresh[1].Header, fresh[1].Payload, now)
	if err != nil || !ok {
		t.Fatalf("fresh message did not complete: ok=%v err=%v", ok, err)
	}
	if string(out) != "fresh" {
		t.Errorf("reassembled = %q, stale data leaked in", out)
	}
}

func TestCombinerRejectsOversize(t *testing.T) {
	c := fragment.NewCombiner()
	now := time.Now()

	h := fragment.Header{Seq: 1, Index: 0, Total: 2}
	big := make([]byte, fragment.MaxMessageSize+1)
	if _, _, err := c.Ingest(originA, h, big, now); !errors.Is(err, fragment.ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending = %d after rejection", c.PendingCount())
	}
}

func TestSweepDropsStale(t *testing.T) {
	c := fragment.NewCombiner()
	start := time.Now()

	h := fragment.Header{Seq: 1, Index: 0, Total: 2}
	c.Ingest(originA, h, []byte("half"), start)

	if removed := c.Sweep(start.Add(10*time.Second), 30*time.Second); removed != 0 {
		t.Errorf("removed %d before timeout", removed)
	}
	if removed := c.Sweep(start.Add(time.Minute), 30*time.Second); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending = %d after sweep", c.PendingCount())
	}
}
