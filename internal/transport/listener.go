package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/hearthd/hearthd/internal/fragment"
	"github.com/hearthd/hearthd/internal/infrastructure/metrics"
	"github.com/hearthd/hearthd/internal/wire"
)

// Logger is the minimal logging interface the transport needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler consumes what the listener receives. Implementations must
// not block: the listener calls them inline on the receive path.
type Handler interface {
	// HandleMessage delivers one decoded device message.
	HandleMessage(origin netip.AddrPort, msg *wire.DeviceMessage)

	// HandleConfirmation delivers a legacy single-byte confirmation
	// carrying only the sending device's id.
	HandleConfirmation(origin netip.AddrPort, id uint8)
}

// ListenerConfig tunes the inbound datagram path.
type ListenerConfig struct {
	// Bind is the UDP listen address.
	Bind string

	// MaxDatagram bounds the receive buffer.
	MaxDatagram int

	// ReassemblyTimeout is how long an incomplete reassembly is kept.
	ReassemblyTimeout time.Duration
}

// Listener owns the inbound UDP socket: it strips fragment headers,
// reassembles messages, decodes them and hands them to the handler.
// Undecodable datagrams are counted and dropped without side effects.
type Listener struct {
	cfg      ListenerConfig
	handler  Handler
	combiner *fragment.Combiner
	logger   Logger
	metrics  *metrics.Metrics

	conn *net.UDPConn
}

// NewListener builds a listener; the socket is opened by Run.
func NewListener(cfg ListenerConfig, handler Handler, logger Logger, m *metrics.Metrics) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Listener{
		cfg:      cfg,
		handler:  handler,
		combiner: fragment.NewCombiner(),
		logger:   logger,
		metrics:  m,
	}
}

// Run binds the socket and processes datagrams until the context is
// cancelled. The reassembly sweep runs on its own ticker.
func (l *Listener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", l.cfg.Bind)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", l.cfg.Bind, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return errors.New("transport: listener is not a UDP socket")
	}
	l.conn = conn

	l.logger.Info("udp listener started", "bind", l.cfg.Bind)

	go l.sweepLoop(ctx)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, l.cfg.MaxDatagram)
	for {
		n, origin, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("udp listener stopped")
				return ctx.Err()
			}
			return fmt.Errorf("transport: read: %w", err)
		}
		l.handleDatagram(origin, buf[:n], time.Now())
	}
}

// SendText replies to an origin with a plain text datagram, used for
// on-demand diagnostics requested by display devices.
func (l *Listener) SendText(origin netip.AddrPort, text string) error {
	if l.conn == nil {
		return errors.New("transport: listener not running")
	}
	if _, err := l.conn.WriteToUDPAddrPort([]byte(text), origin); err != nil {
		return fmt.Errorf("transport: send text: %w", err)
	}
	return nil
}

func (l *Listener) handleDatagram(origin netip.AddrPort, data []byte, now time.Time) {
	switch len(data) {
	case 0:
		l.metrics.Datagram("bad")
		return
	case 1:
		// Legacy sensors confirm relay state with a bare device id.
		l.metrics.Datagram("confirmation")
		l.handler.HandleConfirmation(origin, data[0])
		return
	case 3:
		// Keepalive probe: on-state, reconnect and receive counters.
		l.metrics.Datagram("keepalive")
		return
	}

	h, payload, err := fragment.ParseHeader(data)
	if err != nil {
		l.metrics.Datagram("bad")
		l.logger.Debug("bad datagram",
			"origin", origin.String(),
			"size", len(data),
			"error", err.Error())
		return
	}

	msgBytes, complete, err := l.combiner.Ingest(origin, h, payload, now)
	l.metrics.PendingReassemblies(l.combiner.PendingCount())
	if err != nil {
		l.metrics.Datagram("bad")
		l.logger.Debug("fragment rejected",
			"origin", origin.String(),
			"error", err.Error())
		return
	}
	if !complete {
		l.metrics.Datagram("fragment")
		return
	}

	l.metrics.Reassembled()

	msg, err := wire.DecodeDeviceMessage(msgBytes)
	if err != nil {
		l.metrics.DecodeError()
		l.metrics.Datagram("bad")
		l.logger.Warn("undecodable message",
			"origin", origin.String(),
			"size", len(msgBytes),
			"error", err.Error())
		return
	}

	l.metrics.Datagram("report")
	l.handler.HandleMessage(origin, msg)
}

func (l *Listener) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.ReassemblyTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.combiner.Sweep(now, l.cfg.ReassemblyTimeout); n > 0 {
				l.metrics.FragmentsDropped(n)
				l.logger.Debug("stale reassemblies dropped", "count", n)
			}
			l.metrics.PendingReassemblies(l.combiner.PendingCount())
		}
	}
}
