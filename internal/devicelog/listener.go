package devicelog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/hearthd/hearthd/internal/fragment"
	"github.com/hearthd/hearthd/internal/wire"
)

// Logger is the minimal logging interface the listener needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// ListenerConfig tunes the log listener.
type ListenerConfig struct {
	// Bind is the UDP listen address for fragmented log batches.
	Bind string

	// MaxDatagram bounds the receive buffer.
	MaxDatagram int

	// ReassemblyTimeout is how long an incomplete reassembly is kept.
	ReassemblyTimeout time.Duration
}

// Listener receives fragmented device log batches over UDP, reassembles
// and decodes them, and hands them to the handler.
type Listener struct {
	cfg      ListenerConfig
	handler  BatchHandler
	combiner *fragment.Combiner
	logger   Logger
}

// NewListener builds a listener; the socket is opened by Run.
func NewListener(cfg ListenerConfig, handler BatchHandler, logger Logger) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.MaxDatagram <= 0 {
		cfg.MaxDatagram = 2048
	}
	if cfg.ReassemblyTimeout <= 0 {
		cfg.ReassemblyTimeout = 30 * time.Second
	}
	return &Listener{
		cfg:      cfg,
		handler:  handler,
		combiner: fragment.NewCombiner(),
		logger:   logger,
	}
}

// Run binds the socket and processes datagrams until the context is
// cancelled.
func (l *Listener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", l.cfg.Bind)
	if err != nil {
		return fmt.Errorf("devicelog: listen %s: %w", l.cfg.Bind, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return errors.New("devicelog: listener is not a UDP socket")
	}

	l.logger.Info("log listener started", "bind", l.cfg.Bind)

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
				l.logger.Info("log listener stopped")
				return ctx.Err()
			}
			return fmt.Errorf("devicelog: read: %w", err)
		}
		l.handleDatagram(origin, buf[:n], time.Now())
	}
}

// sweepLoop drops stale partial reassemblies.
func (l *Listener) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.ReassemblyTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if dropped := l.combiner.Sweep(now, l.cfg.ReassemblyTimeout); dropped > 0 {
				l.logger.Debug("dropped stale log fragments", "count", dropped)
			}
		}
	}
}

// handleDatagram processes one raw datagram.
func (l *Listener) handleDatagram(origin netip.AddrPort, data []byte, now time.Time) {
	h, payload, err := fragment.ParseHeader(data)
	if err != nil {
		l.logger.Debug("bad log fragment header", "origin", origin, "error", err)
		return
	}

	complete, ok, err := l.combiner.Ingest(origin, h, payload, now)
	if err != nil {
		l.logger.Debug("log fragment rejected", "origin", origin, "error", err)
		return
	}
	if !ok {
		return
	}

	batch, err := wire.DecodeLoggerProto(complete)
	if err != nil {
		l.logger.Warn("undecodable log batch", "origin", origin, "error", err)
		return
	}

	l.handler.HandleLogBatch(origin, batch, now)
}
