package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/hearthd/hearthd/internal/wire"
)

// SenderConfig holds the destination ports devices listen on.
type SenderConfig struct {
	// RelayPort is the port relay devices take commands on.
	RelayPort int

	// LoggerControlPort is the port devices take logger control
	// messages on.
	LoggerControlPort int
}

// Sender delivers command datagrams to devices. Commands are small
// enough to never need fragmenting, so each send is a single datagram
// from one shared socket.
type Sender struct {
	cfg  SenderConfig
	conn *net.UDPConn
}

// NewSender opens the shared outbound socket.
func NewSender(cfg SenderConfig) (*Sender, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("transport: outbound socket: %w", err)
	}
	return &Sender{cfg: cfg, conn: conn}, nil
}

// Close releases the outbound socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// SendRelayControl commands a relay to a state, optionally delayed on
// the device. The dummy field pads the message so an all-defaults
// command still produces a non-empty datagram.
func (s *Sender) SendRelayControl(host string, on bool, delay time.Duration) error {
	state := wire.RelayOff
	if on {
		state = wire.RelayOn
	}
	msg := &wire.RelayControl{
		State: &state,
		Dummy: wire.Bool(true),
	}
	if delay > 0 {
		msg.Delay = wire.Uint32(uint32(delay.Milliseconds()))
	}
	return s.send(host, s.cfg.RelayPort, wire.EncodeRelayControl(msg))
}

// SendLoggerControl adjusts a device's logging behaviour or restarts it.
func (s *Sender) SendLoggerControl(host string, msg *wire.LoggerControl) error {
	return s.send(host, s.cfg.LoggerControlPort, wire.EncodeLoggerControl(msg))
}

func (s *Sender) send(host string, port int, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", host, err)
	}
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", host, err)
	}
	return nil
}
