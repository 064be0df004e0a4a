// relayctl - command a heating relay by hand
//
// Sends a RelayControl datagram to a relay device, bypassing the
// daemon. Useful during installation and fault-finding. With no state
// argument the relay is pulsed: switched on now and off again after
// the pulse duration, audible at the device.
//
// Usage:
//
//	relayctl [-port 4210] [-delay 5m] <host> [on|off]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hearthd/hearthd/internal/transport"
)

func main() {
	port := flag.Int("port", 4210, "relay command port on the device")
	delay := flag.Duration("delay", 0, "apply the state after this delay")
	pulse := flag.Duration("pulse", 2*time.Second, "pulse length when no state is given")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		usage()
		os.Exit(2)
	}
	host := flag.Arg(0)

	sender, err := transport.NewSender(transport.SenderConfig{RelayPort: *port})
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
	defer sender.Close()

	if flag.NArg() == 1 {
		// Pulse: on now, off after the pulse length. The off command is
		// delayed on the device itself, so it lands even if we exit.
		if err := sender.SendRelayControl(host, true, 0); err != nil {
			fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
			os.Exit(1)
		}
		if err := sender.SendRelayControl(host, false, *pulse); err != nil {
			fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("pulsed %s:%d for %v\n", host, *port, *pulse)
		return
	}

	var on bool
	switch flag.Arg(1) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		fmt.Fprintf(os.Stderr, "relayctl: state must be on or off, got %q\n", flag.Arg(1))
		os.Exit(2)
	}

	if err := sender.SendRelayControl(host, on, *delay); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}

	state := "off"
	if on {
		state = "on"
	}
	if *delay > 0 {
		fmt.Printf("sent %s to %s:%d (after %v)\n", state, host, *port, *delay)
	} else {
		fmt.Printf("sent %s to %s:%d\n", state, host, *port)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: relayctl [flags] <host> [on|off]\n")
	flag.PrintDefaults()
}
