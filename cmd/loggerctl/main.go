// loggerctl - adjust a device's on-board logging
//
// Sends a single LoggerControl datagram to a device. Only the flags
// given on the command line are encoded, so unrelated settings on the
// device are left alone.
//
// Usage:
//
//	loggerctl [-port 6000] -send=true -serial=false <host>
//	loggerctl -restart=true <host>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hearthd/hearthd/internal/transport"
	"github.com/hearthd/hearthd/internal/wire"
)

func main() {
	port := flag.Int("port", 6000, "logger control port on the device")
	serial := flag.Bool("serial", false, "log to the device serial console")
	store := flag.Bool("store", false, "store log records on the device")
	send := flag.Bool("send", false, "stream stored log records over UDP")
	once := flag.Bool("once", false, "send the stored log once, now")
	experiment := flag.Bool("exp", false, "enable the device's experimental mode")
	restart := flag.Bool("restart", false, "restart the device")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	host := flag.Arg(0)

	// Encode only the flags that were actually given, so the device
	// keeps its current value for everything else.
	msg := &wire.LoggerControl{}
	fields := 0
	flag.Visit(func(f *flag.Flag) {
		fields++
		switch f.Name {
		case "serial":
			msg.LogToSerial = wire.Bool(*serial)
		case "store":
			msg.StoreLog = wire.Bool(*store)
		case "send":
			msg.SendLog = wire.Bool(*send)
		case "once":
			msg.SendOnce = wire.Bool(*once)
		case "exp":
			msg.Experiment = wire.Bool(*experiment)
		case "restart":
			msg.DeviceRestart = wire.Bool(*restart)
		default:
			fields--
		}
	})
	if fields == 0 {
		fmt.Fprintln(os.Stderr, "loggerctl: nothing to send, give at least one control flag")
		os.Exit(2)
	}

	sender, err := transport.NewSender(transport.SenderConfig{LoggerControlPort: *port})
	if err != nil {
		fmt.Fprintf(os.Stderr, "loggerctl: %v\n", err)
		os.Exit(1)
	}
	defer sender.Close()

	if err := sender.SendLoggerControl(host, msg); err != nil {
		fmt.Fprintf(os.Stderr, "loggerctl: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sent %d control field(s) to %s:%d\n", fields, host, *port)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: loggerctl [flags] <host>\n")
	flag.PrintDefaults()
}
