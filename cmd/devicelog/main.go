// devicelog - live tap for device log streams
//
// Listens for the fragmented log batches devices send when their log
// streaming is enabled (see loggerctl), reconstructs wall-clock
// timestamps and prints them, with a banner per device and a cut line
// whenever a device reboots. Devices going quiet are reported after a
// deadline.
//
// Usage:
//
//	devicelog [-bind 0.0.0.0:6001] [-deadline 1m]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthd/hearthd/internal/devicelog"
)

func main() {
	bind := flag.String("bind", "0.0.0.0:6001", "UDP listen address for log streams")
	deadline := flag.Duration("deadline", time.Minute, "silence before a device is reported offline")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *bind, *deadline); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "devicelog: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, bind string, deadline time.Duration) error {
	printer := devicelog.NewPrinter(os.Stdout)
	presence := devicelog.NewPresence(deadline, func(host string, online bool) {
		if online {
			fmt.Printf("*** %s ONLINE\n", host)
		} else {
			fmt.Printf("*** %s OFFLINE\n", host)
		}
	})

	listener := devicelog.NewListener(
		devicelog.ListenerConfig{Bind: bind},
		devicelog.Handlers{presence, printer},
		nil,
	)

	go presence.Run(ctx.Done())

	fmt.Printf("listening for device logs on %s\n", bind)
	return listener.Run(ctx)
}
