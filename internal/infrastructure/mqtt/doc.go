// Package mqtt provides the optional publication of room state to an
// MQTT broker.
//
// The Client wraps paho.mqtt.golang with connection management,
// automatic reconnection with exponential backoff, and a Last Will
// and Testament on the system status topic so subscribers can tell a
// crash from a clean shutdown.
//
// StatePublisher turns room observations into retained JSON messages
// on <prefix>/state/<room>, so a dashboard subscribing late sees the
// current state of every room immediately. It satisfies the
// observation sink interface used by the server core; publishing is
// asynchronous and never blocks the datagram path.
//
// Connect returns ErrDisabled when the integration is switched off in
// configuration; callers treat that as "no sink" rather than a fault.
package mqtt
