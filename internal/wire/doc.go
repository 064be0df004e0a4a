// Package wire encodes and decodes the binary device messages.
//
// The sensor and relay devices speak a small fixed proto2 schema:
// DeviceMessage (sensor/relay reports, diag requests), RelayControl,
// LoggerControl and LoggerProto. The message structs are hand-maintained
// and marshalled with protowire, staying byte-compatible with the
// firmware's generated code without a code generation step.
//
// The codec is pure and stateless. Decoding distinguishes two failure
// classes: ErrMalformed for truncated or corrupt buffers, and
// ErrUnknownVariant for structurally valid buffers carrying enum values
// outside the schema. Callers drop the datagram in both cases.
package wire
