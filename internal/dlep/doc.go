// Package dlep implements the radio-side endpoint of the Dynamic Link
// Exchange Protocol: the wire codec, the peer and neighbor state machines,
// the context stores that own their contexts, and the hashed timing wheel
// that drives their guard timers.
//
// The protocol itself is defined informally by Internet-Draft
// draft-ietf-manet-dlep; this package implements the radio (modem) side,
// which discovers its router, establishes a session, and reports
// per-neighbor link metrics.
package dlep
