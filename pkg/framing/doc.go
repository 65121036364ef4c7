// Package framing provides marker synchronized packet framing.
package framing

// A packet on the wire is a fixed marker followed by a fixed layout payload:
//
//	| marker | field0 | field1 | ... |
//
// The receiver reads marker-width windows until one equals a registered
// marker, then reads exactly the payload width of that packet type and
// decodes it. Windows that don't match are discarded whole, the stream is
// never shifted byte by byte, so a marker straddling two windows is not
// detected until the sender realigns.
//
// There is no length field and no bit verification (e.g. CRC/Checksum).
// Corrupted payload bytes are reported as-is. If needed, parity bits can be
// enabled on serial port for verification.
//
// Producer: device firmware
// Consumer: framerd
