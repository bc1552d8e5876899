// Package transport provides the narrow byte-stream capability Connection
// needs, and the three concrete ways Badgelink reaches a badge: USB bulk
// endpoints, a serial port, and a pair of host pipes.
//
// The interface is deliberately minimal: treat the wire as a capability the
// Connection drives, not a concrete type it depends on.
package transport

// Transport is anything Badgelink can frame bytes over. ReadAll returns
// whatever bytes are currently available without blocking for more once at
// least a short read has been attempted; it must not block indefinitely when
// nothing is available.
type Transport interface {
	// Write queues data for transmission, blocking until it's either sent
	// or queued.
	Write(data []byte) error
	// Flush ensures any buffered output has actually been transmitted.
	Flush() error
	// ReadAll drains and returns whatever input is currently available,
	// blocking briefly for at least one read but not waiting for a specific
	// amount of data.
	ReadAll() ([]byte, error)
	// Close releases the underlying device/port/pipe.
	Close() error
}
