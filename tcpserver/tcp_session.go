package tcpserver

// TCPServerSession handles one accepted connection. The server runs Handle
// in its own goroutine and may call Close from another to shut it down.
type TCPServerSession interface {
	// ID returns the identifier assigned by the server.
	ID() uint32

	// Handle serves the connection until it is done or closed.
	Handle()

	// Close closes the connection. It is safe to call more than once.
	Close() error

	// Send writes data to the connection in full.
	Send(data []byte) error
}
