// Package client manages the single TCP connection of a session: dialing with
// a timeout, per-operation read and write deadlines, connection state
// notifications and an idempotent close.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrConnect wraps a failed dial.
	ErrConnect = errors.New("connect failed")
	// ErrNotConnected is returned by Read and Write without a connection.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by Connect once the client has been closed.
	ErrClosed = errors.New("client is closed")
)

// ConnectionState represents the current state of the TCP connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected yet
	Connecting                          // Dial in progress
	Connected                           // Connection established
	Closed                              // Client closed; it cannot connect again
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is passed to the handler registered with
// OnConnectionState.
type ConnectionStateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The remote address ("host:port")
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the change was caused by an error
}

// ConnectionStateHandler is called synchronously on every state change.
type ConnectionStateHandler func(event ConnectionStateEvent)

// Config holds the connection settings.
type Config struct {
	// Address is the "host:port" to connect to.
	Address string
	// ConnectionTimeout bounds the dial; 0 means no timeout.
	ConnectionTimeout time.Duration
	// ReadTimeout bounds each read; 0 means no timeout.
	ReadTimeout time.Duration
	// WriteTimeout bounds each write; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with default values for the given address.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with ConnectionTimeout 10s, WriteTimeout 10s and no ReadTimeout,
//     since the peer may wait on a human before answering.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectionTimeout: 10 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      10 * time.Second,
	}
}

// Client owns one TCP connection. Read and Write are meant for a single
// session goroutine; Close may be called from any goroutine and unblocks a
// pending Read or Write.
type Client struct {
	config Config

	mu                sync.Mutex
	conn              net.Conn
	state             ConnectionState
	onConnectionState ConnectionStateHandler
}

// New creates a client in Disconnected state.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A new *Client; call Close when done
func New(config Config) *Client {
	return &Client{config: config, state: Disconnected}
}

// OnConnectionState registers the handler for state changes, replacing any
// previous one. Pass nil to clear it.
func (c *Client) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectionState = handler
}

// Connect dials the configured address.
//
// Parameters:
//   - ctx: Cancels the dial
//
// Returns:
//   - nil on success, ErrClosed after Close, or an error wrapping ErrConnect
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	case Connecting, Connected:
		c.mu.Unlock()
		return fmt.Errorf("%w: already connected or connecting", ErrConnect)
	}
	c.state = Connecting
	handler := c.onConnectionState
	c.mu.Unlock()

	c.emit(handler, Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnect, err)
		c.setState(Disconnected, err)
		return err
	}

	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)
	return nil
}

// Read implements io.Reader, applying ReadTimeout to each call.
func (c *Client) Read(p []byte) (int, error) {
	conn := c.current()
	if conn == nil {
		return 0, ErrNotConnected
	}

	if err := setDeadline(conn.SetReadDeadline, c.config.ReadTimeout); err != nil {
		return 0, err
	}

	return conn.Read(p)
}

// Write implements io.Writer, applying WriteTimeout to each call.
func (c *Client) Write(p []byte) (int, error) {
	conn := c.current()
	if conn == nil {
		return 0, ErrNotConnected
	}

	if err := setDeadline(conn.SetWriteDeadline, c.config.WriteTimeout); err != nil {
		return 0, err
	}

	return conn.Write(p)
}

// Close closes the connection and moves the client to Closed. Only the first
// call has an effect.
//
// Returns:
//   - The error from closing the connection, or nil
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}

	c.state = Closed
	handler := c.onConnectionState
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.mu.Unlock()

	c.emit(handler, Closed, nil)
	return err
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LocalAddr returns the local address of the connection, or nil.
func (c *Client) LocalAddr() net.Addr {
	if conn := c.current(); conn != nil {
		return conn.LocalAddr()
	}

	return nil
}

func (c *Client) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// setState moves to state unless the client is Closed; Close may run while a
// dial is in flight.
func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.state = state
	handler := c.onConnectionState
	c.mu.Unlock()

	c.emit(handler, state, err)
}

func (c *Client) emit(handler ConnectionStateHandler, state ConnectionState, err error) {
	if handler != nil {
		handler(ConnectionStateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

func setDeadline(set func(time.Time) error, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	return set(time.Now().Add(timeout))
}
