// Package tcpserver accepts TCP connections and hands each one to a session.
// LineSession implements the peer side of the line protocol: send a welcome
// banner, read one line, reply, and wait for the client to hang up.
package tcpserver

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/lineclient/idgenerator"
	"github.com/cyberinferno/lineclient/logger"
	"github.com/cyberinferno/lineclient/safemap"
)

// NewSessionFunc creates the session for an accepted connection.
type NewSessionFunc func(id uint32, conn net.Conn) TCPServerSession

// TCPServer accepts connections on Addr and runs a session per connection.
// Sessions are registered by ID until they finish.
type TCPServer struct {
	Logger      logger.Logger
	Name        string
	Addr        string
	Listener    net.Listener
	Sessions    *safemap.SafeMap[uint32, TCPServerSession]
	Running     atomic.Bool
	NewSession  NewSessionFunc
	IdGenerator *idgenerator.IdGenerator

	wg sync.WaitGroup
}

// NewTCPServer returns a stopped server; call Start to listen.
//
// Parameters:
//   - name: Server name used in log messages
//   - addr: Listen address, e.g. "127.0.0.1:9000" or ":0"
//   - log: Logger for server events
//   - newSession: Session factory, called once per accepted connection
//
// Returns:
//   - A new *TCPServer
func NewTCPServer(name, addr string, log logger.Logger, newSession NewSessionFunc) *TCPServer {
	return &TCPServer{
		Logger:      log.With(logger.Field{Key: "server", Value: name}),
		Name:        name,
		Addr:        addr,
		Sessions:    safemap.NewSafeMap[uint32, TCPServerSession](),
		NewSession:  newSession,
		IdGenerator: idgenerator.NewIdGenerator(0),
	}
}

// Start binds Addr and runs the accept loop in a goroutine.
//
// Returns:
//   - An error if the server is already running or listening fails
func (s *TCPServer) Start() error {
	if s.Running.Load() {
		return fmt.Errorf("server %s already running", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.Listener = ln
	s.Running.Store(true)

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})
	s.wg.Add(1)
	go s.AcceptLoop()

	return nil
}

// ListenAddr returns the bound address, useful when Addr asked for port 0.
func (s *TCPServer) ListenAddr() string {
	if s.Listener == nil {
		return ""
	}

	return s.Listener.Addr().String()
}

// Stop closes the listener and every open session, then waits for the
// accept loop and session goroutines to return. Safe to call when stopped.
func (s *TCPServer) Stop() {
	if !s.Running.CompareAndSwap(true, false) {
		return
	}

	_ = s.Listener.Close()
	s.Sessions.Range(func(id uint32, session TCPServerSession) bool {
		_ = session.Close()
		return true
	})

	s.wg.Wait()
	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name))
}

// AddSession registers a session under id.
func (s *TCPServer) AddSession(id uint32, session TCPServerSession) {
	s.Sessions.Store(id, session)
}

// RemoveSession unregisters the session with id.
func (s *TCPServer) RemoveSession(id uint32) {
	s.Sessions.Delete(id)
}

// GetSession returns the session registered under id, if any.
func (s *TCPServer) GetSession(id uint32) (TCPServerSession, bool) {
	return s.Sessions.Load(id)
}

// AcceptLoop accepts connections until the server stops. Each connection
// gets the next ID, a session from NewSession, and a goroutine running
// Handle; the session is unregistered when Handle returns.
func (s *TCPServer) AcceptLoop() {
	defer s.wg.Done()

	for s.Running.Load() {
		conn, err := s.Listener.Accept()
		if err != nil {
			if !s.Running.Load() {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err})
			continue
		}

		id := s.IdGenerator.Id()
		session := s.NewSession(id, conn)
		s.AddSession(id, session)

		// Stop may have closed the registered sessions before this one was added
		if !s.Running.Load() {
			_ = session.Close()
			s.RemoveSession(id)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.RemoveSession(id)
			session.Handle()
		}()
	}
}
