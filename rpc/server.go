package rpc

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AbstractServer owns a ServiceRegistry and accepts connections on
// whatever transport Listen is handed, wiring each accepted connection
// to a Socket driven by a shared Dispatcher (spec.md §4.6). It mirrors
// the teacher's Handler.ServeListener accept loop, generalized away
// from a single net.Listener kind and given explicit lifecycle control
// instead of the teacher's run-forever goroutine.
type AbstractServer struct {
	registry     *ServiceRegistry
	dispatcher   *Dispatcher
	logger       *zap.Logger
	format       Format
	maxFrameSize int
	callTimeout  time.Duration

	mu        sync.RWMutex
	listener  net.Listener
	lastError string
	sessions  map[uuid.UUID]*Socket

	group  *errgroup.Group
	closed chan struct{}

	onConnect    []func(*Socket)
	onDisconnect []func(*Socket)
}

// ServerOption configures an AbstractServer at construction time.
type ServerOption func(*AbstractServer)

// WithServerLogger attaches a structured logger; defaults to
// zap.NewNop().
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *AbstractServer) { s.logger = l }
}

// WithServerFormat selects the wire rendering used for outbound traffic
// on every Socket the server accepts.
func WithServerFormat(f Format) ServerOption {
	return func(s *AbstractServer) { s.format = f }
}

// WithServerMaxFrameSize bounds the buffered frame size of every Socket
// the server accepts (Config's MaxFrameSize, SPEC_FULL.md §3).
func WithServerMaxFrameSize(n int) ServerOption {
	return func(s *AbstractServer) { s.maxFrameSize = n }
}

// WithServerCallTimeout sets the default blocking-call timeout of every
// Socket the server accepts (Config's CallTimeout, SPEC_FULL.md §3).
func WithServerCallTimeout(d time.Duration) ServerOption {
	return func(s *AbstractServer) { s.callTimeout = d }
}

// NewAbstractServer builds a server with an empty ServiceRegistry.
func NewAbstractServer(opts ...ServerOption) *AbstractServer {
	registry := NewServiceRegistry()
	s := &AbstractServer{
		registry:    registry,
		dispatcher:  NewDispatcher(registry),
		logger:      zap.NewNop(),
		format:      Compact,
		callTimeout: DefaultCallTimeout,
		sessions:    make(map[uuid.UUID]*Socket),
		closed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddService delegates to the server's ServiceRegistry (spec.md §4.6).
func (s *AbstractServer) AddService(svc *Service) bool { return s.registry.AddService(svc) }

// RemoveService delegates to the server's ServiceRegistry.
func (s *AbstractServer) RemoveService(svc *Service) bool { return s.registry.RemoveService(svc) }

// OnClientConnected registers an observer invoked once per accepted
// connection, after its Socket is constructed. The Socket's read loop is
// already running by then, so messages from the client may be processed
// before the observer runs.
func (s *AbstractServer) OnClientConnected(f func(*Socket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = append(s.onConnect, f)
}

// OnClientDisconnected registers an observer invoked once a connected
// Socket closes.
func (s *AbstractServer) OnClientDisconnected(f func(*Socket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = append(s.onDisconnect, f)
}

// Listen takes an already-bound listener l and starts accepting
// connections in the background (spec.md §4.6). It always returns true;
// binding happens in ListenIPC/ListenTCP, and a later accept failure is
// recorded for ErrorString and ends the accept loop. Unlike the teacher's Handler.ServeListener,
// which blocks the caller and returns only on a fatal accept error, the
// accept loop here runs under an errgroup the server owns so Close can
// wait for it to drain.
func (s *AbstractServer) Listen(l net.Listener) bool {
	s.mu.Lock()
	s.listener = l
	group := &errgroup.Group{}
	s.group = group
	s.mu.Unlock()

	group.Go(func() error {
		return s.acceptLoop(l)
	})
	return true
}

func (s *AbstractServer) acceptLoop(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			s.mu.Lock()
			s.lastError = err.Error()
			s.mu.Unlock()
			s.logger.Warn("accept failed", zap.Error(err))
			return err
		}
		s.adopt(conn)
	}
}

func (s *AbstractServer) adopt(rw io.ReadWriteCloser) {
	socket := NewSocket(rw,
		WithDispatcher(s.dispatcher),
		WithFormat(s.format),
		WithLogger(s.logger),
		WithSocketMaxFrameSize(s.maxFrameSize),
		WithCallTimeout(s.callTimeout),
	)

	s.mu.Lock()
	s.sessions[socket.ID()] = socket
	connectObservers := append([]func(*Socket){}, s.onConnect...)
	s.mu.Unlock()

	for _, f := range connectObservers {
		f(socket)
	}

	socket.OnClose(func() {
		s.mu.Lock()
		delete(s.sessions, socket.ID())
		disconnectObservers := append([]func(*Socket){}, s.onDisconnect...)
		s.mu.Unlock()
		for _, f := range disconnectObservers {
			f(socket)
		}
	})
}

// ErrorString reports the last accept-level error, or "" if none.
func (s *AbstractServer) ErrorString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// ConnectedClientCount reports the number of live Sockets.
func (s *AbstractServer) ConnectedClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// NotifyConnectedClients writes msg (expected to be a Notification) to
// every currently connected Socket, the way spec.md §4.6 requires for
// server-initiated broadcast.
func (s *AbstractServer) NotifyConnectedClients(msg Message) {
	s.mu.RLock()
	sessions := make([]*Socket, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	var g errgroup.Group
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			return sess.write(msg)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("broadcast partially failed", zap.Error(err))
	}
}

// Notify is sugar over NotifyConnectedClients + CreateNotification.
func (s *AbstractServer) Notify(method string, params ...interface{}) {
	s.NotifyConnectedClients(CreateNotification(method, params...))
}

// Close stops accepting new connections, closes every live Socket, and
// waits for the accept loop to exit.
func (s *AbstractServer) Close() error {
	close(s.closed)

	s.mu.RLock()
	listener := s.listener
	sessions := make([]*Socket, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	group := s.group
	s.mu.RUnlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, sess := range sessions {
		sess.Close()
	}
	if group != nil {
		_ = group.Wait()
	}
	return err
}
