package rpc

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCallTimeout is a Socket's call timeout unless WithCallTimeout
// overrides it. SendMessageBlocking applies that timeout when the caller's
// context carries no deadline; InvokeRemoteMethodBlocking always applies it
// (spec.md §4.3:
// "default implementation-defined, e.g. 30s").
const DefaultCallTimeout = 30 * time.Second

// Socket is per-connection session state shared by both sides of a
// connection: request-id allocation, pending-reply correlation, outbound
// serialization and a blocking-call bridge built on the asynchronous
// receive path (spec.md §4.3). The same type serves a client dialing out
// and a server-accepted connection; AbstractServer attaches a Dispatcher
// to the Sockets it accepts, a plain client-side Socket leaves it nil.
type Socket struct {
	id           uuid.UUID
	codec        *Codec
	closer       io.Closer
	format       Format
	logger       *zap.Logger
	maxFrameSize int
	callTimeout  time.Duration

	idCounter int64

	mu      sync.Mutex
	pending map[string]*Reply

	dispatcher *Dispatcher

	obsMu      sync.Mutex
	onMessage  []func(Message)
	onClose    []func()

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// SocketOption configures a Socket at construction time.
type SocketOption func(*Socket)

// WithFormat selects the wire rendering used for outbound messages.
func WithFormat(f Format) SocketOption {
	return func(s *Socket) { s.format = f }
}

// WithDispatcher attaches a Dispatcher so inbound Requests/Notifications
// are routed to registered Services instead of only correlated against
// the pending-reply table.
func WithDispatcher(d *Dispatcher) SocketOption {
	return func(s *Socket) { s.dispatcher = d }
}

// WithLogger attaches a structured logger; the zero value is
// zap.NewNop(), matching the teacher's "log everything or log nothing"
// construction pattern without forcing every caller to pass one.
func WithLogger(l *zap.Logger) SocketOption {
	return func(s *Socket) { s.logger = l }
}

// WithSocketMaxFrameSize bounds the Codec's buffered frame size (Config's
// MaxFrameSize, SPEC_FULL.md §3); 0 keeps DefaultMaxFrameSize.
func WithSocketMaxFrameSize(n int) SocketOption {
	return func(s *Socket) { s.maxFrameSize = n }
}

// WithCallTimeout overrides DefaultCallTimeout (Config's CallTimeout,
// SPEC_FULL.md §3) for this Socket's blocking calls.
func WithCallTimeout(d time.Duration) SocketOption {
	return func(s *Socket) { s.callTimeout = d }
}

// NewSocket wraps rw (and, if it implements io.Closer, uses it to tear
// down the connection) in a Socket and starts its inbound read loop.
func NewSocket(rw io.ReadWriter, opts ...SocketOption) *Socket {
	s := &Socket{
		id:          uuid.New(),
		format:      Compact,
		logger:      zap.NewNop(),
		pending:     make(map[string]*Reply),
		closed:      make(chan struct{}),
		callTimeout: DefaultCallTimeout,
	}
	if c, ok := rw.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxFrameSize > 0 {
		s.codec = NewCodec(rw, WithMaxFrameSize(s.maxFrameSize))
	} else {
		s.codec = NewCodec(rw)
	}
	go s.readLoop()
	return s
}

func (s *Socket) ID() uuid.UUID { return s.id }

func (s *Socket) nextID() Value {
	return Int(atomic.AddInt64(&s.idCounter, 1))
}

// OnMessage registers an observer invoked for every Message the codec
// decodes off the wire, including those the Socket itself correlates
// against a pending Reply — spec.md §4.3 requires messageReceived to
// fire unconditionally so higher layers can observe all traffic.
func (s *Socket) OnMessage(f func(Message)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.onMessage = append(s.onMessage, f)
}

// OnClose registers an observer invoked once when the Socket tears down.
func (s *Socket) OnClose(f func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.onClose = append(s.onClose, f)
}

func (s *Socket) emitMessage(m Message) {
	s.obsMu.Lock()
	observers := append([]func(Message){}, s.onMessage...)
	s.obsMu.Unlock()
	for _, f := range observers {
		f(m)
	}
}

func (s *Socket) readLoop() {
	defer s.Close()
	for {
		msg, err := s.codec.ReadMessage()
		if err != nil {
			if err != ErrCodecClosed {
				s.logger.Warn("codec read failed", zap.Error(err))
			}
			return
		}
		s.handleInbound(msg)
	}
}

func (s *Socket) handleInbound(msg Message) {
	s.emitMessage(msg)

	switch msg.Type() {
	case TypeResponse, TypeError:
		s.completePending(msg)
	case TypeRequest, TypeNotification:
		if s.dispatcher == nil {
			return
		}
		go s.serve(msg)
	}
}

func (s *Socket) serve(req Message) {
	resp, pending := s.dispatcher.Dispatch(context.Background(), req)
	if pending {
		// Delayed response: the handler is responsible for eventually
		// calling Socket.CompleteDelayed with the same request id.
		return
	}
	if req.Type() == TypeNotification {
		return
	}
	if err := s.write(resp); err != nil {
		s.logger.Warn("failed writing dispatch response", zap.Error(err))
	}
}

// CompleteDelayed lets an asynchronous handler submit the eventual
// response for a request it earlier told the Dispatcher it would answer
// later (spec.md §4.5 "Invocation").
func (s *Socket) CompleteDelayed(resp Message) error {
	return s.write(resp)
}

func (s *Socket) completePending(msg Message) {
	key := idKey(msg.ID())
	s.mu.Lock()
	reply, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if ok {
		reply.complete(msg)
	}
}

func idKey(v Value) string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *Socket) write(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.codec.WriteMessage(msg, s.format)
}

// SendMessage encodes and writes msg. A Request gets a pending Reply
// registered against its id and returned; a Notification returns an
// already-completed handle (spec.md §4.3).
func (s *Socket) SendMessage(msg Message) (*Reply, error) {
	if msg.Type() == TypeRequest {
		reply := newPendingReply()
		key := idKey(msg.ID())
		s.mu.Lock()
		s.pending[key] = reply
		s.mu.Unlock()

		if err := s.write(msg); err != nil {
			s.mu.Lock()
			delete(s.pending, key)
			s.mu.Unlock()
			return nil, err
		}
		return reply, nil
	}

	if err := s.write(msg); err != nil {
		return nil, err
	}
	return newFinishedReply(Message{}), nil
}

// SendMessageBlocking drives the wait for msg's Reply to resolve, or
// returns a synthetic TimeoutError Message once ctx's deadline elapses
// (spec.md §4.3). When ctx carries no deadline, the Socket's call timeout
// (DefaultCallTimeout unless overridden by WithCallTimeout) is applied.
func (s *Socket) SendMessageBlocking(ctx context.Context, msg Message) (Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	reply, err := s.SendMessage(msg)
	if err != nil {
		return Message{}, err
	}
	resp, err := reply.Wait(ctx)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, idKey(msg.ID()))
		s.mu.Unlock()
		return CreateErrorResponse(msg, CodeTimeoutError, "request timed out"), nil
	}
	return resp, nil
}

// InvokeRemoteMethod is sugar over CreateRequestWithID + SendMessage,
// using the Socket's own monotonic id generator (spec.md §4.3).
func (s *Socket) InvokeRemoteMethod(method string, params ...interface{}) (*Reply, error) {
	req := CreateRequestWithID(s.nextID(), method, collapseParams(params))
	return s.SendMessage(req)
}

// InvokeRemoteMethodBlocking is the blocking form of InvokeRemoteMethod,
// using the Socket's configured call timeout (DefaultCallTimeout unless
// overridden by WithCallTimeout).
func (s *Socket) InvokeRemoteMethodBlocking(method string, params ...interface{}) (Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()
	req := CreateRequestWithID(s.nextID(), method, collapseParams(params))
	return s.SendMessageBlocking(ctx, req)
}

// Close tears down the Socket: any Requests still awaiting a Reply are
// completed with a synthetic error so no caller blocks forever, and the
// underlying channel is closed exactly once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		pending := s.pending
		s.pending = make(map[string]*Reply)
		s.mu.Unlock()
		for _, reply := range pending {
			reply.complete(Message{typ: TypeError, version: wireVersion, id: Null(), hasID: true, errCode: CodeInternalError, errMessage: "session closed", valid: true})
		}

		if s.closer != nil {
			err = s.closer.Close()
		}

		s.obsMu.Lock()
		observers := append([]func(){}, s.onClose...)
		s.obsMu.Unlock()
		for _, f := range observers {
			f()
		}
	})
	return err
}

// Done reports whether the Socket has been closed.
func (s *Socket) Done() <-chan struct{} { return s.closed }
