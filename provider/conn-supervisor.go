package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"github.com/spooky-finn/go-bitmex-orderbook/helpers"
	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
	promclient "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/prometheus"
	"github.com/spooky-finn/go-bitmex-orderbook/provider/bitmex"
)

var logger = logging.New("supervisor")

const (
	errorsBuffer = 16
	// DefaultMaxBufferedFrames bounds the frames read but not yet applied.
	DefaultMaxBufferedFrames = 10000
)

// ErrFrameBufferFull ends a session whose apply loop fell too far behind the socket.
var ErrFrameBufferFull = errors.New("frame buffer full")

type State int32

const (
	State_Connecting State = iota
	State_Connected
	State_Backoff
	State_Exited
)

func (s State) String() string {
	switch s {
	case State_Connecting:
		return "connecting"
	case State_Connected:
		return "connected"
	case State_Backoff:
		return "backoff"
	default:
		return "exited"
	}
}

type SupervisorConfig struct {
	Symbol       *domain.MarketSymbol
	Topics       []string
	NewTransport domain.TransportFactory
	Backoff      BackoffPolicy

	ConnectAttempts int
	ConnectInterval time.Duration

	MaxBufferedFrames int
}

// ConnectionSupervisor owns the feed connection: it connects, subscribes,
// pumps frames into a fresh DiffApplier per session and reconnects on failure.
type ConnectionSupervisor struct {
	cfg SupervisorConfig

	state   atomic.Int32
	applier atomic.Pointer[bitmex.DiffApplier]
	errors  chan error

	mu        sync.Mutex
	transport domain.Transport
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnectionSupervisor(cfg SupervisorConfig) *ConnectionSupervisor {
	if cfg.Backoff == nil {
		cfg.Backoff = FixedBackoff(10 * time.Second)
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectInterval <= 0 {
		cfg.ConnectInterval = time.Second
	}
	if cfg.MaxBufferedFrames < 1 {
		cfg.MaxBufferedFrames = DefaultMaxBufferedFrames
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = bitmex.Topics(cfg.Symbol, nil, nil)
	}

	return &ConnectionSupervisor{
		cfg:    cfg,
		errors: make(chan error, errorsBuffer),
		done:   make(chan struct{}),
	}
}

// Start connects synchronously and then supervises in the background.
// It fails with ErrConnectTimeout when no initial attempt succeeds.
func (s *ConnectionSupervisor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(State_Connecting)

	var sess *session
	err := helpers.Retry(ctx, s.cfg.ConnectAttempts, s.cfg.ConnectInterval, func() error {
		var err error
		sess, err = s.dial(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", s.cfg.Symbol.String()).Msg("connect attempt failed")
		}
		return err
	})
	if err != nil {
		cancel()
		s.setState(State_Exited)
		close(s.done)
		return &domain.TransportError{Err: fmt.Errorf("%w after %d attempts: %v", domain.ErrConnectTimeout, s.cfg.ConnectAttempts, err)}
	}

	go s.run(ctx, sess)
	return nil
}

func (s *ConnectionSupervisor) State() State { return State(s.state.Load()) }

// Book returns the order book of the current session, nil before the first connect.
func (s *ConnectionSupervisor) Book() *domain.OrderBook {
	if a := s.applier.Load(); a != nil {
		return a.Book()
	}
	return nil
}

func (s *ConnectionSupervisor) Tables() *domain.TableStorage {
	if a := s.applier.Load(); a != nil {
		return a.Tables()
	}
	return nil
}

// Errors reports unexpected transport failures. Reading it is optional; when
// the buffer is full new errors are only logged.
func (s *ConnectionSupervisor) Errors() <-chan error { return s.errors }

// Done is closed once the supervisor has exited.
func (s *ConnectionSupervisor) Done() <-chan struct{} { return s.done }

// Close stops supervision, closes the socket and waits for the exit.
func (s *ConnectionSupervisor) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		t := s.transport
		started := s.cancel != nil
		s.mu.Unlock()

		if t != nil {
			_ = t.Close()
		}
		if !started {
			s.setState(State_Exited)
			close(s.done)
		}
	})
	<-s.done
	return nil
}

func (s *ConnectionSupervisor) setState(st State) {
	s.state.Store(int32(st))
	promclient.SupervisorStateGauge.Set(float64(st))
}

func (s *ConnectionSupervisor) dial(ctx context.Context) (*session, error) {
	t := s.cfg.NewTransport()
	if err := t.Connect(ctx); err != nil {
		return nil, err
	}
	if err := t.Send(domain.NewSubscribeCommand(s.cfg.Topics)); err != nil {
		_ = t.Close()
		return nil, err
	}

	sess := newSession(t, bitmex.NewDiffApplier(s.cfg.Symbol), s.cfg.MaxBufferedFrames)

	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	s.applier.Store(sess.applier)

	logger.Info().Str("session", sess.id).Strs("topics", s.cfg.Topics).Msg("connected")
	return sess, nil
}

func (s *ConnectionSupervisor) run(ctx context.Context, sess *session) {
	defer close(s.done)
	defer s.setState(State_Exited)

	for {
		s.setState(State_Connected)
		s.cfg.Backoff.Reset()

		err := sess.run(ctx)
		_ = sess.transport.Close()
		if ctx.Err() != nil {
			logger.Info().Str("session", sess.id).Msg("supervisor stopped")
			return
		}
		s.report(sess, err)

		sess = s.reconnect(ctx)
		if sess == nil {
			return
		}
		promclient.ReconnectsCounter.Inc()
	}
}

// reconnect sleeps the backoff and dials until it succeeds or ctx is done.
func (s *ConnectionSupervisor) reconnect(ctx context.Context) *session {
	for {
		s.setState(State_Backoff)
		d := s.cfg.Backoff.Duration()
		logger.Info().Dur("backoff", d).Msg("reconnecting")
		if !helpers.Sleep(ctx, d) {
			return nil
		}

		s.setState(State_Connecting)
		sess, err := s.dial(ctx)
		if err == nil {
			return sess
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn().Err(err).Msg("reconnect attempt failed")
	}
}

func (s *ConnectionSupervisor) report(sess *session, err error) {
	var terr *domain.TransportError
	switch {
	case domain.IsProtocolViolation(err):
		promclient.ProtocolViolationsCounter.Inc()
		logger.Error().Err(err).Str("session", sess.id).Msg("book diverged from feed, resyncing")
	case errors.Is(err, ErrFrameBufferFull):
		promclient.DroppedMessagesCounter.Inc()
		logger.Error().Err(err).Str("session", sess.id).Msg("apply loop fell behind, resyncing")
	case errors.As(err, &terr) && terr.Fatal:
		logger.Error().Err(err).Str("session", sess.id).Msg("transport failed")
		select {
		case s.errors <- err:
		default:
			logger.Warn().Err(err).Msg("errors channel is full")
		}
	default:
		logger.Warn().Err(err).Str("session", sess.id).Msg("socket gone")
	}
}

// session is one connection: a reader goroutine buffers raw frames and the
// apply loop drains them into the applier.
type session struct {
	id        string
	transport domain.Transport
	applier   *bitmex.DiffApplier

	frames    deque.Deque[[]byte]
	maxFrames int
	mu        sync.Mutex
	signal  chan struct{}
	readErr chan error
}

func newSession(t domain.Transport, a *bitmex.DiffApplier, maxFrames int) *session {
	return &session{
		id:        uuid.NewString(),
		transport: t,
		applier:   a,
		maxFrames: maxFrames,
		signal:    make(chan struct{}, 1),
		readErr:   make(chan error, 1),
	}
}

func (ss *session) read() {
	for {
		msg, err := ss.transport.ReadMessage()
		if err != nil {
			ss.readErr <- err
			return
		}

		ss.mu.Lock()
		full := ss.frames.Len() >= ss.maxFrames
		if !full {
			ss.frames.PushBack(msg)
		}
		ss.mu.Unlock()

		if full {
			ss.readErr <- fmt.Errorf("%w: %d frames pending", ErrFrameBufferFull, ss.maxFrames)
			return
		}

		select {
		case ss.signal <- struct{}{}:
		default:
		}
	}
}

// run returns the error that ended the session.
func (ss *session) run(ctx context.Context) error {
	go ss.read()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ss.signal:
			if err := ss.drain(); err != nil {
				return err
			}
		case err := <-ss.readErr:
			if errors.Is(err, ErrFrameBufferFull) {
				return err
			}
			if derr := ss.drain(); derr != nil {
				return derr
			}
			return err
		}
	}
}

func (ss *session) drain() error {
	for {
		ss.mu.Lock()
		if ss.frames.Len() == 0 {
			ss.mu.Unlock()
			return nil
		}
		msg := ss.frames.PopFront()
		ss.mu.Unlock()

		outcome, err := ss.applier.Apply(msg)
		switch {
		case err == nil:
		case domain.IsMessageParse(err):
			if outcome != bitmex.Outcome_Control {
				promclient.DroppedMessagesCounter.Inc()
			}
			logger.Warn().Err(err).Str("session", ss.id).Msg("dropped frame")
			continue
		default:
			return err
		}

		if outcome == bitmex.Outcome_Dropped {
			promclient.DroppedMessagesCounter.Inc()
		}
	}
}
