package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultExitDelay is how long the controller waits after the listener has
// closed before reporting termination.
const DefaultExitDelay = 3 * time.Second

// ErrAlreadyStarted is returned by Start when the controller has left the
// idle state.
var ErrAlreadyStarted = errors.New("lifecycle: already started")

// State is a position in the server lifecycle.
type State int32

const (
	Idle State = iota
	Listening
	ShuttingDown
	Closed
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case ShuttingDown:
		return "shutting_down"
	case Closed:
		return "closed"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Result describes how the controller reached Terminated.
type Result struct {
	// Abandoned is set when connections were still open at the shutdown
	// deadline and had to be force-closed.
	Abandoned bool
	// Err holds a serve failure that triggered the shutdown, if any.
	Err error
}

// Option configures a Controller.
type Option func(*Controller)

// WithExitDelay sets the wait between Closed and Terminated.
func WithExitDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.exitDelay = d
	}
}

// WithShutdownTimeout bounds the connection drain. Zero waits indefinitely.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.shutdownTimeout = d
	}
}

// WithListenFunc overrides how the listening socket is created.
func WithListenFunc(fn func(network, addr string) (net.Listener, error)) Option {
	return func(c *Controller) {
		c.listen = fn
	}
}

// Controller drives an http.Server through
// Listening → ShuttingDown → Closed → Terminated.
type Controller struct {
	server          *http.Server
	logger          *zap.Logger
	exitDelay       time.Duration
	shutdownTimeout time.Duration
	listen          func(network, addr string) (net.Listener, error)

	mu        sync.Mutex
	state     State
	addr      net.Addr
	serveErr  error
	serveDone chan struct{}

	shutdownOnce sync.Once
	done         chan struct{}
	result       Result
}

// New returns an idle controller for server.
func New(server *http.Server, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		server:    server,
		logger:    logger,
		exitDelay: DefaultExitDelay,
		listen:    net.Listen,
		state:     Idle,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start binds the server address and serves in the background. A bind
// failure is returned and leaves the controller idle.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return ErrAlreadyStarted
	}

	ln, err := c.listen("tcp", c.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.server.Addr, err)
	}

	c.addr = ln.Addr()
	c.serveDone = make(chan struct{})
	c.transitionLocked(Listening)
	c.logger.Info("server listening", zap.String("addr", c.addr.String()))

	go c.serve(ln, c.serveDone)
	return nil
}

func (c *Controller) serve(ln net.Listener, done chan struct{}) {
	defer close(done)

	err := c.server.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	c.logger.Error("server error", zap.Error(err))
	c.mu.Lock()
	c.serveErr = err
	c.mu.Unlock()
	c.BeginShutdown()
}

// BeginShutdown stops accepting connections and starts the close sequence.
// Only the first call has an effect; it returns without waiting.
func (c *Controller) BeginShutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.state == Idle {
			c.transitionLocked(Terminated)
			close(c.done)
			return
		}

		c.transitionLocked(ShuttingDown)
		go c.shutdown(c.serveDone)
	})
}

func (c *Controller) shutdown(serveDone <-chan struct{}) {
	ctx := context.Background()
	if c.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.shutdownTimeout)
		defer cancel()
	}

	var abandoned bool
	if err := c.server.Shutdown(ctx); err != nil {
		abandoned = true
		c.logger.Warn("graceful shutdown failed, closing remaining connections", zap.Error(err))
		if closeErr := c.server.Close(); closeErr != nil {
			c.logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
	<-serveDone

	c.mu.Lock()
	c.transitionLocked(Closed)
	c.mu.Unlock()
	c.logger.Info("HTTP server closed", zap.Duration("exit_delay", c.exitDelay))

	timer := time.NewTimer(c.exitDelay)
	<-timer.C

	c.mu.Lock()
	c.result = Result{Abandoned: abandoned, Err: c.serveErr}
	c.transitionLocked(Terminated)
	c.mu.Unlock()
	close(c.done)
}

// AwaitTerminated blocks until the controller reaches Terminated or ctx ends.
func (c *Controller) AwaitTerminated(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed once the controller reaches Terminated.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addr returns the bound address, or nil before Start succeeds.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

func (c *Controller) transitionLocked(next State) {
	prev := c.state
	c.state = next
	c.logger.Debug("lifecycle transition",
		zap.Stringer("from", prev),
		zap.Stringer("to", next),
	)
}
