package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"tlsfront/internal/transport"
	"tlsfront/types"

	"github.com/rs/zerolog"
)

var (
	ErrAlreadyBound = errors.New("listener already bound")
	ErrNotBound     = errors.New("listener not bound")
)

type BindError struct {
	Protocol types.Protocol
	Address  string
	Port     int
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s listener on %s: %v", e.Protocol, net.JoinHostPort(e.Address, strconv.Itoa(e.Port)), e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// FailureObserver is told about errors while a listener is still starting.
type FailureObserver func(err *BindError)

// Handle is one bound (or bindable) listener. Its state only moves forward:
// unbound, binding, then listening or failed.
type Handle struct {
	protocol  types.Protocol
	transport transport.Transport
	logger    zerolog.Logger

	mu       sync.Mutex
	state    types.State
	address  string
	port     int
	ln       net.Listener
	observer FailureObserver
	onError  func(error)
	served   chan struct{}
}

func New(protocol types.Protocol, t transport.Transport, logger zerolog.Logger) *Handle {
	return &Handle{
		protocol:  protocol,
		transport: t,
		logger:    logger.With().Str("listener", string(protocol)).Logger(),
		state:     types.StateUnbound,
		served:    make(chan struct{}),
	}
}

func (h *Handle) Protocol() types.Protocol { return h.protocol }

func (h *Handle) State() types.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Address reports the requested bind address and port.
func (h *Handle) Address() (string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.address, h.port
}

// Addr reports the bound address, which differs from Address when port 0
// was requested.
func (h *Handle) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

// Observe installs the startup failure observer. It replaces any previous one.
func (h *Handle) Observe(observer FailureObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = observer
}

// Detach removes the startup failure observer; later errors go to the
// handler set with OnError.
func (h *Handle) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = nil
}

func (h *Handle) Observed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.observer != nil
}

func (h *Handle) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

// Listen binds address:port and starts serving in the background. It returns
// once the socket accepts connections or binding failed.
func (h *Handle) Listen(address string, port int) error {
	h.mu.Lock()
	if h.state != types.StateUnbound {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("%w: %s listener is %s", ErrAlreadyBound, h.protocol, state)
	}
	h.state = types.StateBinding
	h.address = address
	h.port = port
	h.mu.Unlock()

	ln, err := h.transport.Listen(net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		bindErr := &BindError{Protocol: h.protocol, Address: address, Port: port, Err: err}

		h.mu.Lock()
		h.state = types.StateFailed
		observer := h.observer
		h.observer = nil
		h.mu.Unlock()

		if observer != nil {
			observer(bindErr)
		}
		return bindErr
	}

	h.mu.Lock()
	h.ln = ln
	h.state = types.StateListening
	h.mu.Unlock()

	h.logger.Debug().Str("addr", ln.Addr().String()).Msg("listener bound")

	go h.serve(ln)
	return nil
}

func (h *Handle) serve(ln net.Listener) {
	defer close(h.served)

	err := h.transport.Serve(ln)
	if err == nil || errors.Is(err, net.ErrClosed) {
		return
	}

	h.mu.Lock()
	observer := h.observer
	h.observer = nil
	onError := h.onError
	address, port := h.address, h.port
	h.mu.Unlock()

	switch {
	case observer != nil:
		observer(&BindError{Protocol: h.protocol, Address: address, Port: port, Err: err})
	case onError != nil:
		onError(fmt.Errorf("%s listener: %w", h.protocol, err))
	default:
		h.logger.Error().Err(err).Msg("listener stopped")
	}
}

// Shutdown stops accepting and waits for in-flight requests or ctx.
func (h *Handle) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	bound := h.state == types.StateListening
	h.mu.Unlock()

	if !bound {
		return ErrNotBound
	}

	if err := h.transport.Shutdown(ctx); err != nil {
		return err
	}

	select {
	case <-h.served:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
