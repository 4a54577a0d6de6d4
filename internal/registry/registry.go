package registry

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"tlsfront/internal/listener"
	"tlsfront/internal/middleware"
	"tlsfront/internal/sni"
	"tlsfront/internal/transport"
	"tlsfront/types"

	"github.com/rs/zerolog"
)

var (
	ErrSecureOptionsAfterStart = errors.New("TLS options must be given before the secure listener is first used")
	ErrNoApplication           = errors.New("no application handler: pass one to Serve or to Secure")
	ErrNoDispatcher            = errors.New("secure listener needs a certificate dispatcher")
)

// Registry owns at most one plain and one secure listener.
type Registry interface {
	Plain(defaultHandler http.Handler) *listener.Handle
	Secure(opts *tls.Config, defaultHandler http.Handler) (*listener.Handle, error)
	SetApplication(app http.Handler)
	Application() http.Handler
	Detach()
	Shutdown(ctx context.Context) error
}

type Options struct {
	Dispatcher *sni.Dispatcher
	Variant    transport.Variant
	// OnStartupFailure is attached to each listener as it is created.
	OnStartupFailure listener.FailureObserver
	// OnRuntimeError receives listener errors once startup is over.
	OnRuntimeError func(error)
	Middleware     []middleware.Middleware
	Logger         zerolog.Logger
}

type appHolder struct {
	handler http.Handler
}

type registry struct {
	mu     sync.Mutex
	plain  *listener.Handle
	secure *listener.Handle

	app atomic.Pointer[appHolder]

	dispatcher *sni.Dispatcher
	variant    transport.Variant
	observer   listener.FailureObserver
	onError    func(error)
	middleware []middleware.Middleware
	logger     zerolog.Logger
}

func New(opts Options) Registry {
	return &registry{
		dispatcher: opts.Dispatcher,
		variant:    opts.Variant,
		observer:   opts.OnStartupFailure,
		onError:    opts.OnRuntimeError,
		middleware: opts.Middleware,
		logger:     opts.Logger,
	}
}

func (r *registry) Plain(defaultHandler http.Handler) *listener.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plain != nil {
		return r.plain
	}

	if defaultHandler == nil {
		defaultHandler = http.NotFoundHandler()
	}

	r.plain = r.register(listener.New(types.ProtocolPlain, transport.NewHTTPServer(defaultHandler, r.logger), r.logger))
	return r.plain
}

func (r *registry) Secure(opts *tls.Config, defaultHandler http.Handler) (*listener.Handle, error) {
	if defaultHandler != nil {
		r.SetApplication(defaultHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.secure != nil {
		if opts != nil {
			return nil, ErrSecureOptionsAfterStart
		}
		return r.secure, nil
	}

	if r.dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	tlsConfig := sni.Install(opts, r.dispatcher, r.logger)
	handler := middleware.Chain(http.HandlerFunc(r.dispatch), r.middleware...)

	t, err := transport.NewHTTPSServer(tlsConfig, handler, r.variant, r.logger)
	if err != nil {
		return nil, fmt.Errorf("secure listener: %w", err)
	}

	r.secure = r.register(listener.New(types.ProtocolSecure, t, r.logger))
	return r.secure, nil
}

func (r *registry) register(h *listener.Handle) *listener.Handle {
	if r.observer != nil {
		h.Observe(r.observer)
	}
	if r.onError != nil {
		h.OnError(r.onError)
	}
	return h
}

func (r *registry) SetApplication(app http.Handler) {
	if app == nil {
		return
	}
	r.app.Store(&appHolder{handler: app})
}

func (r *registry) Application() http.Handler {
	if holder := r.app.Load(); holder != nil {
		return holder.handler
	}
	return nil
}

// dispatch forwards decrypted requests to the application. Reaching it with
// no application set is a programming error; net/http recovers the panic for
// this request only.
func (r *registry) dispatch(w http.ResponseWriter, req *http.Request) {
	app := r.Application()
	if app == nil {
		panic(ErrNoApplication)
	}
	app.ServeHTTP(w, req)
}

func (r *registry) Detach() {
	for _, h := range r.handles() {
		h.Detach()
	}
}

func (r *registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, h := range r.handles() {
		if h.State() != types.StateListening {
			continue
		}
		if err := h.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s listener: %w", h.Protocol(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *registry) handles() []*listener.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*listener.Handle
	for _, h := range []*listener.Handle{r.plain, r.secure} {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
