package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"
	"tlsfront/internal/config"
	"tlsfront/internal/diagnose"
	"tlsfront/internal/listener"
	"tlsfront/internal/middleware"
	"tlsfront/internal/random"
	"tlsfront/internal/registry"
	"tlsfront/internal/sni"
	"tlsfront/internal/transport"
	"tlsfront/internal/version"

	"github.com/rs/zerolog"
)

var ErrInvalidApplication = errors.New("application must be a non-nil http.Handler")

const shutdownTimeout = 10 * time.Second

// CertificateSource selects certificates per handshake and answers ACME
// HTTP-01 challenges on the plain listener.
type CertificateSource interface {
	sni.Resolver
	HTTPChallengeHandler(next http.Handler) http.Handler
	Start(ctx context.Context) error
}

type Bootstrap struct {
	Config     config.Config
	Certs      CertificateSource
	Registry   registry.Registry
	Logger     zerolog.Logger
	Stderr     io.Writer
	Exit       func(code int)
	ErrChan    chan error
	SignalChan chan os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	finish func(error)
}

func New(cfg config.Config, certs CertificateSource, logger zerolog.Logger) *Bootstrap {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bootstrap{
		Config:     cfg,
		Certs:      certs,
		Logger:     logger,
		Stderr:     os.Stderr,
		Exit:       os.Exit,
		ErrChan:    make(chan error, 5),
		SignalChan: make(chan os.Signal, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	b.Registry = registry.New(registry.Options{
		Dispatcher:       sni.New(certs, cfg.DefaultDomain(), logger),
		Variant:          transport.DetectVariant(cfg.HTTP2Enabled()),
		OnStartupFailure: b.onStartupFailure,
		OnRuntimeError:   b.onRuntimeError,
		Middleware: []middleware.Middleware{
			middleware.RequestID(random.New()),
			middleware.ForwardedFor,
			middleware.Fingerprint(diagnose.Program + "/" + version.GetShortVersion()),
			middleware.Compress,
		},
		Logger: logger,
	})

	return b
}

// Serve binds the plain listener, then the secure one, and reports on the
// returned channel exactly once: nil when both accept connections, or the
// error that stopped startup.
func (b *Bootstrap) Serve(app http.Handler) <-chan error {
	ready := make(chan error, 1)

	if !validApplication(app) {
		ready <- ErrInvalidApplication
		return ready
	}

	var once sync.Once
	finish := func(err error) {
		once.Do(func() { ready <- err })
	}
	b.mu.Lock()
	b.finish = finish
	b.mu.Unlock()

	go func() {
		finish(b.serve(app))
	}()

	return ready
}

func (b *Bootstrap) serve(app http.Handler) error {
	address := b.Config.BindAddress()

	httpPort, err := strconv.Atoi(b.Config.HTTPPort())
	if err != nil {
		return fmt.Errorf("invalid http port %q: %w", b.Config.HTTPPort(), err)
	}
	httpsPort, err := strconv.Atoi(b.Config.HTTPSPort())
	if err != nil {
		return fmt.Errorf("invalid https port %q: %w", b.Config.HTTPSPort(), err)
	}

	plain := b.Registry.Plain(b.Certs.HTTPChallengeHandler(transport.RedirectHandler(b.Config.HTTPSPort())))
	if err = plain.Listen(address, httpPort); err != nil {
		return err
	}
	b.Logger.Info().Msgf("%sListening on %s for ACME challenges, and redirecting to HTTPS", b.workerPrefix(), net.JoinHostPort(address, b.Config.HTTPPort()))

	if err = b.Certs.Start(b.ctx); err != nil {
		return fmt.Errorf("start certificate management: %w", err)
	}

	b.Registry.SetApplication(app)
	secure, err := b.Registry.Secure(nil, app)
	if err != nil {
		return err
	}
	if err = secure.Listen(address, httpsPort); err != nil {
		return err
	}
	b.Logger.Info().Msgf("%sListening on %s for secure traffic", b.workerPrefix(), net.JoinHostPort(address, b.Config.HTTPSPort()))

	b.Registry.Detach()
	return nil
}

func validApplication(app http.Handler) bool {
	if app == nil {
		return false
	}
	if fn, ok := app.(http.HandlerFunc); ok && fn == nil {
		return false
	}
	return true
}

func (b *Bootstrap) workerPrefix() string {
	if id := b.Config.WorkerID(); id != "" {
		return "#" + id + " "
	}
	return ""
}

// onStartupFailure is the fatal path: the process cannot do its job without
// both listeners.
func (b *Bootstrap) onStartupFailure(err *listener.BindError) {
	_, _ = io.WriteString(b.Stderr, diagnose.Explain(err.Err, err.Address, err.Port))
	b.Exit(1)

	b.mu.Lock()
	finish := b.finish
	b.mu.Unlock()
	if finish != nil {
		finish(err)
	}
}

func (b *Bootstrap) onRuntimeError(err error) {
	select {
	case b.ErrChan <- err:
	default:
		b.Logger.Error().Err(err).Msg("dropped listener error")
	}
}

func startPprof(pprofPort string, logger zerolog.Logger, errChan chan<- error) {
	pprofAddr := fmt.Sprintf("localhost:%s", pprofPort)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	logger.Info().Msgf("Starting pprof server on http://%s/debug/pprof/", pprofAddr)
	if err := http.ListenAndServe(pprofAddr, mux); err != nil {
		errChan <- fmt.Errorf("pprof server error: %w", err)
	}
}

func (b *Bootstrap) Run(app http.Handler) error {
	defer b.cancel()

	signal.Notify(b.SignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(b.SignalChan)

	select {
	case err := <-b.Serve(app):
		if err != nil {
			_ = b.shutdown()
			return fmt.Errorf("startup failed: %w", err)
		}
	case sig := <-b.SignalChan:
		b.Logger.Info().Msgf("Received signal %s during startup, shutting down", sig)
		return b.shutdown()
	}

	if b.Config.PprofEnabled() {
		go startPprof(b.Config.PprofPort(), b.Logger, b.ErrChan)
	}

	b.Logger.Info().Str("version", version.GetVersion()).Msg("All listeners started successfully")

	select {
	case err := <-b.ErrChan:
		_ = b.shutdown()
		return fmt.Errorf("service error: %w", err)
	case sig := <-b.SignalChan:
		b.Logger.Info().Msgf("Received signal %s, initiating graceful shutdown", sig)
		return b.shutdown()
	}
}

func (b *Bootstrap) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := b.Registry.Shutdown(ctx); err != nil {
		b.Logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
