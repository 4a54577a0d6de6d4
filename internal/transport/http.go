package transport

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type httpServer struct {
	server *http.Server
}

func NewHTTPServer(handler http.Handler, logger zerolog.Logger) Transport {
	return &httpServer{
		server: newServer(handler, logger.With().Str("protocol", "plain").Logger()),
	}
}

func newServer(handler http.Handler, logger zerolog.Logger) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          log.New(logger, "", 0),
	}
}

func (ht *httpServer) Listen(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

func (ht *httpServer) Serve(listener net.Listener) error {
	return serve(ht.server, listener)
}

func (ht *httpServer) Shutdown(ctx context.Context) error {
	return ht.server.Shutdown(ctx)
}

func serve(server *http.Server, listener net.Listener) error {
	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
