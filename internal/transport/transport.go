package transport

import (
	"context"
	"net"
)

type Transport interface {
	Listen(address string) (net.Listener, error)
	Serve(listener net.Listener) error
	Shutdown(ctx context.Context) error
}
