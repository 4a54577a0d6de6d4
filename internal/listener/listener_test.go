package listener

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"testing"
	"time"
	"tlsfront/internal/transport"
	"tlsfront/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Listen(address string) (net.Listener, error) {
	args := m.Called(address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(net.Listener), args.Error(1)
}

func (m *mockTransport) Serve(listener net.Listener) error {
	return m.Called(listener).Error(0)
}

func (m *mockTransport) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func plainHandle() *Handle {
	return New(types.ProtocolPlain, transport.NewHTTPServer(http.NotFoundHandler(), zerolog.Nop()), zerolog.Nop())
}

func shutdown(t *testing.T, h *Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, h.Shutdown(ctx))
}

func TestHandle_Listen(t *testing.T) {
	h := plainHandle()
	assert.Equal(t, types.StateUnbound, h.State())
	assert.Nil(t, h.Addr())

	require.NoError(t, h.Listen("127.0.0.1", 0))
	defer shutdown(t, h)

	assert.Equal(t, types.StateListening, h.State())
	assert.Equal(t, types.ProtocolPlain, h.Protocol())
	require.NotNil(t, h.Addr())

	address, port := h.Address()
	assert.Equal(t, "127.0.0.1", address)
	assert.Equal(t, 0, port)

	resp, err := http.Get("http://" + h.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_ListenTwice(t *testing.T) {
	h := plainHandle()
	require.NoError(t, h.Listen("127.0.0.1", 0))
	defer shutdown(t, h)

	err := h.Listen("127.0.0.1", 0)
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.Equal(t, types.StateListening, h.State())
}

func TestHandle_ListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	h := plainHandle()
	var observed []*BindError
	h.Observe(func(err *BindError) { observed = append(observed, err) })

	err = h.Listen("127.0.0.1", port)
	require.Error(t, err)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, types.ProtocolPlain, bindErr.Protocol)
	assert.Equal(t, "127.0.0.1", bindErr.Address)
	assert.Equal(t, port, bindErr.Port)
	assert.True(t, errors.Is(err, syscall.EADDRINUSE))
	assert.Contains(t, err.Error(), "127.0.0.1:"+strconv.Itoa(port))

	assert.Equal(t, types.StateFailed, h.State())
	require.Len(t, observed, 1)
	assert.Same(t, bindErr, observed[0])
	assert.False(t, h.Observed())

	assert.ErrorIs(t, h.Listen("127.0.0.1", 0), ErrAlreadyBound)
	assert.Equal(t, types.StateFailed, h.State())
}

func TestHandle_ListenFailureDetached(t *testing.T) {
	mt := new(mockTransport)
	mt.On("Listen", "0.0.0.0:80").Return(nil, errors.New("denied"))

	h := New(types.ProtocolSecure, mt, zerolog.Nop())
	called := false
	h.Observe(func(*BindError) { called = true })
	assert.True(t, h.Observed())
	h.Detach()
	assert.False(t, h.Observed())

	err := h.Listen("0.0.0.0", 80)
	assert.Error(t, err)
	assert.False(t, called)
	mt.AssertExpectations(t)
}

func TestHandle_ServeErrorRouting(t *testing.T) {
	tests := []struct {
		name         string
		observe      bool
		withOnError  bool
		wantObserved bool
		wantOnError  bool
	}{
		{"observer attached", true, true, true, false},
		{"observer detached", false, true, false, true},
		{"nobody listening", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			defer ln.Close()

			serveErr := errors.New("accept exploded")
			mt := new(mockTransport)
			mt.On("Listen", "127.0.0.1:0").Return(ln, nil)
			mt.On("Serve", ln).Return(serveErr)

			h := New(types.ProtocolPlain, mt, zerolog.Nop())
			observed := make(chan *BindError, 1)
			runtime := make(chan error, 1)
			if tt.observe {
				h.Observe(func(err *BindError) { observed <- err })
			}
			if tt.withOnError {
				h.OnError(func(err error) { runtime <- err })
			}

			require.NoError(t, h.Listen("127.0.0.1", 0))

			select {
			case <-h.served:
			case <-time.After(time.Second):
				t.Fatal("serve did not finish")
			}

			if tt.wantObserved {
				err := <-observed
				assert.ErrorIs(t, err, serveErr)
			} else {
				assert.Len(t, observed, 0)
			}
			if tt.wantOnError {
				err := <-runtime
				assert.ErrorIs(t, err, serveErr)
			} else {
				assert.Len(t, runtime, 0)
			}
		})
	}
}

func TestHandle_ServeClosedIsQuiet(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	mt := new(mockTransport)
	mt.On("Listen", "127.0.0.1:0").Return(ln, nil)
	mt.On("Serve", ln).Return(net.ErrClosed)

	h := New(types.ProtocolPlain, mt, zerolog.Nop())
	called := false
	h.OnError(func(error) { called = true })
	require.NoError(t, h.Listen("127.0.0.1", 0))

	<-h.served
	assert.False(t, called)
}

func TestHandle_Shutdown(t *testing.T) {
	t.Run("unbound", func(t *testing.T) {
		h := plainHandle()
		assert.ErrorIs(t, h.Shutdown(context.Background()), ErrNotBound)
	})

	t.Run("bound", func(t *testing.T) {
		h := plainHandle()
		require.NoError(t, h.Listen("127.0.0.1", 0))
		addr := h.Addr().String()

		shutdown(t, h)

		_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("transport error", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		block := make(chan struct{})
		mt := new(mockTransport)
		mt.On("Listen", "127.0.0.1:0").Return(ln, nil)
		mt.On("Serve", ln).Run(func(mock.Arguments) { <-block }).Return(nil)
		mt.On("Shutdown", mock.Anything).Return(errors.New("stuck"))
		defer close(block)

		h := New(types.ProtocolPlain, mt, zerolog.Nop())
		require.NoError(t, h.Listen("127.0.0.1", 0))
		assert.EqualError(t, h.Shutdown(context.Background()), "stuck")
	})
}

func TestBindError(t *testing.T) {
	err := &BindError{
		Protocol: types.ProtocolSecure,
		Address:  "0.0.0.0",
		Port:     443,
		Err:      syscall.EACCES,
	}
	assert.Equal(t, "secure listener on 0.0.0.0:443: permission denied", err.Error())
	assert.ErrorIs(t, err, syscall.EACCES)
}
