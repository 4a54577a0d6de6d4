package middleware

import (
	"net/http"
	"tlsfront/internal/random"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDLength = 16
)

// RequestID tags requests that arrive without an X-Request-Id and echoes the
// id on the response.
func RequestID(ids random.Random) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				generated, err := ids.ID(requestIDLength)
				if err == nil {
					id = generated
					r.Header.Set(RequestIDHeader, id)
				}
			}
			if id != "" {
				w.Header().Set(RequestIDHeader, id)
			}
			next.ServeHTTP(w, r)
		})
	}
}
