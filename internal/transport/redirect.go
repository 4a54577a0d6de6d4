package transport

import (
	"net"
	"net/http"
	"strings"
)

func RedirectHandler(httpsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := redirectTarget(r, httpsPort)
		if !ok {
			http.Error(w, "missing host", http.StatusBadRequest)
			return
		}

		status := http.StatusMovedPermanently
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			status = http.StatusPermanentRedirect
		}
		http.Redirect(w, r, target, status)
	})
}

func redirectTarget(r *http.Request, httpsPort string) (string, bool) {
	host := r.Host
	if host == "" {
		return "", false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return "", false
	}

	if httpsPort != "" && httpsPort != "443" {
		host = net.JoinHostPort(host, httpsPort)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	return "https://" + host + r.URL.RequestURI(), true
}
