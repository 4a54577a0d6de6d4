package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type config struct {
	domains []string

	bindAddress string
	httpPort    string
	httpsPort   string

	http2Enabled bool

	tlsStoragePath string
	acmeEmail      string
	cfAPIToken     string
	acmeStaging    bool

	webRoot  string
	workerID string

	pprofEnabled bool
	pprofPort    string

	debug bool
}

func parse() (*config, error) {
	domains, err := parseDomains()
	if err != nil {
		return nil, err
	}

	bindAddress := getenv("BIND_ADDRESS", "0.0.0.0")

	httpPort, err := parsePort("HTTP_PORT", "80")
	if err != nil {
		return nil, err
	}
	httpsPort, err := parsePort("HTTPS_PORT", "443")
	if err != nil {
		return nil, err
	}
	if httpPort == httpsPort && httpPort != "0" {
		return nil, fmt.Errorf("HTTP_PORT and HTTPS_PORT must differ, both are %s", httpPort)
	}

	http2Enabled := getenvBool("HTTP2_ENABLED", true)

	tlsStoragePath := getenv("TLS_STORAGE_PATH", "certs/tls/")
	acmeEmail := getenv("ACME_EMAIL", "admin@"+domains[0])
	acmeStaging := getenvBool("ACME_STAGING", false)
	cfToken := getenv("CF_API_TOKEN", "")

	pprofPort, err := parsePort("PPROF_PORT", "6060")
	if err != nil {
		return nil, err
	}

	return &config{
		domains:        domains,
		bindAddress:    bindAddress,
		httpPort:       httpPort,
		httpsPort:      httpsPort,
		http2Enabled:   http2Enabled,
		tlsStoragePath: tlsStoragePath,
		acmeEmail:      acmeEmail,
		cfAPIToken:     cfToken,
		acmeStaging:    acmeStaging,
		webRoot:        getenv("WEB_ROOT", "public"),
		workerID:       getenv("WORKER_ID", ""),
		pprofEnabled:   getenvBool("PPROF_ENABLED", false),
		pprofPort:      pprofPort,
		debug:          getenvBool("DEBUG", false),
	}, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return godotenv.Load(path)
	}
	return nil
}

func parseDomains() ([]string, error) {
	raw := getenv("DOMAINS", "localhost")

	var domains []string
	seen := make(map[string]struct{})
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, " /:") {
			return nil, fmt.Errorf("invalid domain %q in DOMAINS", d)
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}

	if len(domains) == 0 {
		return nil, fmt.Errorf("DOMAINS must contain at least one domain")
	}
	return domains, nil
}

func parsePort(key, def string) (string, error) {
	raw := getenv(key, def)
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return "", fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return strconv.FormatUint(port, 10), nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val == "true"
}
