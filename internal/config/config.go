package config

type Config interface {
	Domains() []string
	DefaultDomain() string

	BindAddress() string
	HTTPPort() string
	HTTPSPort() string

	HTTP2Enabled() bool

	TLSStoragePath() string
	ACMEEmail() string
	CFAPIToken() string
	ACMEStaging() bool

	WebRoot() string
	WorkerID() string

	PprofEnabled() bool
	PprofPort() string

	Debug() bool
}

func MustLoad() (Config, error) {
	return Load(".env")
}

func Load(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := parse()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) Domains() []string {
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}

func (c *config) DefaultDomain() string {
	if len(c.domains) == 0 {
		return ""
	}
	return c.domains[0]
}

func (c *config) BindAddress() string    { return c.bindAddress }
func (c *config) HTTPPort() string       { return c.httpPort }
func (c *config) HTTPSPort() string      { return c.httpsPort }
func (c *config) HTTP2Enabled() bool     { return c.http2Enabled }
func (c *config) TLSStoragePath() string { return c.tlsStoragePath }
func (c *config) ACMEEmail() string      { return c.acmeEmail }
func (c *config) CFAPIToken() string     { return c.cfAPIToken }
func (c *config) ACMEStaging() bool      { return c.acmeStaging }
func (c *config) WebRoot() string        { return c.webRoot }
func (c *config) WorkerID() string       { return c.workerID }
func (c *config) PprofEnabled() bool     { return c.pprofEnabled }
func (c *config) PprofPort() string      { return c.pprofPort }
func (c *config) Debug() bool            { return c.debug }
