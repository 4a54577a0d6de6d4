package main

import (
	"fmt"
	"net/http"
	"os"
	"tlsfront/internal/bootstrap"
	"tlsfront/internal/certs"
	"tlsfront/internal/config"
	"tlsfront/internal/logger"
	"tlsfront/internal/version"

	"github.com/alecthomas/kong"
)

type Globals struct {
	Debug bool
}

type ServeCmd struct {
	EnvFile string `help:"Optional .env file read before the environment." default:".env" type:"path"`
}

func (s *ServeCmd) Run(globals *Globals) error {
	cfg, err := config.Load(s.EnvFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	debug := globals.Debug || cfg.Debug()
	log := logger.Setup(debug)

	manager, err := certs.NewManager(cfg, log, logger.Zap(debug))
	if err != nil {
		return fmt.Errorf("certificates: %w", err)
	}
	defer manager.Close()

	app := http.FileServer(http.Dir(cfg.WebRoot()))

	return bootstrap.New(cfg, manager, log).Run(app)
}

var cli struct {
	Debug   bool             `help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Print version information and exit."`
	Serve   ServeCmd         `cmd:"" default:"withargs" help:"Serve HTTPS and the ACME/redirect listener."`
}

func main() {
	cmd := kong.Parse(&cli,
		kong.Name("tlsfront"),
		kong.Description("HTTPS front end with per-host certificates."),
		kong.Vars{
			"version": version.GetVersion(),
		})

	if err := cmd.Run(&Globals{Debug: cli.Debug}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
