package main

import (
	"time"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/extraction"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"url", cfg.Server.URL(),
		"version", cfg.Version,
		"console", cfg.Console.BasePath,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.modules.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}

// Select makes the image at path the current selection, as if it had been
// chosen on the page.
func (s *Server) Select(path string) error {
	f, err := extraction.FileFromPath(path)
	if err != nil {
		return err
	}
	return s.modules.Console.Domain.Extraction.Select(s.infra.Lifecycle.Context(), f)
}
