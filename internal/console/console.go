// Package console assembles the operator console module: the page, its
// actions, and the domain systems behind them.
package console

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
	"github.com/JaimeStill/meterdesk/pkg/middleware"
	"github.com/JaimeStill/meterdesk/pkg/module"
	"github.com/JaimeStill/meterdesk/pkg/routes"
	"github.com/JaimeStill/meterdesk/pkg/web"
	"github.com/JaimeStill/meterdesk/web/app"
)

// Console is the mounted console module and the domain it serves.
type Console struct {
	Module *module.Module
	Domain *Domain
}

// NewModule creates the console module with its handlers and middleware.
// Domain systems are not started until Start is called.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Console, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	tmpl, err := web.NewTemplateSet(
		app.FS,
		"templates/*.html",
		"templates/views",
		cfg.Console.BasePath,
		template.FuncMap{},
		views(cfg.Console.Title),
	)
	if err != nil {
		return nil, fmt.Errorf("console templates: %w", err)
	}

	handler := NewHandler(domain, runtime.Backend, runtime.Prefs, tmpl, Options{
		Title:      cfg.Console.Title,
		MaxSize:    cfg.Upload.MaxSizeBytes(),
		TypePrefix: cfg.Upload.TypePrefix,
		Debug:      cfg.Debug,
	}, runtime.Logger)

	mux := http.NewServeMux()
	routes.Register(mux, handler.Routes())

	m := module.New(cfg.Console.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))

	return &Console{Module: m, Domain: domain}, nil
}

// Start starts the domain systems on lc.
func (c *Console) Start(lc *lifecycle.Coordinator) error {
	return c.Domain.Start(lc)
}
