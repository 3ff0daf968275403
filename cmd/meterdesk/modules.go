package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/meterdesk/internal/config"
	"github.com/JaimeStill/meterdesk/internal/console"
	"github.com/JaimeStill/meterdesk/internal/infrastructure"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
	"github.com/JaimeStill/meterdesk/pkg/module"
)

type Modules struct {
	Console *console.Console
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	c, err := console.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{Console: c}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.Console.Module)
	router.Home(m.Console.Module)
}

func (m *Modules) Start(lc *lifecycle.Coordinator) error {
	return m.Console.Start(lc)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	return router
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
