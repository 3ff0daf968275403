package console

import (
	"github.com/JaimeStill/meterdesk/internal/prefs"
	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/web"
)

const (
	layoutName   = "layout"
	consoleView  = "console.html"
	errorView    = "error.html"
	resultAnchor = "#result"
)

var themes = []prefs.Theme{prefs.ThemeSystem, prefs.ThemeLight, prefs.ThemeDark}

// State is the JSON form of the console: the workspace surface plus display
// settings.
type State struct {
	workspace.Surface
	Theme prefs.Theme `json:"theme"`
	Debug bool        `json:"debug"`
}

type pageData struct {
	State
	Themes  []prefs.Theme
	Accept  string
	MaxSize string
}

func views(title string) []web.ViewDef {
	return []web.ViewDef{
		{Template: consoleView, Title: title},
		{Template: errorView, Title: "Page not found"},
	}
}
