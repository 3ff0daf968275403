package web_test

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/JaimeStill/meterdesk/pkg/web"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layout.html": {Data: []byte(
			`{{ define "layout" }}<html data-theme="{{ .Theme }}"><title>{{ .Title }}</title>{{ template "content" . }}</html>{{ end }}`,
		)},
		"templates/views/home.html": {Data: []byte(
			`{{ define "content" }}<a href="{{ .BasePath }}/state">{{ shout .Data }}</a>{{ template "badge" . }}{{ end }}` +
				`{{ define "badge" }}<b>{{ .Data }}</b>{{ end }}`,
		)},
		"templates/views/broken.html": {Data: []byte(
			`{{ define "content" }}{{ .Data.Missing.Field }}{{ end }}`,
		)},
		"static/app.css": {Data: []byte("body{}")},
	}
}

func newSet(t *testing.T) *web.TemplateSet {
	t.Helper()
	funcs := template.FuncMap{"shout": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) }}
	ts, err := web.NewTemplateSet(testFS(), "templates/*.html", "templates/views", "/console", funcs, []web.ViewDef{
		{Template: "home.html", Title: "Home"},
		{Template: "broken.html", Title: "Broken"},
	})
	if err != nil {
		t.Fatalf("new template set: %v", err)
	}
	return ts
}

func TestRender(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	err := ts.Render(rec, "layout", "home.html", web.ViewData{Title: "Meters", Theme: "dark", Data: "hi"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := rec.Body.String()
	for _, want := range []string{`data-theme="dark"`, "<title>Meters</title>", `href="/console/state"`, "HI", "<b>hi</b>"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type: %s", ct)
	}
}

func TestRenderPartial(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	if err := ts.RenderPartial(rec, "home.html", "badge", web.ViewData{Data: "x"}); err != nil {
		t.Fatalf("render partial: %v", err)
	}
	if rec.Body.String() != "<b>x</b>" {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestRenderErrorWritesNothing(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	if err := ts.Render(rec, "layout", "broken.html", web.ViewData{Data: "string"}); err == nil {
		t.Fatal("expected execution error")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("partial output written: %s", rec.Body.String())
	}

	if err := ts.Render(rec, "layout", "missing.html", web.ViewData{}); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestErrorHandler(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	ts.ErrorHandler("layout", web.ViewDef{Template: "home.html", Title: "Not Found"}, http.StatusNotFound)(rec, httptest.NewRequest("GET", "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not Found") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestDistServer(t *testing.T) {
	handler := web.DistServer(testFS(), "static", "/static/")
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/static/app.css", nil))

	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || string(body) != "body{}" {
		t.Errorf("static: %d %s", res.StatusCode, body)
	}
	if res.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("cache-control: %s", res.Header.Get("Cache-Control"))
	}
}
