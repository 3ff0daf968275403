package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JaimeStill/meterdesk/internal/extraction"
	"github.com/JaimeStill/meterdesk/internal/prefs"
	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/internal/session"
	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/formatting"
	"github.com/JaimeStill/meterdesk/pkg/handlers"
	"github.com/JaimeStill/meterdesk/pkg/middleware"
	"github.com/JaimeStill/meterdesk/pkg/routes"
	"github.com/JaimeStill/meterdesk/pkg/web"
	"github.com/JaimeStill/meterdesk/web/app"
)

// multipartSlack bounds the form overhead accepted on top of the image size.
const multipartSlack = 1 << 20

// ImageSource streams processed images from the backend.
type ImageSource interface {
	ProcessedImage(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// Options configure the handler's page and limits.
type Options struct {
	Title      string
	MaxSize    int64
	TypePrefix string
	Debug      bool
}

// Handler serves the console page and its actions. Form posts redirect back
// to the page; clients that ask for JSON receive the console State instead.
type Handler struct {
	domain *Domain
	images ImageSource
	prefs  *prefs.Store
	views  *web.TemplateSet
	opts   Options
	logger *slog.Logger
}

// NewHandler creates a Handler over domain.
func NewHandler(domain *Domain, images ImageSource, p *prefs.Store, views *web.TemplateSet, opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		domain: domain,
		images: images,
		prefs:  p,
		views:  views,
		opts:   opts,
		logger: logger.With("handler", "console"),
	}
}

// Routes returns the route group definition for console endpoints.
func (h *Handler) Routes() routes.Group {
	group := routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{$}", Handler: h.Page},
			{Method: "POST", Pattern: "/select", Handler: h.Select},
			{Method: "POST", Pattern: "/clear", Handler: h.Clear},
			{Method: "POST", Pattern: "/process", Handler: h.Process},
			{Method: "POST", Pattern: "/fields", Handler: h.Fields},
			{Method: "POST", Pattern: "/edit", Handler: h.Edit},
			{Method: "POST", Pattern: "/save", Handler: h.Save},
			{Method: "POST", Pattern: "/banner/dismiss", Handler: h.DismissBanner},
			{Method: "POST", Pattern: "/theme", Handler: h.Theme},
			{Method: "GET", Pattern: "/static/", Handler: web.DistServer(app.FS, "static", "/static/")},
			{Method: "GET", Pattern: "/", Handler: h.views.ErrorHandler(layoutName, web.ViewDef{Template: errorView, Title: "Page not found"}, http.StatusNotFound)},
		},
		Children: []routes.Group{{
			Middleware: []func(http.Handler) http.Handler{noStore},
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/state", Handler: h.State},
				{Method: "GET", Pattern: "/preview", Handler: h.Preview},
				{Method: "GET", Pattern: "/processed/{name}", Handler: h.ProcessedImage},
			},
		}},
	}

	if h.opts.Debug {
		group.Children = append(group.Children, routes.Group{
			Prefix:     "/debug",
			Middleware: []func(http.Handler) http.Handler{noStore},
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/refresh", Handler: h.DebugRefresh},
			},
		})
	}

	return group
}

// Page renders the console.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Render(w, layoutName, consoleView, h.viewData()); err != nil {
		h.logger.Error("render page failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// State returns the console state as JSON.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.state())
}

// Select makes the uploaded "file" part the current selection.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	limit := h.opts.MaxSize + multipartSlack
	if r.ContentLength > limit {
		h.respond(w, r, "", h.domain.Extraction.RejectOversize())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond(w, r, "", h.domain.Extraction.RejectOversize())
			return
		}
		h.respond(w, r, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		h.respond(w, r, "", ErrNoFile)
		return
	}

	err := h.domain.Extraction.Select(r.Context(), extraction.FileFromHeader(files[0]))
	h.respond(w, r, "", err)
}

// Clear drops the selection and any result.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.domain.Extraction.Clear()
	h.respond(w, r, "", nil)
}

// Process submits the selection and waits for the outcome unless the client
// passes async=1 or disconnects.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	done, err := h.domain.Extraction.Process()
	if err != nil {
		h.respond(w, r, "", err)
		return
	}
	h.await(r, done)
	h.respond(w, r, resultAnchor, nil)
}

// Edit applies reviewed field values to the current result.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	req, err := parseEdit(r)
	if err == nil {
		err = h.domain.Review.Edit(req.ResultID, req.values)
	}
	h.respond(w, r, resultAnchor, err)
}

// Fields applies edits and returns the re-rendered summary fragment so the
// page can update the full meter value as the user types.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	req, err := parseEdit(r)
	if err == nil {
		err = h.domain.Review.Edit(req.ResultID, req.values)
	}
	if err != nil {
		http.Error(w, err.Error(), MapHTTPStatus(err))
		return
	}
	if handlers.WantsJSON(r) {
		handlers.RespondJSON(w, http.StatusOK, h.state())
		return
	}
	if err := h.views.RenderPartial(w, consoleView, "summary", h.viewData()); err != nil {
		h.logger.Error("render summary failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Save applies any submitted edits, then saves the result and waits for the
// outcome.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	req, err := parseEdit(r)
	if err != nil {
		h.respond(w, r, resultAnchor, err)
		return
	}
	if len(req.values) > 0 {
		if err := h.domain.Review.Edit(req.ResultID, req.values); err != nil {
			h.respond(w, r, resultAnchor, err)
			return
		}
	}

	done, err := h.domain.Review.Save()
	if err != nil {
		h.respond(w, r, resultAnchor, err)
		return
	}
	h.await(r, done)
	h.respond(w, r, resultAnchor, nil)
}

// DismissBanner hides the re-authentication banner. The session stays locked.
func (h *Handler) DismissBanner(w http.ResponseWriter, r *http.Request) {
	h.domain.Workspace.Update(func(s *workspace.State) { s.DismissBanner() })
	h.respond(w, r, "", nil)
}

// Theme stores the color scheme preference.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	var name string
	if handlers.WantsJSON(r) {
		var body struct {
			Theme string `json:"theme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.respond(w, r, "", ErrInvalidRequest)
			return
		}
		name = body.Theme
	} else {
		name = r.PostFormValue("theme")
	}

	theme, err := prefs.ParseTheme(name)
	if err == nil {
		err = h.prefs.SetTheme(theme)
	}
	h.respond(w, r, "", err)
}

// Preview streams the scaled preview of the selection.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.domain.Extraction.OpenPreview(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	h.stream(w, rc, contentType)
}

// ProcessedImage proxies an annotated image from the backend. An auth
// failure locks the session like any other backend call.
func (h *Handler) ProcessedImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.images.ProcessedImage(r.Context(), r.PathValue("name"))
	if err != nil {
		if backend.IsAuth(err) {
			h.domain.Session.HandleAuthError(err)
		}
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	h.stream(w, rc, contentType)
}

// DebugRefresh runs one session refresh and records a status line.
func (h *Handler) DebugRefresh(w http.ResponseWriter, r *http.Request) {
	outcome := h.domain.Session.Refresh(r.Context())
	status := refreshStatus(outcome, time.Now())
	h.domain.Workspace.Update(func(s *workspace.State) { s.RefreshStatus = status })
	h.logger.Info("manual refresh", "outcome", outcome)
	h.respond(w, r, "", nil)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, anchor string, err error) {
	if handlers.WantsJSON(r) {
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, h.state())
		return
	}

	if err != nil {
		h.logger.Info("action refused", "req_id", middleware.RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	http.Redirect(w, r, h.views.BasePath()+"/"+anchor, http.StatusSeeOther)
}

func (h *Handler) await(r *http.Request, done <-chan struct{}) {
	if r.URL.Query().Get("async") == "1" {
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
	}
}

func (h *Handler) stream(w http.ResponseWriter, rc io.ReadCloser, contentType string) {
	defer rc.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream image failed", "error", err)
	}
}

func (h *Handler) state() State {
	return State{
		Surface: h.domain.Workspace.Snapshot(),
		Theme:   h.prefs.Theme(),
		Debug:   h.opts.Debug,
	}
}

func (h *Handler) viewData() web.ViewData {
	st := h.state()
	return web.ViewData{
		Title: h.opts.Title,
		Theme: string(st.Theme),
		Data: pageData{
			State:   st,
			Themes:  themes,
			Accept:  h.opts.TypePrefix + "*",
			MaxSize: formatting.FormatBytes(h.opts.MaxSize, 0),
		},
	}
}

type editRequest struct {
	ResultID string            `json:"result_id"`
	Fields   map[string]string `json:"fields"`
	values   map[reading.FieldID]string
}

func parseEdit(r *http.Request) (editRequest, error) {
	var req editRequest

	if handlers.WantsJSON(r) {
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				return req, ErrInvalidRequest
			}
		}
		req.values = make(map[reading.FieldID]string, len(req.Fields))
		for k, v := range req.Fields {
			id, err := reading.ParseFieldID(k)
			if err != nil {
				return req, err
			}
			req.values[id] = v
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, ErrInvalidRequest
	}
	req.ResultID = r.PostForm.Get("result_id")
	req.values = make(map[reading.FieldID]string)
	for _, id := range reading.Fields {
		if vs, ok := r.PostForm[string(id)]; ok && len(vs) > 0 {
			req.values[id] = vs[0]
		}
	}
	return req, nil
}

func refreshStatus(o session.Outcome, at time.Time) string {
	stamp := at.Format(time.TimeOnly)
	switch o {
	case session.OutcomeRefreshed:
		return "refreshed at " + stamp
	case session.OutcomeFailed:
		return "refresh rejected at " + stamp
	case session.OutcomeLocked:
		return "session expired at " + stamp
	case session.OutcomeSkipped:
		return "refresh skipped, session locked"
	default:
		return "refresh error at " + stamp
	}
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
