// Package workspace owns the session-scoped state of the review console.
// Every controller mutates it through Update; renderers read immutable
// Surface snapshots.
package workspace

import (
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/pkg/backend"
)

// Liveness is the usability of the backend session.
type Liveness string

const (
	Active Liveness = "active"
	Warned Liveness = "warned"
	Locked Liveness = "locked"
)

// NoticeKind classifies a user-facing notice.
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a user-facing message about the last extraction action.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// Banner directs the user to re-authenticate once the session is locked.
type Banner struct {
	Visible  bool   `json:"visible"`
	Message  string `json:"message"`
	LoginURL string `json:"login_url"`
}

// Selection is the single image currently chosen for extraction.
type Selection struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Key         string
}

// Preview is the locally decoded thumbnail of the current selection.
type Preview struct {
	SelectionID string
	Key         string
	ContentType string
	Width       int
	Height      int
	Ready       bool
	Err         string
}

// Result is the current extraction result and its review state.
type Result struct {
	ID          string
	SelectionID string
	Data        backend.ExtractionResult
	Fields      map[reading.FieldID]*reading.FieldState
	Eligible    bool
	Saving      bool
	Saved       bool
	SaveError   string
	SaveMessage string
}

// Field returns the review state of id.
func (r *Result) Field(id reading.FieldID) *reading.FieldState {
	return r.Fields[id]
}

// Value returns the live value of id.
func (r *Result) Value(id reading.FieldID) string {
	if f := r.Fields[id]; f != nil {
		return f.Current
	}
	return ""
}

// State is the mutable console state. It is only reachable inside
// Workspace.Update.
type State struct {
	Liveness      Liveness
	Banner        Banner
	User          *backend.UserInfo
	Selection     *Selection
	Preview       *Preview
	Processing    bool
	Notice        *Notice
	Result        *Result
	Focus         string
	RefreshStatus string
}

// Lock transitions the state to Locked and raises the banner. It reports
// false when the state was already locked, leaving the banner untouched.
func (s *State) Lock(message, loginURL string) bool {
	if s.Liveness == Locked {
		return false
	}
	s.Liveness = Locked
	s.Banner = Banner{Visible: true, Message: message, LoginURL: loginURL}
	return true
}

// Locked reports whether mutating actions are disabled.
func (s *State) Locked() bool {
	return s.Liveness == Locked
}

// DismissBanner hides the banner. The state remains locked.
func (s *State) DismissBanner() {
	s.Banner.Visible = false
}

// MarkActive records a successful refresh unless the session is locked.
func (s *State) MarkActive() {
	if s.Liveness != Locked {
		s.Liveness = Active
	}
}

// MarkWarned records a failed refresh unless the session is locked.
func (s *State) MarkWarned() {
	if s.Liveness != Locked {
		s.Liveness = Warned
	}
}

// Select replaces the current selection and invalidates any prior result.
// It returns the previous selection and result so their artifacts can be released.
func (s *State) Select(sel Selection) (*Selection, *Preview) {
	prevSel, prevPreview := s.Selection, s.Preview
	s.Selection = &sel
	s.Preview = &Preview{SelectionID: sel.ID}
	s.Processing = false
	s.Notice = nil
	s.Result = nil
	s.Focus = ""
	return prevSel, prevPreview
}

// ClearSelection returns the control surface to its initial state.
func (s *State) ClearSelection() (*Selection, *Preview) {
	prevSel, prevPreview := s.Selection, s.Preview
	s.Selection = nil
	s.Preview = nil
	s.Processing = false
	s.Notice = nil
	s.Result = nil
	s.Focus = ""
	return prevSel, prevPreview
}

// Current reports whether selectionID is still the active selection.
func (s *State) Current(selectionID string) bool {
	return s.Selection != nil && s.Selection.ID == selectionID
}

// SetResult stores data as the current result for selectionID and seeds the
// editable fields from the extracted values.
func (s *State) SetResult(selectionID string, data backend.ExtractionResult) *Result {
	fields := make(map[reading.FieldID]*reading.FieldState, len(reading.Fields))
	for _, id := range reading.Fields {
		f := reading.NewFieldState(id, reading.Field(&data, id).Text())
		fields[id] = &f
	}

	r := &Result{
		ID:          uuid.NewString(),
		SelectionID: selectionID,
		Data:        data,
		Fields:      fields,
		Eligible:    reading.Eligible(&data),
	}
	s.Result = r
	s.Notice = nil
	s.Focus = "result"
	return r
}

// SetNotice replaces the extraction notice.
func (s *State) SetNotice(kind NoticeKind, text string) {
	s.Notice = &Notice{Kind: kind, Text: text}
}

// Workspace guards the console state.
type Workspace struct {
	mu    sync.Mutex
	state State
}

// New creates a workspace in the Active state.
func New() *Workspace {
	return &Workspace{state: State{Liveness: Active}}
}

// Update runs fn with exclusive access to the state.
func (w *Workspace) Update(fn func(*State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.state)
}

// Liveness returns the current liveness.
func (w *Workspace) Liveness() Liveness {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Liveness
}

// Snapshot renders the current state as an immutable Surface.
func (w *Workspace) Snapshot() Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	return render(&w.state)
}
