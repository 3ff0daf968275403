package workspace

import (
	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/formatting"
)

const (
	LabelProcess    = "Process image"
	LabelProcessing = "Processing..."
	LabelSave       = "Save reading"
	LabelSaving     = "Saving..."
	LabelSaved      = "Saved"
	LabelReauth     = "Sign in again"
)

// Trigger is the rendered state of a primary action control.
type Trigger struct {
	Enabled bool   `json:"enabled"`
	Busy    bool   `json:"busy"`
	Label   string `json:"label"`
}

// SelectionView describes the selected file.
type SelectionView struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        string `json:"size"`
}

// PreviewView describes the local preview of the selection.
type PreviewView struct {
	Pending bool   `json:"pending"`
	Ready   bool   `json:"ready"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResultField pairs an extracted field with its review state.
type ResultField struct {
	reading.FieldView
	Current  string `json:"current"`
	Original string `json:"original"`
	Edited   bool   `json:"edited"`
}

// ResultView is the rendered extraction result.
type ResultView struct {
	ID                string               `json:"id"`
	Fields            []ResultField        `json:"fields"`
	FullMeter         string               `json:"full_meter"`
	FullMeterComplete bool                 `json:"full_meter_complete"`
	Eligible          bool                 `json:"eligible"`
	Reasons           []string             `json:"reasons,omitempty"`
	ReasonNote        string               `json:"reason_note,omitempty"`
	Tooltip           string               `json:"tooltip,omitempty"`
	Elapsed           string               `json:"elapsed"`
	ProcessedImage    string               `json:"processed_image,omitempty"`
	Drive             reading.DriveStatus  `json:"drive_status"`
	DriveLink         string               `json:"drive_link,omitempty"`
	Pairing           *backend.PairingInfo `json:"pairing_info,omitempty"`
	Saved             bool                 `json:"saved"`
	SaveError         string               `json:"save_error,omitempty"`
	SaveMessage       string               `json:"save_message,omitempty"`
}

// Surface is an immutable snapshot of everything the console renders.
type Surface struct {
	Liveness      Liveness          `json:"liveness"`
	Banner        Banner            `json:"banner"`
	User          *backend.UserInfo `json:"user,omitempty"`
	Selection     *SelectionView    `json:"selection,omitempty"`
	Preview       *PreviewView      `json:"preview,omitempty"`
	Process       Trigger           `json:"process"`
	Save          Trigger           `json:"save"`
	Notice        *Notice           `json:"notice,omitempty"`
	Result        *ResultView       `json:"result,omitempty"`
	Focus         string            `json:"focus,omitempty"`
	RefreshStatus string            `json:"refresh_status,omitempty"`
}

func render(s *State) Surface {
	out := Surface{
		Liveness:      s.Liveness,
		Banner:        s.Banner,
		Focus:         s.Focus,
		RefreshStatus: s.RefreshStatus,
		Process:       processTrigger(s),
		Save:          saveTrigger(s),
	}

	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Notice != nil {
		n := *s.Notice
		out.Notice = &n
	}
	if s.Selection != nil {
		out.Selection = &SelectionView{
			Name:        s.Selection.Name,
			ContentType: s.Selection.ContentType,
			Size:        formatting.FormatBytes(s.Selection.Size, 1),
		}
	}
	if s.Preview != nil {
		out.Preview = &PreviewView{
			Pending: !s.Preview.Ready && s.Preview.Err == "",
			Ready:   s.Preview.Ready,
			Width:   s.Preview.Width,
			Height:  s.Preview.Height,
			Error:   s.Preview.Err,
		}
	}
	if s.Result != nil {
		out.Result = renderResult(s.Result)
	}

	return out
}

func processTrigger(s *State) Trigger {
	if s.Locked() {
		return Trigger{Label: LabelReauth}
	}
	if s.Processing {
		return Trigger{Busy: true, Label: LabelProcessing}
	}
	return Trigger{Enabled: s.Selection != nil, Label: LabelProcess}
}

func saveTrigger(s *State) Trigger {
	if s.Locked() {
		return Trigger{Label: LabelReauth}
	}
	r := s.Result
	switch {
	case r == nil:
		return Trigger{Label: LabelSave}
	case r.Saving:
		return Trigger{Busy: true, Label: LabelSaving}
	case r.Saved:
		return Trigger{Label: LabelSaved}
	default:
		return Trigger{Enabled: r.Eligible, Label: LabelSave}
	}
}

func renderResult(r *Result) *ResultView {
	meter := r.Value(reading.FieldMeter)
	decimal := r.Value(reading.FieldDecimal)
	full, complete := reading.FullMeter(meter, decimal)
	if !complete {
		full = reading.IncompleteLabel
	}

	view := &ResultView{
		ID:                r.ID,
		FullMeter:         full,
		FullMeterComplete: complete,
		Eligible:          r.Eligible,
		Elapsed:           formatting.Seconds(r.Data.ElapsedTime),
		Drive:             reading.Drive(&r.Data),
		Saved:             r.Saved,
		SaveError:         r.SaveError,
		SaveMessage:       r.SaveMessage,
	}

	for _, id := range reading.Fields {
		f := r.Fields[id]
		view.Fields = append(view.Fields, ResultField{
			FieldView: reading.Describe(id, reading.Field(&r.Data, id)),
			Current:   f.Current,
			Original:  f.Original,
			Edited:    f.Edited,
		})
	}

	if r.Data.ProcessedImage != nil {
		view.ProcessedImage = *r.Data.ProcessedImage
	}
	if r.Data.GoogleDriveLink != nil {
		view.DriveLink = *r.Data.GoogleDriveLink
	}
	if r.Data.PairingInfo != nil {
		p := *r.Data.PairingInfo
		view.Pairing = &p
	}

	if r.Eligible {
		view.Tooltip = reading.Tooltip(r.Value(reading.FieldRoom), meter, decimal, view.DriveLink != "")
	} else {
		view.Reasons = reading.Reasons(&r.Data)
		view.ReasonNote = reading.ReasonNote
	}

	return view
}
