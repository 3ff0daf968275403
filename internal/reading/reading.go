// Package reading holds the pure rules of a meter reading under review:
// field provenance, the derived full meter value, and save eligibility.
package reading

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/formatting"
)

// FieldID identifies one editable value of a reading.
type FieldID string

const (
	FieldRoom    FieldID = "room"
	FieldMeter   FieldID = "meter"
	FieldDecimal FieldID = "decimal"
)

// Fields lists the editable fields in display order.
var Fields = []FieldID{FieldRoom, FieldMeter, FieldDecimal}

// ParseFieldID resolves a field identifier from user input.
func ParseFieldID(s string) (FieldID, error) {
	switch id := FieldID(strings.ToLower(strings.TrimSpace(s))); id {
	case FieldRoom, FieldMeter, FieldDecimal:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Label returns the human-readable name of the field.
func (id FieldID) Label() string {
	switch id {
	case FieldRoom:
		return "Room number"
	case FieldMeter:
		return "Meter number"
	case FieldDecimal:
		return "Decimal"
	default:
		return string(id)
	}
}

// Required reports whether the field must be present for a save.
func (id FieldID) Required() bool {
	return id != FieldDecimal
}

const (
	// IncompleteLabel is displayed when no full meter value can be derived.
	IncompleteLabel = "incomplete"
	// NotFoundLabel marks a field the backend did not detect.
	NotFoundLabel = "not found"
)

// FieldState tracks one editable value against the value captured when the
// result was rendered.
type FieldState struct {
	ID       FieldID `json:"id"`
	Original string  `json:"original"`
	Current  string  `json:"current"`
	Edited   bool    `json:"edited"`
}

// NewFieldState seeds an unedited field.
func NewFieldState(id FieldID, original string) FieldState {
	return FieldState{ID: id, Original: original, Current: original}
}

// Set updates the live value. Reverting to the original clears Edited.
func (f *FieldState) Set(value string) {
	f.Current = value
	f.Edited = IsEdited(f.Original, value)
}

// IsEdited reports whether current diverges from original.
func IsEdited(original, current string) bool {
	return current != original
}

// FullMeter derives "{meter}.{decimal}" from trimmed inputs. With only a meter
// value it returns the meter alone; without one it reports incomplete.
func FullMeter(meter, decimal string) (string, bool) {
	m := strings.TrimSpace(meter)
	d := strings.TrimSpace(decimal)
	switch {
	case m != "" && d != "":
		return m + "." + d, true
	case m != "":
		return m, true
	default:
		return "", false
	}
}

// FullMeterDisplay returns the full meter value or IncompleteLabel.
func FullMeterDisplay(meter, decimal string) string {
	if v, ok := FullMeter(meter, decimal); ok {
		return v
	}
	return IncompleteLabel
}

// Eligible reports whether a result may be saved: the backend marked it
// uploadable and both required fields were detected.
func Eligible(r *backend.ExtractionResult) bool {
	if r == nil {
		return false
	}
	return r.CanUpload && r.RoomNumber.Found() && r.MeterNumber.Found()
}

const (
	ReasonRoomMissing  = "room not found"
	ReasonMeterMissing = "meter not found"
	ReasonUnpaired     = "data incomplete or fields could not be paired"
	// ReasonNote accompanies every cannot-save explanation.
	ReasonNote = "Both the room number and the meter number must be detected before the reading can be saved."
)

// Reasons itemizes why a result cannot be saved. It returns nil for
// eligible results.
func Reasons(r *backend.ExtractionResult) []string {
	if r == nil || Eligible(r) {
		return nil
	}

	var reasons []string
	if !r.RoomNumber.Found() {
		reasons = append(reasons, ReasonRoomMissing)
	}
	if !r.MeterNumber.Found() {
		reasons = append(reasons, ReasonMeterMissing)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, ReasonUnpaired)
	}
	return reasons
}

// Tone classifies how a field is presented.
type Tone string

const (
	ToneFound    Tone = "found"
	ToneMissing  Tone = "missing"
	ToneOptional Tone = "optional"
)

// FieldView is the rendered form of one extracted field.
type FieldView struct {
	ID         FieldID `json:"id"`
	Label      string  `json:"label"`
	Found      bool    `json:"found"`
	Value      string  `json:"value"`
	Confidence string  `json:"confidence,omitempty"`
	Method     string  `json:"method,omitempty"`
	Tone       Tone    `json:"tone"`
	// Indicator is the line shown under the field: confidence for a found
	// field, NotFoundLabel otherwise. It is never empty.
	Indicator string `json:"indicator"`
}

// Describe renders a field as its value and confidence, or an explicit
// not-found indicator. A missing decimal is optional rather than an error.
func Describe(id FieldID, f backend.ExtractionField) FieldView {
	v := FieldView{
		ID:     id,
		Label:  id.Label(),
		Method: f.MethodName(),
	}

	if f.Found() {
		v.Found = true
		v.Value = f.Text()
		v.Confidence = formatting.Percent(f.Confidence)
		v.Tone = ToneFound
		v.Indicator = "Confidence " + v.Confidence
		if v.Method != "" {
			v.Indicator += " via " + v.Method
		}
		return v
	}

	v.Indicator = NotFoundLabel
	if id.Required() {
		v.Tone = ToneMissing
	} else {
		v.Tone = ToneOptional
	}
	return v
}

// Field returns the extracted field for id.
func Field(r *backend.ExtractionResult, id FieldID) backend.ExtractionField {
	switch id {
	case FieldRoom:
		return r.RoomNumber
	case FieldMeter:
		return r.MeterNumber
	default:
		return r.DecimalNumber
	}
}

// DriveStatus describes whether the processed image reached remote storage.
type DriveStatus string

const (
	DriveUploaded DriveStatus = "uploaded"
	DriveFailed   DriveStatus = "failed"
	DriveSkipped  DriveStatus = "skipped"
)

// Drive classifies the remote upload outcome of a result.
func Drive(r *backend.ExtractionResult) DriveStatus {
	switch {
	case r.GoogleDriveLink != nil && *r.GoogleDriveLink != "":
		return DriveUploaded
	case r.CanUpload:
		return DriveFailed
	default:
		return DriveSkipped
	}
}

// Tooltip summarizes what a save will persist.
func Tooltip(room, meter, decimal string, hasLink bool) string {
	roomText := strings.TrimSpace(room)
	if roomText == "" {
		roomText = NotFoundLabel
	}

	link := "without image link"
	if hasLink {
		link = "with image link"
	}

	return fmt.Sprintf("Room: %s, Meter: %s, Time: now, %s",
		roomText, FullMeterDisplay(meter, decimal), link)
}
