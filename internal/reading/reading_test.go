package reading_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/pkg/backend"
)

func ptr(s string) *string { return &s }

func field(v string, present bool) backend.ExtractionField {
	if !present {
		return backend.ExtractionField{}
	}
	return backend.ExtractionField{Value: ptr(v), Confidence: 0.9}
}

func TestEligibleGrid(t *testing.T) {
	for _, canUpload := range []bool{true, false} {
		for _, room := range []bool{true, false} {
			for _, meter := range []bool{true, false} {
				for _, decimal := range []bool{true, false} {
					name := fmt.Sprintf("can_upload=%v room=%v meter=%v decimal=%v", canUpload, room, meter, decimal)
					t.Run(name, func(t *testing.T) {
						r := &backend.ExtractionResult{
							CanUpload:     canUpload,
							RoomNumber:    field("101", room),
							MeterNumber:   field("00123", meter),
							DecimalNumber: field("4", decimal),
						}
						want := canUpload && room && meter
						if got := reading.Eligible(r); got != want {
							t.Errorf("eligible: got %v, want %v", got, want)
						}
						if got := len(reading.Reasons(r)) == 0; got != want {
							t.Errorf("reasons empty: got %v, want %v", got, want)
						}
					})
				}
			}
		}
	}
}

func TestEligibleBlankValue(t *testing.T) {
	r := &backend.ExtractionResult{
		CanUpload:   true,
		RoomNumber:  field("   ", true),
		MeterNumber: field("00123", true),
	}
	if reading.Eligible(r) {
		t.Error("blank room should not be eligible")
	}
	if reading.Eligible(nil) {
		t.Error("nil result should not be eligible")
	}
}

func TestReasons(t *testing.T) {
	tests := []struct {
		name   string
		result backend.ExtractionResult
		want   []string
	}{
		{
			name:   "meter missing",
			result: backend.ExtractionResult{RoomNumber: field("101", true)},
			want:   []string{reading.ReasonMeterMissing},
		},
		{
			name:   "both missing",
			result: backend.ExtractionResult{},
			want:   []string{reading.ReasonRoomMissing, reading.ReasonMeterMissing},
		},
		{
			name:   "found but unpaired",
			result: backend.ExtractionResult{RoomNumber: field("101", true), MeterNumber: field("1", true)},
			want:   []string{reading.ReasonUnpaired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reading.Reasons(&tt.result); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFullMeter(t *testing.T) {
	tests := []struct {
		meter, decimal string
		want           string
		ok             bool
	}{
		{"00123", "4", "00123.4", true},
		{" 00123 ", " 4 ", "00123.4", true},
		{"00123", "", "00123", true},
		{"", "4", "", false},
		{"  ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.meter+"|"+tt.decimal, func(t *testing.T) {
			got, ok := reading.FullMeter(tt.meter, tt.decimal)
			if got != tt.want || ok != tt.ok {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
			display := reading.FullMeterDisplay(tt.meter, tt.decimal)
			if !tt.ok && display != reading.IncompleteLabel {
				t.Errorf("display: got %q, want incomplete", display)
			}
		})
	}
}

func TestFieldStateEdited(t *testing.T) {
	f := reading.NewFieldState(reading.FieldRoom, "101")
	if f.Edited {
		t.Fatal("new field should not be edited")
	}

	f.Set("102")
	if !f.Edited {
		t.Error("diverging value should be edited")
	}

	f.Set("101")
	if f.Edited {
		t.Error("reverting to original should clear edited")
	}

	f.Set("101 ")
	if !f.Edited {
		t.Error("whitespace change is an edit")
	}
}

func TestDescribe(t *testing.T) {
	found := reading.Describe(reading.FieldRoom, backend.ExtractionField{Value: ptr("101"), Confidence: 0.95})
	if !found.Found || found.Value != "101" || found.Confidence != "95.0%" || found.Tone != reading.ToneFound || found.Indicator != "Confidence 95.0%" {
		t.Errorf("found field: %+v", found)
	}

	missing := reading.Describe(reading.FieldMeter, backend.ExtractionField{})
	if missing.Found || missing.Indicator != reading.NotFoundLabel || missing.Confidence != "" || missing.Tone != reading.ToneMissing {
		t.Errorf("missing meter: %+v", missing)
	}

	optional := reading.Describe(reading.FieldDecimal, backend.ExtractionField{})
	if optional.Tone != reading.ToneOptional || optional.Indicator != reading.NotFoundLabel {
		t.Errorf("missing decimal: %+v", optional)
	}

	ocr := reading.Describe(reading.FieldMeter, backend.ExtractionField{Value: ptr("7"), Confidence: 0.5, Method: ptr("ocr")})
	if ocr.Indicator != "Confidence 50.0% via ocr" {
		t.Errorf("indicator: %q", ocr.Indicator)
	}
}

func TestDrive(t *testing.T) {
	tests := []struct {
		name   string
		result backend.ExtractionResult
		want   reading.DriveStatus
	}{
		{"uploaded", backend.ExtractionResult{CanUpload: true, GoogleDriveLink: ptr("https://drive/x")}, reading.DriveUploaded},
		{"failed", backend.ExtractionResult{CanUpload: true}, reading.DriveFailed},
		{"skipped", backend.ExtractionResult{}, reading.DriveSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reading.Drive(&tt.result); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTooltip(t *testing.T) {
	got := reading.Tooltip("101", "00123", "4", true)
	want := "Room: 101, Meter: 00123.4, Time: now, with image link"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = reading.Tooltip("", "", "", false)
	want = "Room: not found, Meter: incomplete, Time: now, without image link"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseFieldID(t *testing.T) {
	if id, err := reading.ParseFieldID(" Meter "); err != nil || id != reading.FieldMeter {
		t.Errorf("got %v, %v", id, err)
	}
	if _, err := reading.ParseFieldID("kwh"); !errors.Is(err, reading.ErrUnknownField) {
		t.Errorf("got %v", err)
	}
}
