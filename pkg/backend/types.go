package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExtractionField is one value recognized in an uploaded image.
// A nil Value means the field was not found.
type ExtractionField struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
	Method     *string `json:"method,omitempty"`
}

// Text returns the field value, or an empty string when absent.
func (f ExtractionField) Text() string {
	if f.Value == nil {
		return ""
	}
	return *f.Value
}

// Found reports whether the field carries a non-blank value.
func (f ExtractionField) Found() bool {
	return strings.TrimSpace(f.Text()) != ""
}

// MethodName returns the detection method, or an empty string.
func (f ExtractionField) MethodName() string {
	if f.Method == nil {
		return ""
	}
	return *f.Method
}

// PairingInfo describes how the backend associated detected numbers.
type PairingInfo struct {
	TotalRoomsFound    int    `json:"total_rooms_found"`
	TotalMetersFound   int    `json:"total_meters_found"`
	TotalDecimalsFound int    `json:"total_decimals_found"`
	PairingMethod      string `json:"pairing_method,omitempty"`
	Error              string `json:"error,omitempty"`
}

// ExtractionResult is the payload returned by a successful /process call.
type ExtractionResult struct {
	RoomNumber         ExtractionField `json:"room_number"`
	MeterNumber        ExtractionField `json:"meter_number"`
	DecimalNumber      ExtractionField `json:"decimal_number"`
	FullMeter          *string         `json:"full_meter"`
	CanUpload          bool            `json:"can_upload"`
	ElapsedTime        float64         `json:"elapsed_time"`
	ProcessedImage     *string         `json:"processed_image"`
	ProcessedImagePath *string         `json:"processed_image_path"`
	GoogleDriveLink    *string         `json:"google_drive_link"`
	PairingInfo        *PairingInfo    `json:"pairing_info,omitempty"`
}

// UserInfo identifies the signed-in user and their storage links.
type UserInfo struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	FolderLink      string `json:"folder_link,omitempty"`
	PhotoFolderLink string `json:"photo_folder_link,omitempty"`
	SheetLink       string `json:"sheet_link,omitempty"`
}

// RefreshResult is the body of a session refresh response.
// The backend encodes redirect either as a boolean or as the login URL.
type RefreshResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Redirect    bool   `json:"-"`
	RedirectURL string `json:"-"`
}

// UnmarshalJSON accepts redirect as a bool or a URL string.
func (r *RefreshResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success  bool            `json:"success"`
		Message  string          `json:"message"`
		Error    string          `json:"error"`
		Redirect json.RawMessage `json:"redirect"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Success = raw.Success
	r.Message = raw.Message
	if r.Message == "" {
		r.Message = raw.Error
	}
	r.Redirect = false
	r.RedirectURL = ""

	if len(raw.Redirect) == 0 || string(raw.Redirect) == "null" {
		return nil
	}

	var flag bool
	if err := json.Unmarshal(raw.Redirect, &flag); err == nil {
		r.Redirect = flag
		return nil
	}

	var target string
	if err := json.Unmarshal(raw.Redirect, &target); err == nil {
		r.Redirect = target != ""
		r.RedirectURL = target
		return nil
	}

	return fmt.Errorf("redirect: unsupported value %s", raw.Redirect)
}

// SaveRequest is the body of a /save-to-sheets call.
type SaveRequest struct {
	RoomNumber         string  `json:"room_number"`
	MeterNumber        string  `json:"meter_number"`
	DecimalNumber      string  `json:"decimal_number"`
	FullMeter          string  `json:"full_meter"`
	RoomEdited         bool    `json:"room_edited"`
	MeterEdited        bool    `json:"meter_edited"`
	DecimalEdited      bool    `json:"decimal_edited"`
	GoogleDriveLink    *string `json:"google_drive_link,omitempty"`
	ProcessedImagePath *string `json:"processed_image_path,omitempty"`
}

// Upload is an image handed to the backend for extraction.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// envelope captures the error signalling fields shared by every JSON response.
type envelope struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
	AuthError    bool   `json:"auth_error"`
	Success      *bool  `json:"success"`
	Message      string `json:"message"`
}

func (e envelope) message() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return e.Message
	}
}
