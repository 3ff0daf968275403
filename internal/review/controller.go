// Package review tracks edits to an extraction result and persists the
// reviewed reading at most once.
package review

import (
	"context"
	"log/slog"
	"strings"

	"github.com/JaimeStill/meterdesk/internal/reading"
	"github.com/JaimeStill/meterdesk/internal/workspace"
	"github.com/JaimeStill/meterdesk/pkg/backend"
	"github.com/JaimeStill/meterdesk/pkg/lifecycle"
)

// Client is the subset of the backend client the controller needs.
type Client interface {
	Save(ctx context.Context, req backend.SaveRequest) (string, error)
}

// AuthHandler receives every auth failure.
type AuthHandler interface {
	HandleAuthError(err error)
}

// Controller edits and saves the current result.
type Controller struct {
	client Client
	ws     *workspace.Workspace
	auth   AuthHandler
	lc     *lifecycle.Coordinator
	logger *slog.Logger
}

// New creates a Controller. Saves run on lc and are awaited at shutdown.
func New(client Client, ws *workspace.Workspace, auth AuthHandler, lc *lifecycle.Coordinator, logger *slog.Logger) *Controller {
	return &Controller{
		client: client,
		ws:     ws,
		auth:   auth,
		lc:     lc,
		logger: logger.With("system", "review"),
	}
}

// Edit sets the live values of the given fields on result resultID. An empty
// resultID addresses whichever result is current.
func (c *Controller) Edit(resultID string, values map[reading.FieldID]string) error {
	var err error
	c.ws.Update(func(s *workspace.State) {
		r := s.Result
		switch {
		case r == nil:
			err = ErrNoResult
			return
		case resultID != "" && resultID != r.ID:
			err = ErrStaleResult
			return
		}

		for id := range values {
			if r.Field(id) == nil {
				err = reading.ErrUnknownField
				return
			}
		}
		for id, v := range values {
			r.Field(id).Set(v)
		}
	})
	return err
}

// Save submits the current result with its reviewed values. The returned
// channel closes once the outcome is applied to the workspace. Local
// precondition failures make no network call.
func (c *Controller) Save() (<-chan struct{}, error) {
	var (
		req      backend.SaveRequest
		resultID string
		err      error
	)

	c.ws.Update(func(s *workspace.State) {
		if s.Locked() {
			err = workspace.ErrLocked
			return
		}

		r := s.Result
		switch {
		case r != nil && (r.Saving || r.Saved):
			err = ErrSaveUnavailable
			return
		case r == nil || !r.Data.CanUpload:
			err = ErrNothingToSave
			if r != nil {
				r.SaveError = MsgNothingToSave
			} else {
				s.SetNotice(workspace.NoticeError, MsgNothingToSave)
			}
			return
		}

		room := strings.TrimSpace(r.Value(reading.FieldRoom))
		meter := strings.TrimSpace(r.Value(reading.FieldMeter))
		if room == "" || meter == "" {
			err = ErrMissingFields
			r.SaveError = MsgMissingFields
			return
		}
		if !r.Eligible {
			err = ErrSaveUnavailable
			return
		}

		req = payload(r)
		resultID = r.ID
		r.Saving = true
		r.SaveError = ""
	})
	if err != nil {
		c.logger.Info("save refused", "error", err)
		return nil, err
	}

	done := make(chan struct{})
	c.lc.Go(func(ctx context.Context) {
		defer close(done)
		c.save(ctx, resultID, req)
	})
	return done, nil
}

func (c *Controller) save(ctx context.Context, resultID string, req backend.SaveRequest) {
	msg, err := c.client.Save(ctx, req)

	stale := false
	c.ws.Update(func(s *workspace.State) {
		r := s.Result
		if r == nil || r.ID != resultID {
			stale = true
			return
		}
		r.Saving = false

		switch {
		case err == nil:
			r.Saved = true
			r.SaveMessage = msg
			if r.SaveMessage == "" {
				r.SaveMessage = MsgSaved
			}
		case backend.IsAuth(err):
		case backend.IsTransport(err):
			r.SaveError = workspace.MsgConnectivity
		default:
			text, ok := backend.ApplicationMessage(err)
			if !ok {
				text = MsgSaveFailed
			}
			r.SaveError = text
		}
	})

	if backend.IsAuth(err) {
		c.auth.HandleAuthError(err)
	}

	switch {
	case stale:
		c.logger.Info("stale save discarded", "result_id", resultID, "error", err)
	case err != nil:
		c.logger.Warn("save failed", "result_id", resultID, "error", err)
	default:
		c.logger.Info("reading saved",
			"result_id", resultID,
			"room", req.RoomNumber,
			"full_meter", req.FullMeter,
			"edited", req.RoomEdited || req.MeterEdited || req.DecimalEdited,
		)
	}
}

func payload(r *workspace.Result) backend.SaveRequest {
	room := r.Field(reading.FieldRoom)
	meter := r.Field(reading.FieldMeter)
	decimal := r.Field(reading.FieldDecimal)

	full, _ := reading.FullMeter(meter.Current, decimal.Current)

	return backend.SaveRequest{
		RoomNumber:         strings.TrimSpace(room.Current),
		MeterNumber:        strings.TrimSpace(meter.Current),
		DecimalNumber:      strings.TrimSpace(decimal.Current),
		FullMeter:          full,
		RoomEdited:         room.Edited,
		MeterEdited:        meter.Edited,
		DecimalEdited:      decimal.Edited,
		GoogleDriveLink:    r.Data.GoogleDriveLink,
		ProcessedImagePath: r.Data.ProcessedImagePath,
	}
}
