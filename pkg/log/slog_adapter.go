package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Phase != "" {
		attrs = append(attrs, slog.String("phase", event.Phase))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
		)
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Uint64("msg_id", uint64(event.Message.MessageID)),
		)
		if event.Message.Method != nil {
			attrs = append(attrs, slog.String("method", event.Message.Method.String()))
		}
		if event.Message.Status != nil {
			attrs = append(attrs, slog.String("status", event.Message.Status.String()))
		}
		if event.Message.RoundTrip != nil {
			attrs = append(attrs, slog.Duration("round_trip", *event.Message.RoundTrip))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Announcement != nil:
		attrs = append(attrs,
			slog.String("instance", event.Announcement.Instance),
			slog.String("locator", event.Announcement.Locator),
			slog.Int("port", int(event.Announcement.Port)),
			slog.Bool("accepted", event.Announcement.Accepted),
		)
		if event.Announcement.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Announcement.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_kind", event.Error.Kind),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	case event.Action != nil:
		attrs = append(attrs,
			slog.String("action", event.Action.Name),
			slog.String("target", event.Action.Target),
			slog.Duration("duration", event.Action.Duration),
		)
		if event.Action.Err != "" {
			attrs = append(attrs, slog.String("error", event.Action.Err))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "onboarding", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
