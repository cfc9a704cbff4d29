// Package commands implements the onboardctl trace commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

// RunView prints the events in path that match filter.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = messageLabel(event.Message)
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Announcement != nil:
		typeLabel = "Announcement"
	case event.Error != nil:
		typeLabel = "Error"
	case event.Action != nil:
		typeLabel = event.Action.Name
	default:
		typeLabel = "Unknown"
	}

	header := fmt.Sprintf("%s [run:%s] %-3s %s", ts, shortenID(event.SessionID), event.Direction, event.Layer)
	if event.Phase != "" && event.Phase != "NONE" {
		header += " " + event.Phase
	}
	fmt.Fprintf(w, "%s %s\n", header, typeLabel)

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.Message != nil:
		fmt.Fprintf(w, "  MessageID: %d\n", event.Message.MessageID)
		if event.Message.Status != nil {
			fmt.Fprintf(w, "  Status: %s (%d)\n", event.Message.Status, *event.Message.Status)
		}
		if event.Message.RoundTrip != nil {
			fmt.Fprintf(w, "  Round trip: %s\n", formatDuration(*event.Message.RoundTrip))
		}
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Announcement != nil:
		a := event.Announcement
		verdict := "accepted"
		if !a.Accepted {
			verdict = "ignored"
			if a.Reason != "" {
				verdict += ": " + a.Reason
			}
		}
		fmt.Fprintf(w, "  %s at %s:%d (%s)\n", a.Instance, a.Locator, a.Port, verdict)
	case event.Error != nil:
		fmt.Fprintf(w, "  Kind: %s\n", event.Error.Kind)
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	case event.Action != nil:
		a := event.Action
		if a.Target != "" {
			fmt.Fprintf(w, "  Target: %s\n", a.Target)
		}
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(a.Duration))
		if a.Err != "" {
			fmt.Fprintf(w, "  Error: %s\n", a.Err)
		}
	}
	if event.DeviceID != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.DeviceID)
	}
	fmt.Fprintln(w)
}

func messageLabel(m *log.MessageEvent) string {
	if m.Response {
		return "Response"
	}
	if m.Method != nil {
		return m.Method.String()
	}
	return "Request"
}

// shortenID returns the first 8 characters of a session id.
func shortenID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return d.Round(time.Millisecond).String()
}

// ParseLayerFlag parses a layer name.
func ParseLayerFlag(s string) (log.Layer, error) {
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerEngine, log.LayerWiFi, log.LayerDiscovery} {
		if strings.EqualFold(l.String(), s) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q (valid: transport, wire, engine, wifi, discovery)", s)
}

// ParseCategoryFlag parses a category name.
func ParseCategoryFlag(s string) (log.Category, error) {
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError, log.CategoryAnnouncement, log.CategoryAction} {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q (valid: message, state, error, announcement, action)", s)
}
