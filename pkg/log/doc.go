// Package log records a machine-readable trace of onboarding runs.
//
// It is separate from operational logging (slog). Every state change,
// error, announcement decision, collaborator call and configuration
// session frame can be captured as an Event and later replayed with the
// onboardctl trace command.
//
// # Basic Usage
//
//	// Console while developing
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// Binary file
//	cfg.Trace, _ = log.NewFileLogger("/var/log/onboarding/run.oblog")
//
//	// Both
//	cfg.Trace = log.Tee(console, file)
//
// # Layers
//
//   - Transport: raw session frames (FrameEvent)
//   - Wire: decoded session messages (MessageEvent)
//   - Engine: onboarding state changes and errors
//   - WiFi: joins and restores (ActionEvent)
//   - Discovery: announcements accepted or ignored (AnnouncementEvent)
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with integer keys,
// conventionally named *.oblog.
package log
