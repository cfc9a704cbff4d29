package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	ErrorsByKind     map[string]int
	Runs             map[string]*RunStats
	Announcements    struct {
		Accepted int
		Ignored  int
	}
	TimeRange struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats summarizes one onboarding run.
type RunStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	DeviceID   string
	FinalState string
	Errors     int
}

// CollectStats reads all events in path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		ErrorsByKind:     make(map[string]int),
		Runs:             make(map[string]*RunStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.Error != nil {
			stats.ErrorsByKind[event.Error.Kind]++
		}
		if a := event.Announcement; a != nil {
			if a.Accepted {
				stats.Announcements.Accepted++
			} else {
				stats.Announcements.Ignored++
			}
		}

		// Only engine events carry a run id.
		if event.Layer != log.LayerEngine || event.SessionID == "" {
			continue
		}
		run, ok := stats.Runs[event.SessionID]
		if !ok {
			run = &RunStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			stats.Runs[event.SessionID] = run
		}
		run.Events++
		if event.Timestamp.After(run.LastSeen) {
			run.LastSeen = event.Timestamp
		}
		if event.DeviceID != "" && run.DeviceID == "" && (event.Announcement == nil || event.Announcement.Accepted) {
			run.DeviceID = event.DeviceID
		}
		if event.StateChange != nil {
			run.FinalState = event.StateChange.NewState
		}
		if event.Error != nil {
			run.Errors++
		}
	}
	return stats, nil
}

// RunStatsCommand analyzes the trace file and prints statistics.
func RunStatsCommand(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Onboarding Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerEngine, log.LayerWiFi, log.LayerDiscovery} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError, log.CategoryAnnouncement, log.CategoryAction} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if n := stats.Announcements.Accepted + stats.Announcements.Ignored; n > 0 {
		fmt.Fprintf(w, "Announcements: %d accepted, %d ignored\n\n",
			stats.Announcements.Accepted, stats.Announcements.Ignored)
	}

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *RunStats
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s, final %s\n",
				shortenID(r.id), r.stats.Events, duration, r.stats.FinalState)
			if r.stats.DeviceID != "" {
				fmt.Fprintf(w, "           Device: %s\n", r.stats.DeviceID)
			}
			if r.stats.Errors > 0 {
				fmt.Fprintf(w, "           Errors: %d\n", r.stats.Errors)
			}
		}
	}

	if len(stats.ErrorsByKind) > 0 {
		kinds := make([]string, 0, len(stats.ErrorsByKind))
		for k := range stats.ErrorsByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors by Kind:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-22s %d\n", k+":", stats.ErrorsByKind[k])
		}
	}
}
