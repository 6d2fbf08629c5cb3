package main

import (
	"context"
	"fmt"
	"time"
)

// SkippedEvent records a candidate write excluded because its start fell
// outside the sync window. Skips are reported, not errors.
type SkippedEvent struct {
	Target string
	Name   string
	Start  time.Time
}

// SideReport summarizes one backend's part of a run.
type SideReport struct {
	Provider string
	Fetched  int
	Missing  []EventKey
	Added    int
}

// SyncReport is the only artifact a run produces. When an append fails the
// report reflects the writes performed up to that point.
type SyncReport struct {
	Total    int
	First    SideReport
	Second   SideReport
	Skipped  []SkippedEvent
	Duration time.Duration
}

// SyncEngine reconciles two backends by copying events each side is missing.
// Only additions are propagated; updates and deletions never are. On identity
// collisions the second provider's record wins in the unified view.
type SyncEngine struct {
	first  CalendarProvider
	second CalendarProvider
}

func NewSyncEngine(first, second CalendarProvider) *SyncEngine {
	return &SyncEngine{first: first, second: second}
}

// Sync fetches both sides, merges them and writes the missing events to each
// backend. Running it twice back to back leaves nothing to write the second
// time: the first run's additions are visible to the second run's fetches.
func (e *SyncEngine) Sync(ctx context.Context, window SyncWindow) (*SyncReport, error) {
	return e.run(ctx, window, true)
}

// Plan computes the same report as Sync without performing any writes.
func (e *SyncEngine) Plan(ctx context.Context, window SyncWindow) (*SyncReport, error) {
	return e.run(ctx, window, false)
}

func (e *SyncEngine) run(ctx context.Context, window SyncWindow, apply bool) (*SyncReport, error) {
	started := time.Now()

	firstMap, err := e.first.FetchEvents(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetching %s events: %w", e.first.Name(), err)
	}
	secondMap, err := e.second.FetchEvents(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetching %s events: %w", e.second.Name(), err)
	}

	union := mergeEvents(firstMap, secondMap)

	report := &SyncReport{
		Total: len(union),
		First: SideReport{
			Provider: e.first.Name(),
			Fetched:  len(firstMap),
			Missing:  missingKeys(union, firstMap),
		},
		Second: SideReport{
			Provider: e.second.Name(),
			Fetched:  len(secondMap),
			Missing:  missingKeys(union, secondMap),
		},
	}

	if err := e.fill(ctx, e.first, &report.First, union, window, report, apply); err != nil {
		report.Duration = time.Since(started)
		return report, err
	}
	if err := e.fill(ctx, e.second, &report.Second, union, window, report, apply); err != nil {
		report.Duration = time.Since(started)
		return report, err
	}

	report.Duration = time.Since(started)
	return report, nil
}

// fill writes one side's missing events. The window is re-checked per event
// right before the write: the union can carry records sourced outside the
// target horizon, and those must be skipped rather than written. The first
// failed write aborts the batch.
func (e *SyncEngine) fill(ctx context.Context, provider CalendarProvider, side *SideReport, union EventMap, window SyncWindow, report *SyncReport, apply bool) error {
	for _, key := range side.Missing {
		event := union[key]
		if !window.Contains(event.Start) {
			printVerbosely(3, "      ⏭ Skipping %q: start %s is out of range\n", event.Name, event.Start.Format(time.RFC3339))
			report.Skipped = append(report.Skipped, SkippedEvent{
				Target: provider.Name(),
				Name:   event.Name,
				Start:  event.Start,
			})
			continue
		}
		if !apply {
			continue
		}
		printVerbosely(2, "      ➕ Copying %q to %s\n", event.Name, provider.Name())
		if err := provider.AddEvent(ctx, event); err != nil {
			return fmt.Errorf("adding %q to %s: %w", key, provider.Name(), err)
		}
		side.Added++
	}
	return nil
}
