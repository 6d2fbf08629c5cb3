package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider keeps events in memory and behaves like a backend: fetches
// honor the window, additions become visible to later fetches.
type fakeProvider struct {
	name       string
	events     EventMap
	added      []Event
	fetchErr   error
	addErr     error
	unfiltered bool
}

func newFakeProvider(name string, events ...Event) *fakeProvider {
	m := make(EventMap)
	for _, e := range events {
		m[e.Key()] = e
	}
	return &fakeProvider{name: name, events: m}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchEvents(ctx context.Context, window SyncWindow) (EventMap, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	events := make(EventMap)
	for key, event := range f.events {
		if f.unfiltered || window.Contains(event.Start) {
			events[key] = event
		}
	}
	return events, nil
}

func (f *fakeProvider) AddEvent(ctx context.Context, event Event) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, event)
	f.events[event.Key()] = event
	return nil
}

func testWindow() SyncWindow {
	return computeWindow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 7, 30)
}

func TestSyncCopiesMissingEvent(t *testing.T) {
	meeting := NewEvent("Meeting", "weekly", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
	yandex := newFakeProvider("yandex", meeting)
	google := newFakeProvider("google")

	report, err := NewSyncEngine(yandex, google).Sync(context.Background(), testWindow())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Empty(t, report.First.Missing)
	assert.Equal(t, []EventKey{meeting.Key()}, report.Second.Missing)
	assert.Equal(t, 1, report.Second.Added)
	require.Len(t, google.added, 1, "append is called exactly once")
	assert.Equal(t, meeting, google.added[0])
	assert.Empty(t, yandex.added)
}

func TestSyncNothingToDoOnCollision(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	yandex := newFakeProvider("yandex", NewEvent("Meeting", "yandex copy", start, start.Add(time.Hour)))
	google := newFakeProvider("google", NewEvent("Meeting", "google copy", start, start.Add(2*time.Hour)))

	report, err := NewSyncEngine(yandex, google).Sync(context.Background(), testWindow())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Total, "colliding records collapse into one key")
	assert.Empty(t, report.First.Missing)
	assert.Empty(t, report.Second.Missing)
	assert.Empty(t, yandex.added)
	assert.Empty(t, google.added)
}

func TestSyncIsIdempotent(t *testing.T) {
	window := testWindow()
	yandex := newFakeProvider("yandex",
		NewEvent("Dentist", "", time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)))
	google := newFakeProvider("google",
		NewEvent("Planning", "", time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)))
	engine := NewSyncEngine(yandex, google)

	first, err := engine.Sync(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, 1, first.First.Added)
	assert.Equal(t, 1, first.Second.Added)

	second, err := engine.Sync(context.Background(), window)
	require.NoError(t, err)
	assert.Empty(t, second.First.Missing)
	assert.Empty(t, second.Second.Missing)
	assert.Equal(t, 0, second.First.Added)
	assert.Equal(t, 0, second.Second.Added)
	assert.Len(t, yandex.added, 1, "no further writes on the second run")
	assert.Len(t, google.added, 1)
}

func TestSyncSkipsOutOfWindowWrites(t *testing.T) {
	window := testWindow()
	// A backend may hand back events outside the requested range; those must
	// never be written to the other side
	stale := NewEvent("Archived", "", window.Floor.Add(-48*time.Hour), window.Floor.Add(-47*time.Hour))
	yandex := newFakeProvider("yandex", stale)
	yandex.unfiltered = true
	google := newFakeProvider("google")

	report, err := NewSyncEngine(yandex, google).Sync(context.Background(), window)

	require.NoError(t, err)
	assert.Empty(t, google.added)
	assert.Equal(t, 0, report.Second.Added)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "google", report.Skipped[0].Target)
	assert.Equal(t, "Archived", report.Skipped[0].Name)
	assert.Equal(t, stale.Start, report.Skipped[0].Start)
}

func TestSyncAbortsOnFetchFailure(t *testing.T) {
	yandex := newFakeProvider("yandex")
	yandex.fetchErr = ErrBackendUnavailable
	google := newFakeProvider("google",
		NewEvent("Planning", "", time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)))

	report, err := NewSyncEngine(yandex, google).Sync(context.Background(), testWindow())

	require.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Nil(t, report, "no partial sync after a fetch failure")
	assert.Empty(t, yandex.added)
	assert.Empty(t, google.added)
}

func TestSyncAbortsBatchOnWriteFailure(t *testing.T) {
	yandex := newFakeProvider("yandex",
		NewEvent("One", "", time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)),
		NewEvent("Two", "", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)))
	google := newFakeProvider("google")
	google.addErr = errors.New("quota exceeded")

	report, err := NewSyncEngine(yandex, google).Sync(context.Background(), testWindow())

	require.Error(t, err)
	require.NotNil(t, report, "the report covers what happened before the failure")
	assert.Equal(t, 0, report.Second.Added)
	assert.Empty(t, google.added)
}

func TestPlanWritesNothing(t *testing.T) {
	meeting := NewEvent("Meeting", "", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
	yandex := newFakeProvider("yandex", meeting)
	google := newFakeProvider("google")

	report, err := NewSyncEngine(yandex, google).Plan(context.Background(), testWindow())

	require.NoError(t, err)
	assert.Equal(t, []EventKey{meeting.Key()}, report.Second.Missing)
	assert.Equal(t, 0, report.Second.Added)
	assert.Empty(t, google.added)
	assert.Empty(t, google.events)
}
