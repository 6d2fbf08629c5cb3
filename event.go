package main

import (
	"sort"
	"strings"
	"time"
)

// Event is one calendar entry independent of its provider. Start and End are
// always UTC at second precision; Description is empty text when the backend
// has none, never absent.
type Event struct {
	Name        string
	Description string
	Start       time.Time
	End         time.Time
}

// NewEvent builds a normalized event from raw backend values. Start <= End is
// assumed and passed through unchecked.
func NewEvent(name, description string, start, end time.Time) Event {
	return Event{
		Name:        name,
		Description: description,
		Start:       normalizeTime(start),
		End:         normalizeTime(end),
	}
}

// Key returns the event's cross-backend identity.
func (e Event) Key() EventKey {
	return NewEventKey(e.Name, e.Start)
}

// normalizeTime converts an instant to UTC at second precision. Truncation
// also strips any monotonic clock reading, so normalized times are safe to
// compare with == and to embed in map keys.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// EventKey decides "same event" across backends: display name plus the UTC
// start instant. End and description play no part, so two distinct events
// sharing both name and start collapse into one. That collapse is a known
// limitation, kept as-is to preserve run-over-run stability of the keys.
type EventKey struct {
	Name  string
	Start time.Time
}

// NewEventKey normalizes the start instant so that keys built from different
// zone representations of the same moment compare equal.
func NewEventKey(name string, start time.Time) EventKey {
	return EventKey{Name: name, Start: normalizeTime(start)}
}

func (k EventKey) String() string {
	return k.Name + "/" + k.Start.Format(time.RFC3339)
}

// Compare orders keys by start instant, then by name. Returns -1, 0 or 1.
func (k EventKey) Compare(other EventKey) int {
	if k.Start.Before(other.Start) {
		return -1
	}
	if k.Start.After(other.Start) {
		return 1
	}
	return strings.Compare(k.Name, other.Name)
}

// EventMap holds one backend's events inside the sync window, keyed by
// identity. Rebuilt from scratch on every run.
type EventMap map[EventKey]Event

// mergeEvents unifies two maps into a fresh one. On a key collision the
// record from second wins; the precedence is arbitrary but fixed, and callers
// rely on it staying that way.
func mergeEvents(first, second EventMap) EventMap {
	union := make(EventMap, len(first)+len(second))
	for key, event := range first {
		union[key] = event
	}
	for key, event := range second {
		union[key] = event
	}
	return union
}

// missingKeys returns the keys of union that own lacks, sorted so the write
// pass and the report are deterministic.
func missingKeys(union, own EventMap) []EventKey {
	missing := []EventKey{}
	for key := range union {
		if _, ok := own[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].Compare(missing[j]) < 0
	})
	return missing
}
