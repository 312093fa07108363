package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEventType = errors.New("invalid event type")

type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ParseEventType matches s case-sensitively against the known event types.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventCreate, EventUpdate, EventDelete:
		return EventType(s), nil
	}
	return "", fmt.Errorf("%w: %q is not a valid event type", ErrInvalidEventType, s)
}

func (t EventType) String() string {
	return string(t)
}

// Upserts reports whether the event type writes a final state row.
func (t EventType) Upserts() bool {
	return t == EventCreate || t == EventUpdate
}

func (t EventType) MarshalText() ([]byte, error) {
	if _, err := ParseEventType(string(t)); err != nil {
		return nil, err
	}
	return []byte(t), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	parsed, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EventPayload is the shape accepted by push, before validation.
type EventPayload struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	EventType string `json:"event_type"`
	DataID    string `json:"data_id"`
	DataType  string `json:"data_type"`
	Content   string `json:"content"`
	Desc      string `json:"desc"`
	From      string `json:"from"`
}

type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	EventType EventType `json:"event_type"`
	DataID    string    `json:"data_id"`
	DataType  string    `json:"data_type"`
	Content   string    `json:"content"`
	Desc      string    `json:"desc"`
	From      string    `json:"from"`
}

// LogEntry is one immutable row of the events table. EventType is kept raw
// so rows written by older or foreign producers can still be scanned.
type LogEntry struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	Date       string    `json:"date"`
	EventType  string    `json:"event_type"`
	DataID     string    `json:"data_id"`
	SnapshotID string    `json:"snapshot_id"`
	DataType   string    `json:"data_type"`
	Content    string    `json:"content"`
	Desc       string    `json:"desc"`
	From       string    `json:"from"`
	RecordedAt time.Time `json:"recorded_at"`
}

type EventRecord struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	Date       string    `json:"date"`
	EventType  EventType `json:"event_type"`
	DataID     string    `json:"data_id"`
	SnapshotID string    `json:"snapshot_id"`
	DataType   string    `json:"data_type"`
	Content    string    `json:"content"`
	Desc       string    `json:"desc"`
	From       string    `json:"from"`
}

type EventPage struct {
	Events     []*EventRecord `json:"events"`
	NextCursor *string        `json:"next_cursor"`
}
