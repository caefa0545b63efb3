package model

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Event is a row of the events table.
type Event struct {
	EventID          int64   `json:"event_id" db:"event_id"`
	EventName        string  `json:"event_name" db:"event_name"`
	Sport            string  `json:"sport" db:"sport"`
	EventDate        Date    `json:"event_date" db:"event_date"`
	WinnerPlayerName *string `json:"winner_player_name" db:"winner_player_name"`
}

// Date is a calendar day without a time of day. It marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp; only the date part is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EventParams carries the columns written by create and full update.
type EventParams struct {
	EventName        string
	Sport            string
	EventDate        Date
	WinnerPlayerName *string
}

// Event builds the stored representation of params under the given id.
func (p EventParams) Event(id int64) *Event {
	return &Event{
		EventID:          id,
		EventName:        p.EventName,
		Sport:            p.Sport,
		EventDate:        p.EventDate,
		WinnerPlayerName: p.WinnerPlayerName,
	}
}

// OptionalName maps a falsy (empty) name to nil so it is stored as NULL.
func OptionalName(name *string) *string {
	if name == nil || *name == "" {
		return nil
	}
	return name
}
