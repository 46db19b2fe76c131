package entity

import (
	"math"
	"time"
)

// Status classifies a book's reading progress.
type Status string

const (
	StatusRead     Status = "read"
	StatusUnread   Status = "unread"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
	StatusOnHold   Status = "on-hold"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusRead, StatusUnread, StatusReading, StatusFinished, StatusOnHold}

// ParseStatus reports whether s names one of the known statuses.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Book is a single entry in a user's reading list.
// ImageFile is either the default cover sentinel or a stored cover filename.
type Book struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	Genre     string    `db:"genre"`
	Status    Status    `db:"status"`
	ImageFile string    `db:"image_file"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Stats are the dashboard counters. They are derived from per-status counts and never stored.
type Stats struct {
	Total          int     `json:"total"`
	Read           int     `json:"read"`
	Unread         int     `json:"unread"`
	Reading        int     `json:"reading"`
	Finished       int     `json:"finished"`
	OnHold         int     `json:"on_hold"`
	ReadPercentage float64 `json:"read_percentage"`
}

// NewStats aggregates per-status counts. Rows with a status outside the enum are
// counted as unread so that Unread always equals Total minus the named statuses.
func NewStats(counts map[Status]int) Stats {
	var s Stats
	for _, n := range counts {
		s.Total += n
	}
	s.Read = counts[StatusRead]
	s.Reading = counts[StatusReading]
	s.Finished = counts[StatusFinished]
	s.OnHold = counts[StatusOnHold]
	s.Unread = s.Total - s.Read - s.Reading - s.Finished - s.OnHold
	if s.Total > 0 {
		s.ReadPercentage = math.Round(float64(s.Read)/float64(s.Total)*100*100) / 100
	}
	return s
}
