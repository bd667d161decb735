package model

import (
	"fmt"
	"time"
)

// Note is a user-authored title/text pair. ID is a millisecond timestamp that
// is unique within the owning note list.
type Note struct {
	ID        int64
	Title     string
	Text      string
	UpdatedAt time.Time
}

// UpdatedLabel formats UpdatedAt as D/M/YYYY H:M:S without zero padding, in loc.
// A nil loc means UTC.
func (n Note) UpdatedLabel(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := n.UpdatedAt.In(loc)
	return fmt.Sprintf("%d/%d/%d %d:%d:%d",
		t.Day(), int(t.Month()), t.Year(),
		t.Hour(), t.Minute(), t.Second(),
	)
}
