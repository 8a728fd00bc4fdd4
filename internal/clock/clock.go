package clock

import (
	"time"

	"go.uber.org/fx"
)

// DayLayout is the calendar-day format used for every date field in the books.
const DayLayout = "2006-01-02"

// Clock is the currentDate collaborator.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a wall clock that reports time in loc (local time when nil).
func NewSystem(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today formats the clock's current day.
func Today(c Clock) string {
	return c.Now().Format(DayLayout)
}

// Day formats t as a calendar day.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return NewSystem(nil) }),
)
