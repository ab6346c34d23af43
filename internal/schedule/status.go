package schedule

import "time"

// Status classifies a schedule item relative to the current date. Only the
// completed flag is persisted; every other status is derived on read so it
// tracks the calendar rather than the last write.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusDue       Status = "due"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// overdueGraceDays is how many days past the due date a dose may remain
// merely "due" before it becomes "overdue".
const overdueGraceDays = 30

// DeriveStatus computes the current status of a dose. A completed dose is
// completed regardless of dates. Otherwise the dose is overdue once more
// than thirty days past due, due from the due date through day thirty, and
// upcoming before the due date.
func DeriveStatus(dueDate time.Time, completed bool, now time.Time) Status {
	if completed {
		return StatusCompleted
	}
	days := DaysSince(dueDate, now)
	switch {
	case days > overdueGraceDays:
		return StatusOverdue
	case days >= 0:
		return StatusDue
	default:
		return StatusUpcoming
	}
}
