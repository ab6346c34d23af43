package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProtocolDoseNamesAreUnique(t *testing.T) {
	doses := Protocol()
	require.NotEmpty(t, doses)

	seen := make(map[string]bool)
	for _, dose := range doses {
		assert.False(t, seen[dose.Name], "duplicate dose name %q", dose.Name)
		seen[dose.Name] = true
		assert.GreaterOrEqual(t, dose.AgeMonths, 0)
	}
}

func TestProtocolIsACopy(t *testing.T) {
	doses := Protocol()
	doses[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Protocol()[0].Name)
}

func TestAddCalendarMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"plain offset", date(2023, time.January, 10), 2, date(2023, time.March, 10)},
		{"zero months", date(2023, time.January, 10), 0, date(2023, time.January, 10)},
		{"year wrap", date(2023, time.November, 15), 2, date(2024, time.January, 15)},
		{"two years", date(2023, time.January, 10), 24, date(2025, time.January, 10)},
		{"clamp to feb 28", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"clamp to feb 29 leap", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamp 31 to 30", date(2023, time.March, 31), 6, date(2023, time.September, 30)},
		{"dec to jan", date(2023, time.December, 31), 1, date(2024, time.January, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddCalendarMonths(tt.start, tt.months)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDeriveStatusBoundaries(t *testing.T) {
	due := date(2024, time.March, 1)

	tests := []struct {
		name      string
		now       time.Time
		completed bool
		want      Status
	}{
		{"day before due", due.AddDate(0, 0, -1), false, StatusUpcoming},
		{"on due date", due, false, StatusDue},
		{"thirty days past", due.AddDate(0, 0, 30), false, StatusDue},
		{"thirty-one days past", due.AddDate(0, 0, 31), false, StatusOverdue},
		{"long past", due.AddDate(1, 0, 0), false, StatusOverdue},
		{"completed before due", due.AddDate(0, 0, -10), true, StatusCompleted},
		{"completed long past due", due.AddDate(2, 0, 0), true, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(due, tt.completed, tt.now))
		})
	}
}

func TestDeriveStatusIsPure(t *testing.T) {
	due := date(2024, time.March, 1)
	now := date(2024, time.March, 20)
	first := DeriveStatus(due, false, now)
	second := DeriveStatus(due, false, now)
	assert.Equal(t, first, second)
}

func TestAge(t *testing.T) {
	birth := date(2024, time.June, 15)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"birth day", date(2024, time.June, 15), "0 months"},
		{"one month", date(2024, time.July, 15), "1 month"},
		{"day short of a month", date(2024, time.July, 14), "0 months"},
		{"day short of first birthday", date(2025, time.June, 14), "11 months"},
		{"first birthday", date(2025, time.June, 15), "1 year"},
		{"two years", date(2026, time.June, 15), "2 years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(birth, tt.now))
		})
	}
}

func TestAgeMonthsSpanYearBoundary(t *testing.T) {
	// Nov 15 to Feb 10 is two whole months plus change.
	assert.Equal(t, "2 months", Age(date(2023, time.November, 15), date(2024, time.February, 10)))
	assert.Equal(t, "3 months", Age(date(2023, time.November, 15), date(2024, time.February, 15)))
}

func TestGenerate(t *testing.T) {
	birth := date(2023, time.January, 10)
	now := date(2023, time.June, 1)

	drafts := Generate(birth, now)
	doses := Protocol()
	require.Len(t, drafts, len(doses))

	for i, draft := range drafts {
		assert.Equal(t, doses[i].Name, draft.Name, "output must stay in protocol order")
		want := AddCalendarMonths(birth, doses[i].AgeMonths)
		assert.True(t, draft.DueDate.Equal(want), "dose %s: got due %s, want %s", draft.Name, draft.DueDate, want)
		assert.False(t, draft.Completed)
		assert.Equal(t, DeriveStatus(want, false, now), draft.Status)
	}

	// Example contract: child born 2023-01-10, the two-month doses fall due
	// 2023-03-10.
	for _, draft := range drafts {
		if draft.AgeMonths == 2 {
			assert.True(t, draft.DueDate.Equal(date(2023, time.March, 10)))
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	birth := date(2024, time.February, 29)
	now := date(2024, time.October, 10)

	first := Generate(birth, now)
	second := Generate(birth, now)
	assert.Equal(t, first, second)
}

func TestGenerateLeapDayBirth(t *testing.T) {
	drafts := Generate(date(2024, time.February, 29), date(2024, time.March, 1))
	for _, draft := range drafts {
		if draft.AgeMonths == 12 {
			// Feb 29 + 12 months clamps to Feb 28 in the non-leap year.
			assert.True(t, draft.DueDate.Equal(date(2025, time.February, 28)))
		}
	}
}
