package schedule

import "time"

// ItemDraft is one generated dose for a child before it is persisted.
type ItemDraft struct {
	DoseDefinition
	DueDate   time.Time
	Status    Status
	Completed bool
}

// Generate produces one draft per protocol dose for a child born on
// birthDate. Due dates are clamped calendar-month offsets from the birth
// date. Output order is protocol order, not due-date order, and the result
// is fully determined by birthDate and now.
func Generate(birthDate, now time.Time) []ItemDraft {
	doses := Protocol()
	drafts := make([]ItemDraft, 0, len(doses))
	for _, dose := range doses {
		due := AddCalendarMonths(birthDate, dose.AgeMonths)
		drafts = append(drafts, ItemDraft{
			DoseDefinition: dose,
			DueDate:        due,
			Status:         DeriveStatus(due, false, now),
			Completed:      false,
		})
	}
	return drafts
}
