package models

import (
	"time"

	"github.com/mru-images/immune-child-tracker-app-final/internal/schedule"
)

// Account represents a registered caregiver account
type Account struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	LastLogin time.Time `db:"last_login" json:"lastLogin"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Child represents a tracked child. OwnerAccountID is set at creation and
// never changes afterwards; every schedule item and vaccination record for
// the child carries a denormalized copy of it.
type Child struct {
	ID             string    `db:"id" json:"id"`
	OwnerAccountID string    `db:"user_id" json:"userId"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	DateOfBirth    Date      `db:"date_of_birth" json:"dateOfBirth"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ScheduleItem is the per-child materialization of one protocol dose.
// Exactly one item exists per (childId, vaccineName) pair; the set is
// generated once when the child is created and never regenerated.
//
// Status is never stored: it is derived from DueDate, Completed and the
// current date on every read, so the persisted fields stay the single
// source of truth while the classification tracks the calendar.
type ScheduleItem struct {
	ID                 string          `db:"id" json:"id"`
	ChildID            string          `db:"child_id" json:"childId"`
	OwnerAccountID     string          `db:"user_id" json:"userId"`
	VaccineName        string          `db:"vaccine_name" json:"vaccineName"`
	VaccineDescription string          `db:"vaccine_description" json:"vaccineDescription"`
	AgeMonths          int             `db:"age_months" json:"ageMonths"`
	AgeText            string          `db:"age_text" json:"ageText"`
	DueDate            Date            `db:"due_date" json:"dueDate"`
	Completed          bool            `db:"completed" json:"completed"`
	DateCompleted      *Date           `db:"date_completed" json:"dateCompleted"`
	AdministeredBy     *string         `db:"administered_by" json:"administeredBy"`
	Location           *string         `db:"location" json:"location"`
	BatchNumber        *string         `db:"batch_number" json:"batchNumber"`
	Notes              *string         `db:"notes" json:"notes"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
	Status             schedule.Status `db:"-" json:"status"`
}

// VaccinationRecord is an administration event kept for audit history,
// independent of the schedule. It relates to a ScheduleItem by vaccine name
// only; it is a redundancy layer, not a second source of scheduling truth.
type VaccinationRecord struct {
	ID               string    `db:"id" json:"id"`
	ChildID          string    `db:"child_id" json:"childId"`
	OwnerAccountID   string    `db:"user_id" json:"userId"`
	Vaccine          string    `db:"vaccine" json:"vaccine"`
	DateAdministered Date      `db:"date_administered" json:"dateAdministered"`
	BatchNumber      *string   `db:"batch_number" json:"batchNumber"`
	AdministeredBy   *string   `db:"administered_by" json:"administeredBy"`
	Location         *string   `db:"location" json:"location"`
	Notes            *string   `db:"notes" json:"notes"`
	Administered     bool      `db:"administered" json:"administered"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

// ChildPatch is a field-level merge update for a child. Nil fields are left
// untouched. The owning account is deliberately not patchable.
type ChildPatch struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	DateOfBirth *Date   `json:"dateOfBirth"`
}

// IsZero reports whether the patch carries no changes.
func (p ChildPatch) IsZero() bool {
	return p.FirstName == nil && p.LastName == nil && p.DateOfBirth == nil
}

// ScheduleItemPatch is a field-level merge update for a schedule item.
type ScheduleItemPatch struct {
	Completed      *bool   `json:"completed"`
	DateCompleted  *Date   `json:"dateCompleted"`
	AdministeredBy *string `json:"administeredBy"`
	Location       *string `json:"location"`
	BatchNumber    *string `json:"batchNumber"`
	Notes          *string `json:"notes"`
}

// IsZero reports whether the patch carries no changes.
func (p ScheduleItemPatch) IsZero() bool {
	return p.Completed == nil && p.DateCompleted == nil && p.AdministeredBy == nil &&
		p.Location == nil && p.BatchNumber == nil && p.Notes == nil
}
