package repository

import (
	"context"
	"errors"

	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
)

// ErrNoRecord is returned by mutating calls that matched no row.
var ErrNoRecord = errors.New("record not found")

// ErrOwnerMismatch is returned when an insert carries a denormalized owner id
// that does not match the authoritative owner on the child row. It signals a
// data-integrity bug in the caller, not a permission failure.
var ErrOwnerMismatch = errors.New("denormalized owner does not match child owner")

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Account operations
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, req models.UpdateProfileRequest) error
	TouchLastLogin(ctx context.Context, id string) error

	// Child operations
	CreateChild(ctx context.Context, child *models.Child) error
	GetChild(ctx context.Context, childID string) (*models.Child, error)
	GetChildrenByOwner(ctx context.Context, accountID string) ([]models.Child, error)
	UpdateChild(ctx context.Context, childID string, patch models.ChildPatch) error
	DeleteChildCascade(ctx context.Context, childID string) error

	// Schedule operations
	CreateScheduleItem(ctx context.Context, item *models.ScheduleItem) error
	GetScheduleItem(ctx context.Context, childID, scheduleID string) (*models.ScheduleItem, error)
	GetChildSchedule(ctx context.Context, childID string) ([]models.ScheduleItem, error)
	UpdateScheduleItem(ctx context.Context, childID, scheduleID string, patch models.ScheduleItemPatch) error
	GetSchedulesByOwner(ctx context.Context, accountID string) ([]models.ScheduleItem, error)

	// Vaccination operations
	CreateVaccination(ctx context.Context, record *models.VaccinationRecord) error
	GetChildVaccinations(ctx context.Context, childID string) ([]models.VaccinationRecord, error)
	GetVaccinationsByOwner(ctx context.Context, accountID string) ([]models.VaccinationRecord, error)
}
