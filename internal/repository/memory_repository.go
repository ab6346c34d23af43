package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
)

// MemoryRepository is an in-process implementation of Repository backed by
// maps. It mirrors the PostgreSQL implementation's contract, including the
// insert-time owner assertion, and is used by the hermetic test suite and
// for running the server without a database.
type MemoryRepository struct {
	mu           sync.RWMutex
	accounts     map[string]models.Account
	children     map[string]models.Child
	schedules    map[string]map[string]models.ScheduleItem // childID -> scheduleID -> item
	vaccinations map[string]map[string]models.VaccinationRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:     make(map[string]models.Account),
		children:     make(map[string]models.Child),
		schedules:    make(map[string]map[string]models.ScheduleItem),
		vaccinations: make(map[string]map[string]models.VaccinationRecord),
	}
}

// Account operations
func (r *MemoryRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.LastLogin = now
	account.UpdatedAt = now

	r.accounts[account.ID] = *account
	return nil
}

func (r *MemoryRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			a := account
			return &a, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if account, ok := r.accounts[id]; ok {
		a := account
		return &a, nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateAccount(ctx context.Context, id string, req models.UpdateProfileRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrNoRecord
	}
	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.Phone != nil {
		account.Phone = *req.Phone
	}
	if req.Address != nil {
		account.Address = *req.Address
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[id] = account
	return nil
}

func (r *MemoryRepository) TouchLastLogin(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[id]; ok {
		account.LastLogin = time.Now().UTC()
		r.accounts[id] = account
	}
	return nil
}

// Child operations
func (r *MemoryRepository) CreateChild(ctx context.Context, child *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if child.ID == "" {
		child.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	child.CreatedAt = now
	child.UpdatedAt = now

	r.children[child.ID] = *child
	return nil
}

func (r *MemoryRepository) GetChild(ctx context.Context, childID string) (*models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if child, ok := r.children[childID]; ok {
		c := child
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetChildrenByOwner(ctx context.Context, accountID string) ([]models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var children []models.Child
	for _, child := range r.children {
		if child.OwnerAccountID == accountID {
			children = append(children, child)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	return children, nil
}

func (r *MemoryRepository) UpdateChild(ctx context.Context, childID string, patch models.ChildPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	child, ok := r.children[childID]
	if !ok {
		return ErrNoRecord
	}
	if patch.FirstName != nil {
		child.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		child.LastName = *patch.LastName
	}
	if patch.DateOfBirth != nil {
		child.DateOfBirth = *patch.DateOfBirth
	}
	child.UpdatedAt = time.Now().UTC()
	r.children[childID] = child
	return nil
}

func (r *MemoryRepository) DeleteChildCascade(ctx context.Context, childID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.children[childID]; !ok {
		return ErrNoRecord
	}
	delete(r.schedules, childID)
	delete(r.vaccinations, childID)
	delete(r.children, childID)
	return nil
}

// Schedule operations
func (r *MemoryRepository) CreateScheduleItem(ctx context.Context, item *models.ScheduleItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	child, ok := r.children[item.ChildID]
	if !ok || child.OwnerAccountID != item.OwnerAccountID {
		return ErrOwnerMismatch
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if r.schedules[item.ChildID] == nil {
		r.schedules[item.ChildID] = make(map[string]models.ScheduleItem)
	}
	r.schedules[item.ChildID][item.ID] = *item
	return nil
}

func (r *MemoryRepository) GetScheduleItem(ctx context.Context, childID, scheduleID string) (*models.ScheduleItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if item, ok := r.schedules[childID][scheduleID]; ok {
		i := item
		return &i, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetChildSchedule(ctx context.Context, childID string) ([]models.ScheduleItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]models.ScheduleItem, 0, len(r.schedules[childID]))
	for _, item := range r.schedules[childID] {
		items = append(items, item)
	}
	sortScheduleItems(items)
	return items, nil
}

func (r *MemoryRepository) UpdateScheduleItem(ctx context.Context, childID, scheduleID string, patch models.ScheduleItemPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.schedules[childID][scheduleID]
	if !ok {
		return ErrNoRecord
	}
	if patch.Completed != nil {
		item.Completed = *patch.Completed
	}
	if patch.DateCompleted != nil {
		d := *patch.DateCompleted
		item.DateCompleted = &d
	}
	if patch.AdministeredBy != nil {
		item.AdministeredBy = patch.AdministeredBy
	}
	if patch.Location != nil {
		item.Location = patch.Location
	}
	if patch.BatchNumber != nil {
		item.BatchNumber = patch.BatchNumber
	}
	if patch.Notes != nil {
		item.Notes = patch.Notes
	}
	item.UpdatedAt = time.Now().UTC()
	r.schedules[childID][scheduleID] = item
	return nil
}

func (r *MemoryRepository) GetSchedulesByOwner(ctx context.Context, accountID string) ([]models.ScheduleItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []models.ScheduleItem
	for _, byID := range r.schedules {
		for _, item := range byID {
			if item.OwnerAccountID == accountID {
				items = append(items, item)
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ChildID != items[j].ChildID {
			return items[i].ChildID < items[j].ChildID
		}
		if items[i].AgeMonths != items[j].AgeMonths {
			return items[i].AgeMonths < items[j].AgeMonths
		}
		return items[i].VaccineName < items[j].VaccineName
	})
	return items, nil
}

// Vaccination operations
func (r *MemoryRepository) CreateVaccination(ctx context.Context, record *models.VaccinationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	child, ok := r.children[record.ChildID]
	if !ok || child.OwnerAccountID != record.OwnerAccountID {
		return ErrOwnerMismatch
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now().UTC()

	if r.vaccinations[record.ChildID] == nil {
		r.vaccinations[record.ChildID] = make(map[string]models.VaccinationRecord)
	}
	r.vaccinations[record.ChildID][record.ID] = *record
	return nil
}

func (r *MemoryRepository) GetChildVaccinations(ctx context.Context, childID string) ([]models.VaccinationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]models.VaccinationRecord, 0, len(r.vaccinations[childID]))
	for _, record := range r.vaccinations[childID] {
		records = append(records, record)
	}
	sortVaccinations(records)
	return records, nil
}

func (r *MemoryRepository) GetVaccinationsByOwner(ctx context.Context, accountID string) ([]models.VaccinationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []models.VaccinationRecord
	for _, byID := range r.vaccinations {
		for _, record := range byID {
			if record.OwnerAccountID == accountID {
				records = append(records, record)
			}
		}
	}
	sortVaccinations(records)
	return records, nil
}

func sortScheduleItems(items []models.ScheduleItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].AgeMonths != items[j].AgeMonths {
			return items[i].AgeMonths < items[j].AgeMonths
		}
		return items[i].VaccineName < items[j].VaccineName
	})
}

func sortVaccinations(records []models.VaccinationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].DateAdministered.Equal(records[j].DateAdministered.Time) {
			return records[i].DateAdministered.Before(records[j].DateAdministered.Time)
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
