package service

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/mru-images/immune-child-tracker-app-final/internal/notify"
	"github.com/mru-images/immune-child-tracker-app-final/internal/repository"
	"github.com/mru-images/immune-child-tracker-app-final/internal/schedule"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	UpdateProfile(ctx context.Context, accountID string, req models.UpdateProfileRequest) error

	// Children
	CreateChild(ctx context.Context, accountID string, req models.CreateChildRequest) (*models.Child, []models.ScheduleItem, error)
	GetChildren(ctx context.Context, accountID string) ([]models.Child, error)
	GetChild(ctx context.Context, accountID, childID string) (*models.Child, error)
	UpdateChild(ctx context.Context, accountID, childID string, patch models.ChildPatch) error
	DeleteChild(ctx context.Context, accountID, childID string) error

	// Schedules
	GetChildSchedule(ctx context.Context, accountID, childID string) ([]models.ScheduleItem, error)
	UpdateScheduleItem(ctx context.Context, accountID, childID, scheduleID string, patch models.ScheduleItemPatch) error
	GetAllSchedules(ctx context.Context, accountID string) ([]models.ScheduleItem, error)

	// Vaccinations
	RecordVaccination(ctx context.Context, accountID, childID string, req models.RecordVaccinationRequest) (*models.VaccinationRecord, error)
	GetChildVaccinations(ctx context.Context, accountID, childID string) ([]models.VaccinationRecord, error)
	GetAllVaccinations(ctx context.Context, accountID string) ([]models.VaccinationRecord, error)

	// Change streams
	SubscribeChildren(accountID string) (*notify.Subscription, error)
	SubscribeVaccinations(ctx context.Context, accountID, childID string) (*notify.Subscription, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	broker        notify.Broker
	jwtSecret     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, broker notify.Broker, jwtSecret string) *DefaultService {
	return &DefaultService{
		repo:          repo,
		broker:        broker,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
		now:           time.Now,
	}
}

// WithClock overrides the time source. Tests use it to pin "now".
func (s *DefaultService) WithClock(now func() time.Time) *DefaultService {
	s.now = now
	return s
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	existing, err := s.repo.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, errRemote("error checking account existence", err)
	}
	if existing != nil {
		return nil, errValidation("email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errRemote("error hashing password", err)
	}

	account := &models.Account{
		ID:        uuid.New().String(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Password:  string(hashedPassword),
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, errRemote("error creating account", err)
	}

	token, err := s.generateJWT(account)
	if err != nil {
		return nil, errRemote("error generating token", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		AccountID: account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	account, err := s.repo.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, errRemote("error getting account", err)
	}
	if account == nil {
		return nil, errInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials()
	}

	if err := s.repo.TouchLastLogin(ctx, account.ID); err != nil {
		return nil, errRemote("error updating last login", err)
	}

	token, err := s.generateJWT(account)
	if err != nil {
		return nil, errRemote("error generating token", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) UpdateProfile(ctx context.Context, accountID string, req models.UpdateProfileRequest) error {
	if accountID == "" {
		return errNotAuthenticated()
	}

	if err := s.repo.UpdateAccount(ctx, accountID, req); err != nil {
		if err == repository.ErrNoRecord {
			return errNotFound("account")
		}
		return errRemote("error updating profile", err)
	}
	return nil
}

// authorize fetches a child and verifies the caller owns it. A missing child
// and a child owned by another account both come back as NotFound, so the
// caller cannot distinguish them. Every child-scoped operation goes through
// here before touching schedule or vaccination rows; the denormalized owner
// columns on those rows are a scan optimization, never a substitute for this
// check.
func (s *DefaultService) authorize(ctx context.Context, accountID, childID string) (*models.Child, error) {
	if accountID == "" {
		return nil, errNotAuthenticated()
	}

	child, err := s.repo.GetChild(ctx, childID)
	if err != nil {
		return nil, errRemote("error getting child", err)
	}
	if child == nil || child.OwnerAccountID != accountID {
		return nil, errNotFound("child")
	}

	return child, nil
}

// Child methods
func (s *DefaultService) CreateChild(ctx context.Context, accountID string, req models.CreateChildRequest) (*models.Child, []models.ScheduleItem, error) {
	if accountID == "" {
		return nil, nil, errNotAuthenticated()
	}
	if req.DateOfBirth.IsZero() {
		return nil, nil, errValidation("dateOfBirth is required")
	}

	child := &models.Child{
		ID:             uuid.New().String(),
		OwnerAccountID: accountID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DateOfBirth:    req.DateOfBirth,
	}

	if err := s.repo.CreateChild(ctx, child); err != nil {
		return nil, nil, errRemote("error creating child", err)
	}

	items, err := s.initializeSchedule(ctx, child)
	if err != nil {
		// The child row and any doses that did land remain queryable; the
		// error names the doses that did not.
		return child, items, err
	}

	s.broker.Publish(notify.Event{
		Topic:     notify.ChildrenTopic(accountID),
		Action:    "created",
		AccountID: accountID,
		ChildID:   child.ID,
	})

	return child, items, nil
}

// initializeSchedule generates the full protocol for a child and writes each
// dose as an independent insert. The inserts run concurrently with no
// cross-item ordering and no atomicity; the call succeeds only if every
// insert succeeds, otherwise it returns a ScheduleInitError listing the
// failed doses alongside whatever was written.
func (s *DefaultService) initializeSchedule(ctx context.Context, child *models.Child) ([]models.ScheduleItem, error) {
	drafts := schedule.Generate(child.DateOfBirth.Time, s.now())

	items := make([]*models.ScheduleItem, len(drafts))
	errs := make([]error, len(drafts))

	var wg sync.WaitGroup
	for i, draft := range drafts {
		item := &models.ScheduleItem{
			ID:                 uuid.New().String(),
			ChildID:            child.ID,
			OwnerAccountID:     child.OwnerAccountID,
			VaccineName:        draft.Name,
			VaccineDescription: draft.Description,
			AgeMonths:          draft.AgeMonths,
			AgeText:            draft.AgeText,
			DueDate:            models.NewDate(draft.DueDate),
			Completed:          false,
		}
		items[i] = item

		wg.Add(1)
		go func(i int, item *models.ScheduleItem) {
			defer wg.Done()
			errs[i] = s.repo.CreateScheduleItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	written := make([]models.ScheduleItem, 0, len(drafts))
	var failures []DoseFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, DoseFailure{Vaccine: items[i].VaccineName, Err: err})
			continue
		}
		it := *items[i]
		it.Status = schedule.DeriveStatus(it.DueDate.Time, it.Completed, s.now())
		written = append(written, it)
	}

	if len(failures) > 0 {
		return written, &ScheduleInitError{ChildID: child.ID, Failures: failures}
	}
	return written, nil
}

func (s *DefaultService) GetChildren(ctx context.Context, accountID string) ([]models.Child, error) {
	if accountID == "" {
		return nil, errNotAuthenticated()
	}

	children, err := s.repo.GetChildrenByOwner(ctx, accountID)
	if err != nil {
		return nil, errRemote("error getting children", err)
	}
	return children, nil
}

func (s *DefaultService) GetChild(ctx context.Context, accountID, childID string) (*models.Child, error) {
	return s.authorize(ctx, accountID, childID)
}

func (s *DefaultService) UpdateChild(ctx context.Context, accountID, childID string, patch models.ChildPatch) error {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return err
	}
	if patch.IsZero() {
		return errValidation("no fields to update")
	}

	if err := s.repo.UpdateChild(ctx, childID, patch); err != nil {
		if err == repository.ErrNoRecord {
			return errNotFound("child")
		}
		return errRemote("error updating child", err)
	}

	s.broker.Publish(notify.Event{
		Topic:     notify.ChildrenTopic(accountID),
		Action:    "updated",
		AccountID: accountID,
		ChildID:   childID,
	})
	return nil
}

func (s *DefaultService) DeleteChild(ctx context.Context, accountID, childID string) error {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return err
	}

	if err := s.repo.DeleteChildCascade(ctx, childID); err != nil {
		if err == repository.ErrNoRecord {
			return errNotFound("child")
		}
		return errRemote("error deleting child", err)
	}

	s.broker.Publish(notify.Event{
		Topic:     notify.ChildrenTopic(accountID),
		Action:    "deleted",
		AccountID: accountID,
		ChildID:   childID,
	})
	return nil
}

// Schedule methods
func (s *DefaultService) GetChildSchedule(ctx context.Context, accountID, childID string) ([]models.ScheduleItem, error) {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetChildSchedule(ctx, childID)
	if err != nil {
		return nil, errRemote("error getting schedule", err)
	}

	// Status is recomputed on every read; only the completed flag is
	// persisted ground truth.
	now := s.now()
	for i := range items {
		items[i].Status = schedule.DeriveStatus(items[i].DueDate.Time, items[i].Completed, now)
	}

	return items, nil
}

func (s *DefaultService) UpdateScheduleItem(ctx context.Context, accountID, childID, scheduleID string, patch models.ScheduleItemPatch) error {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return err
	}
	if patch.IsZero() {
		return errValidation("no fields to update")
	}
	if patch.Completed != nil && *patch.Completed && patch.DateCompleted == nil {
		return errValidation("dateCompleted is required when marking a dose completed")
	}

	if err := s.repo.UpdateScheduleItem(ctx, childID, scheduleID, patch); err != nil {
		if err == repository.ErrNoRecord {
			return errNotFound("schedule item")
		}
		return errRemote("error updating schedule item", err)
	}

	s.broker.Publish(notify.Event{
		Topic:     notify.SchedulesTopic(childID),
		Action:    "updated",
		AccountID: accountID,
		ChildID:   childID,
	})
	return nil
}

// GetAllSchedules returns every schedule item across the caller's children,
// filtered by the denormalized owner column.
func (s *DefaultService) GetAllSchedules(ctx context.Context, accountID string) ([]models.ScheduleItem, error) {
	if accountID == "" {
		return nil, errNotAuthenticated()
	}

	items, err := s.repo.GetSchedulesByOwner(ctx, accountID)
	if err != nil {
		return nil, errRemote("error getting schedules", err)
	}

	now := s.now()
	for i := range items {
		items[i].Status = schedule.DeriveStatus(items[i].DueDate.Time, items[i].Completed, now)
	}

	return items, nil
}

// Vaccination methods

// RecordVaccination marks the targeted schedule item completed and appends a
// vaccination record for the audit history. The record is linked to the
// schedule by vaccine name only.
func (s *DefaultService) RecordVaccination(ctx context.Context, accountID, childID string, req models.RecordVaccinationRequest) (*models.VaccinationRecord, error) {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return nil, err
	}
	if req.DateAdministered.IsZero() {
		return nil, errValidation("dateAdministered is required")
	}

	item, err := s.repo.GetScheduleItem(ctx, childID, req.ScheduleID)
	if err != nil {
		return nil, errRemote("error getting schedule item", err)
	}
	if item == nil || item.OwnerAccountID != accountID {
		return nil, errNotFound("schedule item")
	}

	completed := true
	dateCompleted := req.DateAdministered
	patch := models.ScheduleItemPatch{
		Completed:      &completed,
		DateCompleted:  &dateCompleted,
		AdministeredBy: req.AdministeredBy,
		Location:       req.Location,
		BatchNumber:    req.BatchNumber,
		Notes:          req.Notes,
	}

	if err := s.repo.UpdateScheduleItem(ctx, childID, req.ScheduleID, patch); err != nil {
		if err == repository.ErrNoRecord {
			return nil, errNotFound("schedule item")
		}
		return nil, errRemote("error updating schedule item", err)
	}

	record := &models.VaccinationRecord{
		ID:               uuid.New().String(),
		ChildID:          childID,
		OwnerAccountID:   accountID,
		Vaccine:          item.VaccineName,
		DateAdministered: req.DateAdministered,
		BatchNumber:      req.BatchNumber,
		AdministeredBy:   req.AdministeredBy,
		Location:         req.Location,
		Notes:            req.Notes,
		Administered:     true,
	}

	if err := s.repo.CreateVaccination(ctx, record); err != nil {
		return nil, errRemote("error creating vaccination record", err)
	}

	s.broker.Publish(notify.Event{
		Topic:     notify.VaccinationsTopic(childID),
		Action:    "created",
		AccountID: accountID,
		ChildID:   childID,
	})

	return record, nil
}

func (s *DefaultService) GetChildVaccinations(ctx context.Context, accountID, childID string) ([]models.VaccinationRecord, error) {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return nil, err
	}

	records, err := s.repo.GetChildVaccinations(ctx, childID)
	if err != nil {
		return nil, errRemote("error getting vaccinations", err)
	}
	return records, nil
}

// GetAllVaccinations returns every vaccination record across the caller's
// children, filtered by the denormalized owner column.
func (s *DefaultService) GetAllVaccinations(ctx context.Context, accountID string) ([]models.VaccinationRecord, error) {
	if accountID == "" {
		return nil, errNotAuthenticated()
	}

	records, err := s.repo.GetVaccinationsByOwner(ctx, accountID)
	if err != nil {
		return nil, errRemote("error getting vaccinations", err)
	}
	return records, nil
}

// Change stream methods
func (s *DefaultService) SubscribeChildren(accountID string) (*notify.Subscription, error) {
	if accountID == "" {
		return nil, errNotAuthenticated()
	}
	return s.broker.Subscribe(notify.ChildrenTopic(accountID)), nil
}

func (s *DefaultService) SubscribeVaccinations(ctx context.Context, accountID, childID string) (*notify.Subscription, error) {
	if _, err := s.authorize(ctx, accountID, childID); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(notify.VaccinationsTopic(childID)), nil
}

// Helper methods
func (s *DefaultService) generateJWT(account *models.Account) (string, error) {
	expirationTime := s.now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": account.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": s.now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
