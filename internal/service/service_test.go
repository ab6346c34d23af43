package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/mru-images/immune-child-tracker-app-final/internal/notify"
	"github.com/mru-images/immune-child-tracker-app-final/internal/repository"
	"github.com/mru-images/immune-child-tracker-app-final/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountA = "acct-a"
	accountB = "acct-b"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(now time.Time) (*DefaultService, *repository.MemoryRepository, *notify.Hub) {
	repo := repository.NewMemoryRepository()
	hub := notify.NewHub()
	svc := NewDefaultService(repo, hub, "test-secret").WithClock(fixedClock(now))
	return svc, repo, hub
}

func mustDate(t *testing.T, s string) models.Date {
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func createTestChild(t *testing.T, svc *DefaultService, accountID, dob string) *models.Child {
	child, items, err := svc.CreateChild(context.Background(), accountID, models.CreateChildRequest{
		FirstName:   "Ada",
		LastName:    "Hopper",
		DateOfBirth: mustDate(t, dob),
	})
	require.NoError(t, err)
	require.Len(t, items, len(schedule.Protocol()))
	return child
}

func TestCreateChildInitializesFullSchedule(t *testing.T) {
	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, repo, _ := newTestService(now)

	child := createTestChild(t, svc, accountA, "2023-01-10")
	assert.Equal(t, accountA, child.OwnerAccountID)

	items, err := repo.GetChildSchedule(context.Background(), child.ID)
	require.NoError(t, err)
	require.Len(t, items, len(schedule.Protocol()))

	byName := make(map[string]models.ScheduleItem)
	for _, item := range items {
		assert.Equal(t, child.ID, item.ChildID)
		assert.Equal(t, accountA, item.OwnerAccountID)
		assert.False(t, item.Completed)
		byName[item.VaccineName] = item
	}
	require.Len(t, byName, len(schedule.Protocol()), "one item per dose name")

	// Child born 2023-01-10: the two-month doses fall due 2023-03-10.
	assert.Equal(t, "2023-03-10", byName["DPT1"].DueDate.String())
	assert.Equal(t, "2023-01-10", byName["BCG"].DueDate.String())
	assert.Equal(t, "2025-01-10", byName["Measles2"].DueDate.String())
}

func TestCreateChildPublishesEvent(t *testing.T) {
	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, _, hub := newTestService(now)

	sub := hub.Subscribe(notify.ChildrenTopic(accountA))
	defer sub.Cancel()

	child := createTestChild(t, svc, accountA, "2023-01-10")

	select {
	case ev := <-sub.C:
		assert.Equal(t, "created", ev.Action)
		assert.Equal(t, child.ID, ev.ChildID)
	case <-time.After(time.Second):
		t.Fatal("expected a children change event")
	}
}

// flakyRepo fails schedule inserts for one specific vaccine, simulating a
// store that loses one of the independent bulk writes.
type flakyRepo struct {
	repository.Repository
	failVaccine string
}

func (r *flakyRepo) CreateScheduleItem(ctx context.Context, item *models.ScheduleItem) error {
	if item.VaccineName == r.failVaccine {
		return errors.New("store write failed")
	}
	return r.Repository.CreateScheduleItem(ctx, item)
}

func TestScheduleInitializationPartialFailure(t *testing.T) {
	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	mem := repository.NewMemoryRepository()
	repo := &flakyRepo{Repository: mem, failVaccine: "Polio2"}
	svc := NewDefaultService(repo, notify.NewHub(), "test-secret").WithClock(fixedClock(now))

	child, written, err := svc.CreateChild(context.Background(), accountA, models.CreateChildRequest{
		FirstName:   "Ada",
		LastName:    "Hopper",
		DateOfBirth: mustDate(t, "2023-01-10"),
	})
	require.Error(t, err)
	require.NotNil(t, child)

	var initErr *ScheduleInitError
	require.ErrorAs(t, err, &initErr)
	require.Len(t, initErr.Failures, 1)
	assert.Equal(t, "Polio2", initErr.Failures[0].Vaccine)
	assert.Equal(t, KindRemoteFailure, KindOf(err))

	// The doses that landed are not rolled back and stay queryable.
	assert.Len(t, written, len(schedule.Protocol())-1)
	stored, err := mem.GetChildSchedule(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(schedule.Protocol())-1)
}

func TestOwnershipFailuresAreIndistinguishable(t *testing.T) {
	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)
	ctx := context.Background()

	child := createTestChild(t, svc, accountA, "2023-01-10")

	// Another account touching the child gets the same NotFound as a
	// nonexistent id.
	_, errForeign := svc.GetChild(ctx, accountB, child.ID)
	_, errMissing := svc.GetChild(ctx, accountB, "no-such-child")
	require.Error(t, errForeign)
	require.Error(t, errMissing)
	assert.Equal(t, KindNotFound, KindOf(errForeign))
	assert.Equal(t, KindNotFound, KindOf(errMissing))
	assert.Equal(t, errForeign.Error(), errMissing.Error())

	_, err := svc.GetChildSchedule(ctx, accountB, child.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	err = svc.DeleteChild(ctx, accountB, child.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	first := "Eve"
	err = svc.UpdateChild(ctx, accountB, child.ID, models.ChildPatch{FirstName: &first})
	assert.Equal(t, KindNotFound, KindOf(err))

	// The owner still sees the child untouched.
	got, err := svc.GetChild(ctx, accountA, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
}

func TestGetChildScheduleDerivesStatusOnRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")

	items, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)

	statuses := make(map[string]schedule.Status)
	for _, item := range items {
		statuses[item.VaccineName] = item.Status
	}
	assert.Equal(t, schedule.StatusDue, statuses["BCG"])      // due 2023-01-10, 5 days past
	assert.Equal(t, schedule.StatusUpcoming, statuses["DPT1"]) // due 2023-03-10

	// Same stored rows, later clock: the derived status moves with it.
	svc.WithClock(fixedClock(time.Date(2023, time.April, 15, 0, 0, 0, 0, time.UTC)))
	items, err = svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)
	for _, item := range items {
		statuses[item.VaccineName] = item.Status
	}
	assert.Equal(t, schedule.StatusOverdue, statuses["BCG"])
	assert.Equal(t, schedule.StatusOverdue, statuses["DPT1"]) // 36 days past due
}

func TestUpdateScheduleItemCompletedRequiresDate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2023, time.March, 20, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")
	items, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)

	completed := true
	err = svc.UpdateScheduleItem(ctx, accountA, child.ID, items[0].ID, models.ScheduleItemPatch{
		Completed: &completed,
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// Nothing was applied.
	after, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)
	assert.False(t, after[0].Completed)
}

func TestCompletedWinsOverDates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2023, time.March, 9, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")
	items, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)

	var dpt1 models.ScheduleItem
	for _, item := range items {
		if item.VaccineName == "DPT1" {
			dpt1 = item
		}
	}
	require.NotEmpty(t, dpt1.ID)
	assert.Equal(t, "2023-03-10", dpt1.DueDate.String())

	// Completed a day before the due date: status is completed regardless.
	completed := true
	dateCompleted := mustDate(t, "2023-03-09")
	err = svc.UpdateScheduleItem(ctx, accountA, child.ID, dpt1.ID, models.ScheduleItemPatch{
		Completed:     &completed,
		DateCompleted: &dateCompleted,
	})
	require.NoError(t, err)

	items, err = svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)
	for _, item := range items {
		if item.VaccineName == "DPT1" {
			assert.Equal(t, schedule.StatusCompleted, item.Status)
			require.NotNil(t, item.DateCompleted)
			assert.Equal(t, "2023-03-09", item.DateCompleted.String())
		}
	}
}

func TestRecordVaccinationUpdatesScheduleAndAppendsRecord(t *testing.T) {
	ctx := context.Background()
	svc, _, hub := newTestService(time.Date(2023, time.March, 12, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")
	items, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)

	var dpt1 models.ScheduleItem
	for _, item := range items {
		if item.VaccineName == "DPT1" {
			dpt1 = item
		}
	}

	sub := hub.Subscribe(notify.VaccinationsTopic(child.ID))
	defer sub.Cancel()

	by := "Dr. Salk"
	record, err := svc.RecordVaccination(ctx, accountA, child.ID, models.RecordVaccinationRequest{
		ScheduleID:       dpt1.ID,
		DateAdministered: mustDate(t, "2023-03-12"),
		AdministeredBy:   &by,
	})
	require.NoError(t, err)
	assert.Equal(t, "DPT1", record.Vaccine)
	assert.True(t, record.Administered)
	assert.Equal(t, accountA, record.OwnerAccountID)

	records, err := svc.GetChildVaccinations(ctx, accountA, child.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "DPT1", records[0].Vaccine)

	items, err = svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)
	for _, item := range items {
		if item.ID == dpt1.ID {
			assert.True(t, item.Completed)
			assert.Equal(t, schedule.StatusCompleted, item.Status)
		}
	}

	select {
	case ev := <-sub.C:
		assert.Equal(t, "created", ev.Action)
	case <-time.After(time.Second):
		t.Fatal("expected a vaccinations change event")
	}
}

func TestDeleteChildCascades(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")
	items, err := svc.GetChildSchedule(ctx, accountA, child.ID)
	require.NoError(t, err)

	_, err = svc.RecordVaccination(ctx, accountA, child.ID, models.RecordVaccinationRequest{
		ScheduleID:       items[0].ID,
		DateAdministered: mustDate(t, "2023-01-12"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChild(ctx, accountA, child.ID))

	_, err = svc.GetChild(ctx, accountA, child.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	// Raw store lookups by the dead child id come back empty, never partial.
	stored, err := repo.GetChildSchedule(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	records, err := repo.GetChildVaccinations(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBulkScansFilterByOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	childA := createTestChild(t, svc, accountA, "2023-01-10")
	createTestChild(t, svc, accountB, "2022-05-20")

	itemsA, err := svc.GetAllSchedules(ctx, accountA)
	require.NoError(t, err)
	assert.Len(t, itemsA, len(schedule.Protocol()))
	for _, item := range itemsA {
		assert.Equal(t, childA.ID, item.ChildID)
		assert.Equal(t, accountA, item.OwnerAccountID)
	}
}

func TestSubscribeVaccinationsRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))

	child := createTestChild(t, svc, accountA, "2023-01-10")

	_, err := svc.SubscribeVaccinations(ctx, accountB, child.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))

	sub, err := svc.SubscribeVaccinations(ctx, accountA, child.ID)
	require.NoError(t, err)
	sub.Cancel()
}

func TestOperationsRequireAccountID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Now().UTC())

	_, _, err := svc.CreateChild(ctx, "", models.CreateChildRequest{
		FirstName: "Ada", LastName: "Hopper", DateOfBirth: models.NewDate(time.Now()),
	})
	assert.Equal(t, KindNotAuthenticated, KindOf(err))

	_, err = svc.GetChildren(ctx, "")
	assert.Equal(t, KindNotAuthenticated, KindOf(err))

	_, err = svc.GetAllSchedules(ctx, "")
	assert.Equal(t, KindNotAuthenticated, KindOf(err))

	_, err = svc.SubscribeChildren("")
	assert.Equal(t, KindNotAuthenticated, KindOf(err))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Now().UTC())

	resp, err := svc.Register(ctx, models.RegisterRequest{
		Email:     "parent@example.com",
		Password:  "supersecret",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccountID)
	assert.NotEmpty(t, resp.Token)

	// Duplicate email is rejected.
	_, err = svc.Register(ctx, models.RegisterRequest{
		Email: "parent@example.com", Password: "supersecret", FirstName: "G", LastName: "H",
	})
	assert.Equal(t, KindValidation, KindOf(err))

	login, err := svc.Login(ctx, models.LoginRequest{Email: "parent@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, resp.AccountID, login.AccountID)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "parent@example.com", Password: "wrong"})
	assert.Equal(t, KindNotAuthenticated, KindOf(err))
}
