package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Account repository methods
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, first_name, last_name, phone, address, password, created_at, last_login, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.LastLogin = now
	account.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.FirstName, account.LastName,
		account.Phone, account.Address, account.Password,
		account.CreatedAt, account.LastLogin, account.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT * FROM accounts WHERE email = $1`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Account not found
		}
		return nil, err
	}

	return &account, nil
}

func (r *PostgresRepository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT * FROM accounts WHERE id = $1`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Account not found
		}
		return nil, err
	}

	return &account, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, id string, req models.UpdateProfileRequest) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.FirstName != nil {
		add("first_name", *req.FirstName)
	}
	if req.LastName != nil {
		add("last_name", *req.LastName)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Address != nil {
		add("address", *req.Address)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return requireRow(result)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_login = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	return err
}

// Child repository methods
func (r *PostgresRepository) CreateChild(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (id, user_id, first_name, last_name, date_of_birth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if child.ID == "" {
		child.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	child.CreatedAt = now
	child.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		child.ID, child.OwnerAccountID, child.FirstName, child.LastName,
		child.DateOfBirth, child.CreatedAt, child.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetChild(ctx context.Context, childID string) (*models.Child, error) {
	query := `SELECT * FROM children WHERE id = $1`

	var child models.Child
	err := r.db.GetContext(ctx, &child, query, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Child not found
		}
		return nil, err
	}

	return &child, nil
}

func (r *PostgresRepository) GetChildrenByOwner(ctx context.Context, accountID string) ([]models.Child, error) {
	query := `SELECT * FROM children WHERE user_id = $1 ORDER BY created_at`

	var children []models.Child
	err := r.db.SelectContext(ctx, &children, query, accountID)
	if err != nil {
		return nil, err
	}

	return children, nil
}

func (r *PostgresRepository) UpdateChild(ctx context.Context, childID string, patch models.ChildPatch) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.DateOfBirth != nil {
		add("date_of_birth", *patch.DateOfBirth)
	}

	args = append(args, childID)
	query := fmt.Sprintf(`UPDATE children SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// DeleteChildCascade removes a child together with all of its schedule items
// and vaccination records. Dependent rows go first and the child row last, so
// a failure mid-delete can never leave an accessible child pointing at
// missing data.
func (r *PostgresRepository) DeleteChildCascade(ctx context.Context, childID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx, `DELETE FROM schedules WHERE child_id = $1`, childID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM vaccinations WHERE child_id = $1`, childID)
	if err != nil {
		return err
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, childID)
	if err != nil {
		return err
	}

	if err = requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

// scheduleRow mirrors the schedules table with nullable columns, so NULLs
// scan cleanly before conversion to the model type.
type scheduleRow struct {
	ID                 string         `db:"id"`
	ChildID            string         `db:"child_id"`
	UserID             string         `db:"user_id"`
	VaccineName        string         `db:"vaccine_name"`
	VaccineDescription string         `db:"vaccine_description"`
	AgeMonths          int            `db:"age_months"`
	AgeText            string         `db:"age_text"`
	DueDate            time.Time      `db:"due_date"`
	Completed          bool           `db:"completed"`
	DateCompleted      sql.NullTime   `db:"date_completed"`
	AdministeredBy     sql.NullString `db:"administered_by"`
	Location           sql.NullString `db:"location"`
	BatchNumber        sql.NullString `db:"batch_number"`
	Notes              sql.NullString `db:"notes"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row scheduleRow) toModel() models.ScheduleItem {
	item := models.ScheduleItem{
		ID:                 row.ID,
		ChildID:            row.ChildID,
		OwnerAccountID:     row.UserID,
		VaccineName:        row.VaccineName,
		VaccineDescription: row.VaccineDescription,
		AgeMonths:          row.AgeMonths,
		AgeText:            row.AgeText,
		DueDate:            models.NewDate(row.DueDate),
		Completed:          row.Completed,
		AdministeredBy:     nullableString(row.AdministeredBy),
		Location:           nullableString(row.Location),
		BatchNumber:        nullableString(row.BatchNumber),
		Notes:              nullableString(row.Notes),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.DateCompleted.Valid {
		d := models.NewDate(row.DateCompleted.Time)
		item.DateCompleted = &d
	}
	return item
}

// Schedule repository methods

// CreateScheduleItem inserts one dose row. The insert is guarded by an
// existence check asserting that the denormalized owner id on the item
// matches the owner recorded on the child row; a mismatch (or a missing
// child) surfaces as ErrOwnerMismatch rather than a silent divergence.
func (r *PostgresRepository) CreateScheduleItem(ctx context.Context, item *models.ScheduleItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO schedules (id, child_id, user_id, vaccine_name, vaccine_description,
			age_months, age_text, due_date, completed, date_completed,
			administered_by, location, batch_number, notes, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		WHERE EXISTS (SELECT 1 FROM children WHERE id = $2 AND user_id = $3)
	`

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.ChildID, item.OwnerAccountID, item.VaccineName, item.VaccineDescription,
		item.AgeMonths, item.AgeText, item.DueDate, item.Completed, nullableDate(item.DateCompleted),
		item.AdministeredBy, item.Location, item.BatchNumber, item.Notes,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOwnerMismatch
	}

	return nil
}

func (r *PostgresRepository) GetScheduleItem(ctx context.Context, childID, scheduleID string) (*models.ScheduleItem, error) {
	query := `SELECT * FROM schedules WHERE child_id = $1 AND id = $2`

	var row scheduleRow
	err := r.db.GetContext(ctx, &row, query, childID, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Schedule item not found
		}
		return nil, err
	}

	item := row.toModel()
	return &item, nil
}

func (r *PostgresRepository) GetChildSchedule(ctx context.Context, childID string) ([]models.ScheduleItem, error) {
	query := `SELECT * FROM schedules WHERE child_id = $1 ORDER BY age_months, vaccine_name`

	var rows []scheduleRow
	err := r.db.SelectContext(ctx, &rows, query, childID)
	if err != nil {
		return nil, err
	}

	items := make([]models.ScheduleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}

	return items, nil
}

func (r *PostgresRepository) UpdateScheduleItem(ctx context.Context, childID, scheduleID string, patch models.ScheduleItemPatch) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.DateCompleted != nil {
		add("date_completed", *patch.DateCompleted)
	}
	if patch.AdministeredBy != nil {
		add("administered_by", *patch.AdministeredBy)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.BatchNumber != nil {
		add("batch_number", *patch.BatchNumber)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}

	args = append(args, childID, scheduleID)
	query := fmt.Sprintf(`UPDATE schedules SET %s WHERE child_id = $%d AND id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// GetSchedulesByOwner scans the whole schedules collection filtered by the
// denormalized owner column. The insert-time assertion keeps that column in
// sync with the authoritative child row.
func (r *PostgresRepository) GetSchedulesByOwner(ctx context.Context, accountID string) ([]models.ScheduleItem, error) {
	query := `SELECT * FROM schedules WHERE user_id = $1 ORDER BY child_id, age_months, vaccine_name`

	var rows []scheduleRow
	err := r.db.SelectContext(ctx, &rows, query, accountID)
	if err != nil {
		return nil, err
	}

	items := make([]models.ScheduleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}

	return items, nil
}

// vaccinationRow mirrors the vaccinations table with nullable columns.
type vaccinationRow struct {
	ID               string         `db:"id"`
	ChildID          string         `db:"child_id"`
	UserID           string         `db:"user_id"`
	Vaccine          string         `db:"vaccine"`
	DateAdministered time.Time      `db:"date_administered"`
	BatchNumber      sql.NullString `db:"batch_number"`
	AdministeredBy   sql.NullString `db:"administered_by"`
	Location         sql.NullString `db:"location"`
	Notes            sql.NullString `db:"notes"`
	Administered     bool           `db:"administered"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (row vaccinationRow) toModel() models.VaccinationRecord {
	return models.VaccinationRecord{
		ID:               row.ID,
		ChildID:          row.ChildID,
		OwnerAccountID:   row.UserID,
		Vaccine:          row.Vaccine,
		DateAdministered: models.NewDate(row.DateAdministered),
		BatchNumber:      nullableString(row.BatchNumber),
		AdministeredBy:   nullableString(row.AdministeredBy),
		Location:         nullableString(row.Location),
		Notes:            nullableString(row.Notes),
		Administered:     row.Administered,
		CreatedAt:        row.CreatedAt,
	}
}

// Vaccination repository methods
func (r *PostgresRepository) CreateVaccination(ctx context.Context, record *models.VaccinationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO vaccinations (id, child_id, user_id, vaccine, date_administered,
			batch_number, administered_by, location, notes, administered, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE EXISTS (SELECT 1 FROM children WHERE id = $2 AND user_id = $3)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, record.ChildID, record.OwnerAccountID, record.Vaccine, record.DateAdministered,
		record.BatchNumber, record.AdministeredBy, record.Location, record.Notes,
		record.Administered, record.CreatedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOwnerMismatch
	}

	return nil
}

func (r *PostgresRepository) GetChildVaccinations(ctx context.Context, childID string) ([]models.VaccinationRecord, error) {
	query := `SELECT * FROM vaccinations WHERE child_id = $1 ORDER BY date_administered, created_at`

	var rows []vaccinationRow
	err := r.db.SelectContext(ctx, &rows, query, childID)
	if err != nil {
		return nil, err
	}

	records := make([]models.VaccinationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}

	return records, nil
}

func (r *PostgresRepository) GetVaccinationsByOwner(ctx context.Context, accountID string) ([]models.VaccinationRecord, error) {
	query := `SELECT * FROM vaccinations WHERE user_id = $1 ORDER BY date_administered, created_at`

	var rows []vaccinationRow
	err := r.db.SelectContext(ctx, &rows, query, accountID)
	if err != nil {
		return nil, err
	}

	records := make([]models.VaccinationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}

	return records, nil
}

// Helpers
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRecord
	}
	return nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullableDate(d *models.Date) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
