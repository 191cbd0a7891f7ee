package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

const timesheetColumns = `id, tutor_id, course_id, week_start_date, hours, description,
	status, version, created_by, created_at, updated_at`

// TimesheetRepository implements port.TimesheetRepository
type TimesheetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *sql.DB, logger *zap.Logger) port.TimesheetRepository {
	return &TimesheetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new timesheet and assigns its ID. New rows always start at
// version 1. The partial unique index on (tutor, course, week) turns a racing
// duplicate insert into ErrDuplicateWeek.
func (r *TimesheetRepository) Create(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		INSERT INTO timesheets (
			tutor_id, course_id, week_start_date, hours, description,
			status, version, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		ts.TutorID,
		ts.CourseID,
		ts.WeekStartDate.Format("2006-01-02"),
		ts.Hours,
		ts.Description,
		ts.Status.String(),
		ts.CreatedBy,
		ts.CreatedAt,
		ts.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return port.ErrDuplicateWeek
		}
		r.logger.Error("Failed to create timesheet",
			zap.Int64("tutor_id", ts.TutorID),
			zap.Int64("course_id", ts.CourseID),
			zap.Error(err))
		return fmt.Errorf("failed to create timesheet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ts.ID = id
	ts.Version = 1
	return nil
}

// GetByID retrieves a timesheet by its ID
func (r *TimesheetRepository) GetByID(ctx context.Context, id int64) (*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE id = ?`

	ts, err := r.scanTimesheet(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get timesheet by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get timesheet: %w", err)
	}

	return ts, nil
}

// Update persists hours and description edits
func (r *TimesheetRepository) Update(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		UPDATE timesheets
		SET hours = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		ts.Hours,
		ts.Description,
		ts.UpdatedAt,
		ts.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update timesheet",
			zap.Int64("id", ts.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update timesheet: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrNotFound
	}

	return nil
}

// UpdateStatus applies a workflow transition guarded by the optimistic version
// check. A zero-row update against an existing row means the version moved
// underneath the caller.
func (r *TimesheetRepository) UpdateStatus(ctx context.Context, id int64, status workflow.Status, expectedVersion int64, at time.Time) error {
	query := `
		UPDATE timesheets
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		status.String(), at, id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update timesheet status",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update timesheet status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM timesheets WHERE id = ?)`
		if err := getExecutor(ctx, r.db).QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check timesheet existence: %w", err)
		}
		if !exists {
			return port.ErrNotFound
		}
		return port.ErrVersionConflict
	}

	return nil
}

// ExistsActiveForWeek reports whether the tutor already has a timesheet for
// the course and week in any status other than REJECTED
func (r *TimesheetRepository) ExistsActiveForWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM timesheets
			WHERE tutor_id = ? AND course_id = ? AND week_start_date = ?
			  AND status != ?
		)
	`

	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		tutorID, courseID, weekStart.Format("2006-01-02"),
		workflow.StatusRejected.String(),
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check for existing timesheet",
			zap.Int64("tutor_id", tutorID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check for existing timesheet: %w", err)
	}

	return exists, nil
}

// List returns timesheets matching the filter, newest first
func (r *TimesheetRepository) List(ctx context.Context, filter port.TimesheetFilter) ([]*entity.Timesheet, error) {
	var conditions []string
	var args []interface{}

	if filter.TutorID != nil {
		conditions = append(conditions, "tutor_id = ?")
		args = append(args, *filter.TutorID)
	}
	if filter.CourseID != nil {
		conditions = append(conditions, "course_id = ?")
		args = append(args, *filter.CourseID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status.String())
	}

	query := `SELECT ` + timesheetColumns + ` FROM timesheets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY week_start_date DESC, id DESC"

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list timesheets", zap.Error(err))
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	return r.scanTimesheets(rows)
}

// ListPendingForLecturer returns TUTOR_CONFIRMED timesheets on the lecturer's
// courses, oldest first so the queue drains in submission order
func (r *TimesheetRepository) ListPendingForLecturer(ctx context.Context, lecturerID int64) ([]*entity.Timesheet, error) {
	query := `
		SELECT t.id, t.tutor_id, t.course_id, t.week_start_date, t.hours, t.description,
			t.status, t.version, t.created_by, t.created_at, t.updated_at
		FROM timesheets t
		JOIN courses c ON c.id = t.course_id
		WHERE c.lecturer_id = ? AND t.status = ?
		ORDER BY t.updated_at ASC, t.id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query,
		lecturerID, workflow.StatusTutorConfirmed.String())
	if err != nil {
		r.logger.Error("Failed to list pending timesheets for lecturer",
			zap.Int64("lecturer_id", lecturerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list pending timesheets: %w", err)
	}
	defer rows.Close()

	return r.scanTimesheets(rows)
}

// scanTimesheet scans a single timesheet row
func (r *TimesheetRepository) scanTimesheet(row *sql.Row) (*entity.Timesheet, error) {
	var ts entity.Timesheet
	var status, weekStart string

	err := row.Scan(
		&ts.ID,
		&ts.TutorID,
		&ts.CourseID,
		&weekStart,
		&ts.Hours,
		&ts.Description,
		&status,
		&ts.Version,
		&ts.CreatedBy,
		&ts.CreatedAt,
		&ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ts.Status = workflow.Status(status)
	ts.WeekStartDate, err = time.Parse("2006-01-02", weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse week start date %q: %w", weekStart, err)
	}

	return &ts, nil
}

// scanTimesheets scans multiple timesheet rows
func (r *TimesheetRepository) scanTimesheets(rows *sql.Rows) ([]*entity.Timesheet, error) {
	var sheets []*entity.Timesheet

	for rows.Next() {
		var ts entity.Timesheet
		var status, weekStart string

		err := rows.Scan(
			&ts.ID,
			&ts.TutorID,
			&ts.CourseID,
			&weekStart,
			&ts.Hours,
			&ts.Description,
			&status,
			&ts.Version,
			&ts.CreatedBy,
			&ts.CreatedAt,
			&ts.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}

		ts.Status = workflow.Status(status)
		ts.WeekStartDate, err = time.Parse("2006-01-02", weekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to parse week start date %q: %w", weekStart, err)
		}

		sheets = append(sheets, &ts)
	}

	return sheets, rows.Err()
}

// Verify interface compliance
var _ port.TimesheetRepository = (*TimesheetRepository)(nil)
