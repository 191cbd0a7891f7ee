package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
)

// CourseRepository implements port.CourseRepository
type CourseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB, logger *zap.Logger) port.CourseRepository {
	return &CourseRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*entity.Course, error) {
	query := `
		SELECT id, code, name, lecturer_id, active, created_at, updated_at
		FROM courses
		WHERE id = ?
	`

	var course entity.Course
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Code,
		&course.Name,
		&course.LecturerID,
		&course.Active,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get course by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

// LecturerTeachesCourse reports whether the lecturer is assigned to the course
func (r *CourseRepository) LecturerTeachesCourse(ctx context.Context, lecturerID, courseID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = ? AND lecturer_id = ? AND active = TRUE)`

	var teaches bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, courseID, lecturerID).Scan(&teaches)
	if err != nil {
		r.logger.Error("Failed to check course assignment",
			zap.Int64("lecturer_id", lecturerID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check course assignment: %w", err)
	}

	return teaches, nil
}

// Verify interface compliance
var _ port.CourseRepository = (*CourseRepository)(nil)
