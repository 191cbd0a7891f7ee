package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// ApprovalRepository implements port.ApprovalRepository. The audit trail is
// append-only: there is no update or delete path.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval record repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one approval record
func (r *ApprovalRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (
			timesheet_id, action, previous_status, new_status,
			approver_id, approver_name, approver_role, comment, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		record.TimesheetID,
		record.Action.String(),
		record.PreviousStatus.String(),
		record.NewStatus.String(),
		record.ApproverID,
		record.ApproverName,
		record.ApproverRole.String(),
		record.Comment,
		record.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record",
			zap.Int64("timesheet_id", record.TimesheetID),
			zap.String("action", record.Action.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetByTimesheetID retrieves the audit trail for a timesheet in chronological
// order
func (r *ApprovalRepository) GetByTimesheetID(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, timesheet_id, action, previous_status, new_status,
			approver_id, approver_name, approver_role, comment, timestamp
		FROM approval_records
		WHERE timesheet_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, timesheetID)
	if err != nil {
		r.logger.Error("Failed to get approval records",
			zap.Int64("timesheet_id", timesheetID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalRecord
	for rows.Next() {
		var record entity.ApprovalRecord
		var action, previousStatus, newStatus, approverRole string

		err := rows.Scan(
			&record.ID,
			&record.TimesheetID,
			&action,
			&previousStatus,
			&newStatus,
			&record.ApproverID,
			&record.ApproverName,
			&approverRole,
			&record.Comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}

		record.Action = workflow.Action(action)
		record.PreviousStatus = workflow.Status(previousStatus)
		record.NewStatus = workflow.Status(newStatus)
		record.ApproverRole = workflow.Role(approverRole)

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
