package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/application/service"
	"github.com/usyd-catams/catams/internal/domain/entity"
	"github.com/usyd-catams/catams/internal/domain/rules"
	"github.com/usyd-catams/catams/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	authService      service.AuthService
	timesheetService service.TimesheetService
	approvalService  service.ApprovalService
	exportService    service.ExportService
	clock            rules.Clock
	logger           Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	authService service.AuthService,
	timesheetService service.TimesheetService,
	approvalService service.ApprovalService,
	exportService service.ExportService,
	clock rules.Clock,
	logger Logger,
) *Handlers {
	return &Handlers{
		authService:      authService,
		timesheetService: timesheetService,
		approvalService:  approvalService,
		exportService:    exportService,
		clock:            clock,
		logger:           logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateTimesheetRequest represents the timesheet creation body
type CreateTimesheetRequest struct {
	TutorID       int64   `json:"tutor_id" binding:"required"`
	CourseID      int64   `json:"course_id" binding:"required"`
	WeekStartDate string  `json:"week_start_date" binding:"required"`
	Hours         float64 `json:"hours" binding:"required"`
	Description   string  `json:"description"`
}

// UpdateTimesheetRequest represents the timesheet edit body
type UpdateTimesheetRequest struct {
	Hours       float64 `json:"hours" binding:"required"`
	Description string  `json:"description"`
}

// ApprovalActionRequest represents the approval action body
type ApprovalActionRequest struct {
	TimesheetID int64  `json:"timesheet_id" binding:"required"`
	Action      string `json:"action" binding:"required"`
	Comment     string `json:"comment"`
}

// TimesheetResponse represents a timesheet in API responses
type TimesheetResponse struct {
	ID            int64   `json:"id"`
	TutorID       int64   `json:"tutor_id"`
	CourseID      int64   `json:"course_id"`
	WeekStartDate string  `json:"week_start_date"`
	Hours         float64 `json:"hours"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ApprovalRecordResponse represents one audit trail entry in API responses
type ApprovalRecordResponse struct {
	ID             int64  `json:"id"`
	TimesheetID    int64  `json:"timesheet_id"`
	Action         string `json:"action"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ApproverID     int64  `json:"approver_id"`
	ApproverName   string `json:"approver_name"`
	ApproverRole   string `json:"approver_role"`
	Comment        string `json:"comment,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "email and password are required",
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid email or password",
			})
			return
		}
		h.logger.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "login failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CreateTimesheet handles POST /api/timesheets
func (h *Handlers) CreateTimesheet(c *gin.Context) {
	var req CreateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	weekStart, err := time.Parse("2006-01-02", req.WeekStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "week_start_date must be formatted as YYYY-MM-DD",
		})
		return
	}

	ts, err := h.timesheetService.Create(c.Request.Context(), actorID(c), service.CreateTimesheetRequest{
		TutorID:       req.TutorID,
		CourseID:      req.CourseID,
		WeekStartDate: weekStart,
		Hours:         req.Hours,
		Description:   req.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toTimesheetResponse(ts)})
}

// UpdateTimesheet handles PUT /api/timesheets/:id
func (h *Handlers) UpdateTimesheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	ts, err := h.timesheetService.Update(c.Request.Context(), actorID(c), id, service.UpdateTimesheetRequest{
		Hours:       req.Hours,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toTimesheetResponse(ts)})
}

// GetTimesheet handles GET /api/timesheets/:id
func (h *Handlers) GetTimesheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ts, err := h.timesheetService.Get(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toTimesheetResponse(ts)})
}

// ListTimesheets handles GET /api/timesheets
func (h *Handlers) ListTimesheets(c *gin.Context) {
	var filter port.TimesheetFilter

	if v := c.Query("tutor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid tutor_id"})
			return
		}
		filter.TutorID = &id
	}
	if v := c.Query("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid course_id"})
			return
		}
		filter.CourseID = &id
	}
	if v := c.Query("status"); v != "" {
		status := workflow.Status(v)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid status"})
			return
		}
		filter.Status = &status
	}

	sheets, err := h.timesheetService.List(c.Request.Context(), actorID(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]TimesheetResponse, 0, len(sheets))
	for _, ts := range sheets {
		responses = append(responses, toTimesheetResponse(ts))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// ApplyApprovalAction handles POST /api/approvals
func (h *Handlers) ApplyApprovalAction(c *gin.Context) {
	var req ApprovalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "unknown action: " + req.Action,
		})
		return
	}

	result, err := h.approvalService.ApplyAction(c.Request.Context(), actorID(c), service.ApplyActionRequest{
		TimesheetID: req.TimesheetID,
		Action:      action,
		Comment:     req.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetApprovalHistory handles GET /api/timesheets/:id/approval-history
func (h *Handlers) GetApprovalHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	records, err := h.approvalService.History(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]ApprovalRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, ApprovalRecordResponse{
			ID:             record.ID,
			TimesheetID:    record.TimesheetID,
			Action:         record.Action.String(),
			PreviousStatus: record.PreviousStatus.String(),
			NewStatus:      record.NewStatus.String(),
			ApproverID:     record.ApproverID,
			ApproverName:   record.ApproverName,
			ApproverRole:   record.ApproverRole.String(),
			Comment:        record.Comment,
			Timestamp:      record.Timestamp.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// ListPendingApprovals handles GET /api/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	sheets, err := h.approvalService.PendingForActor(c.Request.Context(), actorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]TimesheetResponse, 0, len(sheets))
	for _, ts := range sheets {
		responses = append(responses, toTimesheetResponse(ts))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// ExportTimesheets handles GET /api/timesheets/export
func (h *Handlers) ExportTimesheets(c *gin.Context) {
	workbook, err := h.exportService.ExportFinalConfirmed(c.Request.Context(), actorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer workbook.Close()

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		h.logger.Error("Failed to write export workbook", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to generate export",
		})
		return
	}

	filename := "timesheets_" + h.clock.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// pathID parses the :id path parameter, writing a 400 on failure
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid timesheet ID",
		})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	var verr *rules.ValidationError
	switch {
	case errors.Is(err, service.ErrTimesheetNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})

	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   verr.Message,
			Reason:  string(verr.Reason),
		})

	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})

	case errors.Is(err, workflow.ErrInvalidAction), errors.Is(err, workflow.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})

	default:
		h.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
		})
	}
}

// toTimesheetResponse converts domain entity to API response
func toTimesheetResponse(ts *entity.Timesheet) TimesheetResponse {
	return TimesheetResponse{
		ID:            ts.ID,
		TutorID:       ts.TutorID,
		CourseID:      ts.CourseID,
		WeekStartDate: ts.WeekStartDate.Format("2006-01-02"),
		Hours:         ts.Hours,
		Description:   ts.Description,
		Status:        ts.Status.String(),
		CreatedAt:     ts.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     ts.UpdatedAt.Format(time.RFC3339),
	}
}
