package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

const (
	MaxAttachmentSize = 100 << 20
	// sniffLen matches the mimetype default read limit.
	sniffLen = 3072
)

// AttachmentMimeTypes is the image, document and video allowlist for task attachments.
var AttachmentMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,

	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,

	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/webm":      true,
	"video/x-msvideo": true,
}

type taskService struct {
	repo      repositories.Repository
	uploadDir string
	logger    utils.Logger
	validator *validator.Validator
}

func NewTaskService(repo repositories.Repository, uploadDir string, logger utils.Logger, validator *validator.Validator) TaskService {
	return &taskService{
		repo:      repo,
		uploadDir: uploadDir,
		logger:    logger.With("service", "task"),
		validator: validator,
	}
}

func (s *taskService) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.Task, int64, error) {
	tasks, total, err := s.repo.Task().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *taskService) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.repo.Task().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "任务", "get task")
	}
	return task, nil
}

func (s *taskService) Create(ctx context.Context, req *CreateTaskRequest, creatorID string) (*models.Task, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskPending,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		CreatorID:   creatorID,
		DueDate:     req.DueDate,
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}

	if err := s.repo.Task().Create(ctx, task); err != nil {
		return nil, translateRepoError(err, "任务", "create task")
	}
	s.logger.Info("Task created", "task_id", task.ID, "creator_id", creatorID)
	return task, nil
}

// UpdateStatus stamps CompletedAt when a task moves to completed and clears it otherwise.
func (s *taskService) UpdateStatus(ctx context.Context, id uint, req *UpdateTaskStatusRequest) (*models.Task, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var completedAt *time.Time
	if req.Status == models.TaskCompleted {
		now := time.Now()
		completedAt = &now
	}

	if err := s.repo.Task().UpdateStatus(ctx, id, req.Status, completedAt); err != nil {
		return nil, translateRepoError(err, "任务", "update task status")
	}
	return s.GetByID(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Task().Delete(ctx, id); err != nil {
		return translateRepoError(err, "任务", "delete task")
	}
	return nil
}

// AddAttachment stores the file under <uploadDir>/<tenant>/tasks/<id>/<uuid><ext> and records it.
func (s *taskService) AddAttachment(ctx context.Context, taskID uint, upload *AttachmentUpload, uploaderID string) (*models.TaskAttachment, error) {
	if upload.Size > MaxAttachmentSize {
		return nil, NewInvalidFileError("附件大小不能超过100MB")
	}
	mimeType, body, err := sniffAttachment(upload.Body)
	if err != nil {
		return nil, err
	}
	if declared := normalizeMime(upload.MimeType); declared != "" && declared != mimeType {
		s.logger.Debug("Attachment content differs from declared type", "declared", declared, "detected", mimeType)
	}

	if _, err := s.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	schema, ok := tenant.SchemaFromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoTenant
	}

	dir := filepath.Join(s.uploadDir, schema, "tasks", strconv.FormatUint(uint64(taskID), 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(upload.FileName))
	path := filepath.Join(dir, storedName)

	written, err := writeLimited(path, body, MaxAttachmentSize)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	attachment := &models.TaskAttachment{
		TaskID:     taskID,
		FileName:   filepath.Base(upload.FileName),
		StoredName: storedName,
		Path:       path,
		MimeType:   mimeType,
		Size:       written,
		UploadedBy: uploaderID,
	}
	if err := s.repo.Task().CreateAttachment(ctx, attachment); err != nil {
		_ = os.Remove(path)
		return nil, translateRepoError(err, "附件", "create task attachment")
	}

	s.logger.Info("Task attachment stored", "task_id", taskID, "stored_name", storedName, "size", written)
	return attachment, nil
}

func (s *taskService) ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	if _, err := s.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	attachments, err := s.repo.Task().ListAttachments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// sniffAttachment detects the content type from the leading bytes and checks
// it, or its closest allowed parent type, against AttachmentMimeTypes. The
// returned reader replays the consumed bytes.
func sniffAttachment(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	head = head[:n]

	for m := mimetype.Detect(head); m != nil; m = m.Parent() {
		if mimeType := normalizeMime(m.String()); AttachmentMimeTypes[mimeType] {
			return mimeType, io.MultiReader(bytes.NewReader(head), body), nil
		}
	}
	return "", nil, NewInvalidFileError("不支持的附件类型")
}

func writeLimited(path string, body io.Reader, limit int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(body, limit+1))
	if err != nil {
		return 0, fmt.Errorf("failed to write attachment: %w", err)
	}
	if written > limit {
		return 0, NewInvalidFileError("附件大小不能超过100MB")
	}
	return written, nil
}

func normalizeMime(value string) string {
	if i := strings.Index(value, ";"); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}
