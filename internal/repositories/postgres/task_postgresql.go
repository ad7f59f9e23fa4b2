package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) repositories.TaskRepository {
	return &taskRepository{db: db}
}

var taskSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"dueDate":    "due_date",
	"priority":   "priority",
	"status":     "status",
	"id":         "id",
}

func (r *taskRepository) query(ctx context.Context) (*gorm.DB, error) {
	return scoped(ctx, r.db, &models.Task{})
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	if err := q.Create(task).Error; err != nil {
		return handleDBError(err, "create task")
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := q.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, handleDBError(err, "get task by id")
	}
	return &task, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uint, status models.TaskStatus, completedAt *time.Time) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
	})
	return checkAffected(result, "update task status")
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	return checkAffected(q.Where("id = ?", id).Delete(&models.Task{}), "delete task")
}

func (r *taskRepository) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.Task, int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, 0, err
	}
	var tasks []*models.Task
	var total int64

	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		q = q.Where("priority = ?", *filters.Priority)
	}
	if filters.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filters.AssigneeID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count tasks")
	}

	q = applyPaginationAndSorting(q, taskSortColumns, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := q.Find(&tasks).Error; err != nil {
		return nil, 0, handleDBError(err, "list tasks")
	}
	return tasks, total, nil
}

func (r *taskRepository) CreateAttachment(ctx context.Context, attachment *models.TaskAttachment) error {
	q, err := scoped(ctx, r.db, &models.TaskAttachment{})
	if err != nil {
		return err
	}
	if err := q.Create(attachment).Error; err != nil {
		return handleDBError(err, "create task attachment")
	}
	return nil
}

func (r *taskRepository) ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	q, err := scoped(ctx, r.db, &models.TaskAttachment{})
	if err != nil {
		return nil, err
	}
	var attachments []*models.TaskAttachment
	if err := q.Where("task_id = ?", taskID).Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, handleDBError(err, "list task attachments")
	}
	return attachments, nil
}
