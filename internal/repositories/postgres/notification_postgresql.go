package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repositories.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) query(ctx context.Context) (*gorm.DB, error) {
	return scoped(ctx, r.db, &models.Notification{})
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	if err := q.CreateInBatches(notifications, 100).Error; err != nil {
		return handleDBError(err, "create notifications")
	}
	return nil
}

func (r *notificationRepository) GetForReceiver(ctx context.Context, id uint, receiverID string) (*models.Notification, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var notification models.Notification
	if err := q.Where("id = ? AND receiver_id = ?", id, receiverID).First(&notification).Error; err != nil {
		return nil, handleDBError(err, "get notification")
	}
	return &notification, nil
}

func (r *notificationRepository) ListForReceiver(ctx context.Context, receiverID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, 0, err
	}
	var notifications []*models.Notification
	var total int64

	q = q.Where("receiver_id = ?", receiverID)
	if filters.IsRead != nil {
		q = q.Where("is_read = ?", *filters.IsRead)
	}
	if filters.Type != nil {
		q = q.Where("type = ?", *filters.Type)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count notifications")
	}

	q = applyPaginationAndSorting(q, nil, filters.Limit, filters.Offset, "", "")

	if err := q.Find(&notifications).Error; err != nil {
		return nil, 0, handleDBError(err, "list notifications")
	}
	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Where("receiver_id = ? AND is_read = ?", receiverID, false).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count unread notifications")
	}
	return count, nil
}

func (r *notificationRepository) CountAllUnread(ctx context.Context) (int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count unread notifications")
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, receiverID string) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ? AND receiver_id = ?", id, receiverID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return checkAffected(result, "mark notification read")
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return 0, err
	}
	result := q.Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "mark all notifications read")
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uint) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	return checkAffected(q.Where("id = ?", id).Delete(&models.Notification{}), "delete notification")
}
