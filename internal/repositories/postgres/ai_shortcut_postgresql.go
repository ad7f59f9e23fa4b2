package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

type aiShortcutRepository struct {
	db *gorm.DB
}

func NewAIShortcutRepository(db *gorm.DB) repositories.AIShortcutRepository {
	return &aiShortcutRepository{db: db}
}

func (r *aiShortcutRepository) query(ctx context.Context) (*gorm.DB, error) {
	return scoped(ctx, r.db, &models.AIShortcut{})
}

func (r *aiShortcutRepository) Create(ctx context.Context, shortcut *models.AIShortcut) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	if err := q.Create(shortcut).Error; err != nil {
		return handleDBError(err, "create ai shortcut")
	}
	return nil
}

func (r *aiShortcutRepository) GetByID(ctx context.Context, id uint, userID string) (*models.AIShortcut, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var shortcut models.AIShortcut
	if err := q.Where("id = ? AND user_id = ?", id, userID).First(&shortcut).Error; err != nil {
		return nil, handleDBError(err, "get ai shortcut")
	}
	return &shortcut, nil
}

func (r *aiShortcutRepository) Update(ctx context.Context, shortcut *models.AIShortcut) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ? AND user_id = ?", shortcut.ID, shortcut.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(shortcut)
	return checkAffected(result, "update ai shortcut")
}

func (r *aiShortcutRepository) Delete(ctx context.Context, id uint, userID string) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ? AND user_id = ?", id, userID).Delete(&models.AIShortcut{})
	return checkAffected(result, "delete ai shortcut")
}

func (r *aiShortcutRepository) ListByUser(ctx context.Context, userID string, filters repositories.ShortcutFilters) ([]*models.AIShortcut, int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, 0, err
	}
	var shortcuts []*models.AIShortcut
	var total int64

	q = q.Where("user_id = ?", userID)
	if filters.Category != nil {
		q = q.Where("category = ?", *filters.Category)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count ai shortcuts")
	}

	q = q.Order("sort_order ASC").Order("id ASC")
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}

	if err := q.Find(&shortcuts).Error; err != nil {
		return nil, 0, handleDBError(err, "list ai shortcuts")
	}
	return shortcuts, total, nil
}

func (r *aiShortcutRepository) ExistsByName(ctx context.Context, userID, name string, excludeID uint) (bool, error) {
	q, err := r.query(ctx)
	if err != nil {
		return false, err
	}
	q = q.Where("user_id = ? AND name = ?", userID, name)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, handleDBError(err, "check ai shortcut name")
	}
	return count > 0, nil
}
