package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) repositories.ActivityRepository {
	return &activityRepository{db: db}
}

var activitySortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"start_time": "start_time",
	"startTime":  "start_time",
	"title":      "title",
	"status":     "status",
	"id":         "id",
}

func (r *activityRepository) query(ctx context.Context) (*gorm.DB, error) {
	return scoped(ctx, r.db, &models.Activity{})
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	if err := q.Create(activity).Error; err != nil {
		return handleDBError(err, "create activity")
	}
	return nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (*models.Activity, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var activity models.Activity
	if err := q.Where("id = ?", id).First(&activity).Error; err != nil {
		return nil, handleDBError(err, "get activity by id")
	}
	return &activity, nil
}

func (r *activityRepository) Update(ctx context.Context, activity *models.Activity) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ?", activity.ID).
		Select("*").
		Omit("id", "created_by", "created_at", "deleted_at").
		Updates(activity)
	return checkAffected(result, "update activity")
}

func (r *activityRepository) UpdateStatus(ctx context.Context, id uint, status models.ActivityStatus) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	return checkAffected(q.Where("id = ?", id).Update("status", status), "update activity status")
}

func (r *activityRepository) Delete(ctx context.Context, id uint) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	return checkAffected(q.Where("id = ?", id).Delete(&models.Activity{}), "delete activity")
}

func (r *activityRepository) List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, 0, err
	}
	var activities []*models.Activity
	var total int64

	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", like, like)
	}
	if filters.Type != nil {
		q = q.Where("type = ?", *filters.Type)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count activities")
	}

	q = applyPaginationAndSorting(q, activitySortColumns, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := q.Find(&activities).Error; err != nil {
		return nil, 0, handleDBError(err, "list activities")
	}
	return activities, total, nil
}

// ExistsByTitleOnDate reports whether another activity with the same title starts on day's calendar date.
func (r *activityRepository) ExistsByTitleOnDate(ctx context.Context, title string, day time.Time, excludeID uint) (bool, error) {
	q, err := r.query(ctx)
	if err != nil {
		return false, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	q = q.Where("title = ? AND start_time >= ? AND start_time < ?", title, start, end)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, handleDBError(err, "check activity title")
	}
	return count > 0, nil
}

func (r *activityRepository) Statistics(ctx context.Context) (*models.ActivityStatistics, error) {
	stats := &models.ActivityStatistics{
		ByStatus: map[string]int64{},
		ByType:   map[string]int64{},
	}

	var rows []struct {
		Key   string
		Count int64
	}

	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.Select("status AS key, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, handleDBError(err, "count activities by status")
	}
	for _, row := range rows {
		stats.ByStatus[row.Key] = row.Count
		stats.Total += row.Count
	}

	rows = nil
	q, err = r.query(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.Select("type AS key, COUNT(*) AS count").Group("type").Scan(&rows).Error; err != nil {
		return nil, handleDBError(err, "count activities by type")
	}
	for _, row := range rows {
		stats.ByType[row.Key] = row.Count
	}

	return stats, nil
}

func (r *activityRepository) Count(ctx context.Context) (int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count activities")
	}
	return count, nil
}
