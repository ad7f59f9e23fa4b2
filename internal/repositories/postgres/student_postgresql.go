package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) repositories.StudentRepository {
	return &studentRepository{db: db}
}

var studentSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"student_no": "student_no",
	"studentNo":  "student_no",
	"id":         "id",
}

func (r *studentRepository) query(ctx context.Context) (*gorm.DB, error) {
	return scoped(ctx, r.db, &models.Student{})
}

// ===== BASIC CRUD OPERATIONS =====

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	if err := q.Create(student).Error; err != nil {
		return handleDBError(err, "create student")
	}
	return nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (*models.Student, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var student models.Student
	if err := q.Where("id = ?", id).First(&student).Error; err != nil {
		return nil, handleDBError(err, "get student by id")
	}
	return &student, nil
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	result := q.Where("id = ?", student.ID).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(student)
	return checkAffected(result, "update student")
}

func (r *studentRepository) Delete(ctx context.Context, id uint) error {
	q, err := r.query(ctx)
	if err != nil {
		return err
	}
	return checkAffected(q.Where("id = ?", id).Delete(&models.Student{}), "delete student")
}

// ===== QUERY OPERATIONS =====

func (r *studentRepository) List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, 0, err
	}
	var students []*models.Student
	var total int64

	q = r.applyFilters(q, filters)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count students")
	}

	q = applyPaginationAndSorting(q, studentSortColumns, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := q.Find(&students).Error; err != nil {
		return nil, 0, handleDBError(err, "list students")
	}
	return students, total, nil
}

func (r *studentRepository) ListByClass(ctx context.Context, classID uint) ([]*models.Student, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var students []*models.Student
	if err := q.Where("class_id = ?", classID).Order("student_no ASC").Find(&students).Error; err != nil {
		return nil, handleDBError(err, "list students by class")
	}
	return students, nil
}

func (r *studentRepository) ListAll(ctx context.Context) ([]*models.Student, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var students []*models.Student
	if err := q.Order("id ASC").Find(&students).Error; err != nil {
		return nil, handleDBError(err, "list all students")
	}
	return students, nil
}

func (r *studentRepository) ExistsByStudentNo(ctx context.Context, studentNo string, excludeID uint) (bool, error) {
	q, err := r.query(ctx)
	if err != nil {
		return false, err
	}
	q = q.Where("student_no = ?", studentNo)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, handleDBError(err, "check student number")
	}
	return count > 0, nil
}

func (r *studentRepository) CountByStatus(ctx context.Context) (map[models.StudentStatus]int64, error) {
	q, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.StudentStatus
		Count  int64
	}
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, handleDBError(err, "count students by status")
	}

	counts := make(map[models.StudentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *studentRepository) applyFilters(query *gorm.DB, filters repositories.StudentFilters) *gorm.DB {
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("(name ILIKE ? OR student_no ILIKE ? OR parent_name ILIKE ?)", like, like, like)
	}
	if filters.ClassID != nil {
		query = query.Where("class_id = ?", *filters.ClassID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}
