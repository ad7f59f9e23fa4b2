package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

const dateLayout = "2006-01-02"

type studentService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewStudentService(repo repositories.Repository, logger utils.Logger, validator *validator.Validator, publisher events.EventPublisher) StudentService {
	return &studentService{
		repo:      repo,
		logger:    logger.With("service", "student"),
		validator: validator,
		publisher: publisher,
	}
}

// ===== BASIC CRUD =====

func (s *studentService) List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	students, total, err := s.repo.Student().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}
	return students, total, nil
}

func (s *studentService) GetByID(ctx context.Context, id uint) (*models.Student, error) {
	student, err := s.repo.Student().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "学生", "get student")
	}
	return student, nil
}

func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Student().ExistsByStudentNo(ctx, req.StudentNo, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check student number: %w", err)
	}
	if exists {
		return nil, NewConflictError("学号已存在")
	}

	student := &models.Student{
		Name:        req.Name,
		StudentNo:   req.StudentNo,
		Gender:      req.Gender,
		ClassID:     req.ClassID,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
		Status:      req.Status,
		Remark:      req.Remark,
	}
	if student.Status == "" {
		student.Status = models.StudentActive
	}
	student.BirthDate = parseDate(req.BirthDate)
	student.EnrollmentDate = parseDate(req.EnrollmentDate)

	if err := s.repo.Student().Create(ctx, student); err != nil {
		return nil, translateRepoError(err, "学号", "create student")
	}

	s.logger.Info("Student created", "student_id", student.ID, "student_no", student.StudentNo)
	return student, nil
}

func (s *studentService) Update(ctx context.Context, id uint, req *UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	student, err := s.repo.Student().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "学生", "get student")
	}

	if req.StudentNo != nil && *req.StudentNo != student.StudentNo {
		exists, err := s.repo.Student().ExistsByStudentNo(ctx, *req.StudentNo, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check student number: %w", err)
		}
		if exists {
			return nil, NewConflictError("学号已存在")
		}
		student.StudentNo = *req.StudentNo
	}

	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		student.BirthDate = parseDate(req.BirthDate)
	}
	if req.EnrollmentDate != nil {
		student.EnrollmentDate = parseDate(req.EnrollmentDate)
	}
	if req.ClassID != nil {
		student.ClassID = req.ClassID
	}
	if req.ParentName != nil {
		student.ParentName = req.ParentName
	}
	if req.ParentPhone != nil {
		student.ParentPhone = req.ParentPhone
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.Remark != nil {
		student.Remark = req.Remark
	}

	if err := s.repo.Student().Update(ctx, student); err != nil {
		return nil, translateRepoError(err, "学生", "update student")
	}
	return student, nil
}

func (s *studentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Student().Delete(ctx, id); err != nil {
		return translateRepoError(err, "学生", "delete student")
	}
	s.logger.Info("Student deleted", "student_id", id)
	return nil
}

// ===== QUERIES =====

func (s *studentService) ListByClass(ctx context.Context, classID uint) ([]*models.Student, error) {
	students, err := s.repo.Student().ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students by class: %w", err)
	}
	return students, nil
}

func (s *studentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	counts, err := s.repo.Student().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	stats := &models.StudentStats{
		Active:    counts[models.StudentActive],
		Graduated: counts[models.StudentGraduated],
		Suspended: counts[models.StudentSuspended],
		Withdrawn: counts[models.StudentWithdrawn],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// ===== IMPORT / EXPORT =====

func (s *studentService) Import(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error) {
	rows, err := readSheet(fileName, r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, NewInvalidFileError("文件中没有学生数据")
	}

	columns := mapStudentColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, NewInvalidFileError("缺少姓名列")
	}
	if _, ok := columns["studentNo"]; !ok {
		return nil, NewInvalidFileError("缺少学号列")
	}

	result := &ImportResult{Errors: []ImportRowError{}}
	seen := make(map[string]int)

	for i, row := range rows[1:] {
		rowNum := i + 2
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Student import interrupted",
				"file", fileName, "row", rowNum, "imported", result.Imported, "error", err)
			s.publishImported(context.WithoutCancel(ctx), fileName, result)
			return result, &ImportInterruptedError{Result: result, Row: rowNum, Err: err}
		}
		if isBlankRow(row) {
			continue
		}

		req, err := studentRequestFromRow(row, columns)
		if err != nil {
			result.fail(rowNum, err.Error())
			continue
		}
		if first, dup := seen[req.StudentNo]; dup && req.StudentNo != "" {
			result.fail(rowNum, fmt.Sprintf("学号与第%d行重复", first))
			continue
		}
		seen[req.StudentNo] = rowNum

		if _, err := s.Create(ctx, req); err != nil {
			result.fail(rowNum, importErrorMessage(err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("Students imported", "file", fileName, "imported", result.Imported, "failed", result.Failed)

	s.publishImported(ctx, fileName, result)
	return result, nil
}

func (s *studentService) publishImported(ctx context.Context, fileName string, result *ImportResult) {
	if result.Imported == 0 {
		return
	}
	publish(ctx, s.publisher, s.logger, events.StudentImported, map[string]interface{}{
		"imported": result.Imported,
		"failed":   result.Failed,
		"file":     fileName,
	})
}

func (s *studentService) Export(ctx context.Context, w io.Writer) error {
	students, err := s.repo.Student().ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load students: %w", err)
	}
	return writeStudentWorkbook(students, w)
}

func (r *ImportResult) fail(row int, message string) {
	r.Failed++
	r.Errors = append(r.Errors, ImportRowError{Row: row, Message: message})
}

func importErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field + " " + verrs[0].Message
	}
	var userErr *UserMessageError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return "保存失败"
}

func parseDate(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil
	}
	return &t
}

// publish sends an event for the tenant bound to ctx. Failures are logged, never returned.
func publish(ctx context.Context, publisher events.EventPublisher, logger utils.Logger, eventType events.EventType, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	schema, _ := tenant.SchemaFromContext(ctx)
	if err := publisher.Publish(ctx, events.NewEvent(eventType, schema, data)); err != nil {
		logger.Warn("Failed to publish event", "type", string(eventType), "error", err)
	}
}
