// Package memory is an in-process Repository keyed by tenant schema. It backs
// service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
)

type tenantData struct {
	students      map[uint]*models.Student
	activities    map[uint]*models.Activity
	notifications map[uint]*models.Notification
	shortcuts     map[uint]*models.AIShortcut
	tasks         map[uint]*models.Task
	attachments   map[uint]*models.TaskAttachment
	grants        map[string]map[models.Permission]bool
}

func newTenantData() *tenantData {
	return &tenantData{
		students:      map[uint]*models.Student{},
		activities:    map[uint]*models.Activity{},
		notifications: map[uint]*models.Notification{},
		shortcuts:     map[uint]*models.AIShortcut{},
		tasks:         map[uint]*models.Task{},
		attachments:   map[uint]*models.TaskAttachment{},
		grants:        map[string]map[models.Permission]bool{},
	}
}

// Repository implements repositories.Repository.
type Repository struct {
	mu      sync.Mutex
	nextID  uint
	tenants map[string]*tenantData
	columns map[string]map[string][]repositories.ColumnInfo

	// PingErr is returned by Ping when set.
	PingErr error
}

func New() *Repository {
	return &Repository{
		tenants: map[string]*tenantData{},
		columns: map[string]map[string][]repositories.ColumnInfo{},
	}
}

// Grant gives userID a permission inside schema.
func (r *Repository) Grant(schema, userID string, permission models.Permission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := r.tenantLocked(schema)
	if data.grants[userID] == nil {
		data.grants[userID] = map[models.Permission]bool{}
	}
	data.grants[userID][permission] = true
}

// AddTable registers a table and its columns for the metadata repository.
func (r *Repository) AddTable(schema, table string, columns ...repositories.ColumnInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.columns[schema] == nil {
		r.columns[schema] = map[string][]repositories.ColumnInfo{}
	}
	r.columns[schema][table] = columns
}

func (r *Repository) tenantLocked(schema string) *tenantData {
	data, ok := r.tenants[schema]
	if !ok {
		data = newTenantData()
		r.tenants[schema] = data
	}
	return data
}

// with runs fn against the data of the tenant bound to ctx.
func (r *Repository) with(ctx context.Context, fn func(*tenantData) error) error {
	schema, ok := tenant.SchemaFromContext(ctx)
	if !ok {
		return tenant.ErrNoTenant
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.tenantLocked(schema))
}

func (r *Repository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *Repository) Student() repositories.StudentRepository           { return studentRepo{r} }
func (r *Repository) Activity() repositories.ActivityRepository         { return activityRepo{r} }
func (r *Repository) Notification() repositories.NotificationRepository { return notificationRepo{r} }
func (r *Repository) AIShortcut() repositories.AIShortcutRepository     { return shortcutRepo{r} }
func (r *Repository) Task() repositories.TaskRepository                 { return taskRepo{r} }
func (r *Repository) Grants() repositories.GrantRepository              { return grantRepo{r} }
func (r *Repository) Metadata() repositories.MetadataRepository         { return metadataRepo{r} }

// WithTransaction runs fn directly; writes are not rolled back.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *Repository) Ping(ctx context.Context) error { return r.PingErr }
func (r *Repository) Close() error                   { return nil }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortByID[T any](items []T, id func(T) uint, order string) {
	asc := strings.EqualFold(order, "asc")
	sort.Slice(items, func(i, j int) bool {
		if asc {
			return id(items[i]) < id(items[j])
		}
		return id(items[i]) > id(items[j])
	})
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ===== STUDENTS =====

type studentRepo struct{ r *Repository }

func (s studentRepo) Create(ctx context.Context, student *models.Student) error {
	return s.r.with(ctx, func(d *tenantData) error {
		for _, existing := range d.students {
			if existing.StudentNo == student.StudentNo {
				return repositories.ErrDuplicate
			}
		}
		student.ID = s.r.id()
		student.CreatedAt = time.Now()
		student.UpdatedAt = student.CreatedAt
		stored := *student
		d.students[student.ID] = &stored
		return nil
	})
}

func (s studentRepo) GetByID(ctx context.Context, id uint) (*models.Student, error) {
	var out *models.Student
	err := s.r.with(ctx, func(d *tenantData) error {
		student, ok := d.students[id]
		if !ok {
			return repositories.ErrNotFound
		}
		copied := *student
		out = &copied
		return nil
	})
	return out, err
}

func (s studentRepo) Update(ctx context.Context, student *models.Student) error {
	return s.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.students[student.ID]; !ok {
			return repositories.ErrNotFound
		}
		student.UpdatedAt = time.Now()
		stored := *student
		d.students[student.ID] = &stored
		return nil
	})
}

func (s studentRepo) Delete(ctx context.Context, id uint) error {
	return s.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.students[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(d.students, id)
		return nil
	})
}

func (s studentRepo) List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, int64, error) {
	var out []*models.Student
	var total int64
	err := s.r.with(ctx, func(d *tenantData) error {
		var matched []*models.Student
		for _, student := range d.students {
			if filters.Search != "" && !contains(student.Name, filters.Search) && !contains(student.StudentNo, filters.Search) {
				continue
			}
			if filters.ClassID != nil && (student.ClassID == nil || *student.ClassID != *filters.ClassID) {
				continue
			}
			if filters.Status != nil && student.Status != *filters.Status {
				continue
			}
			copied := *student
			matched = append(matched, &copied)
		}
		sortByID(matched, func(s *models.Student) uint { return s.ID }, filters.SortOrder)
		total = int64(len(matched))
		out = page(matched, filters.Limit, filters.Offset)
		return nil
	})
	return out, total, err
}

func (s studentRepo) ListByClass(ctx context.Context, classID uint) ([]*models.Student, error) {
	out, _, err := s.List(ctx, repositories.StudentFilters{ClassID: &classID, SortOrder: "asc"})
	return out, err
}

func (s studentRepo) ListAll(ctx context.Context) ([]*models.Student, error) {
	out, _, err := s.List(ctx, repositories.StudentFilters{SortOrder: "asc"})
	return out, err
}

func (s studentRepo) ExistsByStudentNo(ctx context.Context, studentNo string, excludeID uint) (bool, error) {
	var exists bool
	err := s.r.with(ctx, func(d *tenantData) error {
		for _, student := range d.students {
			if student.StudentNo == studentNo && student.ID != excludeID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (s studentRepo) CountByStatus(ctx context.Context) (map[models.StudentStatus]int64, error) {
	counts := map[models.StudentStatus]int64{}
	err := s.r.with(ctx, func(d *tenantData) error {
		for _, student := range d.students {
			counts[student.Status]++
		}
		return nil
	})
	return counts, err
}

// ===== ACTIVITIES =====

type activityRepo struct{ r *Repository }

func (a activityRepo) Create(ctx context.Context, activity *models.Activity) error {
	return a.r.with(ctx, func(d *tenantData) error {
		activity.ID = a.r.id()
		activity.CreatedAt = time.Now()
		activity.UpdatedAt = activity.CreatedAt
		stored := *activity
		d.activities[activity.ID] = &stored
		return nil
	})
}

func (a activityRepo) GetByID(ctx context.Context, id uint) (*models.Activity, error) {
	var out *models.Activity
	err := a.r.with(ctx, func(d *tenantData) error {
		activity, ok := d.activities[id]
		if !ok {
			return repositories.ErrNotFound
		}
		copied := *activity
		out = &copied
		return nil
	})
	return out, err
}

func (a activityRepo) Update(ctx context.Context, activity *models.Activity) error {
	return a.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.activities[activity.ID]; !ok {
			return repositories.ErrNotFound
		}
		activity.UpdatedAt = time.Now()
		stored := *activity
		d.activities[activity.ID] = &stored
		return nil
	})
}

func (a activityRepo) UpdateStatus(ctx context.Context, id uint, status models.ActivityStatus) error {
	return a.r.with(ctx, func(d *tenantData) error {
		activity, ok := d.activities[id]
		if !ok {
			return repositories.ErrNotFound
		}
		activity.Status = status
		activity.UpdatedAt = time.Now()
		return nil
	})
}

func (a activityRepo) Delete(ctx context.Context, id uint) error {
	return a.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.activities[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(d.activities, id)
		return nil
	})
}

func (a activityRepo) List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	var out []*models.Activity
	var total int64
	err := a.r.with(ctx, func(d *tenantData) error {
		var matched []*models.Activity
		for _, activity := range d.activities {
			if filters.Search != "" && !contains(activity.Title, filters.Search) {
				continue
			}
			if filters.Type != nil && activity.Type != *filters.Type {
				continue
			}
			if filters.Status != nil && activity.Status != *filters.Status {
				continue
			}
			copied := *activity
			matched = append(matched, &copied)
		}
		sortByID(matched, func(a *models.Activity) uint { return a.ID }, filters.SortOrder)
		total = int64(len(matched))
		out = page(matched, filters.Limit, filters.Offset)
		return nil
	})
	return out, total, err
}

func (a activityRepo) ExistsByTitleOnDate(ctx context.Context, title string, day time.Time, excludeID uint) (bool, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var exists bool
	err := a.r.with(ctx, func(d *tenantData) error {
		for _, activity := range d.activities {
			if activity.ID == excludeID || activity.Title != title {
				continue
			}
			if !activity.StartTime.Before(start) && activity.StartTime.Before(end) {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (a activityRepo) Statistics(ctx context.Context) (*models.ActivityStatistics, error) {
	stats := &models.ActivityStatistics{ByStatus: map[string]int64{}, ByType: map[string]int64{}}
	err := a.r.with(ctx, func(d *tenantData) error {
		for _, activity := range d.activities {
			stats.Total++
			stats.ByStatus[string(activity.Status)]++
			stats.ByType[activity.Type]++
		}
		return nil
	})
	return stats, err
}

func (a activityRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := a.r.with(ctx, func(d *tenantData) error {
		count = int64(len(d.activities))
		return nil
	})
	return count, err
}

// ===== NOTIFICATIONS =====

type notificationRepo struct{ r *Repository }

func (n notificationRepo) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	return n.r.with(ctx, func(d *tenantData) error {
		now := time.Now()
		for _, notification := range notifications {
			notification.ID = n.r.id()
			notification.CreatedAt = now
			notification.UpdatedAt = now
			stored := *notification
			d.notifications[notification.ID] = &stored
		}
		return nil
	})
}

func (n notificationRepo) GetForReceiver(ctx context.Context, id uint, receiverID string) (*models.Notification, error) {
	var out *models.Notification
	err := n.r.with(ctx, func(d *tenantData) error {
		notification, ok := d.notifications[id]
		if !ok || notification.ReceiverID != receiverID {
			return repositories.ErrNotFound
		}
		copied := *notification
		out = &copied
		return nil
	})
	return out, err
}

func (n notificationRepo) ListForReceiver(ctx context.Context, receiverID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	var total int64
	err := n.r.with(ctx, func(d *tenantData) error {
		var matched []*models.Notification
		for _, notification := range d.notifications {
			if notification.ReceiverID != receiverID {
				continue
			}
			if filters.IsRead != nil && notification.IsRead != *filters.IsRead {
				continue
			}
			if filters.Type != nil && notification.Type != *filters.Type {
				continue
			}
			copied := *notification
			matched = append(matched, &copied)
		}
		sortByID(matched, func(n *models.Notification) uint { return n.ID }, "desc")
		total = int64(len(matched))
		out = page(matched, filters.Limit, filters.Offset)
		return nil
	})
	return out, total, err
}

func (n notificationRepo) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := n.r.with(ctx, func(d *tenantData) error {
		for _, notification := range d.notifications {
			if notification.ReceiverID == receiverID && !notification.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (n notificationRepo) CountAllUnread(ctx context.Context) (int64, error) {
	var count int64
	err := n.r.with(ctx, func(d *tenantData) error {
		for _, notification := range d.notifications {
			if !notification.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (n notificationRepo) MarkRead(ctx context.Context, id uint, receiverID string) error {
	return n.r.with(ctx, func(d *tenantData) error {
		notification, ok := d.notifications[id]
		if !ok || notification.ReceiverID != receiverID {
			return repositories.ErrNotFound
		}
		now := time.Now()
		notification.IsRead = true
		notification.ReadAt = &now
		return nil
	})
}

func (n notificationRepo) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	var updated int64
	err := n.r.with(ctx, func(d *tenantData) error {
		now := time.Now()
		for _, notification := range d.notifications {
			if notification.ReceiverID == receiverID && !notification.IsRead {
				notification.IsRead = true
				notification.ReadAt = &now
				updated++
			}
		}
		return nil
	})
	return updated, err
}

func (n notificationRepo) Delete(ctx context.Context, id uint) error {
	return n.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.notifications[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(d.notifications, id)
		return nil
	})
}

// ===== AI SHORTCUTS =====

type shortcutRepo struct{ r *Repository }

func (s shortcutRepo) Create(ctx context.Context, shortcut *models.AIShortcut) error {
	return s.r.with(ctx, func(d *tenantData) error {
		for _, existing := range d.shortcuts {
			if existing.UserID == shortcut.UserID && existing.Name == shortcut.Name {
				return repositories.ErrDuplicate
			}
		}
		shortcut.ID = s.r.id()
		shortcut.CreatedAt = time.Now()
		shortcut.UpdatedAt = shortcut.CreatedAt
		stored := *shortcut
		d.shortcuts[shortcut.ID] = &stored
		return nil
	})
}

func (s shortcutRepo) GetByID(ctx context.Context, id uint, userID string) (*models.AIShortcut, error) {
	var out *models.AIShortcut
	err := s.r.with(ctx, func(d *tenantData) error {
		shortcut, ok := d.shortcuts[id]
		if !ok || shortcut.UserID != userID {
			return repositories.ErrNotFound
		}
		copied := *shortcut
		out = &copied
		return nil
	})
	return out, err
}

func (s shortcutRepo) Update(ctx context.Context, shortcut *models.AIShortcut) error {
	return s.r.with(ctx, func(d *tenantData) error {
		existing, ok := d.shortcuts[shortcut.ID]
		if !ok || existing.UserID != shortcut.UserID {
			return repositories.ErrNotFound
		}
		shortcut.UpdatedAt = time.Now()
		stored := *shortcut
		d.shortcuts[shortcut.ID] = &stored
		return nil
	})
}

func (s shortcutRepo) Delete(ctx context.Context, id uint, userID string) error {
	return s.r.with(ctx, func(d *tenantData) error {
		shortcut, ok := d.shortcuts[id]
		if !ok || shortcut.UserID != userID {
			return repositories.ErrNotFound
		}
		delete(d.shortcuts, id)
		return nil
	})
}

func (s shortcutRepo) ListByUser(ctx context.Context, userID string, filters repositories.ShortcutFilters) ([]*models.AIShortcut, int64, error) {
	var out []*models.AIShortcut
	var total int64
	err := s.r.with(ctx, func(d *tenantData) error {
		var matched []*models.AIShortcut
		for _, shortcut := range d.shortcuts {
			if shortcut.UserID != userID {
				continue
			}
			if filters.Category != nil && (shortcut.Category == nil || *shortcut.Category != *filters.Category) {
				continue
			}
			copied := *shortcut
			matched = append(matched, &copied)
		}
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].SortOrder != matched[j].SortOrder {
				return matched[i].SortOrder < matched[j].SortOrder
			}
			return matched[i].ID < matched[j].ID
		})
		total = int64(len(matched))
		out = page(matched, filters.Limit, filters.Offset)
		return nil
	})
	return out, total, err
}

func (s shortcutRepo) ExistsByName(ctx context.Context, userID, name string, excludeID uint) (bool, error) {
	var exists bool
	err := s.r.with(ctx, func(d *tenantData) error {
		for _, shortcut := range d.shortcuts {
			if shortcut.UserID == userID && shortcut.Name == name && shortcut.ID != excludeID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

// ===== TASKS =====

type taskRepo struct{ r *Repository }

func (t taskRepo) Create(ctx context.Context, task *models.Task) error {
	return t.r.with(ctx, func(d *tenantData) error {
		task.ID = t.r.id()
		task.CreatedAt = time.Now()
		task.UpdatedAt = task.CreatedAt
		stored := *task
		d.tasks[task.ID] = &stored
		return nil
	})
}

func (t taskRepo) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var out *models.Task
	err := t.r.with(ctx, func(d *tenantData) error {
		task, ok := d.tasks[id]
		if !ok {
			return repositories.ErrNotFound
		}
		copied := *task
		out = &copied
		return nil
	})
	return out, err
}

func (t taskRepo) UpdateStatus(ctx context.Context, id uint, status models.TaskStatus, completedAt *time.Time) error {
	return t.r.with(ctx, func(d *tenantData) error {
		task, ok := d.tasks[id]
		if !ok {
			return repositories.ErrNotFound
		}
		task.Status = status
		task.CompletedAt = completedAt
		task.UpdatedAt = time.Now()
		return nil
	})
}

func (t taskRepo) Delete(ctx context.Context, id uint) error {
	return t.r.with(ctx, func(d *tenantData) error {
		if _, ok := d.tasks[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(d.tasks, id)
		return nil
	})
}

func (t taskRepo) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.Task, int64, error) {
	var out []*models.Task
	var total int64
	err := t.r.with(ctx, func(d *tenantData) error {
		var matched []*models.Task
		for _, task := range d.tasks {
			if filters.Status != nil && task.Status != *filters.Status {
				continue
			}
			if filters.Priority != nil && task.Priority != *filters.Priority {
				continue
			}
			if filters.AssigneeID != nil && (task.AssigneeID == nil || *task.AssigneeID != *filters.AssigneeID) {
				continue
			}
			copied := *task
			matched = append(matched, &copied)
		}
		sortByID(matched, func(t *models.Task) uint { return t.ID }, filters.SortOrder)
		total = int64(len(matched))
		out = page(matched, filters.Limit, filters.Offset)
		return nil
	})
	return out, total, err
}

func (t taskRepo) CreateAttachment(ctx context.Context, attachment *models.TaskAttachment) error {
	return t.r.with(ctx, func(d *tenantData) error {
		attachment.ID = t.r.id()
		attachment.CreatedAt = time.Now()
		stored := *attachment
		d.attachments[attachment.ID] = &stored
		return nil
	})
}

func (t taskRepo) ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	var out []*models.TaskAttachment
	err := t.r.with(ctx, func(d *tenantData) error {
		for _, attachment := range d.attachments {
			if attachment.TaskID == taskID {
				copied := *attachment
				out = append(out, &copied)
			}
		}
		sortByID(out, func(a *models.TaskAttachment) uint { return a.ID }, "asc")
		return nil
	})
	return out, err
}

// ===== GRANTS AND METADATA =====

type grantRepo struct{ r *Repository }

func (g grantRepo) HasPermission(ctx context.Context, userID string, permission models.Permission) (bool, error) {
	var allowed bool
	err := g.r.with(ctx, func(d *tenantData) error {
		allowed = d.grants[userID][permission]
		return nil
	})
	return allowed, err
}

type metadataRepo struct{ r *Repository }

func (m metadataRepo) ListTables(ctx context.Context, schema string) ([]string, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	tables := make([]string, 0, len(m.r.columns[schema]))
	for name := range m.r.columns[schema] {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

func (m metadataRepo) ListColumns(ctx context.Context, schema, table string) ([]repositories.ColumnInfo, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	columns, ok := m.r.columns[schema][table]
	if !ok {
		return []repositories.ColumnInfo{}, nil
	}
	return append([]repositories.ColumnInfo(nil), columns...), nil
}
