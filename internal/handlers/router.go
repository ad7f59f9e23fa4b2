package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/auth"
	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/metrics"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/router"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
)

// HandlerDeps carries what the handlers need beyond the service layer.
type HandlerDeps struct {
	Services   services.ServiceManager
	Gate       *auth.Gate
	Metadata   repositories.MetadataRepository
	Tenants    *tenant.Registry
	Cache      *cache.CacheManager
	Logger     utils.Logger
	Production bool
}

type HandlerManager struct {
	studentHandler      *StudentHandler
	activityHandler     *ActivityHandler
	checkinHandler      *CheckinHandler
	notificationHandler *NotificationHandler
	aiHandler           *AIHandler
	statisticsHandler   *StatisticsHandler
	systemHandler       *SystemHandler
	taskHandler         *TaskHandler
	metadataHandler     *MetadataHandler

	gate   *auth.Gate
	logger utils.Logger
}

func NewHandlerManager(deps HandlerDeps) *HandlerManager {
	sm, logger, prod := deps.Services, deps.Logger, deps.Production

	return &HandlerManager{
		studentHandler:      NewStudentHandler(sm.Student(), logger, prod),
		activityHandler:     NewActivityHandler(sm.Activity(), logger, prod),
		checkinHandler:      NewCheckinHandler(sm.Checkin(), logger, prod),
		notificationHandler: NewNotificationHandler(sm.Notification(), logger, prod),
		aiHandler:           NewAIHandler(sm.AI(), logger, prod),
		statisticsHandler:   NewStatisticsHandler(sm.Statistics(), logger, prod),
		systemHandler:       NewSystemHandler(sm.System(), logger, prod),
		taskHandler:         NewTaskHandler(sm.Task(), logger, prod),
		metadataHandler:     NewMetadataHandler(deps.Metadata, deps.Tenants, sm, deps.Cache, logger, prod),
		gate:                deps.Gate,
		logger:              logger,
	}
}

// Routes builds the ordered dispatch table. Within a group, literal paths are registered
// before the param paths that would otherwise shadow them.
func (hm *HandlerManager) Routes() *router.Table {
	table := router.NewTable()
	gate := hm.gate
	perm := gate.RequirePermission

	// Public routes
	public := table.Group("/api", gate.Optional())
	{
		public.GET("/db-metadata/tables", hm.metadataHandler.ListTables)
		public.GET("/db-metadata/tables/:table/columns", hm.metadataHandler.ListColumns)
		public.GET("/documents/formats", hm.metadataHandler.DocumentFormats)
	}

	api := table.Group("/api", gate.Authenticate())

	students := api.Group("/students")
	{
		students.GET("/stats", perm(models.PermStudentView), hm.studentHandler.GetStats)
		students.GET("/export", perm(models.PermStudentView), hm.studentHandler.ExportStudents)
		students.GET("/by-class/:classId", perm(models.PermStudentView), hm.studentHandler.ListByClass)
		students.GET("", perm(models.PermStudentView), hm.studentHandler.ListStudents)
		students.POST("/import", perm(models.PermStudentManage), hm.studentHandler.ImportStudents)
		students.GET("/:id", perm(models.PermStudentView), hm.studentHandler.GetStudent)
		students.POST("", perm(models.PermStudentManage), hm.studentHandler.CreateStudent)
		students.PUT("/:id", perm(models.PermStudentUpdate), hm.studentHandler.UpdateStudent)
		students.DELETE("/:id", perm(models.PermStudentManage), hm.studentHandler.DeleteStudent)
	}

	activities := api.Group("/activities")
	{
		activities.GET("/statistics", perm(models.PermActivityView), hm.activityHandler.GetStatistics)
		activities.GET("", perm(models.PermActivityView), hm.activityHandler.ListActivities)
		activities.GET("/:id", perm(models.PermActivityView), hm.activityHandler.GetActivity)
		activities.POST("", perm(models.PermActivityCreate), hm.activityHandler.CreateActivity)
		activities.PUT("/:id/status", perm(models.PermActivityUpdate), hm.activityHandler.UpdateStatus)
		activities.PUT("/:id", perm(models.PermActivityUpdate), hm.activityHandler.UpdateActivity)
		activities.DELETE("/:id", perm(models.PermActivityManage), hm.activityHandler.DeleteActivity)
	}

	// Check-ins share one permission across the group.
	checkins := api.Group("/activity-checkins", perm(models.PermActivityCheckinManage))
	{
		checkins.GET("", hm.checkinHandler.ListCheckins)
		checkins.POST("", hm.checkinHandler.CreateCheckin)
		checkins.POST("/batch", hm.checkinHandler.BatchCheckin)
		checkins.GET("/by-activity/:activityId", hm.checkinHandler.ListByActivity)
		checkins.GET("/:activityId/stats", hm.checkinHandler.GetStats)
		checkins.GET("/:id", hm.checkinHandler.GetCheckin)
		checkins.PUT("/:id", hm.checkinHandler.UpdateCheckin)
		checkins.DELETE("/:id", hm.checkinHandler.DeleteCheckin)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("/unread/count", perm(models.PermNotificationView), hm.notificationHandler.UnreadCount)
		notifications.GET("", perm(models.PermNotificationView), hm.notificationHandler.ListNotifications)
		notifications.PUT("/read-all", perm(models.PermNotificationView), hm.notificationHandler.MarkAllRead)
		notifications.GET("/:id", perm(models.PermNotificationView), hm.notificationHandler.GetNotification)
		notifications.PUT("/:id/read", perm(models.PermNotificationView), hm.notificationHandler.MarkRead)

		managers := gate.RequireRole(models.RoleAdmin, models.RolePrincipal)
		notifications.POST("", managers, hm.notificationHandler.CreateNotification)
		notifications.DELETE("/:id", managers, hm.notificationHandler.DeleteNotification)
	}

	ai := api.Group("/ai")
	{
		ai.GET("/models", hm.aiHandler.ListModels)

		assistant := ai.Group("", perm(models.PermAIAssistantView))
		assistant.GET("/shortcuts", hm.aiHandler.ListShortcuts)
		assistant.POST("/shortcuts", hm.aiHandler.CreateShortcut)
		assistant.GET("/shortcuts/:id", hm.aiHandler.GetShortcut)
		assistant.PUT("/shortcuts/:id", hm.aiHandler.UpdateShortcut)
		assistant.DELETE("/shortcuts/:id", hm.aiHandler.DeleteShortcut)
		assistant.GET("/analysis/:id", hm.aiHandler.GetAnalysis)
		assistant.POST("/chat/stream", hm.aiHandler.ChatStream)
	}

	statistics := api.Group("/statistics", perm(models.PermDashboardView))
	{
		statistics.GET("/overview", hm.statisticsHandler.GetOverview)
		statistics.GET("/dashboard", hm.statisticsHandler.GetDashboard)
		statistics.GET("/export", hm.statisticsHandler.Export)
	}

	system := api.Group("/system", gate.RequireRole(models.RoleAdmin))
	{
		system.GET("/info", hm.systemHandler.GetInfo)
		system.POST("/cache/clear", hm.systemHandler.ClearCache)
		system.POST("/email/test", hm.systemHandler.TestEmail)
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("", perm(models.PermTaskView), hm.taskHandler.ListTasks)
		tasks.POST("", perm(models.PermTaskManage), hm.taskHandler.CreateTask)
		tasks.GET("/:id/attachments", perm(models.PermTaskView), hm.taskHandler.ListAttachments)
		tasks.POST("/:id/attachments", perm(models.PermTaskManage), hm.taskHandler.UploadAttachment)
		tasks.PUT("/:id/status", perm(models.PermTaskManage), hm.taskHandler.UpdateStatus)
		tasks.GET("/:id", perm(models.PermTaskView), hm.taskHandler.GetTask)
		tasks.DELETE("/:id", perm(models.PermTaskManage), hm.taskHandler.DeleteTask)
	}

	return table
}

// SetupRoutes mounts the dispatch table and the engine-level endpoints.
func (hm *HandlerManager) SetupRoutes(engine *gin.Engine) {
	table := hm.Routes()

	hm.logger.Info("Route table built", "rules", table.Len())
	for _, rule := range table.Rules() {
		hm.logger.Debug("Route registered", "rule", rule)
	}

	engine.GET("/health", hm.metadataHandler.Health)
	engine.GET("/metrics", metrics.Handler())
	engine.Any("/api/*path", table.Dispatch)
	engine.NoRoute(router.NotFound)
}
